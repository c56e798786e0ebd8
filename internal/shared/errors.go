package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidCredential indicates a malformed, expired or badly signed bearer token.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrForbidden indicates the caller may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrEmailTaken occurs when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
)

// ForbiddenMessage is the uniform denial body. It never discloses which policy
// or role produced the denial.
const ForbiddenMessage = "You are not allowed to use this resource."
