// Package httpx provides HTTP response utilities following RFC7807 problem details.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	JSON(w, status, ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// Internal sends the uniform 500 response without leaking the cause.
func Internal(w http.ResponseWriter) {
	Problem(w, http.StatusInternalServerError, "Internal Server Error", "An unknown error has occurred. Please try again later.")
}

// ErrEmptyBody indicates a request without a payload where one was required.
var ErrEmptyBody = errors.New("httpx: empty request body")

// DecodeJSON decodes the JSON request body into the target struct. Unknown
// fields are rejected so payload mistakes surface as 400s instead of silently
// dropped fields.
func DecodeJSON(r *http.Request, target any) error {
	if r.Body == nil {
		return ErrEmptyBody
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}
