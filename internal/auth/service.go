package auth

import (
	"context"
	"errors"

	"github.com/adevav/adevav-api/internal/shared"
	"github.com/adevav/adevav-api/internal/token"
	"github.com/adevav/adevav-api/internal/users"
)

// Service wraps authentication business rules.
type Service struct {
	users  *users.Service
	tokens *token.Manager
}

// NewService constructs a new Service.
func NewService(userService *users.Service, tokens *token.Manager) *Service {
	return &Service{users: userService, tokens: tokens}
}

// Login validates email/password credentials and issues a bearer credential.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *users.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", nil, shared.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !users.VerifyPassword(user, password) {
		return "", nil, shared.ErrInvalidCredentials
	}
	signed, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}
	return signed, user, nil
}
