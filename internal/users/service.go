package users

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/adevav/adevav-api/internal/platform/cache"
	"github.com/adevav/adevav-api/internal/policy"
	"github.com/adevav/adevav-api/internal/shared"
)

// CreateInput carries the fields accepted when creating a user.
type CreateInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Role        policy.Role
	IsAssociate bool
	Position    string
	Biography   string
	IsPublic    bool
}

// UpdateInput carries the fields accepted when updating a user. Nil pointers
// leave the stored value untouched.
type UpdateInput struct {
	Email       *string
	Password    *string
	FirstName   *string
	LastName    *string
	Avatar      *string
	Role        *policy.Role
	IsAssociate *bool
	Position    *string
	Biography   *string
	IsPublic    *bool
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	cache  *cache.Store
	logger *slog.Logger
}

// NewService builds a Service instance. The cache may be nil.
func NewService(repo RepositoryPort, store *cache.Store, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: store, logger: logger}
}

// GetUser fetches a user by id through the lookup cache.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	key := cacheKey(id)
	var cached User
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) && s.logger != nil {
		s.logger.Warn("user cache read", slog.Any("error", err))
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, user); err != nil && s.logger != nil {
		s.logger.Warn("user cache write", slog.Any("error", err))
	}
	return user, nil
}

// GetUserByEmail fetches a user by email, bypassing the cache.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// ListUsers applies the viewer-dependent listing rules: anonymous callers see
// public profiles only, authenticated non-administrators see themselves only,
// administrators see everyone.
func (s *Service) ListUsers(ctx context.Context, viewer policy.Identity) ([]User, error) {
	filter := ListFilter{}
	switch {
	case viewer.Anonymous():
		filter.OnlyPublic = true
	case viewer.Role != policy.Administrator:
		filter.SelfID = viewer.SubjectID
	}
	return s.repo.List(ctx, filter)
}

// CreateUser hashes the password and stores the account. A missing role
// defaults to Subscriber; Public and Private are never assignable.
func (s *Service) CreateUser(ctx context.Context, input CreateInput) (User, error) {
	role := input.Role
	if role == policy.Public {
		role = policy.Subscriber
	}
	if !role.Assignable() {
		return User{}, shared.ErrForbidden
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	return s.repo.Create(ctx, User{
		Email:        input.Email,
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         role,
		IsAssociate:  input.IsAssociate,
		Position:     input.Position,
		Biography:    input.Biography,
		IsPublic:     input.IsPublic,
	})
}

// ViewUser returns the user when the actor may see the account: any
// administrator, or the account owner when admitted through the self branch.
func (s *Service) ViewUser(ctx context.Context, actor policy.Identity, id uuid.UUID) (*User, error) {
	if actor.Role != policy.Administrator && !actor.Owns(id) {
		return nil, shared.ErrForbidden
	}
	return s.GetUser(ctx, id)
}

// UpdateUser applies an update. Only administrators may change a stored role;
// a self-scoped actor may only touch their own account.
func (s *Service) UpdateUser(ctx context.Context, actor policy.Identity, id uuid.UUID, input UpdateInput) (User, error) {
	isAdmin := actor.Role == policy.Administrator
	if !isAdmin && !actor.Owns(id) {
		return User{}, shared.ErrForbidden
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	updated := *current
	if input.Email != nil {
		updated.Email = *input.Email
	}
	if input.Password != nil && *input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		updated.PasswordHash = string(hash)
	}
	if input.FirstName != nil {
		updated.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		updated.LastName = *input.LastName
	}
	if input.Avatar != nil {
		updated.Avatar = *input.Avatar
	}
	if input.Role != nil && isAdmin {
		if !input.Role.Assignable() {
			return User{}, shared.ErrForbidden
		}
		updated.Role = *input.Role
	}
	if input.IsAssociate != nil {
		updated.IsAssociate = *input.IsAssociate
	}
	if input.Position != nil {
		updated.Position = *input.Position
	}
	if input.Biography != nil {
		updated.Biography = *input.Biography
	}
	if input.IsPublic != nil {
		updated.IsPublic = *input.IsPublic
	}

	stored, err := s.repo.Update(ctx, updated)
	if err != nil {
		return User{}, err
	}
	if err := s.cache.Delete(ctx, cacheKey(id)); err != nil && s.logger != nil {
		s.logger.Warn("user cache invalidate", slog.Any("error", err))
	}
	return stored, nil
}

// VerifyPassword compares a candidate password against the stored hash.
func VerifyPassword(user *User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func cacheKey(id uuid.UUID) string {
	return "users:id:" + id.String()
}
