package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/adevav/adevav-api/internal/platform/cache"
	"github.com/adevav/adevav-api/internal/policy"
	"github.com/adevav/adevav-api/internal/shared"
	_ "github.com/adevav/adevav-api/internal/testing/guard"
)

type memoryRepo struct {
	users   map[uuid.UUID]User
	byEmail map[string]uuid.UUID
	getByID int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[uuid.UUID]User), byEmail: make(map[string]uuid.UUID)}
}

func (r *memoryRepo) Create(ctx context.Context, user User) (User, error) {
	if _, taken := r.byEmail[user.Email]; taken {
		return User{}, shared.ErrEmailTaken
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return user, nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	r.getByID++
	user, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &user, nil
}

func (r *memoryRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	id, ok := r.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]User, error) {
	var result []User
	for _, user := range r.users {
		if filter.OnlyPublic && !user.IsPublic {
			continue
		}
		if filter.SelfID != uuid.Nil && user.ID != filter.SelfID {
			continue
		}
		result = append(result, user)
	}
	return result, nil
}

func (r *memoryRepo) Update(ctx context.Context, user User) (User, error) {
	current, ok := r.users[user.ID]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	if current.Email != user.Email {
		if _, taken := r.byEmail[user.Email]; taken {
			return User{}, shared.ErrEmailTaken
		}
		delete(r.byEmail, current.Email)
		r.byEmail[user.Email] = user.ID
	}
	r.users[user.ID] = user
	return user, nil
}

var _ RepositoryPort = (*memoryRepo)(nil)

func admin() policy.Identity {
	return policy.Identity{SubjectID: uuid.New(), Role: policy.Administrator}
}

func TestCreateUserDefaultsToSubscriber(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil, nil)

	user, err := service.CreateUser(context.Background(), CreateInput{
		Email:    "new@adevav.org",
		Password: "secret",
	})
	require.NoError(t, err)
	require.Equal(t, policy.Subscriber, user.Role)
	require.NotEqual(t, "secret", user.PasswordHash)
	require.True(t, VerifyPassword(&user, "secret"))
	require.False(t, VerifyPassword(&user, "wrong"))
}

func TestCreateUserRejectsSentinelRoles(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil, nil)

	_, err := service.CreateUser(context.Background(), CreateInput{
		Email:    "ghost@adevav.org",
		Password: "secret",
		Role:     policy.Private,
	})
	require.True(t, errors.Is(err, shared.ErrForbidden))
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil, nil)

	_, err := service.CreateUser(context.Background(), CreateInput{Email: "dup@adevav.org", Password: "x"})
	require.NoError(t, err)
	_, err = service.CreateUser(context.Background(), CreateInput{Email: "dup@adevav.org", Password: "x"})
	require.True(t, errors.Is(err, shared.ErrEmailTaken))
}

func TestListUsersByViewer(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil, nil)

	public, err := service.CreateUser(context.Background(), CreateInput{Email: "public@adevav.org", Password: "x", IsPublic: true})
	require.NoError(t, err)
	hidden, err := service.CreateUser(context.Background(), CreateInput{Email: "hidden@adevav.org", Password: "x"})
	require.NoError(t, err)

	listed, err := service.ListUsers(context.Background(), policy.Identity{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, public.ID, listed[0].ID)

	listed, err = service.ListUsers(context.Background(), policy.Identity{SubjectID: hidden.ID, Role: policy.Subscriber})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, hidden.ID, listed[0].ID)

	listed, err = service.ListUsers(context.Background(), admin())
	require.NoError(t, err)
	require.Len(t, listed, 2)
}

func TestViewUserAccess(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil, nil)

	user, err := service.CreateUser(context.Background(), CreateInput{Email: "self@adevav.org", Password: "x"})
	require.NoError(t, err)

	got, err := service.ViewUser(context.Background(), admin(), user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	got, err = service.ViewUser(context.Background(), policy.Identity{SubjectID: user.ID, Role: policy.Subscriber}, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	_, err = service.ViewUser(context.Background(), policy.Identity{SubjectID: uuid.New(), Role: policy.Editor}, user.ID)
	require.True(t, errors.Is(err, shared.ErrForbidden))
}

func TestUpdateUserRoleRules(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil, nil)

	user, err := service.CreateUser(context.Background(), CreateInput{Email: "member@adevav.org", Password: "x"})
	require.NoError(t, err)

	editor := policy.Editor
	// Non-administrators cannot change roles, even on their own account.
	updated, err := service.UpdateUser(context.Background(), policy.Identity{SubjectID: user.ID, Role: policy.Subscriber}, user.ID, UpdateInput{Role: &editor})
	require.NoError(t, err)
	require.Equal(t, policy.Subscriber, updated.Role)

	updated, err = service.UpdateUser(context.Background(), admin(), user.ID, UpdateInput{Role: &editor})
	require.NoError(t, err)
	require.Equal(t, policy.Editor, updated.Role)

	private := policy.Private
	_, err = service.UpdateUser(context.Background(), admin(), user.ID, UpdateInput{Role: &private})
	require.True(t, errors.Is(err, shared.ErrForbidden))
}

func TestUpdateUserForbiddenForOtherAccounts(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil, nil)

	user, err := service.CreateUser(context.Background(), CreateInput{Email: "target@adevav.org", Password: "x"})
	require.NoError(t, err)

	name := "Intruder"
	_, err = service.UpdateUser(context.Background(), policy.Identity{SubjectID: uuid.New(), Role: policy.Editor}, user.ID, UpdateInput{FirstName: &name})
	require.True(t, errors.Is(err, shared.ErrForbidden))
}

func TestUpdateUserRehashesPassword(t *testing.T) {
	repo := newMemoryRepo()
	service := NewService(repo, nil, nil)

	user, err := service.CreateUser(context.Background(), CreateInput{Email: "rotate@adevav.org", Password: "old"})
	require.NoError(t, err)

	newPassword := "new"
	updated, err := service.UpdateUser(context.Background(), admin(), user.ID, UpdateInput{Password: &newPassword})
	require.NoError(t, err)
	require.True(t, VerifyPassword(&updated, "new"))
	require.False(t, VerifyPassword(&updated, "old"))
}

func TestGetUserUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewStore(client, time.Minute)

	repo := newMemoryRepo()
	service := NewService(repo, store, nil)

	user, err := service.CreateUser(context.Background(), CreateInput{Email: "cached@adevav.org", Password: "x"})
	require.NoError(t, err)

	_, err = service.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	reads := repo.getByID

	got, err := service.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Email, got.Email)
	require.Equal(t, reads, repo.getByID, "second lookup must be served from cache")

	// An update invalidates the cached entry.
	name := "Updated"
	_, err = service.UpdateUser(context.Background(), admin(), user.ID, UpdateInput{FirstName: &name})
	require.NoError(t, err)

	got, err = service.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, "Updated", got.FirstName)
}

func TestValidPosition(t *testing.T) {
	require.True(t, ValidPosition("President"))
	require.True(t, ValidPosition("Vocal"))
	require.False(t, ValidPosition("Janitor"))
}
