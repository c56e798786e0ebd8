package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adevav/adevav-api/internal/policy"
	"github.com/adevav/adevav-api/internal/shared"
)

// ListFilter narrows a user listing. Zero value lists everything.
type ListFilter struct {
	OnlyPublic bool
	SelfID     uuid.UUID
}

// RepositoryPort defines persistence operations for the users module.
type RepositoryPort interface {
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, filter ListFilter) ([]User, error)
	Update(ctx context.Context, user User) (User, error)
}

// PGRepository implements RepositoryPort using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, password_hash, first_name, last_name, avatar, role, is_associate, position, biography, is_public, created_at, updated_at`

// Create inserts a new user. A duplicate email maps to shared.ErrEmailTaken.
func (r *PGRepository) Create(ctx context.Context, user User) (User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, avatar, role, is_associate, position, biography, is_public, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		RETURNING `+userColumns,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Avatar,
		user.Role.String(), user.IsAssociate, nullable(user.Position), user.Biography, user.IsPublic, now)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, shared.ErrEmailTaken
		}
		return User{}, err
	}
	return *created, nil
}

// GetByID fetches a user by id.
func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	return user, err
}

// GetByEmail fetches a user by email.
func (r *PGRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	return user, err
}

// List returns users ordered by email, narrowed by the filter.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	switch {
	case filter.OnlyPublic:
		query += ` WHERE is_public = TRUE`
	case filter.SelfID != uuid.Nil:
		query += ` WHERE id = $1`
		args = append(args, filter.SelfID)
	}
	query += ` ORDER BY email ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

// Update persists mutable fields of an existing user.
func (r *PGRepository) Update(ctx context.Context, user User) (User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET email = $2, password_hash = $3, first_name = $4, last_name = $5, avatar = $6,
		    role = $7, is_associate = $8, position = $9, biography = $10, is_public = $11,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Avatar,
		user.Role.String(), user.IsAssociate, nullable(user.Position), user.Biography, user.IsPublic)
	updated, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, shared.ErrEmailTaken
		}
		return User{}, err
	}
	return *updated, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		user     User
		roleName string
		position *string
	)
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.Avatar, &roleName, &user.IsAssociate, &position, &user.Biography, &user.IsPublic,
		&user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	role, ok := policy.RoleFromString(roleName)
	if !ok {
		role = policy.Subscriber
	}
	user.Role = role
	if position != nil {
		user.Position = *position
	}
	return &user, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ RepositoryPort = (*PGRepository)(nil)
