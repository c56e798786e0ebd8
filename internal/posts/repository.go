package posts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adevav/adevav-api/internal/policy"
	"github.com/adevav/adevav-api/internal/shared"
)

// ListQuery describes the visibility window of a listing.
type ListQuery struct {
	Levels        []policy.Role
	OnlyPublished bool
	// PrivateOf merges the Private posts of this author into the result.
	PrivateOf uuid.UUID
}

// RepositoryPort defines persistence operations for the posts module.
type RepositoryPort interface {
	Create(ctx context.Context, post Post) (Post, error)
	Get(ctx context.Context, id uuid.UUID) (*Post, error)
	ListVisible(ctx context.Context, query ListQuery) ([]Post, error)
	CountSlugPrefix(ctx context.Context, slug string) (int, error)
	Update(ctx context.Context, post Post) (Post, error)
}

// PGRepository implements RepositoryPort using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const postColumns = `id, author_id, title, slug, body, status, visibility, published_on, created_at, updated_at`

// Create inserts a new post.
func (r *PGRepository) Create(ctx context.Context, post Post) (Post, error) {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO posts (id, author_id, title, slug, body, status, visibility, published_on, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING `+postColumns,
		post.ID, post.AuthorID, post.Title, post.Slug, post.Body,
		string(post.Status), post.Visibility.String(), post.PublishedOn, now)
	created, err := scanPost(row)
	if err != nil {
		return Post{}, err
	}
	return *created, nil
}

// Get fetches a post by id.
func (r *PGRepository) Get(ctx context.Context, id uuid.UUID) (*Post, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	post, err := scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	return post, err
}

// ListVisible returns the posts inside the query's visibility window, merged
// with the requested author's Private posts, ordered by slug.
func (r *PGRepository) ListVisible(ctx context.Context, query ListQuery) ([]Post, error) {
	levels := make([]string, 0, len(query.Levels))
	for _, level := range query.Levels {
		levels = append(levels, level.String())
	}

	sql := `SELECT ` + postColumns + ` FROM posts WHERE (visibility = ANY($1)`
	if query.OnlyPublished {
		sql += ` AND status = 'Published'`
	}
	sql += `)`
	args := []any{levels}
	if query.PrivateOf != uuid.Nil {
		sql += ` OR (visibility = 'Private' AND author_id = $2)`
		args = append(args, query.PrivateOf)
	}
	sql += ` ORDER BY slug ASC`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *post)
	}
	return result, rows.Err()
}

// CountSlugPrefix counts posts whose slug starts with the given slug, used to
// dedupe generated slugs with a numeric suffix.
func (r *PGRepository) CountSlugPrefix(ctx context.Context, slug string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE slug LIKE $1 || '%'`, slug).Scan(&count)
	return count, err
}

// Update persists mutable fields of an existing post.
func (r *PGRepository) Update(ctx context.Context, post Post) (Post, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE posts
		SET title = $2, slug = $3, body = $4, status = $5, visibility = $6, published_on = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING `+postColumns,
		post.ID, post.Title, post.Slug, post.Body, string(post.Status), post.Visibility.String(), post.PublishedOn)
	updated, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, shared.ErrNotFound
		}
		return Post{}, err
	}
	return *updated, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*Post, error) {
	var (
		post           Post
		status         string
		visibilityName string
	)
	if err := row.Scan(&post.ID, &post.AuthorID, &post.Title, &post.Slug, &post.Body,
		&status, &visibilityName, &post.PublishedOn, &post.CreatedAt, &post.UpdatedAt); err != nil {
		return nil, err
	}
	post.Status = Status(status)
	visibility, ok := policy.RoleFromString(visibilityName)
	if !ok {
		visibility = policy.Public
	}
	post.Visibility = visibility
	return &post, nil
}

var _ RepositoryPort = (*PGRepository)(nil)
