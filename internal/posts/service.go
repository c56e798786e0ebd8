package posts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/adevav/adevav-api/internal/policy"
	"github.com/adevav/adevav-api/internal/shared"
)

// ErrPublishForbidden indicates a Contributor tried to move a post into the
// Published state. This is a hard business rule on top of the route policy:
// it applies regardless of ownership.
var ErrPublishForbidden = errors.New("posts: publishing forbidden for this role")

// CreateInput carries the fields accepted when creating a post.
type CreateInput struct {
	Title      string
	Slug       string
	Body       string
	Status     Status
	Visibility policy.Role
}

// UpdateInput carries the fields accepted when updating a post. Nil pointers
// leave the stored value untouched.
type UpdateInput struct {
	Title      *string
	Slug       *string
	Body       *string
	Status     *Status
	Visibility *policy.Role
}

// Service handles post business logic.
type Service struct {
	repo     RepositoryPort
	registry *policy.Registry
}

// NewService builds a Service instance. The registry supplies the update
// allow/deny lists consulted by CanModify.
func NewService(repo RepositoryPort, registry *policy.Registry) *Service {
	return &Service{repo: repo, registry: registry}
}

// ListPosts returns the posts visible to the viewer, ordered by slug.
// Anonymous viewers see published Public posts only; authenticated viewers see
// every status within their rank plus their own Private posts.
func (s *Service) ListPosts(ctx context.Context, viewer policy.Identity) ([]Post, error) {
	query := ListQuery{
		Levels:        VisibleLevels(viewer),
		OnlyPublished: viewer.Anonymous(),
	}
	if !viewer.Anonymous() {
		query.PrivateOf = viewer.SubjectID
	}
	return s.repo.ListVisible(ctx, query)
}

// GetPost fetches one post. A post the viewer cannot see reports not-found so
// the response does not disclose its existence.
func (s *Service) GetPost(ctx context.Context, viewer policy.Identity, id uuid.UUID) (*Post, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(viewer, post) {
		return nil, shared.ErrNotFound
	}
	return post, nil
}

// CreatePost stores a new post authored by the actor. Contributors may not
// create a post directly in the Published state.
func (s *Service) CreatePost(ctx context.Context, actor policy.Identity, input CreateInput) (Post, error) {
	if actor.Anonymous() {
		return Post{}, shared.ErrForbidden
	}
	status := input.Status
	if status == "" {
		status = StatusDraft
	}
	if !ValidStatus(status) {
		return Post{}, fmt.Errorf("posts: invalid status %q", input.Status)
	}
	if status == StatusPublished && actor.Role == policy.Contributor {
		return Post{}, ErrPublishForbidden
	}

	slug := input.Slug
	if slug == "" {
		slug = Slugify(input.Title)
	}
	slug, err := s.dedupeSlug(ctx, slug)
	if err != nil {
		return Post{}, err
	}

	post := Post{
		AuthorID:   actor.SubjectID,
		Title:      input.Title,
		Slug:       slug,
		Body:       input.Body,
		Status:     status,
		Visibility: input.Visibility,
	}
	if status == StatusPublished {
		now := time.Now().UTC()
		post.PublishedOn = &now
	}
	return s.repo.Create(ctx, post)
}

// UpdatePost applies an update after the handler-level ownership and publish
// checks. The route policy admits the request; CanModify finishes the
// decision against the concrete post.
func (s *Service) UpdatePost(ctx context.Context, actor policy.Identity, id uuid.UUID, input UpdateInput) (Post, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return Post{}, err
	}
	if !s.CanModify(actor, post) {
		return Post{}, shared.ErrForbidden
	}

	updated := *post
	if input.Title != nil {
		updated.Title = *input.Title
	}
	if input.Slug != nil {
		// Slugify before comparing so re-submitting a cased or accented
		// variant of the current slug does not count the post against
		// itself and rename the permalink.
		if slug := Slugify(*input.Slug); slug != post.Slug {
			slug, err := s.dedupeSlug(ctx, slug)
			if err != nil {
				return Post{}, err
			}
			updated.Slug = slug
		}
	}
	if input.Body != nil {
		updated.Body = *input.Body
	}
	if input.Visibility != nil {
		updated.Visibility = *input.Visibility
	}
	if input.Status != nil {
		if !ValidStatus(*input.Status) {
			return Post{}, fmt.Errorf("posts: invalid status %q", *input.Status)
		}
		if *input.Status == StatusPublished && post.Status != StatusPublished {
			if actor.Role == policy.Contributor {
				return Post{}, ErrPublishForbidden
			}
			now := time.Now().UTC()
			updated.PublishedOn = &now
		}
		updated.Status = *input.Status
	}

	return s.repo.Update(ctx, updated)
}

// CanModify reports whether the actor may modify the post: its author always
// may; otherwise the actor's role must sit in the posts/update allow-list and
// outside its deny-list.
func (s *Service) CanModify(actor policy.Identity, post *Post) bool {
	if actor.Owns(post.AuthorID) {
		return true
	}
	rule, ok := s.registry.Lookup("posts", "update")
	if !ok {
		return false
	}
	return rule.Allow.Contains(actor) && !rule.Deny.Contains(actor)
}

func (s *Service) dedupeSlug(ctx context.Context, slug string) (string, error) {
	count, err := s.repo.CountSlugPrefix(ctx, slug)
	if err != nil {
		return "", err
	}
	if count > 0 {
		slug = fmt.Sprintf("%s-%d", slug, count)
	}
	return slug, nil
}
