package posts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/adevav/adevav-api/internal/policy"
	"github.com/adevav/adevav-api/internal/shared"
	_ "github.com/adevav/adevav-api/internal/testing/guard"
)

type memoryRepo struct {
	posts map[uuid.UUID]Post
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{posts: make(map[uuid.UUID]Post)}
}

func (r *memoryRepo) Create(ctx context.Context, post Post) (Post, error) {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	r.posts[post.ID] = post
	return post, nil
}

func (r *memoryRepo) Get(ctx context.Context, id uuid.UUID) (*Post, error) {
	post, ok := r.posts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &post, nil
}

func (r *memoryRepo) ListVisible(ctx context.Context, query ListQuery) ([]Post, error) {
	levels := make(map[policy.Role]struct{}, len(query.Levels))
	for _, level := range query.Levels {
		levels[level] = struct{}{}
	}
	var result []Post
	for _, post := range r.posts {
		if _, ok := levels[post.Visibility]; ok {
			if query.OnlyPublished && post.Status != StatusPublished {
				continue
			}
			result = append(result, post)
			continue
		}
		if post.Visibility == policy.Private && query.PrivateOf != uuid.Nil && post.AuthorID == query.PrivateOf {
			result = append(result, post)
		}
	}
	return result, nil
}

func (r *memoryRepo) CountSlugPrefix(ctx context.Context, slug string) (int, error) {
	count := 0
	for _, post := range r.posts {
		if strings.HasPrefix(post.Slug, slug) {
			count++
		}
	}
	return count, nil
}

func (r *memoryRepo) Update(ctx context.Context, post Post) (Post, error) {
	if _, ok := r.posts[post.ID]; !ok {
		return Post{}, shared.ErrNotFound
	}
	r.posts[post.ID] = post
	return post, nil
}

var _ RepositoryPort = (*memoryRepo)(nil)

func newTestService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()
	registry := policy.NewRegistry()
	require.NoError(t, registry.Register("posts", "update", []string{"Administrator", "Editor", "self"}, []string{"Subscriber"}))
	repo := newMemoryRepo()
	return NewService(repo, registry), repo
}

func actor(role policy.Role) policy.Identity {
	return policy.Identity{SubjectID: uuid.New(), Role: role}
}

func TestCreatePostDefaultsToDraft(t *testing.T) {
	service, _ := newTestService(t)
	post, err := service.CreatePost(context.Background(), actor(policy.Author), CreateInput{Title: "My First Post"})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, post.Status)
	require.Equal(t, "my-first-post", post.Slug)
	require.Nil(t, post.PublishedOn)
}

func TestCreatePostRejectsAnonymous(t *testing.T) {
	service, _ := newTestService(t)
	_, err := service.CreatePost(context.Background(), policy.Identity{}, CreateInput{Title: "Nope"})
	require.True(t, errors.Is(err, shared.ErrForbidden))
}

func TestCreatePostContributorCannotPublish(t *testing.T) {
	service, _ := newTestService(t)
	_, err := service.CreatePost(context.Background(), actor(policy.Contributor), CreateInput{
		Title:  "Breaking News",
		Status: StatusPublished,
	})
	require.True(t, errors.Is(err, ErrPublishForbidden))

	// Drafting is fine.
	post, err := service.CreatePost(context.Background(), actor(policy.Contributor), CreateInput{
		Title:  "Breaking News",
		Status: StatusDraft,
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, post.Status)
}

func TestCreatePostPublishedStampsDate(t *testing.T) {
	service, _ := newTestService(t)
	post, err := service.CreatePost(context.Background(), actor(policy.Editor), CreateInput{
		Title:  "Launch Day",
		Status: StatusPublished,
	})
	require.NoError(t, err)
	require.NotNil(t, post.PublishedOn)
}

func TestCreatePostDedupesSlug(t *testing.T) {
	service, _ := newTestService(t)
	author := actor(policy.Author)

	first, err := service.CreatePost(context.Background(), author, CreateInput{Title: "Repeated Title"})
	require.NoError(t, err)
	require.Equal(t, "repeated-title", first.Slug)

	second, err := service.CreatePost(context.Background(), author, CreateInput{Title: "Repeated Title"})
	require.NoError(t, err)
	require.Equal(t, "repeated-title-1", second.Slug)
}

func TestGetPostHidesUnviewable(t *testing.T) {
	service, repo := newTestService(t)
	post, err := repo.Create(context.Background(), Post{
		AuthorID:   uuid.New(),
		Title:      "Editors Only",
		Slug:       "editors-only",
		Visibility: policy.Editor,
	})
	require.NoError(t, err)

	_, err = service.GetPost(context.Background(), actor(policy.Subscriber), post.ID)
	require.True(t, errors.Is(err, shared.ErrNotFound))

	got, err := service.GetPost(context.Background(), actor(policy.Editor), post.ID)
	require.NoError(t, err)
	require.Equal(t, post.ID, got.ID)
}

func TestUpdatePostOwnership(t *testing.T) {
	service, repo := newTestService(t)
	owner := actor(policy.Contributor)
	post, err := repo.Create(context.Background(), Post{
		AuthorID: owner.SubjectID,
		Title:    "Mine",
		Slug:     "mine",
		Status:   StatusDraft,
	})
	require.NoError(t, err)

	newTitle := "Mine, Edited"
	updated, err := service.UpdatePost(context.Background(), owner, post.ID, UpdateInput{Title: &newTitle})
	require.NoError(t, err)
	require.Equal(t, newTitle, updated.Title)

	// Another author with the same role is neither owner nor in the allow list.
	_, err = service.UpdatePost(context.Background(), actor(policy.Author), post.ID, UpdateInput{Title: &newTitle})
	require.True(t, errors.Is(err, shared.ErrForbidden))

	// An editor may update anyone's post.
	_, err = service.UpdatePost(context.Background(), actor(policy.Editor), post.ID, UpdateInput{Title: &newTitle})
	require.NoError(t, err)
}

func TestUpdatePostContributorPublishGate(t *testing.T) {
	service, repo := newTestService(t)
	owner := actor(policy.Contributor)
	post, err := repo.Create(context.Background(), Post{
		AuthorID: owner.SubjectID,
		Title:    "Pending",
		Slug:     "pending",
		Status:   StatusPendingReview,
	})
	require.NoError(t, err)

	published := StatusPublished
	_, err = service.UpdatePost(context.Background(), owner, post.ID, UpdateInput{Status: &published})
	require.True(t, errors.Is(err, ErrPublishForbidden))

	updated, err := service.UpdatePost(context.Background(), actor(policy.Editor), post.ID, UpdateInput{Status: &published})
	require.NoError(t, err)
	require.Equal(t, StatusPublished, updated.Status)
	require.NotNil(t, updated.PublishedOn)
}

func TestUpdatePostRedupesChangedSlug(t *testing.T) {
	service, repo := newTestService(t)
	owner := actor(policy.Author)
	_, err := repo.Create(context.Background(), Post{
		AuthorID: owner.SubjectID,
		Title:    "Taken",
		Slug:     "taken",
	})
	require.NoError(t, err)
	post, err := repo.Create(context.Background(), Post{
		AuthorID: owner.SubjectID,
		Title:    "Original",
		Slug:     "original",
	})
	require.NoError(t, err)

	newSlug := "Taken"
	updated, err := service.UpdatePost(context.Background(), owner, post.ID, UpdateInput{Slug: &newSlug})
	require.NoError(t, err)
	require.Equal(t, "taken-1", updated.Slug)
}

func TestUpdatePostKeepsOwnSlugOnRecase(t *testing.T) {
	service, repo := newTestService(t)
	owner := actor(policy.Author)
	post, err := repo.Create(context.Background(), Post{
		AuthorID: owner.SubjectID,
		Title:    "Mine",
		Slug:     "mine",
	})
	require.NoError(t, err)

	// A cased variant of the current slug must not rename the permalink.
	recased := "Mine"
	updated, err := service.UpdatePost(context.Background(), owner, post.ID, UpdateInput{Slug: &recased})
	require.NoError(t, err)
	require.Equal(t, "mine", updated.Slug)
}

func TestCanModify(t *testing.T) {
	service, _ := newTestService(t)
	owner := actor(policy.Subscriber)
	post := &Post{AuthorID: owner.SubjectID}

	require.True(t, service.CanModify(owner, post))
	require.True(t, service.CanModify(actor(policy.Administrator), post))
	require.True(t, service.CanModify(actor(policy.Editor), post))
	require.False(t, service.CanModify(actor(policy.Author), post))
	require.False(t, service.CanModify(actor(policy.Subscriber), post))
	require.False(t, service.CanModify(policy.Identity{}, post))
}
