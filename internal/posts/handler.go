package posts

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/adevav/adevav-api/internal/platform/httpx"
	"github.com/adevav/adevav-api/internal/policy"
	"github.com/adevav/adevav-api/internal/shared"
)

// Handler wires HTTP endpoints for posts.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     *policy.Guard
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *policy.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers post routes together with their policies. Listing and
// reading are open to anonymous callers; visibility filtering happens per
// instance instead.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPosts)
	r.With(h.guard.Protect(policy.Spec{
		Resource: "posts", Action: "create", Auth: true,
		Allow: []string{"Administrator", "Editor", "Author", "Contributor"},
	})).Post("/", h.createPost)
	r.Get("/{postID}", h.getPost)
	r.With(h.guard.Protect(policy.Spec{
		Resource: "posts", Action: "update", Auth: true,
		Allow: []string{"Administrator", "Editor", "self"},
		Deny:  []string{"Subscriber"},
	})).Put("/{postID}", h.updatePost)
}

type createPostRequest struct {
	Title      string `json:"title" validate:"required,max=256"`
	Slug       string `json:"slug" validate:"omitempty,max=256"`
	Body       string `json:"body" validate:"required"`
	Status     string `json:"status" validate:"omitempty,oneof=Draft 'Pending Review' Published"`
	Visibility string `json:"visibility" validate:"omitempty,oneof=Public Subscriber Contributor Author Editor Administrator Private"`
}

type updatePostRequest struct {
	Title      *string `json:"title" validate:"omitempty,max=256"`
	Slug       *string `json:"slug" validate:"omitempty,max=256"`
	Body       *string `json:"body"`
	Status     *string `json:"status" validate:"omitempty,oneof=Draft 'Pending Review' Published"`
	Visibility *string `json:"visibility" validate:"omitempty,oneof=Public Subscriber Contributor Author Editor Administrator Private"`
}

// PostResponse is the JSON shape of a post.
type PostResponse struct {
	ID          string     `json:"id"`
	AuthorID    string     `json:"authorId"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Body        string     `json:"body"`
	Status      string     `json:"status"`
	Visibility  string     `json:"visibility"`
	PublishedOn *time.Time `json:"publishedOn,omitempty"`
}

// FormatPost maps a post onto its response shape.
func FormatPost(post *Post) PostResponse {
	return PostResponse{
		ID:          post.ID.String(),
		AuthorID:    post.AuthorID.String(),
		Title:       post.Title,
		Slug:        post.Slug,
		Body:        post.Body,
		Status:      string(post.Status),
		Visibility:  post.Visibility.String(),
		PublishedOn: post.PublishedOn,
	}
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	viewer := policy.IdentityFromContext(r.Context())
	list, err := h.service.ListPosts(r.Context(), viewer)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]PostResponse, 0, len(list))
	for i := range list {
		out = append(out, FormatPost(&list[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	visibility := policy.Public
	if req.Visibility != "" {
		visibility, _ = policy.RoleFromString(req.Visibility)
	}
	actor := policy.IdentityFromContext(r.Context())
	post, err := h.service.CreatePost(r.Context(), actor, CreateInput{
		Title:      req.Title,
		Slug:       req.Slug,
		Body:       req.Body,
		Status:     Status(req.Status),
		Visibility: visibility,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, FormatPost(&post))
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "postID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "postID must be a valid UUID")
		return
	}
	viewer := policy.IdentityFromContext(r.Context())
	post, err := h.service.GetPost(r.Context(), viewer, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, FormatPost(post))
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "postID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "postID must be a valid UUID")
		return
	}
	var req updatePostRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	input := UpdateInput{
		Title: req.Title,
		Slug:  req.Slug,
		Body:  req.Body,
	}
	if req.Status != nil {
		status := Status(*req.Status)
		input.Status = &status
	}
	if req.Visibility != nil {
		if visibility, ok := policy.RoleFromString(*req.Visibility); ok {
			input.Visibility = &visibility
		}
	}

	actor := policy.IdentityFromContext(r.Context())
	post, err := h.service.UpdatePost(r.Context(), actor, id, input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, FormatPost(&post))
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPublishForbidden):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "You are not allowed to publish posts")
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Post not found")
	case errors.Is(err, shared.ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", shared.ForbiddenMessage)
	default:
		if h.logger != nil {
			h.logger.Error("posts handler", slog.Any("error", err))
		}
		httpx.Internal(w)
	}
}
