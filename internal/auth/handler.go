package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/adevav/adevav-api/internal/platform/httpx"
	"github.com/adevav/adevav-api/internal/policy"
	"github.com/adevav/adevav-api/internal/shared"
	"github.com/adevav/adevav-api/internal/users"
)

// Events receives authentication outcomes for the audit trail. Recording is
// fire-and-forget; a nil Events drops them.
type Events interface {
	LoginSucceeded(ctx context.Context, user *users.User)
	LoginFailed(ctx context.Context, email string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     *policy.Guard
	events    Events
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *policy.Guard, events Events) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, events: events, validator: validator.New()}
}

// MountRoutes registers auth routes. The scope endpoint requires a resolved
// identity but carries no policy of its own: it reports the registry rather
// than being subject to it.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))).
		Post("/login", h.login)
	r.With(h.guard.Protect(policy.Spec{Auth: true})).Get("/scope", h.scope)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string             `json:"token"`
	User  users.UserResponse `json:"user"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	signed, user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			if h.events != nil {
				h.events.LoginFailed(r.Context(), req.Email)
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "Invalid email or password")
			return
		}
		if h.logger != nil {
			h.logger.Error("login", slog.Any("error", err))
		}
		httpx.Internal(w)
		return
	}

	if h.events != nil {
		h.events.LoginSucceeded(r.Context(), user)
	}
	httpx.JSON(w, http.StatusOK, loginResponse{Token: signed, User: users.FormatUser(user)})
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) {
	id := policy.IdentityFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, policy.Scope(h.guard.Registry(), id))
}
