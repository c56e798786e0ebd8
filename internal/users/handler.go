package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/adevav/adevav-api/internal/platform/httpx"
	"github.com/adevav/adevav-api/internal/policy"
	"github.com/adevav/adevav-api/internal/shared"
)

// Handler wires HTTP endpoints for user management.
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

// MountRoutes registers user routes together with their policies.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.With(h.guard.Protect(policy.Spec{
		Resource: "users", Action: "create", Auth: true,
		Allow: []string{"Administrator"},
	})).Post("/", h.createUser)
	r.With(h.guard.Protect(policy.Spec{
		Resource: "users", Action: "view", Auth: true,
		Allow: []string{"Administrator", "self"},
	})).Get("/{userID}", h.getUser)
	r.With(h.guard.Protect(policy.Spec{
		Resource: "users", Action: "update", Auth: true,
		Allow: []string{"Administrator", "self"},
	})).Put("/{userID}", h.updateUser)
}

type createUserRequest struct {
	Email       string `json:"email" validate:"required,email,max=256"`
	Password    string `json:"password" validate:"required,min=8,max=256"`
	FirstName   string `json:"firstName" validate:"max=32"`
	LastName    string `json:"lastName" validate:"max=32"`
	Role        string `json:"role" validate:"omitempty,oneof=Subscriber Contributor Author Editor Administrator"`
	IsAssociate bool   `json:"isAssociate"`
	Position    string `json:"position" validate:"omitempty,oneof=President Vice-President Secretary Sub-Secretary Treasurer Sub-Treasurer Auditor Vocal Member"`
	Biography   string `json:"biography"`
	IsPublic    bool   `json:"isPublic"`
}

type updateUserRequest struct {
	Email       *string `json:"email" validate:"omitempty,email,max=256"`
	Password    *string `json:"password" validate:"omitempty,min=8,max=256"`
	FirstName   *string `json:"firstName" validate:"omitempty,max=32"`
	LastName    *string `json:"lastName" validate:"omitempty,max=32"`
	Avatar      *string `json:"avatar"`
	Role        *string `json:"role" validate:"omitempty,oneof=Subscriber Contributor Author Editor Administrator"`
	IsAssociate *bool   `json:"isAssociate"`
	Position    *string `json:"position" validate:"omitempty,oneof=President Vice-President Secretary Sub-Secretary Treasurer Sub-Treasurer Auditor Vocal Member"`
	Biography   *string `json:"biography"`
	IsPublic    *bool   `json:"isPublic"`
}

// UserResponse is the JSON shape of a user. Password data never leaves the
// service layer.
type UserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	Role        string `json:"role"`
	IsAssociate bool   `json:"isAssociate"`
	Position    string `json:"position,omitempty"`
	Biography   string `json:"biography,omitempty"`
	IsPublic    bool   `json:"isPublic"`
}

// FormatUser maps a user onto its response shape.
func FormatUser(user *User) UserResponse {
	return UserResponse{
		ID:          user.ID.String(),
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Avatar:      user.Avatar,
		Role:        user.Role.String(),
		IsAssociate: user.IsAssociate,
		Position:    user.Position,
		Biography:   user.Biography,
		IsPublic:    user.IsPublic,
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	viewer := policy.IdentityFromContext(r.Context())
	list, err := h.service.ListUsers(r.Context(), viewer)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]UserResponse, 0, len(list))
	for i := range list {
		out = append(out, FormatUser(&list[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	role := policy.Subscriber
	if req.Role != "" {
		role, _ = policy.RoleFromString(req.Role)
	}
	user, err := h.service.CreateUser(r.Context(), CreateInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Role:        role,
		IsAssociate: req.IsAssociate,
		Position:    req.Position,
		Biography:   req.Biography,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, FormatUser(&user))
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "userID must be a valid UUID")
		return
	}
	actor := policy.IdentityFromContext(r.Context())
	user, err := h.service.ViewUser(r.Context(), actor, id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, FormatUser(user))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "userID must be a valid UUID")
		return
	}
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	input := UpdateInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Avatar:      req.Avatar,
		IsAssociate: req.IsAssociate,
		Position:    req.Position,
		Biography:   req.Biography,
		IsPublic:    req.IsPublic,
	}
	if req.Role != nil {
		role, ok := policy.RoleFromString(*req.Role)
		if ok {
			input.Role = &role
		}
	}

	actor := policy.IdentityFromContext(r.Context())
	user, err := h.service.UpdateUser(r.Context(), actor, id, input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, FormatUser(&user))
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrEmailTaken):
		httpx.Problem(w, http.StatusConflict, "Conflict", "User already exist")
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "User not found")
	case errors.Is(err, shared.ErrForbidden):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", shared.ForbiddenMessage)
	default:
		if h.logger != nil {
			h.logger.Error("users handler", slog.Any("error", err))
		}
		httpx.Internal(w)
	}
}
