package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clavis/internal/user"
	id "clavis/pkg/domain"
	dErrors "clavis/pkg/domain-errors"
	"clavis/pkg/requestcontext"
)

// UserService is the account CRUD surface the handlers delegate to.
type UserService interface {
	Create(ctx context.Context, in user.CreateInput) (user.Public, error)
	Get(ctx context.Context, userID id.UserID) (user.Public, error)
	Update(ctx context.Context, userID id.UserID, in user.UpdateInput) (user.Public, error)
	Delete(ctx context.Context, userID id.UserID) error
}

type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// updateUserRequest uses pointers so an absent field and an empty field are
// distinguishable. tokenVersion and the stored hash have no field here at all;
// the only way to touch them is a password change.
type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (h *UserHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	created, err := h.users.Create(r.Context(), user.CreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.logRejected(r, "create user", err)
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *UserHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	got, err := h.users.Get(r.Context(), userID)
	if err != nil {
		h.logRejected(r, "get user", err)
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, got)
}

func (h *UserHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	updated, err := h.users.Update(r.Context(), userID, user.UpdateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.logRejected(r, "update user", err)
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *UserHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	if err := h.users.Delete(r.Context(), userID); err != nil {
		h.logRejected(r, "delete user", err)
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

func (h *UserHandler) logRejected(r *http.Request, op string, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed",
			"error", err.Error(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}
	h.logger.WarnContext(ctx, op+" rejected",
		"error", err.Error(),
		"request_id", requestcontext.RequestID(ctx),
	)
}
