package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pandapunten/apiserver/internal/services"
	"github.com/pandapunten/apiserver/internal/store"
)

// UserHandler provides HTTP handlers for users.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler constructs a handler with the provided service.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers user routes on the given router. Privileged routes
// run the admin middleware before any request parsing.
func UserRouter(r chi.Router, userService *services.UserService, admin *AdminHandler) {
	handler := NewUserHandler(userService)

	r.Get("/users", handler.ListUsers)
	r.With(admin.RequireAdmin).Post("/users", handler.CreateUser)
	r.Route("/users/{token}", func(r chi.Router) {
		r.Use(admin.RequireAdmin)
		r.Delete("/", handler.DeleteUser)
		r.Put("/resetdate", handler.AdjustResetDate)
	})
	r.Post("/reset", handler.SelfReset)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	var startDate *time.Time
	if req.StartDate.Set {
		startDate = &req.StartDate.Time
	}

	user, err := h.userService.Create(r.Context(), req.Name, startDate)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	removed, err := h.userService.Delete(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("%s deleted", removed.Name)})
}

func (h *UserHandler) AdjustResetDate(w http.ResponseWriter, r *http.Request) {
	var req AdjustResetDateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if !req.NewDate.Set {
		writeError(w, http.StatusBadRequest, "newDate is required")
		return
	}

	user, err := h.userService.AdjustResetDate(r.Context(), chi.URLParam(r, "token"), req.NewDate.Time)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update reset date")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("reset date of %s updated", user.Name)})
}

func (h *UserHandler) SelfReset(w http.ResponseWriter, r *http.Request) {
	var req SelfResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	user, err := h.userService.SelfReset(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "invalid token")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to reset user")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: fmt.Sprintf("%s has been reset", user.Name)})
}

type CreateUserRequest struct {
	Name      string `json:"name"`
	StartDate Date   `json:"startDate"`
}

type AdjustResetDateRequest struct {
	NewDate Date `json:"newDate"`
}

type SelfResetRequest struct {
	Token string `json:"token"`
}

func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errInvalidDate) {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	writeError(w, http.StatusBadRequest, "invalid request")
}
