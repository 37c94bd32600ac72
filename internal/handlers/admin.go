package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pandapunten/apiserver/internal/auth"
)

// AdminTokenHeader carries the static admin credential.
const AdminTokenHeader = "X-Admin-Token"

// AdminHandler guards privileged routes and issues admin sessions.
type AdminHandler struct {
	guard    *auth.Guard
	sessions *auth.Sessions
}

// NewAdminHandler constructs an AdminHandler. sessions may be nil, which
// disables bearer sessions.
func NewAdminHandler(guard *auth.Guard, sessions *auth.Sessions) *AdminHandler {
	return &AdminHandler{guard: guard, sessions: sessions}
}

// AdminRouter registers admin session routes on the given router.
func AdminRouter(r chi.Router, admin *AdminHandler) {
	r.Post("/session", admin.CreateSession)
}

// RequireAdmin rejects the request with 403 unless it carries the admin
// secret or, when sessions are enabled, a valid admin bearer token.
func (h *AdminHandler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.isAdmin(r) {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateSession exchanges the static admin secret for a short-lived JWT.
func (h *AdminHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		writeError(w, http.StatusNotFound, "admin sessions are disabled")
		return
	}
	if !h.guard.IsAdmin(r.Header.Get(AdminTokenHeader)) {
		writeError(w, http.StatusForbidden, "admin access required")
		return
	}

	token, expiresAt, err := h.sessions.Issue()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Token: token, ExpiresAt: expiresAt})
}

type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *AdminHandler) isAdmin(r *http.Request) bool {
	if h.guard.IsAdmin(r.Header.Get(AdminTokenHeader)) {
		return true
	}
	if h.sessions == nil {
		return false
	}
	token, ok := bearerToken(r)
	if !ok {
		return false
	}
	return h.sessions.Verify(token) == nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
