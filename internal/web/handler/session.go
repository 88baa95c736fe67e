package handler

import (
	"errors"
	"net/http"

	"github.com/trackerhq/tracker/internal/backend"
	"github.com/trackerhq/tracker/internal/session"
	"github.com/trackerhq/tracker/internal/settings"
	"github.com/trackerhq/tracker/internal/web/models"
	"github.com/trackerhq/tracker/internal/web/response"
)

// SessionHandler serves sign-in state and preferences.
type SessionHandler struct {
	gate  *session.Gate
	store *settings.Store
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(gate *session.Gate, store *settings.Store) *SessionHandler {
	return &SessionHandler{gate: gate, store: store}
}

// Login handles POST /login.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	state, err := h.gate.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, session.ErrCredentialsRequired):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, backend.ErrUnauthorized):
		response.Unauthorized(w, r, "invalid username or password")
	case err != nil:
		response.BackendError(w, r, err)
	default:
		response.JSON(w, r, http.StatusOK, sessionView(state))
	}
}

// Logout handles POST /logout.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.Logout(r.Context()); err != nil {
		response.InternalError(w, r, "failed to clear session")
		return
	}
	response.NoContent(w, r)
}

// Session handles GET /session.
func (h *SessionHandler) Session(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, sessionView(h.gate.Current()))
}

// GetPrefs handles GET /prefs.
func (h *SessionHandler) GetPrefs(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, prefsView(h.store.Snapshot()))
}

// UpdatePrefs handles PUT /prefs.
func (h *SessionHandler) UpdatePrefs(w http.ResponseWriter, r *http.Request) {
	var req models.PrefsUpdate
	if !decodeJSON(w, r, &req) {
		return
	}

	var theme settings.Theme
	if req.Theme != nil {
		t, err := settings.ParseTheme(*req.Theme)
		if err != nil {
			response.BadRequest(w, r, err.Error(), []models.FieldError{
				{Field: "theme", Message: "must be light, dark or system", Code: "INVALID"},
			})
			return
		}
		theme = t
	}

	err := h.store.Update(r.Context(), func(s *settings.Settings) {
		if req.Author != nil {
			s.Author = *req.Author
		}
		if req.Theme != nil {
			s.Theme = theme
		}
	})
	if err != nil {
		response.InternalError(w, r, "failed to save preferences")
		return
	}
	response.JSON(w, r, http.StatusOK, prefsView(h.store.Snapshot()))
}

func sessionView(s session.State) models.Session {
	v := models.Session{Authenticated: s.Authenticated, Username: s.Username}
	if !s.ExpiresAt.IsZero() {
		exp := s.ExpiresAt
		v.ExpiresAt = &exp
	}
	return v
}

func prefsView(s settings.Settings) models.Prefs {
	return models.Prefs{Author: s.Author, Theme: string(s.EffectiveTheme())}
}
