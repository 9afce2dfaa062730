package api

import (
	"errors"
	"net/http"

	"github.com/bvrai/campaign-console/internal/preferences"
	"github.com/bvrai/campaign-console/internal/session"
	"github.com/bvrai/campaign-console/pkg/sparkai"
)

// SessionResponse describes the session to the dashboard
type SessionResponse struct {
	Status   session.Status `json:"status"`
	User     *sparkai.User  `json:"user,omitempty"`
	Demo     bool           `json:"demo"`
	Verified bool           `json:"verified"`
	Credits  float64        `json:"credits"`
}

func sessionToResponse(s session.State) SessionResponse {
	return SessionResponse{
		Status:   s.Status,
		User:     s.User,
		Demo:     s.Demo,
		Verified: s.Verified,
		Credits:  s.Credits(),
	}
}

func (rt *Router) handleGetSession(w http.ResponseWriter, r *http.Request) {
	rt.respondJSON(w, http.StatusOK, sessionToResponse(rt.sessions.Snapshot()))
}

// LoginRequest represents a login form submission
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !rt.decode(w, r, &req) {
		return
	}

	st, err := rt.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var loginErr *session.LoginError
		switch {
		case errors.Is(err, session.ErrMissingCredentials):
			rt.respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: string(sparkai.KindValidation)})
		case errors.As(err, &loginErr):
			rt.respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: loginErr.Message, Kind: string(sparkai.KindOf(loginErr.Err))})
		default:
			rt.respondErr(w, err)
		}
		return
	}
	rt.respondJSON(w, http.StatusOK, sessionToResponse(st))
}

func (rt *Router) handleLogout(w http.ResponseWriter, r *http.Request) {
	st := rt.sessions.Logout(r.Context())
	rt.respondJSON(w, http.StatusOK, sessionToResponse(st))
}

func (rt *Router) handleRefreshSession(w http.ResponseWriter, r *http.Request) {
	rt.sessions.RefreshUser(r.Context())
	rt.respondJSON(w, http.StatusOK, sessionToResponse(rt.sessions.Snapshot()))
}

func (rt *Router) handleCredits(w http.ResponseWriter, r *http.Request) {
	if err := rt.sessions.RefreshCredits(r.Context()); err != nil {
		rt.respondErr(w, err)
		return
	}
	rt.respondJSON(w, http.StatusOK, map[string]float64{"creditsBalance": rt.sessions.Credits()})
}

// ThemeRequest represents a theme change
type ThemeRequest struct {
	Theme string `json:"theme"`
}

func (rt *Router) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	rt.respondJSON(w, http.StatusOK, map[string]preferences.Theme{"theme": preferences.LoadTheme(rt.store)})
}

func (rt *Router) handlePutTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if !rt.decode(w, r, &req) {
		return
	}
	theme, err := preferences.ParseTheme(req.Theme)
	if err != nil {
		rt.respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: string(sparkai.KindValidation)})
		return
	}
	if err := preferences.SaveTheme(rt.store, theme); err != nil {
		rt.respondError(w, http.StatusInternalServerError, "Failed to save theme")
		return
	}
	rt.respondJSON(w, http.StatusOK, map[string]preferences.Theme{"theme": theme})
}
