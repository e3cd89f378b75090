package http

import (
	"net/http"

	"concord/internal/domain"
)

const refreshCookie = "refresh_token"

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Path:     h.cookiePath,
		MaxAge:   int(domain.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     h.cookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

type sessionResponse struct {
	User        *domain.User `json:"user,omitempty"`
	AccessToken string       `json:"access_token"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, pair, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.initialGuild != "" {
		if _, err := h.guilds.JoinInvite(r.Context(), user.ID, h.initialGuild); err != nil {
			h.log.Warn("initial guild join failed", "invite", h.initialGuild, "error", err)
		}
	}
	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusCreated, sessionResponse{User: user, AccessToken: pair.AccessToken})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username   string `json:"username"`
		Password   string `json:"password"`
		DeviceName string `json:"device_name"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, pair, err := h.auth.Login(r.Context(), req.Username, req.Password, req.DeviceName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, sessionResponse{User: user, AccessToken: pair.AccessToken})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(refreshCookie)
	if err != nil || c.Value == "" {
		writeError(w, r, domain.ErrUnauthorized)
		return
	}
	pair, err := h.auth.Refresh(r.Context(), c.Value)
	if err != nil {
		h.clearRefreshCookie(w)
		writeError(w, r, err)
		return
	}
	// The token may have rotated; always re-set the cookie.
	h.setRefreshCookie(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, sessionResponse{AccessToken: pair.AccessToken})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(refreshCookie); err == nil && c.Value != "" {
		if err := h.auth.Logout(r.Context(), c.Value); err != nil {
			h.log.Debug("logout", "error", err)
		}
	}
	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password   string `json:"password"`
		DeviceName string `json:"device_name"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.auth.Revoke(r.Context(), currentUser(r).ID, req.Password, req.DeviceName); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) devices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.auth.Devices(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (h *Handler) requestVerifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.email.RequestVerification(r.Context(), currentUser(r).ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) confirmEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, r, domain.ErrBadRequest)
		return
	}
	if err := h.email.ConfirmVerification(r.Context(), token); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// checkResetToken lets the frontend validate a reset link before showing
// the password form.
func (h *Handler) checkResetToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, r, domain.ErrBadRequest)
		return
	}
	if err := h.email.CheckResetToken(r.Context(), token); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// resetPassword serves both halves of the flow: a body with an email asks
// for the mail, a body with token and password performs the reset.
func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var err error
	switch {
	case req.Token != "":
		err = h.email.ResetPassword(r.Context(), req.Token, req.Password)
	case req.Email != "":
		err = h.email.RequestPasswordReset(r.Context(), req.Email)
	default:
		err = domain.ErrBadRequest
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
