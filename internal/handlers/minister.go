package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/wordsanctuary/guestbook/internal/auth"
	"github.com/wordsanctuary/guestbook/internal/forms"
	"github.com/wordsanctuary/guestbook/internal/services"
)

// GET /catalog
func Catalog(c *forms.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, c)
	}
}

// POST /minister/login
func MinisterLogin(a *auth.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			writeError(w, http.StatusNotFound, "minister sign-in is not enabled")
			return
		}
		var pw string
		if isForm(r) {
			_ = parseForm(r)
			pw = r.PostForm.Get("password")
		} else {
			pw, _ = decodeObject(r)["password"].(string)
		}

		token, err := a.Login(pw)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidPassword) {
				hlog.FromRequest(r).Warn().Msg("minister sign-in rejected")
				writeError(w, http.StatusUnauthorized, "invalid password")
				return
			}
			hlog.FromRequest(r).Error().Err(err).Msg("minister sign-in failed")
			writeError(w, http.StatusInternalServerError, "sign-in failed")
			return
		}

		expires := time.Now().Add(a.TTL())
		http.SetCookie(w, &http.Cookie{
			Name:     auth.CookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   r.TLS != nil,
			Expires:  expires,
		})
		writeJSON(w, http.StatusOK, map[string]any{
			"token":     token,
			"expiresAt": expires.UTC().Format(time.RFC3339),
		})
	}
}

// POST /minister/logout
func MinisterLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GET /admin/outbox
func AdminOutbox(ob *services.Outbox) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ob == nil {
			writeError(w, http.StatusNotFound, "outbox is disabled")
			return
		}
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit <= 0 || limit > 500 {
			limit = 100
		}
		entries, err := ob.List(r.Context(), r.URL.Query().Get("state"), limit)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("list outbox")
			writeError(w, http.StatusInternalServerError, "outbox unavailable")
			return
		}
		counts, err := ob.Counts(r.Context())
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("count outbox")
			writeError(w, http.StatusInternalServerError, "outbox unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"counts": counts, "entries": entries})
	}
}

// POST /admin/outbox/replay
func AdminOutboxReplay(rp *services.Replayer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rp == nil {
			writeError(w, http.StatusNotFound, "outbox is disabled")
			return
		}
		rep, err := rp.RunOnce(r.Context())
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("outbox replay")
			writeError(w, http.StatusInternalServerError, "replay failed")
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}
