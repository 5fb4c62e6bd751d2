package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/wordsanctuary/guestbook/internal/forms"
	"github.com/wordsanctuary/guestbook/internal/services"
)

// GET /guests
func ListGuests(svc *services.ListingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.List(r.Context()))
	}
}

// GET /guests/pending
func PendingGuests(svc *services.ListingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Pending(r.Context()))
	}
}

// GET /guests/{id}/departments
func GuestDepartments(svc *services.ListingService, c *forms.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := svc.Find(r.Context(), chi.URLParam(r, "id"))
		if !ok {
			writeJSON(w, http.StatusOK, forms.DepartmentOptions(c, nil))
			return
		}
		writeJSON(w, http.StatusOK, forms.DepartmentOptions(c, &g))
	}
}

// POST /guests
func SubmitGuest(svc *services.SubmissionService, c *forms.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if isForm(r) {
			if err := parseForm(r); err != nil {
				hlog.FromRequest(r).Warn().Err(err).Msg("intake form unreadable, using empty payload")
			}
			payload = forms.IntakeFromForm(c, r.PostForm).Payload()
		} else {
			payload = decodeObject(r)
		}
		writeJSON(w, http.StatusOK, svc.Submit(r.Context(), payload))
	}
}

// POST /guests/{id}/follow-up
func FollowUpGuest(svc *services.FollowUpService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req services.FollowUpRequest
		if isForm(r) {
			if err := parseForm(r); err != nil {
				hlog.FromRequest(r).Warn().Err(err).Msg("follow-up form unreadable")
			}
			d := forms.FollowUpFromForm(r.PostForm)
			req = services.FollowUpRequest{
				GuestID:      d.GuestID,
				MinisterData: d.MinisterData(),
				Status:       r.PostForm.Get("status"),
			}
		} else {
			body := decodeObject(r)
			req.GuestID = asString(body["guestId"])
			req.Status = asString(body["status"])
			if md, ok := body["ministerData"].(map[string]any); ok {
				req.MinisterData = md
			}
		}
		writeJSON(w, http.StatusOK, svc.Complete(r.Context(), chi.URLParam(r, "id"), req))
	}
}
