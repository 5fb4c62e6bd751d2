package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"
)

// GET /qr/intake.png
func IntakeQR(baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeQR(w, baseURL+"/")
	}
}

// GET /qr/guests/{id}.png
func GuestQR(baseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			http.NotFound(w, r)
			return
		}
		// Scanning opens the minister portal with the guest preselected
		writeQR(w, baseURL+"/minister?guest="+url.QueryEscape(id))
	}
}

func writeQR(w http.ResponseWriter, content string) {
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "failed to generate qr", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
