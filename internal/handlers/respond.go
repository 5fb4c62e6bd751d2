package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"
)

const maxRequestBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// isForm reports whether the request carries an HTML form body.
func isForm(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data"
}

// parseForm fills r.PostForm for urlencoded and multipart bodies.
func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		return r.ParseMultipartForm(maxRequestBytes)
	}
	return r.ParseForm()
}

// decodeObject reads a JSON object body. Anything unreadable, malformed or
// not an object is logged and treated as an empty object: write endpoints
// never reject input.
func decodeObject(r *http.Request) map[string]any {
	out := map[string]any{}
	b, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("request body unreadable, using empty payload")
		return out
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return out
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("request body is not JSON, using empty payload")
		return out
	}
	m, ok := v.(map[string]any)
	if !ok {
		hlog.FromRequest(r).Warn().Str("type", fmt.Sprintf("%T", v)).Msg("request body is not a JSON object, using empty payload")
		return out
	}
	return m
}

// asString renders a decoded JSON scalar as text.
func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
