package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wordsanctuary/guestbook/internal/metrics"
	"github.com/wordsanctuary/guestbook/internal/models"
	"github.com/wordsanctuary/guestbook/internal/sheets"
)

// SubmitResult is what the intake caller always gets back.
type SubmitResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// SubmissionService accepts guest intake.
type SubmissionService struct {
	fwd *Forwarder
	log zerolog.Logger
	now func() time.Time
}

func NewSubmissionService(fwd *Forwarder, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{fwd: fwd, log: log, now: time.Now}
}

// Submit stamps the payload with id, submission date and pending status and
// forwards it to the Store. The payload is not validated; whatever the form
// sent goes to the sheet. The result is a success even when the forward fails.
func (s *SubmissionService) Submit(ctx context.Context, payload map[string]any) SubmitResult {
	now := s.now()
	id := NewGuestID(now)

	data := make(map[string]any, len(payload)+3)
	for k, v := range payload {
		name, known := sheets.CanonicalName(k)
		// Server-owned fields are never taken from the caller, in any spelling.
		if known && (name == "id" || name == "submissionDate" || name == "status") {
			continue
		}
		if tags, ok := v.([]any); ok && known && name == "blessings" {
			v = joinTags(tags)
		}
		data[k] = v
	}
	data["id"] = id
	data["submissionDate"] = isoTime(now)
	data["status"] = string(models.StatusPending)

	metrics.RecordSubmission()
	log := s.log.With().Str("guest_id", id).Logger()

	body, err := sheets.EncodeAddGuest(data)
	if err != nil {
		log.Error().Err(err).Msg("guest payload could not be encoded, dropping forward")
		return SubmitResult{Success: true, ID: id}
	}
	log.Info().Int("fields", len(data)).Msg("guest intake received")

	_ = s.fwd.Forward(ctx, models.ActionAddGuest, id, body)
	return SubmitResult{Success: true, ID: id}
}

func joinTags(tags []any) string {
	parts := make([]string, 0, len(tags))
	for _, t := range tags {
		if s, ok := t.(string); ok && strings.TrimSpace(s) != "" {
			parts = append(parts, strings.TrimSpace(s))
		}
	}
	return strings.Join(parts, ", ")
}
