package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wordsanctuary/guestbook/internal/metrics"
	"github.com/wordsanctuary/guestbook/internal/models"
	"github.com/wordsanctuary/guestbook/internal/sheets"
)

// FollowUpRequest is the minister portal's completion body.
type FollowUpRequest struct {
	GuestID      string         `json:"guestId"`
	MinisterData map[string]any `json:"ministerData"`
	Status       string         `json:"status"`
}

// FollowUpResult is what the minister portal always gets back.
type FollowUpResult struct {
	Success bool `json:"success"`
}

// FollowUpService writes the minister overlay for one guest.
type FollowUpService struct {
	fwd    *Forwarder
	outbox *Outbox
	log    zerolog.Logger
	now    func() time.Time
}

func NewFollowUpService(fwd *Forwarder, outbox *Outbox, log zerolog.Logger) *FollowUpService {
	return &FollowUpService{fwd: fwd, outbox: outbox, log: log, now: time.Now}
}

// Complete forwards the follow-up to the Store. The guest id in the body
// wins; pathID is used when the body has none. There is no existence check
// and no conflict detection beyond a warning: the last write wins.
func (s *FollowUpService) Complete(ctx context.Context, pathID string, req FollowUpRequest) FollowUpResult {
	guestID := req.GuestID
	if guestID == "" {
		guestID = pathID
	} else if pathID != "" && pathID != guestID {
		s.log.Warn().Str("path_id", pathID).Str("guest_id", guestID).Msg("follow-up path id differs from body guestId, using body")
	}
	status := req.Status
	if status == "" {
		status = string(models.StatusCompleted)
	}

	metrics.RecordFollowUp()
	log := s.log.With().Str("guest_id", guestID).Logger()

	if s.outbox != nil && guestID != "" {
		if n, err := s.outbox.CountFollowUps(ctx, guestID); err == nil && n > 0 {
			log.Warn().Int64("previous", n).Str("event", "concurrent_follow_up").Msg("guest already has a follow-up, last write wins")
		}
	}

	body, err := sheets.EncodeUpdateGuest(sheets.UpdateRequest{
		GuestID:       guestID,
		MinisterData:  req.MinisterData,
		Status:        status,
		CompletedDate: isoTime(s.now()),
	})
	if err != nil {
		log.Error().Err(err).Msg("follow-up payload could not be encoded, dropping forward")
		return FollowUpResult{Success: true}
	}
	log.Info().Str("status", status).Msg("minister follow-up received")

	_ = s.fwd.Forward(ctx, models.ActionUpdateGuest, guestID, body)
	return FollowUpResult{Success: true}
}
