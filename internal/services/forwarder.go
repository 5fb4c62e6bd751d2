package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wordsanctuary/guestbook/internal/metrics"
	"github.com/wordsanctuary/guestbook/internal/models"
	"github.com/wordsanctuary/guestbook/internal/sheets"
)

// Store is the spreadsheet script as seen by the services.
type Store interface {
	GetGuests(ctx context.Context) ([]models.Guest, error)
	Post(ctx context.Context, action string, body []byte) error
}

// Forwarder sends writes to the Store, one bounded attempt per call, and
// keeps them in the outbox when one is configured.
type Forwarder struct {
	store  Store
	outbox *Outbox // nil disables local durability
	log    zerolog.Logger
}

func NewForwarder(store Store, outbox *Outbox, log zerolog.Logger) *Forwarder {
	return &Forwarder{store: store, outbox: outbox, log: log}
}

// Forward records the write and makes one attempt. The caller's cancellation
// is detached: only the Store client's abandon timer stops the attempt.
// The returned error is for logging; callers report success regardless.
func (f *Forwarder) Forward(ctx context.Context, action, guestID string, body []byte) error {
	ctx = context.WithoutCancel(ctx)

	var entry *models.OutboxEntry
	if f.outbox != nil {
		e, err := f.outbox.Record(ctx, action, guestID, body)
		if err != nil {
			f.log.Error().Err(err).Str("action", action).Str("guest_id", guestID).Msg("outbox write failed, forwarding without local copy")
		} else {
			entry = e
		}
	}

	sendErr := f.send(ctx, action, guestID, body)

	if entry != nil {
		if err := f.outbox.Settle(ctx, entry, sendErr); err != nil {
			f.log.Error().Err(err).Msg("outbox settle failed")
		}
	}
	return sendErr
}

// Redeliver retries an outbox entry.
func (f *Forwarder) Redeliver(ctx context.Context, entry *models.OutboxEntry) error {
	sendErr := f.send(ctx, entry.Action, entry.GuestID, []byte(entry.Payload))
	if f.outbox != nil {
		if err := f.outbox.Settle(ctx, entry, sendErr); err != nil {
			return err
		}
	}
	return sendErr
}

func (f *Forwarder) send(ctx context.Context, action, guestID string, body []byte) error {
	start := time.Now()
	err := f.store.Post(ctx, action, body)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = string(sheets.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	metrics.RecordStoreForward(action, outcome, elapsed)

	switch {
	case err == nil:
		f.log.Info().Str("action", action).Str("guest_id", guestID).Dur("elapsed", elapsed).Msg("store accepted write")
	case sheets.IsTimeout(err):
		f.log.Warn().Err(err).Str("action", action).Str("guest_id", guestID).Dur("elapsed", elapsed).Msg("store request timed out, continuing")
	default:
		f.log.Error().Err(err).Str("action", action).Str("guest_id", guestID).Str("kind", outcome).Msg("store write failed")
	}
	return err
}
