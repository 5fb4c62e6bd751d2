package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wordsanctuary/guestbook/internal/models"
	"github.com/wordsanctuary/guestbook/internal/sheets"
)

const replayBatch = 50

// ReplayReport summarizes one replay pass.
type ReplayReport struct {
	Attempted  int `json:"attempted"`
	Delivered  int `json:"delivered"`
	Failed     int `json:"failed"`
	Confirmed  int `json:"confirmed"`  // already on the sheet, settled without a resend
	Superseded int `json:"superseded"` // follow-ups replaced by a newer one
	Deferred   int `json:"deferred"`   // left for a later pass
}

// Replayer retries outbox entries the Store has not accepted yet.
type Replayer struct {
	outbox      *Outbox
	fwd         *Forwarder
	interval    time.Duration
	maxAttempts int
	staleAfter  time.Duration
	log         zerolog.Logger
}

// NewReplayer builds a replayer. staleAfter is how long a pending entry may
// sit unsettled before it is retried; callers pass a multiple of the Store
// timeout.
func NewReplayer(outbox *Outbox, fwd *Forwarder, interval time.Duration, maxAttempts int, staleAfter time.Duration, log zerolog.Logger) *Replayer {
	return &Replayer{
		outbox:      outbox,
		fwd:         fwd,
		interval:    interval,
		maxAttempts: maxAttempts,
		staleAfter:  staleAfter,
		log:         log,
	}
}

// Start runs RunOnce every interval until ctx is done. A zero interval
// disables the loop.
func (r *Replayer) Start(ctx context.Context) {
	if r.interval <= 0 {
		r.log.Info().Msg("outbox replay loop disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.RunOnce(ctx); err != nil {
					r.log.Error().Err(err).Msg("outbox replay failed")
				}
			}
		}
	}()
}

// RunOnce retries one batch of due entries, oldest first.
//
// An addGuest whose earlier outcome is unknown (timed out, unreadable reply,
// never settled) may already be on the sheet, and the sheet appends without
// checking ids. Those entries are looked up in the listing first and only
// resent when the id is missing. A follow-up with a newer follow-up for the
// same guest is retired instead of resent so the newer overlay stays.
func (r *Replayer) RunOnce(ctx context.Context) (ReplayReport, error) {
	var rep ReplayReport
	entries, err := r.outbox.Due(ctx, r.maxAttempts, r.staleAfter, replayBatch)
	if err != nil {
		return rep, err
	}

	var (
		onSheet map[string]bool
		listed  bool
	)
	for i := range entries {
		e := &entries[i]
		log := r.log.With().Str("action", e.Action).Str("guest_id", e.GuestID).Str("entry", e.ID.String()).Logger()

		switch {
		case e.Action == models.ActionUpdateGuest:
			newer, err := r.outbox.HasNewerFollowUp(ctx, e)
			if err != nil {
				return rep, err
			}
			if newer {
				if err := r.outbox.Supersede(ctx, e); err != nil {
					return rep, err
				}
				log.Info().Msg("follow-up superseded by a newer one, not replayed")
				rep.Superseded++
				continue
			}

		case e.Action == models.ActionAddGuest && outcomeUnknown(e):
			if !listed {
				listed = true
				onSheet, err = r.sheetIDs(ctx)
				if err != nil {
					r.log.Warn().Err(err).Msg("store listing unavailable, deferring unconfirmed guest writes")
				}
			}
			if onSheet == nil {
				rep.Deferred++
				continue
			}
			if onSheet[e.GuestID] {
				if err := r.outbox.Confirm(ctx, e); err != nil {
					return rep, err
				}
				log.Info().Msg("guest already on sheet, entry confirmed without resend")
				rep.Confirmed++
				continue
			}
		}

		rep.Attempted++
		if err := r.fwd.Redeliver(ctx, e); err != nil {
			rep.Failed++
			continue
		}
		rep.Delivered++
	}
	if rep.Attempted+rep.Confirmed+rep.Superseded+rep.Deferred > 0 {
		r.log.Info().Int("attempted", rep.Attempted).Int("delivered", rep.Delivered).Int("failed", rep.Failed).
			Int("confirmed", rep.Confirmed).Int("superseded", rep.Superseded).Int("deferred", rep.Deferred).
			Msg("outbox replay pass")
	}
	r.refreshGauge(ctx)
	return rep, nil
}

func (r *Replayer) refreshGauge(ctx context.Context) {
	if _, err := r.outbox.Counts(ctx); err != nil {
		r.log.Warn().Err(err).Msg("outbox gauge not refreshed")
	}
}

// outcomeUnknown reports whether the Store may have applied the write even
// though no success was recorded.
func outcomeUnknown(e *models.OutboxEntry) bool {
	if e.State == models.OutboxPending {
		return true
	}
	switch sheets.ErrorKind(e.FailureKind) {
	case sheets.KindTimeout, sheets.KindDecode:
		return true
	}
	return false
}

func (r *Replayer) sheetIDs(ctx context.Context) (map[string]bool, error) {
	guests, err := r.fwd.store.GetGuests(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(guests))
	for _, g := range guests {
		ids[g.ID] = true
	}
	return ids, nil
}
