package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wordsanctuary/guestbook/internal/metrics"
	"github.com/wordsanctuary/guestbook/internal/models"
	"github.com/wordsanctuary/guestbook/internal/sheets"
)

// Outbox keeps every Store write in the local database until the Store
// accepts it.
type Outbox struct {
	db *gorm.DB
}

func NewOutbox(db *gorm.DB) *Outbox {
	return &Outbox{db: db}
}

// Record saves a write before it is forwarded.
func (o *Outbox) Record(ctx context.Context, action, guestID string, body []byte) (*models.OutboxEntry, error) {
	entry := &models.OutboxEntry{
		ID:      uuid.New(),
		Action:  action,
		GuestID: guestID,
		Payload: string(body),
		State:   models.OutboxPending,
	}
	if err := o.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("record outbox entry: %w", err)
	}
	return entry, nil
}

// Settle stores the outcome of one delivery attempt.
func (o *Outbox) Settle(ctx context.Context, entry *models.OutboxEntry, sendErr error) error {
	entry.Attempts++
	if sendErr == nil {
		now := time.Now().UTC()
		entry.State = models.OutboxDelivered
		entry.DeliveredAt = &now
		entry.LastError = ""
		entry.FailureKind = ""
	} else {
		entry.State = models.OutboxFailed
		entry.LastError = sendErr.Error()
		entry.FailureKind = string(sheets.KindOf(sendErr))
	}
	if err := o.db.WithContext(ctx).Save(entry).Error; err != nil {
		return fmt.Errorf("settle outbox entry %s: %w", entry.ID, err)
	}
	return nil
}

// Confirm marks an entry delivered without another attempt, for writes the
// Store turned out to have applied.
func (o *Outbox) Confirm(ctx context.Context, entry *models.OutboxEntry) error {
	now := time.Now().UTC()
	entry.State = models.OutboxDelivered
	entry.DeliveredAt = &now
	if err := o.db.WithContext(ctx).Save(entry).Error; err != nil {
		return fmt.Errorf("confirm outbox entry %s: %w", entry.ID, err)
	}
	return nil
}

// Supersede retires an entry so it is never replayed.
func (o *Outbox) Supersede(ctx context.Context, entry *models.OutboxEntry) error {
	entry.State = models.OutboxSuperseded
	if err := o.db.WithContext(ctx).Save(entry).Error; err != nil {
		return fmt.Errorf("supersede outbox entry %s: %w", entry.ID, err)
	}
	return nil
}

// HasNewerFollowUp reports whether a later updateGuest write exists for the
// entry's guest, in any state.
func (o *Outbox) HasNewerFollowUp(ctx context.Context, entry *models.OutboxEntry) (bool, error) {
	var others []models.OutboxEntry
	err := o.db.WithContext(ctx).Select("id", "created_at").
		Where("action = ? AND guest_id = ? AND id <> ?", models.ActionUpdateGuest, entry.GuestID, entry.ID).
		Find(&others).Error
	if err != nil {
		return false, fmt.Errorf("look up newer follow-ups: %w", err)
	}
	for _, other := range others {
		if other.CreatedAt.After(entry.CreatedAt) {
			return true, nil
		}
	}
	return false, nil
}

// Due returns entries worth another attempt, oldest first: failed ones below
// maxAttempts, and pending ones older than staleAfter (a forward that never
// settled, e.g. the process died mid-request).
func (o *Outbox) Due(ctx context.Context, maxAttempts int, staleAfter time.Duration, limit int) ([]models.OutboxEntry, error) {
	var entries []models.OutboxEntry
	cutoff := time.Now().UTC().Add(-staleAfter)
	err := o.db.WithContext(ctx).
		Where("(state = ? AND attempts < ?) OR (state = ? AND created_at < ?)",
			models.OutboxFailed, maxAttempts, models.OutboxPending, cutoff).
		Order("created_at asc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("load due outbox entries: %w", err)
	}
	return entries, nil
}

// CountFollowUps counts earlier updateGuest writes for a guest id.
func (o *Outbox) CountFollowUps(ctx context.Context, guestID string) (int64, error) {
	var n int64
	err := o.db.WithContext(ctx).Model(&models.OutboxEntry{}).
		Where("action = ? AND guest_id = ?", models.ActionUpdateGuest, guestID).
		Count(&n).Error
	return n, err
}

// List returns the newest entries, optionally filtered by state.
func (o *Outbox) List(ctx context.Context, state string, limit int) ([]models.OutboxEntry, error) {
	q := o.db.WithContext(ctx).Order("created_at desc").Limit(limit)
	if state != "" {
		q = q.Where("state = ?", state)
	}
	var entries []models.OutboxEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list outbox entries: %w", err)
	}
	return entries, nil
}

// Counts returns the number of entries per state and refreshes the gauge.
func (o *Outbox) Counts(ctx context.Context) (map[models.OutboxState]int64, error) {
	type agg struct {
		State models.OutboxState
		N     int64
	}
	var rows []agg
	if err := o.db.WithContext(ctx).Model(&models.OutboxEntry{}).
		Select("state, COUNT(*) AS n").Group("state").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count outbox entries: %w", err)
	}
	out := map[models.OutboxState]int64{
		models.OutboxPending:    0,
		models.OutboxDelivered:  0,
		models.OutboxFailed:     0,
		models.OutboxSuperseded: 0,
	}
	for _, r := range rows {
		out[r.State] = r.N
	}
	for state, n := range out {
		metrics.SetOutboxEntries(string(state), n)
	}
	return out, nil
}
