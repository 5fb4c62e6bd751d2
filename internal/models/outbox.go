package models

import (
	"time"

	"github.com/google/uuid"
)

// Outbox actions mirror the Store protocol.
const (
	ActionAddGuest    = "addGuest"
	ActionUpdateGuest = "updateGuest"
)

// OutboxState: "pending", "delivered", "failed", "superseded"
type OutboxState string

const (
	OutboxPending   OutboxState = "pending"
	OutboxDelivered OutboxState = "delivered"
	OutboxFailed    OutboxState = "failed"

	// OutboxSuperseded marks a follow-up replaced by a newer one for the same guest.
	OutboxSuperseded OutboxState = "superseded"
)

// OutboxEntry is one Store write kept locally until the Store confirms it.
type OutboxEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Action  string `gorm:"size:32;not null" json:"action"`
	GuestID string `gorm:"size:64;index" json:"guestId"`
	Payload string `gorm:"type:text;not null" json:"payload"` // JSON body sent to the Store

	State     OutboxState `gorm:"size:16;index;not null" json:"state"`
	Attempts  int         `json:"attempts"`
	LastError string      `gorm:"type:text" json:"lastError,omitempty"`

	// FailureKind is the Store error kind of the last failed attempt.
	FailureKind string     `gorm:"size:16" json:"failureKind,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"` // nil until the Store accepts it
}
