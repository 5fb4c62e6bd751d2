package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wordsanctuary/guestbook/internal/metrics"
	"github.com/wordsanctuary/guestbook/internal/models"
)

// FallbackGuestID is the placeholder id of the synthetic listing record.
const FallbackGuestID = "mock-1"

// ListingService reads the guest sheet.
type ListingService struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewListingService(store Store, log zerolog.Logger) *ListingService {
	return &ListingService{store: store, log: log, now: time.Now}
}

// List returns every guest the Store holds. When the Store fails in any way
// the result is a single placeholder guest, never an error.
func (s *ListingService) List(ctx context.Context) []models.Guest {
	guests, err := s.store.GetGuests(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("guest listing failed, serving fallback record")
		metrics.RecordListingFallback()
		return []models.Guest{FallbackGuest(s.now())}
	}
	s.log.Debug().Int("guests", len(guests)).Msg("guest listing fetched")
	return guests
}

// Pending returns the guests still waiting for a minister, in sheet order.
func (s *ListingService) Pending(ctx context.Context) []models.Guest {
	all := s.List(ctx)
	out := make([]models.Guest, 0, len(all))
	for _, g := range all {
		if g.Status.IsPending() {
			out = append(out, g)
		}
	}
	return out
}

// Find looks one guest up by id in a fresh listing.
func (s *ListingService) Find(ctx context.Context, id string) (models.Guest, bool) {
	for _, g := range s.List(ctx) {
		if g.ID == id {
			return g, true
		}
	}
	return models.Guest{}, false
}

// FallbackGuest is the synthetic record served when the Store is down.
func FallbackGuest(now time.Time) models.Guest {
	return models.Guest{
		ID:                 FallbackGuestID,
		FullName:           "Test Guest (Fallback)",
		Email:              "test@example.com",
		PhoneNumber:        "+1234567890",
		WhatsappNumber:     "+1234567890",
		Profession:         "Engineer",
		Birthday:           "1990-01-01",
		InvitedBy:          "Sarah Johnson",
		Gender:             "male",
		MaritalStatus:      "single",
		HouseAddress:       "123 Main St",
		OfficeAddress:      "456 Work Ave",
		JoinChurch:         "yes",
		JoinDepartment:     "yes",
		SelectedDepartment: "media",
		Blessings:          "Word, Worship",
		SubmissionDate:     isoTime(now),
		Status:             models.StatusPending,
	}
}
