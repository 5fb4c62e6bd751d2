package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/wordsanctuary/guestbook/internal/auth"
	"github.com/wordsanctuary/guestbook/internal/config"
	"github.com/wordsanctuary/guestbook/internal/forms"
	"github.com/wordsanctuary/guestbook/internal/handlers"
	"github.com/wordsanctuary/guestbook/internal/logging"
	"github.com/wordsanctuary/guestbook/internal/metrics"
	"github.com/wordsanctuary/guestbook/internal/services"
)

// Deps is everything the router hands to its handlers. Outbox and Replayer
// are nil when local durability is off; Ping is nil without a database.
type Deps struct {
	Config     *config.Config
	Logger     zerolog.Logger
	Listing    *services.ListingService
	Submission *services.SubmissionService
	FollowUp   *services.FollowUpService
	Outbox     *services.Outbox
	Replayer   *services.Replayer
	Auth       *auth.Authenticator
	Catalog    *forms.Catalog
	Ping       func(ctx context.Context) error
}

func Router(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.AccessLog(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.PrometheusMiddleware)
	r.Use(securityHeaders)
	r.Use(cors(d.Config.CORS))

	r.Get("/healthz", handlers.Health(d.Ping))
	r.Handle("/metrics", promhttp.Handler())

	// Public: guest intake and the listing contract
	r.Get("/guests", handlers.ListGuests(d.Listing))
	r.Post("/guests", handlers.SubmitGuest(d.Submission, d.Catalog))
	r.Get("/catalog", handlers.Catalog(d.Catalog))

	// QR images
	base := d.Config.App.PublicBaseURL
	r.Get("/qr/intake.png", handlers.IntakeQR(base))
	r.Get("/qr/guests/{id}.png", handlers.GuestQR(base))

	// Minister sign-in
	r.Post("/minister/login", handlers.MinisterLogin(d.Auth))
	r.Post("/minister/logout", handlers.MinisterLogout)

	// Minister portal. Without MINISTER_PASSWORD_HASH the guard passes
	// everything through and follow-up always answers 200. With it set, an
	// unsigned follow-up gets 401; that is the one departure from
	// "follow-up always succeeds", and only for deployments that opt in.
	r.Group(func(mr chi.Router) {
		mr.Use(d.Auth.RequireMinister)
		mr.Get("/guests/pending", handlers.PendingGuests(d.Listing))
		mr.Get("/guests/{id}/departments", handlers.GuestDepartments(d.Listing, d.Catalog))
		mr.Post("/guests/{id}/follow-up", handlers.FollowUpGuest(d.FollowUp))

		mr.Get("/admin/outbox", handlers.AdminOutbox(d.Outbox))
		mr.Post("/admin/outbox/replay", handlers.AdminOutboxReplay(d.Replayer))
	})

	// Paths the first front end was built against
	r.Route("/api", func(ar chi.Router) {
		ar.Get("/get-guests", handlers.ListGuests(d.Listing))
		ar.Post("/submit-guest", handlers.SubmitGuest(d.Submission, d.Catalog))
		// Same opt-in 401 as the portal follow-up route
		ar.With(d.Auth.RequireMinister).Post("/update-guest", handlers.FollowUpGuest(d.FollowUp))
	})

	return r
}
