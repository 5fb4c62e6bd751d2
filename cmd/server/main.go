package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wordsanctuary/guestbook/internal/auth"
	"github.com/wordsanctuary/guestbook/internal/config"
	"github.com/wordsanctuary/guestbook/internal/db"
	"github.com/wordsanctuary/guestbook/internal/forms"
	"github.com/wordsanctuary/guestbook/internal/logging"
	"github.com/wordsanctuary/guestbook/internal/services"
	"github.com/wordsanctuary/guestbook/internal/sheets"
	"github.com/wordsanctuary/guestbook/internal/web"
)

const (
	shutdownTimeout = 30 * time.Second
	readTimeout     = 15 * time.Second
	idleTimeout     = 60 * time.Second
)

func main() {
	if err := run(); err != nil {
		// Deferred cleanup in run has already happened
		logger := logging.New("info", "json")
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	log := logging.Component(logger, "server")

	catalog, err := forms.LoadCatalog()
	if err != nil {
		return fmt.Errorf("load option catalog: %w", err)
	}

	client := sheets.NewClient(cfg.Store.URL, cfg.Store.Timeout)
	storeLog := logging.Component(logger, "store")

	var (
		outbox   *services.Outbox
		replayer *services.Replayer
		ping     func(ctx context.Context) error
	)
	if cfg.Outbox.Enabled {
		if err := db.Init(cfg.Database); err != nil {
			return fmt.Errorf("db init: %w", err)
		}
		defer func() {
			if sqlDB, err := db.Conn().DB(); err == nil {
				_ = sqlDB.Close()
			}
		}()
		outbox = services.NewOutbox(db.Conn())
		ping = db.Ping
	} else {
		log.Warn().Msg("outbox disabled, Store writes are not kept locally")
	}

	fwd := services.NewForwarder(client, outbox, storeLog)
	if outbox != nil {
		replayer = services.NewReplayer(outbox, fwd, cfg.Outbox.ReplayInterval, cfg.Outbox.MaxAttempts,
			3*cfg.Store.Timeout, logging.Component(logger, "replay"))
	}

	authn := auth.New(cfg.Auth)
	if !authn.Enabled() {
		log.Warn().Msg("minister sign-in disabled, follow-up routes are open")
	}

	handler := web.Router(web.Deps{
		Config:     cfg,
		Logger:     logger,
		Listing:    services.NewListingService(client, logging.Component(logger, "listing")),
		Submission: services.NewSubmissionService(fwd, logging.Component(logger, "intake")),
		FollowUp:   services.NewFollowUpService(fwd, outbox, logging.Component(logger, "follow-up")),
		Outbox:     outbox,
		Replayer:   replayer,
		Auth:       authn,
		Catalog:    catalog,
		Ping:       ping,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if replayer != nil {
		replayer.Start(ctx)
	}

	srv := &http.Server{
		Addr:        cfg.App.Addr,
		Handler:     handler,
		ReadTimeout: readTimeout,
		// Writes wait on one Store attempt at most
		WriteTimeout: cfg.Store.Timeout + 5*time.Second,
		IdleTimeout:  idleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.App.Addr).Str("store", cfg.Store.URL).Dur("store_timeout", cfg.Store.Timeout).
			Msg(cfg.App.Name + " listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
		_ = srv.Close()
	}
	log.Info().Msg("server stopped")
	return nil
}
