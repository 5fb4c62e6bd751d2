// Command sheetstub runs a local stand-in for the guest spreadsheet script.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wordsanctuary/guestbook/internal/config"
	"github.com/wordsanctuary/guestbook/internal/db"
	"github.com/wordsanctuary/guestbook/internal/logging"
	"github.com/wordsanctuary/guestbook/internal/sheetstub"
)

func main() {
	cfg := config.LoadSheet()
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	log := logging.Component(logger, "sheetstub")

	gdb, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("open sheet database")
	}
	if err := db.MigrateSheet(gdb); err != nil {
		log.Fatal().Err(err).Msg("migrate sheet")
	}

	sheet := sheetstub.New(gdb, log).WithDelay(cfg.Delay)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.AccessLog(logger))
	r.Use(middleware.Recoverer)
	r.Handle("/exec", sheet)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.Addr).Str("path", "/exec").Dur("delay", cfg.Delay).Msg("sheet emulator listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("sheet emulator failed")
	}
}
