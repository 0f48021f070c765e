package sched

import (
	"context"
	"time"

	"telegram-card-catalog/internal/usecase"

	"github.com/rs/zerolog"
)

// ExpiryWorker periodically removes timed cards past their expiry via the
// catalog use case.
type ExpiryWorker struct {
	interval time.Duration
	catalog  usecase.CatalogUseCase
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, catalog usecase.CatalogUseCase, logger *zerolog.Logger) *ExpiryWorker {
	wLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		catalog:  catalog,
		log:      &wLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.catalog.SweepExpired(ctx, time.Now()); err != nil {
				w.log.Error().Err(err).Msg("expiry sweep error")
			}
		}
	}
}
