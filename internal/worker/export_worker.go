package worker

import (
	"context"
	"fmt"
	"time"

	"coworking/internal/booking"
	"coworking/internal/models"

	"github.com/rs/zerolog"
)

// ReservationSource supplies the data of a scheduled export.
type ReservationSource interface {
	Today() time.Time
	Spaces() []models.Space
	ReservationsInRange(ctx context.Context, from, to time.Time) ([]booking.Reservation, error)
}

// WorkbookWriter persists a workbook and returns where it went.
type WorkbookWriter interface {
	Save(from, to time.Time, spaces []models.Space, reservations []booking.Reservation) (string, error)
}

// ExportWorker writes a workbook of the upcoming days on a fixed interval.
type ExportWorker struct {
	source      ReservationSource
	writer      WorkbookWriter
	interval    time.Duration
	rangeDays   int
	retryPolicy RetryPolicy
	sleep       func(context.Context, time.Duration) error
	logger      *zerolog.Logger
}

func NewExportWorker(
	source ReservationSource,
	writer WorkbookWriter,
	interval time.Duration,
	rangeDays int,
	retry RetryPolicy,
	logger *zerolog.Logger,
) *ExportWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if rangeDays <= 0 {
		rangeDays = models.DefaultExportRangeDays
	}
	if retry.MaxRetries <= 0 {
		retry.MaxRetries = 3
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &ExportWorker{
		source:      source,
		writer:      writer,
		interval:    interval,
		rangeDays:   rangeDays,
		retryPolicy: retry,
		sleep:       sleepContext,
		logger:      logger,
	}
}

// Start exports right away and then on every tick until ctx ends.
func (w *ExportWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Int("range_days", w.rangeDays).Msg("Export worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Export worker stopped")
			return
		case <-ticker.C:
			w.runLogged(ctx)
		}
	}
}

func (w *ExportWorker) runLogged(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
		w.logger.Error().Err(err).Msg("Scheduled export failed")
	}
}

// RunOnce exports [today, today+rangeDays) and retries failures with backoff.
func (w *ExportWorker) RunOnce(ctx context.Context) (string, error) {
	from := w.source.Today()
	to := from.AddDate(0, 0, w.rangeDays-1)

	var lastErr error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		path, err := w.export(ctx, from, to)
		if err == nil {
			return path, nil
		}
		lastErr = err

		if attempt == w.retryPolicy.MaxRetries {
			break
		}
		delay := w.retryPolicy.NextDelay(attempt)
		w.logger.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", delay).Msg("Export attempt failed")
		if err := w.sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("export failed after %d attempts: %w", w.retryPolicy.MaxRetries, lastErr)
}

func (w *ExportWorker) export(ctx context.Context, from, to time.Time) (string, error) {
	reservations, err := w.source.ReservationsInRange(ctx, from, to)
	if err != nil {
		return "", fmt.Errorf("load reservations: %w", err)
	}
	return w.writer.Save(from, to, w.source.Spaces(), reservations)
}
