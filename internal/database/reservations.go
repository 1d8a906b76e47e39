package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coworking/internal/booking"
	"coworking/internal/models"
)

const reservationColumns = `id, space_id, space_name, duration, date, start_hour, hour_count,
	resources, total_price, booker_name, created_at`

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (db *DB) LoadReservations(ctx context.Context, spaceID string) ([]booking.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE space_id = ? ORDER BY date, start_hour`
	res, err := queryReservations(ctx, db, query, spaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}
	return res, nil
}

// AppendReservation stores r unless its hours intersect what is already
// booked for the same space and date. The check and the insert share one
// immediate transaction.
func (db *DB) AppendReservation(ctx context.Context, r *booking.Reservation) error {
	resources, err := json.Marshal(booking.DedupeIDs(r.Resources))
	if err != nil {
		return fmt.Errorf("failed to encode resources: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	date := r.Date.Format(models.DateLayout)
	existing, err := queryReservations(ctx, tx,
		`SELECT `+reservationColumns+` FROM reservations WHERE space_id = ? AND date = ?`, r.SpaceID, date)
	if err != nil {
		return fmt.Errorf("failed to check availability in tx: %w", err)
	}

	if booking.OccupiedHours(r.SpaceID, r.Date, existing).Intersects(r.Hours()) {
		return booking.ErrSlotTaken
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `INSERT INTO reservations (`+reservationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.SpaceID,
		r.SpaceName,
		string(r.Duration),
		date,
		r.StartHour,
		r.HourCount,
		string(resources),
		r.TotalPrice,
		r.BookerName,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}
	r.CreatedAt = now

	db.logger.Debug().
		Str("reservation_id", r.ID).
		Str("space_id", r.SpaceID).
		Str("date", date).
		Msg("Reservation stored")
	return nil
}

func (db *DB) GetReservation(ctx context.Context, id string) (*booking.Reservation, error) {
	row := db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

// GetReservationsByDateRange returns reservations with dates in [start, end].
func (db *DB) GetReservationsByDateRange(ctx context.Context, start, end time.Time) ([]booking.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE date >= ? AND date <= ? ORDER BY date, space_id, start_hour`
	res, err := queryReservations(ctx, db, query, start.Format(models.DateLayout), end.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to get reservations by date range: %w", err)
	}
	return res, nil
}

func queryReservations(ctx context.Context, q queryer, query string, args ...interface{}) ([]booking.Reservation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanReservation(row rowScanner) (*booking.Reservation, error) {
	var (
		r         booking.Reservation
		duration  string
		date      string
		startHour sql.NullInt64
		hourCount sql.NullInt64
		resources string
	)
	err := row.Scan(
		&r.ID,
		&r.SpaceID,
		&r.SpaceName,
		&duration,
		&date,
		&startHour,
		&hourCount,
		&resources,
		&r.TotalPrice,
		&r.BookerName,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Duration = booking.DurationClass(duration)
	r.Date, err = time.Parse(models.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q for reservation %s: %w", date, r.ID, err)
	}

	// Missing hourly fields leave the record malformed rather than
	// silently turning it into a booking at midnight.
	r.StartHour = int(startHour.Int64)
	if !startHour.Valid && r.Duration == booking.Hourly {
		r.StartHour = -1
	}
	r.HourCount = int(hourCount.Int64)

	if err := json.Unmarshal([]byte(resources), &r.Resources); err != nil {
		return nil, fmt.Errorf("invalid resources for reservation %s: %w", r.ID, err)
	}
	if r.Resources == nil {
		r.Resources = []string{}
	}
	return &r, nil
}
