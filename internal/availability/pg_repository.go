package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanRange(row pgx.Row) (*Range, error) {
	var r Range
	var start, end string

	err := row.Scan(
		&r.ID,
		&r.ProfessionalID,
		&r.Weekday,
		&start,
		&end,
		&r.IntervalMinutes,
		&r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRangeNotFound
		}
		return nil, err
	}

	if r.Start, err = ParseTimeOfDay(start); err != nil {
		return nil, fmt.Errorf("stored start_time: %w", err)
	}
	if r.End, err = ParseTimeOfDay(end); err != nil {
		return nil, fmt.Errorf("stored end_time: %w", err)
	}

	return &r, nil
}

// Interface methods

func (r *PgRepository) InsertRange(ctx context.Context, rng *Range) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_ranges (id, professional_id, day_of_week, start_time, end_time, interval_minutes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING created_at
	`, rng.ID, rng.ProfessionalID, rng.Weekday, rng.Start.String(), rng.End.String(), rng.IntervalMinutes)

	if err := row.Scan(&rng.CreatedAt); err != nil {
		return fmt.Errorf("insert availability range: %w", err)
	}
	return nil
}

func (r *PgRepository) DeleteRange(ctx context.Context, professionalID, rangeID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_ranges
		WHERE id = $1 AND professional_id = $2
	`, rangeID, professionalID)
	if err != nil {
		return fmt.Errorf("delete availability range: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRangeNotFound
	}
	return nil
}

func (r *PgRepository) ListRanges(ctx context.Context, professionalID uuid.UUID) ([]Range, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, professional_id, day_of_week, start_time, end_time, interval_minutes, created_at
		FROM availability_ranges
		WHERE professional_id = $1
		ORDER BY seq
	`, professionalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Range
	for rows.Next() {
		rng, err := scanRange(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rng)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) AddSlots(ctx context.Context, professionalID uuid.UUID, rangeID *uuid.UUID, times []time.Time) (int, error) {
	if len(times) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, t := range times {
		batch.Queue(`
			INSERT INTO slots (professional_id, slot_time, range_id, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
			ON CONFLICT (professional_id, slot_time) DO NOTHING
		`, professionalID, t, rangeID)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	added := 0
	for range times {
		tag, err := br.Exec()
		if err != nil {
			return added, fmt.Errorf("insert slot: %w", err)
		}
		added += int(tag.RowsAffected())
	}

	return added, nil
}

func (r *PgRepository) RemoveFreeSlot(ctx context.Context, professionalID uuid.UUID, t time.Time) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM slots
		WHERE professional_id = $1 AND slot_time = $2 AND booked_by IS NULL
	`, professionalID, t)
	if err != nil {
		return fmt.Errorf("remove slot: %w", err)
	}
	return nil
}

func (r *PgRepository) ContainsFreeSlot(ctx context.Context, professionalID uuid.UUID, t time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM slots
			WHERE professional_id = $1 AND slot_time = $2 AND booked_by IS NULL
		)
	`, professionalID, t).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) ClearUnbookedSlots(ctx context.Context, professionalID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM slots
		WHERE professional_id = $1 AND booked_by IS NULL
	`, professionalID)
	if err != nil {
		return 0, fmt.Errorf("clear unbooked slots: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) PruneFreeSlotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM slots
		WHERE booked_by IS NULL AND slot_time < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune elapsed slots: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) ListFreeSlotsOn(ctx context.Context, professionalID uuid.UUID, day time.Time) ([]time.Time, error) {
	from := startOfDay(day)
	to := from.AddDate(0, 0, 1)

	rows, err := r.pool.Query(ctx, `
		SELECT slot_time FROM slots
		WHERE professional_id = $1 AND booked_by IS NULL
		  AND slot_time >= $2 AND slot_time < $3
		ORDER BY slot_time
	`, professionalID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTimes(rows)
}

func (r *PgRepository) ListFreeSlotsBetween(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT slot_time FROM slots
		WHERE professional_id = $1 AND booked_by IS NULL
		  AND slot_time >= $2 AND slot_time <= $3
		ORDER BY slot_time
	`, professionalID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTimes(rows)
}

func (r *PgRepository) SlotStats(ctx context.Context, professionalID uuid.UUID, now time.Time) (*Stats, error) {
	var s Stats
	var next *time.Time

	err := r.pool.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE slot_time > $2),
			count(DISTINCT slot_time::date) FILTER (WHERE slot_time > $2),
			min(slot_time) FILTER (WHERE slot_time > $2)
		FROM slots
		WHERE professional_id = $1 AND booked_by IS NULL
	`, professionalID, now).Scan(&s.TotalSlots, &s.FutureSlots, &s.DatesWithAvailability, &next)
	if err != nil {
		return nil, fmt.Errorf("slot stats: %w", err)
	}

	s.NextAvailableSlot = next
	return &s, nil
}

func (r *PgRepository) ListProfessionalIDsWithRanges(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT professional_id FROM availability_ranges
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, professional_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.ProfessionalID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func collectTimes(rows pgx.Rows) ([]time.Time, error) {
	var result []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		result = append(result, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
