package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.ProfessionalID,
		&a.Time,
		&a.TimeSlot,
		&a.Status,
		&a.Reason,
		&a.Notes,
		&a.ConsultationFee,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Interface methods

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, professional_id, appointment_time, time_slot, status, reason, notes, consultation_fee, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) FindActiveBySlot(ctx context.Context, professionalID uuid.UUID, t time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, professional_id, appointment_time, time_slot, status, reason, notes, consultation_fee, created_at, updated_at
		FROM appointments
		WHERE professional_id = $1
		  AND appointment_time = $2
		  AND status IN ('scheduled', 'confirmed')
	`, professionalID, t)
	return scanAppointment(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, f ListFilter) ([]Appointment, error) {
	return r.list(ctx, "patient_id", patientID, f)
}

func (r *PgRepository) ListByProfessional(ctx context.Context, professionalID uuid.UUID, f ListFilter) ([]Appointment, error) {
	return r.list(ctx, "professional_id", professionalID, f)
}

func (r *PgRepository) list(ctx context.Context, ownerColumn string, ownerID uuid.UUID, f ListFilter) ([]Appointment, error) {
	query := `
		SELECT id, patient_id, professional_id, appointment_time, time_slot, status, reason, notes, consultation_fee, created_at, updated_at
		FROM appointments
		WHERE ` + ownerColumn + ` = $1`
	args := []any{ownerID}

	if f.Status != nil {
		args = append(args, *f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		query += fmt.Sprintf(" AND appointment_time >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		query += fmt.Sprintf(" AND appointment_time <= $%d", len(args))
	}

	args = append(args, f.Limit)
	query += fmt.Sprintf(" ORDER BY appointment_time DESC LIMIT $%d", len(args))
	args = append(args, f.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) BookSlot(ctx context.Context, appt *Appointment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// The partial unique index on live appointments makes a concurrent
	// double insert fail here even if the slot row is somehow out of sync.
	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, professional_id, appointment_time, time_slot, status, reason, notes, consultation_fee, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'scheduled', $6, $7, $8, now(), now())
		RETURNING id, patient_id, professional_id, appointment_time, time_slot, status, reason, notes, consultation_fee, created_at, updated_at
	`, appt.ID, appt.PatientID, appt.ProfessionalID, appt.Time, appt.TimeSlot, appt.Reason, appt.Notes, appt.ConsultationFee)

	created, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("insert appointment: %w", err)
	}

	// Compare-and-set claim: only a free row can be consumed. Zero rows
	// means someone else got there first and the tx rolls back.
	tag, err := tx.Exec(ctx, `
		UPDATE slots
		SET booked_by = $3, updated_at = now()
		WHERE professional_id = $1 AND slot_time = $2 AND booked_by IS NULL
	`, appt.ProfessionalID, appt.Time, appt.ID)
	if err != nil {
		return fmt.Errorf("claim slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotUnavailable
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit booking tx: %w", err)
	}

	*appt = *created
	return nil
}

func (r *PgRepository) CancelAndRelease(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cancel tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('scheduled', 'confirmed')
		RETURNING id, patient_id, professional_id, appointment_time, time_slot, status, reason, notes, consultation_fee, created_at, updated_at
	`, id)

	cancelled, err := scanAppointment(row)
	if err != nil {
		return nil, err
	}

	if err := releaseSlot(ctx, tx, cancelled); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancel tx: %w", err)
	}

	return cancelled, nil
}

func (r *PgRepository) RescheduleSlots(ctx context.Context, appt *Appointment, newTime time.Time, newTimeSlot string, reason *string) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reschedule tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Claim the new timestamp first; if it is gone the old claim is
	// untouched because the whole tx rolls back.
	tag, err := tx.Exec(ctx, `
		UPDATE slots
		SET booked_by = $3, updated_at = now()
		WHERE professional_id = $1 AND slot_time = $2 AND booked_by IS NULL
	`, appt.ProfessionalID, newTime, appt.ID)
	if err != nil {
		return nil, fmt.Errorf("claim new slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrSlotUnavailable
	}

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET appointment_time = $2,
		    time_slot = $3,
		    reason = COALESCE($4, reason),
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('scheduled', 'confirmed')
		RETURNING id, patient_id, professional_id, appointment_time, time_slot, status, reason, notes, consultation_fee, created_at, updated_at
	`, appt.ID, newTime, newTimeSlot, reason)

	moved, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	old := *appt
	if err := releaseSlot(ctx, tx, &old); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reschedule tx: %w", err)
	}

	return moved, nil
}

// releaseSlot frees the appointment's slot row. If the row was pruned or
// never materialized, a fresh free row is inserted so cancellation always
// returns the timestamp to the inventory.
func releaseSlot(ctx context.Context, tx pgx.Tx, appt *Appointment) error {
	tag, err := tx.Exec(ctx, `
		UPDATE slots
		SET booked_by = NULL, updated_at = now()
		WHERE professional_id = $1 AND slot_time = $2 AND booked_by = $3
	`, appt.ProfessionalID, appt.Time, appt.ID)
	if err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO slots (professional_id, slot_time, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (professional_id, slot_time) DO NOTHING
	`, appt.ProfessionalID, appt.Time)
	if err != nil {
		return fmt.Errorf("restore slot: %w", err)
	}
	return nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING id, patient_id, professional_id, appointment_time, time_slot, status, reason, notes, consultation_fee, created_at, updated_at
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateReason(ctx context.Context, id uuid.UUID, reason *string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET reason = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('scheduled', 'confirmed')
		RETURNING id, patient_id, professional_id, appointment_time, time_slot, status, reason, notes, consultation_fee, created_at, updated_at
	`, id, reason)

	return scanAppointment(row)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, professional_id, payload, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`, ev.EventType, ev.AppointmentID, ev.ProfessionalID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
