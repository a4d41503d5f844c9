package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS patients (
    id         uuid PRIMARY KEY,
    name       text NOT NULL,
    email      text,
    created_at timestamptz NOT NULL DEFAULT now(),
    updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS professionals (
    id               uuid PRIMARY KEY,
    name             text NOT NULL,
    specialization   text,
    license_number   text UNIQUE,
    score            double precision NOT NULL DEFAULT 0,
    consultation_fee double precision NOT NULL DEFAULT 0,
    created_at       timestamptz NOT NULL DEFAULT now(),
    updated_at       timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS availability_ranges (
    id               uuid PRIMARY KEY,
    professional_id  uuid NOT NULL REFERENCES professionals (id) ON DELETE CASCADE,
    seq              bigserial,
    day_of_week      int NOT NULL CHECK (day_of_week BETWEEN 1 AND 7),
    start_time       text NOT NULL,
    end_time         text NOT NULL,
    interval_minutes int NOT NULL CHECK (interval_minutes BETWEEN 5 AND 120),
    created_at       timestamptz NOT NULL DEFAULT now(),
    CHECK (start_time < end_time)
);

CREATE INDEX IF NOT EXISTS idx_ranges_professional
    ON availability_ranges (professional_id, seq);

CREATE TABLE IF NOT EXISTS appointments (
    id               uuid PRIMARY KEY,
    patient_id       uuid NOT NULL REFERENCES patients (id),
    professional_id  uuid NOT NULL REFERENCES professionals (id),
    appointment_time timestamp NOT NULL,
    time_slot        text NOT NULL,
    status           text NOT NULL
        CHECK (status IN ('scheduled', 'confirmed', 'completed', 'cancelled', 'no_show')),
    reason           text,
    notes            text,
    consultation_fee double precision NOT NULL DEFAULT 0,
    created_at       timestamptz NOT NULL DEFAULT now(),
    updated_at       timestamptz NOT NULL DEFAULT now()
);

-- At most one live appointment per (professional, timestamp). Cancelled and
-- terminal rows drop out of the index so the slot can be booked again.
CREATE UNIQUE INDEX IF NOT EXISTS uq_appointments_active_slot
    ON appointments (professional_id, appointment_time)
    WHERE status IN ('scheduled', 'confirmed');

CREATE INDEX IF NOT EXISTS idx_appointments_patient
    ON appointments (patient_id, appointment_time);

CREATE INDEX IF NOT EXISTS idx_appointments_professional
    ON appointments (professional_id, appointment_time);

CREATE TABLE IF NOT EXISTS slots (
    professional_id uuid NOT NULL REFERENCES professionals (id) ON DELETE CASCADE,
    slot_time       timestamp NOT NULL,
    range_id        uuid REFERENCES availability_ranges (id) ON DELETE SET NULL,
    booked_by       uuid REFERENCES appointments (id),
    created_at      timestamptz NOT NULL DEFAULT now(),
    updated_at      timestamptz NOT NULL DEFAULT now(),
    PRIMARY KEY (professional_id, slot_time)
);

CREATE INDEX IF NOT EXISTS idx_slots_free
    ON slots (professional_id, slot_time)
    WHERE booked_by IS NULL;

CREATE TABLE IF NOT EXISTS event_logs (
    id              bigserial PRIMARY KEY,
    event_type      text NOT NULL,
    appointment_id  uuid,
    professional_id uuid,
    payload         jsonb,
    created_at      timestamptz NOT NULL DEFAULT now()
);
`

// EnsureSchema applies the schema. Every statement is IF NOT EXISTS so the
// call is safe to repeat on every deploy.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
