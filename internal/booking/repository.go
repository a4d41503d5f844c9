package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the coordinator. The
// write methods that touch both the appointment and its slot row run as one
// transaction; a failed step rolls the whole operation back.
type Repository interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// FindActiveBySlot returns the live appointment holding the timestamp,
	// used as a desync check before booking.
	FindActiveBySlot(ctx context.Context, professionalID uuid.UUID, t time.Time) (*Appointment, error)

	ListByPatient(ctx context.Context, patientID uuid.UUID, f ListFilter) ([]Appointment, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID, f ListFilter) ([]Appointment, error)

	// BookSlot inserts the scheduled appointment and claims its slot row.
	// A free row must exist; otherwise ErrSlotUnavailable. A competing live
	// appointment on the same timestamp yields ErrSlotTaken.
	BookSlot(ctx context.Context, appt *Appointment) error

	// CancelAndRelease flips a live appointment to cancelled and returns the
	// timestamp to the inventory, re-creating the slot row if it is gone.
	CancelAndRelease(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// RescheduleSlots claims the new timestamp, moves the appointment and
	// releases the old timestamp. Failure anywhere keeps the old claim.
	RescheduleSlots(ctx context.Context, appt *Appointment, newTime time.Time, newTimeSlot string, reason *string) (*Appointment, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)
	UpdateReason(ctx context.Context, id uuid.UUID, reason *string) (*Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}

// Inventory is the slice of the slot store the coordinator consults before
// claiming a timestamp.
type Inventory interface {
	ContainsFreeSlot(ctx context.Context, professionalID uuid.UUID, t time.Time) (bool, error)
}
