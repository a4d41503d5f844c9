package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Live reports whether the appointment still holds its slot. Only live
// appointments block a timestamp and only they can be cancelled or moved.
func (s Status) Live() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

// CanTransitionTo encodes the lifecycle: scheduled → confirmed → completed,
// live → cancelled, confirmed → no_show.
func (s Status) CanTransitionTo(to Status) bool {
	switch to {
	case StatusConfirmed:
		return s == StatusScheduled
	case StatusCompleted:
		return s == StatusConfirmed
	case StatusCancelled:
		return s.Live()
	case StatusNoShow:
		return s == StatusConfirmed
	}
	return false
}

type Appointment struct {
	ID              uuid.UUID
	PatientID       uuid.UUID
	ProfessionalID  uuid.UUID
	Time            time.Time
	TimeSlot        string // wire form of Time, kept in lockstep
	Status          Status
	Reason          *string
	Notes           *string
	ConsultationFee float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type EventLog struct {
	ID             int64
	EventType      string
	AppointmentID  *uuid.UUID
	ProfessionalID *uuid.UUID
	Payload        []byte
	CreatedAt      time.Time
}

// ListFilter narrows appointment listings.
type ListFilter struct {
	Status *Status
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}
