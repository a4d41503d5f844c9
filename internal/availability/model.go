package availability

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SlotTimeLayout is the wire format for a slot timestamp: a local date and
// time with no zone, e.g. "2024-01-15T09:00:00". All slot times live in one
// frame, so parsing pins them to UTC internally.
const SlotTimeLayout = "2006-01-02T15:04:05"

// Range is a recurring weekly availability pattern owned by one professional.
type Range struct {
	ID              uuid.UUID
	ProfessionalID  uuid.UUID
	Weekday         int // ISO numbering, Monday=1 .. Sunday=7
	Start           TimeOfDay
	End             TimeOfDay
	IntervalMinutes int
	CreatedAt       time.Time
}

// Slot is one bookable timestamp. BookedBy nil means the slot is free;
// set, it names the appointment that consumed it. RangeID records which
// range generated the slot, nil for manually added ones.
type Slot struct {
	ProfessionalID uuid.UUID
	Time           time.Time
	RangeID        *uuid.UUID
	BookedBy       *uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Stats summarizes one professional's free inventory.
type Stats struct {
	TotalSlots            int
	FutureSlots           int
	DatesWithAvailability int
	AverageSlotsPerDay    float64
	NextAvailableSlot     *time.Time
}

type EventLog struct {
	ID             int64
	EventType      string
	ProfessionalID *uuid.UUID
	Payload        []byte
	CreatedAt      time.Time
}

func ParseSlotTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(SlotTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSlotTime, s)
	}
	return t, nil
}

func FormatSlotTime(t time.Time) string {
	return t.Format(SlotTimeLayout)
}
