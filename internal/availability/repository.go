package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRangeNotFound = errors.New("availability range not found")
)

// Repository owns persistence for recurring ranges and the slot inventory.
// Slot reads here only see free rows; claiming and releasing booked rows is
// the booking coordinator's job.
type Repository interface {
	InsertRange(ctx context.Context, r *Range) error
	DeleteRange(ctx context.Context, professionalID, rangeID uuid.UUID) error
	ListRanges(ctx context.Context, professionalID uuid.UUID) ([]Range, error)

	// AddSlots inserts the given timestamps as free slots, skipping any that
	// already exist, and reports how many rows were actually created.
	AddSlots(ctx context.Context, professionalID uuid.UUID, rangeID *uuid.UUID, times []time.Time) (int, error)
	RemoveFreeSlot(ctx context.Context, professionalID uuid.UUID, t time.Time) error
	ContainsFreeSlot(ctx context.Context, professionalID uuid.UUID, t time.Time) (bool, error)
	ClearUnbookedSlots(ctx context.Context, professionalID uuid.UUID) (int64, error)
	PruneFreeSlotsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	ListFreeSlotsOn(ctx context.Context, professionalID uuid.UUID, day time.Time) ([]time.Time, error)
	ListFreeSlotsBetween(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]time.Time, error)

	// SlotStats fills every Stats field except AverageSlotsPerDay, which the
	// query service derives.
	SlotStats(ctx context.Context, professionalID uuid.UUID, now time.Time) (*Stats, error)

	ListProfessionalIDsWithRanges(ctx context.Context) ([]uuid.UUID, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
