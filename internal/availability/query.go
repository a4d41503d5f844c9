package availability

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/careslot/scheduling/internal/directory"
)

// QueryService is the read side: projections over the free slot inventory.
// It never mutates anything.
type QueryService struct {
	repo Repository
	dir  directory.Repository
	now  func() time.Time
}

func NewQueryService(repo Repository, dir directory.Repository) *QueryService {
	return &QueryService{
		repo: repo,
		dir:  dir,
		now:  utcNow,
	}
}

// WithClock replaces the time source.
func (q *QueryService) WithClock(now func() time.Time) *QueryService {
	q.now = now
	return q
}

// Stats summarizes the professional's free inventory. AverageSlotsPerDay is
// future slots per distinct future date, rounded to one decimal, zero when
// nothing lies ahead.
func (q *QueryService) Stats(ctx context.Context, professionalID uuid.UUID) (*Stats, error) {
	if _, err := q.dir.GetProfessional(ctx, professionalID); err != nil {
		return nil, err
	}

	stats, err := q.repo.SlotStats(ctx, professionalID, q.now())
	if err != nil {
		return nil, err
	}

	if stats.DatesWithAvailability > 0 {
		avg := float64(stats.FutureSlots) / float64(stats.DatesWithAvailability)
		stats.AverageSlotsPerDay = math.Round(avg*10) / 10
	}

	return stats, nil
}

// SlotsOn lists free slots on one calendar day, past ones included.
func (q *QueryService) SlotsOn(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]time.Time, error) {
	if _, err := q.dir.GetProfessional(ctx, professionalID); err != nil {
		return nil, err
	}
	return q.repo.ListFreeSlotsOn(ctx, professionalID, date)
}

// SlotsBetween lists free slots with both bounds inclusive.
func (q *QueryService) SlotsBetween(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	if _, err := q.dir.GetProfessional(ctx, professionalID); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: to %s is before from %s", ErrInvalidSlotTime, FormatSlotTime(to), FormatSlotTime(from))
	}
	return q.repo.ListFreeSlotsBetween(ctx, professionalID, from, to)
}

// NextAvailable returns the earliest future free slot, nil when none.
func (q *QueryService) NextAvailable(ctx context.Context, professionalID uuid.UUID) (*time.Time, error) {
	stats, err := q.Stats(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	return stats.NextAvailableSlot, nil
}
