package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careslot/scheduling/internal/directory"
)

const (
	EventSlotsGenerated = "SLOTS_GENERATED"
	EventSlotAdded      = "SLOT_ADDED"
	EventSlotRemoved    = "SLOT_REMOVED"
)

var (
	ErrInvalidRange    = errors.New("invalid availability range")
	ErrInvalidSlotTime = errors.New("invalid slot time")
)

// GenerationMode selects between topping up the forward window and
// rebuilding it from the ranges.
type GenerationMode string

const (
	// GenerateAdditive inserts newly computed slots and never deletes.
	GenerateAdditive GenerationMode = "additive"
	// GenerateFull clears all free slots first, reconciling manual or stale
	// entries. Booked slots are never touched in either mode.
	GenerateFull GenerationMode = "full"
)

type GenerationResult struct {
	Mode       GenerationMode
	Cleared    int64
	Added      int
	WindowDays int
}

// Service is the write side of availability: range CRUD, slot generation
// and manual inventory edits.
type Service struct {
	repo       Repository
	dir        directory.Repository
	log        zerolog.Logger
	windowDays int
	now        func() time.Time
}

func NewService(repo Repository, dir directory.Repository, log zerolog.Logger, windowDays int) *Service {
	return &Service{
		repo:       repo,
		dir:        dir,
		log:        log,
		windowDays: windowDays,
		now:        utcNow,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// AddRange validates and stores a new recurring pattern. It does not
// generate slots; Regenerate does that explicitly.
func (s *Service) AddRange(ctx context.Context, professionalID uuid.UUID, weekday int, start, end string, intervalMinutes int) (*Range, error) {
	if _, err := s.dir.GetProfessional(ctx, professionalID); err != nil {
		return nil, err
	}

	startTod, err := ParseTimeOfDay(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	endTod, err := ParseTimeOfDay(end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}

	if weekday < 1 || weekday > 7 {
		return nil, fmt.Errorf("%w: day_of_week %d must be 1..7 (Monday=1)", ErrInvalidRange, weekday)
	}
	if intervalMinutes < 5 || intervalMinutes > 120 {
		return nil, fmt.Errorf("%w: interval_minutes %d must be 5..120", ErrInvalidRange, intervalMinutes)
	}
	if !startTod.Before(endTod) {
		return nil, fmt.Errorf("%w: start %s must be before end %s", ErrInvalidRange, startTod, endTod)
	}

	rng := &Range{
		ID:              uuid.New(),
		ProfessionalID:  professionalID,
		Weekday:         weekday,
		Start:           startTod,
		End:             endTod,
		IntervalMinutes: intervalMinutes,
	}

	if err := s.repo.InsertRange(ctx, rng); err != nil {
		return nil, fmt.Errorf("insert range: %w", err)
	}

	return rng, nil
}

// RemoveRange deletes one range by its id. Slots the range already
// generated stay in the inventory.
func (s *Service) RemoveRange(ctx context.Context, professionalID, rangeID uuid.UUID) error {
	return s.repo.DeleteRange(ctx, professionalID, rangeID)
}

func (s *Service) ListRanges(ctx context.Context, professionalID uuid.UUID) ([]Range, error) {
	if _, err := s.dir.GetProfessional(ctx, professionalID); err != nil {
		return nil, err
	}
	return s.repo.ListRanges(ctx, professionalID)
}

// Regenerate expands the professional's ranges over the forward window and
// materializes the result into the slot inventory. Full mode first clears
// every free slot; booked slots survive both modes, so regeneration can
// never free a timestamp a live appointment holds.
func (s *Service) Regenerate(ctx context.Context, professionalID uuid.UUID, mode GenerationMode) (*GenerationResult, error) {
	if mode == "" {
		mode = GenerateAdditive
	}
	if mode != GenerateAdditive && mode != GenerateFull {
		return nil, fmt.Errorf("%w: unknown generation mode %q", ErrInvalidRange, mode)
	}

	if _, err := s.dir.GetProfessional(ctx, professionalID); err != nil {
		return nil, err
	}

	ranges, err := s.repo.ListRanges(ctx, professionalID)
	if err != nil {
		return nil, fmt.Errorf("list ranges: %w", err)
	}

	now := s.now()
	result := &GenerationResult{Mode: mode, WindowDays: s.windowDays}

	if mode == GenerateFull {
		cleared, err := s.repo.ClearUnbookedSlots(ctx, professionalID)
		if err != nil {
			return nil, err
		}
		result.Cleared = cleared
	}

	// Expand range by range so each slot records which range produced it.
	// The insert skips duplicates, so overlapping ranges collapse to one row.
	for _, rng := range ranges {
		times := ExpandRanges([]Range{rng}, now, s.windowDays, now)
		added, err := s.repo.AddSlots(ctx, professionalID, &rng.ID, times)
		if err != nil {
			return nil, fmt.Errorf("materialize range %s: %w", rng.ID, err)
		}
		result.Added += added
	}

	s.logEvent(ctx, professionalID, EventSlotsGenerated, map[string]any{
		"mode":    string(mode),
		"cleared": result.Cleared,
		"added":   result.Added,
		"window":  s.windowDays,
	})

	s.log.Info().
		Str("professional_id", professionalID.String()).
		Str("mode", string(mode)).
		Int64("cleared", result.Cleared).
		Int("added", result.Added).
		Msg("slot inventory regenerated")

	return result, nil
}

// AddSlot puts one manual timestamp into the inventory. Re-adding an
// existing slot is a no-op.
func (s *Service) AddSlot(ctx context.Context, professionalID uuid.UUID, timeSlot string) (time.Time, error) {
	if _, err := s.dir.GetProfessional(ctx, professionalID); err != nil {
		return time.Time{}, err
	}

	t, err := ParseSlotTime(timeSlot)
	if err != nil {
		return time.Time{}, err
	}

	added, err := s.repo.AddSlots(ctx, professionalID, nil, []time.Time{t})
	if err != nil {
		return time.Time{}, fmt.Errorf("add slot: %w", err)
	}

	if added > 0 {
		s.logEvent(ctx, professionalID, EventSlotAdded, map[string]any{"time_slot": timeSlot})
	}

	return t, nil
}

// RemoveSlot retracts a free timestamp. Removing an absent or booked slot
// is a no-op; booked slots are only released through cancellation.
func (s *Service) RemoveSlot(ctx context.Context, professionalID uuid.UUID, timeSlot string) error {
	if _, err := s.dir.GetProfessional(ctx, professionalID); err != nil {
		return err
	}

	t, err := ParseSlotTime(timeSlot)
	if err != nil {
		return err
	}

	if err := s.repo.RemoveFreeSlot(ctx, professionalID, t); err != nil {
		return err
	}

	s.logEvent(ctx, professionalID, EventSlotRemoved, map[string]any{"time_slot": timeSlot})
	return nil
}

// PruneElapsed drops free slots that are already in the past, across all
// professionals. Booked slots stay for the appointment history.
func (s *Service) PruneElapsed(ctx context.Context) (int64, error) {
	return s.repo.PruneFreeSlotsBefore(ctx, s.now())
}

// RefreshAll additively tops up the forward window for every professional
// that has ranges. Returns how many professionals were refreshed.
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	ids, err := s.repo.ListProfessionalIDsWithRanges(ctx)
	if err != nil {
		return 0, fmt.Errorf("list professionals with ranges: %w", err)
	}

	refreshed := 0
	for _, id := range ids {
		if _, err := s.Regenerate(ctx, id, GenerateAdditive); err != nil {
			s.log.Error().Err(err).Str("professional_id", id.String()).Msg("refresh failed")
			continue
		}
		refreshed++
	}

	return refreshed, nil
}

func (s *Service) logEvent(ctx context.Context, professionalID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	profID := professionalID

	ev := EventLog{
		EventType:      eventType,
		ProfessionalID: &profID,
		Payload:        data,
		CreatedAt:      s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("insert event log")
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}
