package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careslot/scheduling/internal/availability"
	"github.com/careslot/scheduling/internal/directory"
	redisclient "github.com/careslot/scheduling/internal/redis"
)

const (
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentConfirmed   = "APPOINTMENT_CONFIRMED"
	EventAppointmentCompleted   = "APPOINTMENT_COMPLETED"
	EventAppointmentNoShow      = "APPOINTMENT_NO_SHOW"
)

var (
	ErrSlotUnavailable    = errors.New("slot is not available")
	ErrSlotTaken          = errors.New("slot already has a live appointment")
	ErrSlotBeingBooked    = errors.New("slot is currently being booked, please retry")
	ErrNotAuthorized      = errors.New("only the booking patient may cancel")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrAppointmentPending = errors.New("appointment time has not elapsed yet")
)

// Service is the booking coordinator: the only mutator of appointments and
// their slot claims. Inventory writes and the matching appointment writes
// always travel together through the repository's transactional methods,
// serialized per (professional, timestamp) by the distributed lock.
type Service struct {
	repo   Repository
	inv    Inventory
	dir    directory.Repository
	locker redisclient.Locker
	log    zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, inv Inventory, dir directory.Repository, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		inv:    inv,
		dir:    dir,
		locker: locker,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Book reserves a slot for a patient. The fee is snapshotted from the
// professional at booking time. Concurrent attempts for the same slot are
// serialized by the lock; whichever runs second finds the slot gone.
func (s *Service) Book(ctx context.Context, patientID, professionalID uuid.UUID, timeSlot, reason string) (*Appointment, error) {
	slotTime, err := availability.ParseSlotTime(timeSlot)
	if err != nil {
		return nil, err
	}

	if _, err := s.dir.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}
	prof, err := s.dir.GetProfessional(ctx, professionalID)
	if err != nil {
		return nil, err
	}

	var booked *Appointment

	err = s.locker.WithSlotLock(ctx, professionalID, slotTime, func(lockCtx context.Context) error {
		free, err := s.inv.ContainsFreeSlot(lockCtx, professionalID, slotTime)
		if err != nil {
			return fmt.Errorf("check inventory: %w", err)
		}
		if !free {
			return ErrSlotUnavailable
		}

		// Inside the critical section re-check the appointment side, in
		// case inventory and appointments ever drift apart.
		existing, err := s.repo.FindActiveBySlot(lockCtx, professionalID, slotTime)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check existing appointment: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		appt := &Appointment{
			ID:              uuid.New(),
			PatientID:       patientID,
			ProfessionalID:  professionalID,
			Time:            slotTime,
			TimeSlot:        availability.FormatSlotTime(slotTime),
			Status:          StatusScheduled,
			Reason:          nullableString(reason),
			ConsultationFee: prof.ConsultationFee,
		}

		if err := s.repo.BookSlot(lockCtx, appt); err != nil {
			return err
		}

		booked = appt

		s.logEvent(lockCtx, &appt.ID, &professionalID, EventAppointmentBooked, map[string]any{
			"patient_id": patientID.String(),
			"time_slot":  appt.TimeSlot,
			"fee":        appt.ConsultationFee,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return booked, nil
}

// Cancel moves a live appointment to cancelled and returns its slot to the
// inventory. Only the booking patient may cancel.
func (s *Service) Cancel(ctx context.Context, id, actingUserID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.PatientID != actingUserID {
		return nil, ErrNotAuthorized
	}
	if !appt.Status.CanTransitionTo(StatusCancelled) {
		return nil, ErrInvalidTransition
	}

	var cancelled *Appointment

	err = s.locker.WithSlotLock(ctx, appt.ProfessionalID, appt.Time, func(lockCtx context.Context) error {
		out, err := s.repo.CancelAndRelease(lockCtx, id)
		if err != nil {
			// The status check ran before the lock; a miss here means the
			// state moved underneath us.
			if errors.Is(err, ErrAppointmentNotFound) {
				return ErrInvalidTransition
			}
			return err
		}
		cancelled = out

		s.logEvent(lockCtx, &id, &appt.ProfessionalID, EventAppointmentCancelled, map[string]any{
			"cancelled_by": actingUserID.String(),
			"time_slot":    appt.TimeSlot,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return cancelled, nil
}

// Reschedule moves a live appointment to a new timestamp, consuming the new
// slot and releasing the old one as a unit. With no time change it only
// updates the reason.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newTimeSlot, reason string) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.Status.Live() {
		return nil, ErrInvalidTransition
	}

	if newTimeSlot == "" || newTimeSlot == appt.TimeSlot {
		if reason == "" {
			return appt, nil
		}
		updated, err := s.repo.UpdateReason(ctx, id, nullableString(reason))
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return nil, ErrInvalidTransition
			}
			return nil, err
		}
		return updated, nil
	}

	newTime, err := availability.ParseSlotTime(newTimeSlot)
	if err != nil {
		return nil, err
	}

	var moved *Appointment

	err = s.locker.WithSlotLock(ctx, appt.ProfessionalID, newTime, func(lockCtx context.Context) error {
		free, err := s.inv.ContainsFreeSlot(lockCtx, appt.ProfessionalID, newTime)
		if err != nil {
			return fmt.Errorf("check inventory: %w", err)
		}
		if !free {
			return ErrSlotUnavailable
		}

		existing, err := s.repo.FindActiveBySlot(lockCtx, appt.ProfessionalID, newTime)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check existing appointment: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		out, err := s.repo.RescheduleSlots(lockCtx, appt, newTime, availability.FormatSlotTime(newTime), nullableString(reason))
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return ErrInvalidTransition
			}
			return err
		}
		moved = out

		s.logEvent(lockCtx, &id, &appt.ProfessionalID, EventAppointmentRescheduled, map[string]any{
			"from": appt.TimeSlot,
			"to":   moved.TimeSlot,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return moved, nil
}

// Confirm moves a scheduled appointment to confirmed. Inventory is
// untouched; the slot stays consumed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusScheduled, StatusConfirmed, EventAppointmentConfirmed)
}

// Complete closes out a confirmed appointment.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusConfirmed, StatusCompleted, EventAppointmentCompleted)
}

// MarkNoShow records that a confirmed appointment was not attended. Only
// allowed once the appointment time has passed.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusConfirmed {
		return nil, ErrInvalidTransition
	}
	if s.now().Before(appt.Time) {
		return nil, ErrAppointmentPending
	}

	return s.transition(ctx, id, StatusConfirmed, StatusNoShow, EventAppointmentNoShow)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, from, to Status, eventType string) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != from {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateStatus(ctx, id, from, to)
	if err != nil {
		// Conditional update missed: the row moved between read and write.
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.logEvent(ctx, &id, &updated.ProfessionalID, eventType, map[string]any{
		"from": string(from),
		"to":   string(to),
	})

	return updated, nil
}

// Get retrieves one appointment by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointment(ctx, id)
}

// ListByPatient returns a patient's appointments, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, f ListFilter) ([]Appointment, error) {
	return s.repo.ListByPatient(ctx, patientID, normalizeFilter(f))
}

// ListByProfessional returns a professional's appointments, newest first.
func (s *Service) ListByProfessional(ctx context.Context, professionalID uuid.UUID, f ListFilter) ([]Appointment, error) {
	return s.repo.ListByProfessional(ctx, professionalID, normalizeFilter(f))
}

func normalizeFilter(f ListFilter) ListFilter {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func (s *Service) logEvent(ctx context.Context, appointmentID, professionalID *uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	ev := EventLog{
		EventType:      eventType,
		AppointmentID:  appointmentID,
		ProfessionalID: professionalID,
		Payload:        data,
		CreatedAt:      s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("insert event log")
	}
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
