package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/careslot/scheduling/internal/availability"
	"github.com/careslot/scheduling/internal/booking"
)

type CreateRangeRequest struct {
	DayOfWeek       int    `json:"day_of_week" validate:"required,min=1,max=7"`
	StartTime       string `json:"start_time" validate:"required"`
	EndTime         string `json:"end_time" validate:"required"`
	IntervalMinutes int    `json:"interval_minutes" validate:"required,min=5,max=120"`
}

type RangeResponse struct {
	ID              uuid.UUID `json:"id"`
	ProfessionalID  uuid.UUID `json:"professional_id"`
	DayOfWeek       int       `json:"day_of_week"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	IntervalMinutes int       `json:"interval_minutes"`
}

func toRangeResponse(r *availability.Range) RangeResponse {
	return RangeResponse{
		ID:              r.ID,
		ProfessionalID:  r.ProfessionalID,
		DayOfWeek:       r.Weekday,
		StartTime:       r.Start.String(),
		EndTime:         r.End.String(),
		IntervalMinutes: r.IntervalMinutes,
	}
}

type GenerateSlotsResponse struct {
	Mode       string `json:"mode"`
	Cleared    int64  `json:"cleared"`
	Added      int    `json:"added"`
	WindowDays int    `json:"window_days"`
}

type AddSlotRequest struct {
	TimeSlot string `json:"time_slot" validate:"required"`
}

type SlotsResponse struct {
	ProfessionalID uuid.UUID `json:"professional_id"`
	Slots          []string  `json:"slots"`
}

type StatsResponse struct {
	TotalSlots            int     `json:"total_slots"`
	FutureSlots           int     `json:"future_slots"`
	DatesWithAvailability int     `json:"dates_with_availability"`
	AverageSlotsPerDay    float64 `json:"average_slots_per_day"`
	NextAvailableSlot     *string `json:"next_available_slot"`
}

type BookAppointmentRequest struct {
	PatientID      string `json:"patient_id" validate:"required,uuid"`
	ProfessionalID string `json:"professional_id" validate:"required,uuid"`
	TimeSlot       string `json:"time_slot" validate:"required"`
	Reason         string `json:"reason" validate:"max=500"`
}

type RescheduleRequest struct {
	TimeSlot string `json:"time_slot"`
	Reason   string `json:"reason" validate:"max=500"`
}

type CancelRequest struct {
	RequestedBy string `json:"requested_by" validate:"required,uuid"`
}

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patient_id"`
	ProfessionalID  uuid.UUID `json:"professional_id"`
	TimeSlot        string    `json:"time_slot"`
	Status          string    `json:"status"`
	Reason          *string   `json:"reason,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	ConsultationFee float64   `json:"consultation_fee"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		ProfessionalID:  a.ProfessionalID,
		TimeSlot:        a.TimeSlot,
		Status:          string(a.Status),
		Reason:          a.Reason,
		Notes:           a.Notes,
		ConsultationFee: a.ConsultationFee,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
