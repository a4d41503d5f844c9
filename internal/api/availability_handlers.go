package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/careslot/scheduling/internal/availability"
	"github.com/careslot/scheduling/internal/directory"
)

var validate = validator.New()

func professionalIDParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "professionalID"))
	return id, err == nil
}

func addRangeHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, ok := professionalIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional id must be a valid UUID")
			return
		}

		var req CreateRangeRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		rng, err := svc.AddRange(r.Context(), professionalID, req.DayOfWeek, req.StartTime, req.EndTime, req.IntervalMinutes)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toRangeResponse(rng))
	}
}

func listRangesHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, ok := professionalIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional id must be a valid UUID")
			return
		}

		ranges, err := svc.ListRanges(r.Context(), professionalID)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		resp := make([]RangeResponse, 0, len(ranges))
		for i := range ranges {
			resp = append(resp, toRangeResponse(&ranges[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func removeRangeHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, ok := professionalIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional id must be a valid UUID")
			return
		}

		rangeID, err := uuid.Parse(chi.URLParam(r, "rangeID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_range_id", "range id must be a valid UUID")
			return
		}

		if err := svc.RemoveRange(r.Context(), professionalID, rangeID); err != nil {
			handleAvailabilityError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func generateSlotsHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, ok := professionalIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional id must be a valid UUID")
			return
		}

		mode := availability.GenerationMode(r.URL.Query().Get("mode"))

		result, err := svc.Regenerate(r.Context(), professionalID, mode)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, GenerateSlotsResponse{
			Mode:       string(result.Mode),
			Cleared:    result.Cleared,
			Added:      result.Added,
			WindowDays: result.WindowDays,
		})
	}
}

func addSlotHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, ok := professionalIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional id must be a valid UUID")
			return
		}

		var req AddSlotRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}

		t, err := svc.AddSlot(r.Context(), professionalID, req.TimeSlot)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{
			"time_slot": availability.FormatSlotTime(t),
		})
	}
}

func removeSlotHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, ok := professionalIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional id must be a valid UUID")
			return
		}

		timeSlot := r.URL.Query().Get("time_slot")
		if timeSlot == "" {
			writeError(w, http.StatusBadRequest, "missing_time_slot", "time_slot query parameter is required")
			return
		}

		if err := svc.RemoveSlot(r.Context(), professionalID, timeSlot); err != nil {
			handleAvailabilityError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listSlotsHandler(svc *availability.QueryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, ok := professionalIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional id must be a valid UUID")
			return
		}

		q := r.URL.Query()

		var (
			slots []time.Time
			err   error
		)

		switch {
		case q.Get("date") != "":
			var day time.Time
			day, err = time.ParseInLocation("2006-01-02", q.Get("date"), time.UTC)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			slots, err = svc.SlotsOn(r.Context(), professionalID, day)

		case q.Get("from") != "" && q.Get("to") != "":
			var from, to time.Time
			from, err = availability.ParseSlotTime(q.Get("from"))
			if err == nil {
				to, err = availability.ParseSlotTime(q.Get("to"))
			}
			if err != nil {
				handleAvailabilityError(w, err)
				return
			}
			slots, err = svc.SlotsBetween(r.Context(), professionalID, from, to)

		default:
			writeError(w, http.StatusBadRequest, "missing_filter", "provide either date=YYYY-MM-DD or from= and to=")
			return
		}

		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		out := make([]string, 0, len(slots))
		for _, t := range slots {
			out = append(out, availability.FormatSlotTime(t))
		}

		writeJSON(w, http.StatusOK, SlotsResponse{ProfessionalID: professionalID, Slots: out})
	}
}

func statsHandler(svc *availability.QueryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		professionalID, ok := professionalIDParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional id must be a valid UUID")
			return
		}

		stats, err := svc.Stats(r.Context(), professionalID)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		resp := StatsResponse{
			TotalSlots:            stats.TotalSlots,
			FutureSlots:           stats.FutureSlots,
			DatesWithAvailability: stats.DatesWithAvailability,
			AverageSlotsPerDay:    stats.AverageSlotsPerDay,
		}
		if stats.NextAvailableSlot != nil {
			next := availability.FormatSlotTime(*stats.NextAvailableSlot)
			resp.NextAvailableSlot = &next
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func handleAvailabilityError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, directory.ErrProfessionalNotFound):
		writeError(w, http.StatusNotFound, "professional_not_found", err.Error())
	case errors.Is(err, availability.ErrRangeNotFound):
		writeError(w, http.StatusNotFound, "range_not_found", err.Error())
	case errors.Is(err, availability.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
	case errors.Is(err, availability.ErrInvalidSlotTime):
		writeError(w, http.StatusBadRequest, "invalid_time_slot", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
