package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careslot/scheduling/internal/availability"
	"github.com/careslot/scheduling/internal/booking"
	"github.com/careslot/scheduling/internal/directory"
)

// memDB backs all three repository interfaces for handler tests, standing in
// for the shared Postgres pool.
type memDB struct {
	mu            sync.Mutex
	patients      map[uuid.UUID]*directory.Patient
	professionals map[uuid.UUID]*directory.Professional
	ranges        []availability.Range
	slots         map[memKey]*memSlot
	appts         map[uuid.UUID]booking.Appointment
}

type memKey struct {
	prof uuid.UUID
	unix int64
}

type memSlot struct {
	bookedBy *uuid.UUID
}

func newMemDB() *memDB {
	return &memDB{
		patients:      make(map[uuid.UUID]*directory.Patient),
		professionals: make(map[uuid.UUID]*directory.Professional),
		slots:         make(map[memKey]*memSlot),
		appts:         make(map[uuid.UUID]booking.Appointment),
	}
}

func (db *memDB) key(professionalID uuid.UUID, t time.Time) memKey {
	return memKey{prof: professionalID, unix: t.Unix()}
}

func (db *memDB) addPatient() uuid.UUID {
	id := uuid.New()
	db.patients[id] = &directory.Patient{ID: id, Name: "Pat Test"}
	return id
}

func (db *memDB) addProfessional(fee float64) uuid.UUID {
	id := uuid.New()
	db.professionals[id] = &directory.Professional{ID: id, Name: "Dr. Test", ConsultationFee: fee}
	return id
}

func (db *memDB) addFreeSlot(professionalID uuid.UUID, t time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.slots[db.key(professionalID, t)] = &memSlot{}
}

type dirStore struct{ db *memDB }

func (s *dirStore) GetPatient(_ context.Context, id uuid.UUID) (*directory.Patient, error) {
	p, ok := s.db.patients[id]
	if !ok {
		return nil, directory.ErrPatientNotFound
	}
	return p, nil
}

func (s *dirStore) GetProfessional(_ context.Context, id uuid.UUID) (*directory.Professional, error) {
	p, ok := s.db.professionals[id]
	if !ok {
		return nil, directory.ErrProfessionalNotFound
	}
	return p, nil
}

type availStore struct{ db *memDB }

func (s *availStore) InsertRange(_ context.Context, r *availability.Range) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.ranges = append(s.db.ranges, *r)
	return nil
}

func (s *availStore) DeleteRange(_ context.Context, professionalID, rangeID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for i, r := range s.db.ranges {
		if r.ID == rangeID && r.ProfessionalID == professionalID {
			s.db.ranges = append(s.db.ranges[:i], s.db.ranges[i+1:]...)
			return nil
		}
	}
	return availability.ErrRangeNotFound
}

func (s *availStore) ListRanges(_ context.Context, professionalID uuid.UUID) ([]availability.Range, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []availability.Range
	for _, r := range s.db.ranges {
		if r.ProfessionalID == professionalID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *availStore) AddSlots(_ context.Context, professionalID uuid.UUID, _ *uuid.UUID, times []time.Time) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	added := 0
	for _, t := range times {
		k := s.db.key(professionalID, t)
		if _, ok := s.db.slots[k]; ok {
			continue
		}
		s.db.slots[k] = &memSlot{}
		added++
	}
	return added, nil
}

func (s *availStore) RemoveFreeSlot(_ context.Context, professionalID uuid.UUID, t time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	k := s.db.key(professionalID, t)
	if row, ok := s.db.slots[k]; ok && row.bookedBy == nil {
		delete(s.db.slots, k)
	}
	return nil
}

func (s *availStore) ContainsFreeSlot(_ context.Context, professionalID uuid.UUID, t time.Time) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	row, ok := s.db.slots[s.db.key(professionalID, t)]
	return ok && row.bookedBy == nil, nil
}

func (s *availStore) ClearUnbookedSlots(_ context.Context, professionalID uuid.UUID) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for k, row := range s.db.slots {
		if k.prof == professionalID && row.bookedBy == nil {
			delete(s.db.slots, k)
			n++
		}
	}
	return n, nil
}

func (s *availStore) PruneFreeSlotsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for k, row := range s.db.slots {
		if row.bookedBy == nil && k.unix < cutoff.Unix() {
			delete(s.db.slots, k)
			n++
		}
	}
	return n, nil
}

func (s *availStore) ListFreeSlotsOn(_ context.Context, professionalID uuid.UUID, day time.Time) ([]time.Time, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return s.freeSlots(professionalID, from, from.AddDate(0, 0, 1).Add(-time.Second)), nil
}

func (s *availStore) ListFreeSlotsBetween(_ context.Context, professionalID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	return s.freeSlots(professionalID, from, to), nil
}

func (s *availStore) freeSlots(professionalID uuid.UUID, from, to time.Time) []time.Time {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []time.Time
	for k, row := range s.db.slots {
		if k.prof != professionalID || row.bookedBy != nil {
			continue
		}
		t := time.Unix(k.unix, 0).UTC()
		if !t.Before(from) && !t.After(to) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func (s *availStore) SlotStats(_ context.Context, professionalID uuid.UUID, now time.Time) (*availability.Stats, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stats := &availability.Stats{}
	dates := make(map[string]struct{})
	var next *time.Time
	for k, row := range s.db.slots {
		if k.prof != professionalID || row.bookedBy != nil {
			continue
		}
		stats.TotalSlots++
		t := time.Unix(k.unix, 0).UTC()
		if t.After(now) {
			stats.FutureSlots++
			dates[t.Format("2006-01-02")] = struct{}{}
			if next == nil || t.Before(*next) {
				ts := t
				next = &ts
			}
		}
	}
	stats.DatesWithAvailability = len(dates)
	stats.NextAvailableSlot = next
	return stats, nil
}

func (s *availStore) ListProfessionalIDsWithRanges(_ context.Context) ([]uuid.UUID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, r := range s.db.ranges {
		if _, dup := seen[r.ProfessionalID]; !dup {
			seen[r.ProfessionalID] = struct{}{}
			out = append(out, r.ProfessionalID)
		}
	}
	return out, nil
}

func (s *availStore) InsertEvent(context.Context, availability.EventLog) error { return nil }

type bookStore struct{ db *memDB }

func (s *bookStore) GetAppointment(_ context.Context, id uuid.UUID) (*booking.Appointment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.appts[id]
	if !ok {
		return nil, booking.ErrAppointmentNotFound
	}
	return &a, nil
}

func (s *bookStore) FindActiveBySlot(_ context.Context, professionalID uuid.UUID, t time.Time) (*booking.Appointment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.findActiveLocked(professionalID, t)
}

func (s *bookStore) findActiveLocked(professionalID uuid.UUID, t time.Time) (*booking.Appointment, error) {
	for _, a := range s.db.appts {
		if a.ProfessionalID == professionalID && a.Time.Equal(t) && a.Status.Live() {
			out := a
			return &out, nil
		}
	}
	return nil, booking.ErrAppointmentNotFound
}

func (s *bookStore) ListByPatient(_ context.Context, patientID uuid.UUID, f booking.ListFilter) ([]booking.Appointment, error) {
	return s.list(func(a booking.Appointment) bool { return a.PatientID == patientID }, f)
}

func (s *bookStore) ListByProfessional(_ context.Context, professionalID uuid.UUID, f booking.ListFilter) ([]booking.Appointment, error) {
	return s.list(func(a booking.Appointment) bool { return a.ProfessionalID == professionalID }, f)
}

func (s *bookStore) list(keep func(booking.Appointment) bool, f booking.ListFilter) ([]booking.Appointment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []booking.Appointment
	for _, a := range s.db.appts {
		if !keep(a) {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Time.Before(out[i].Time) })
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *bookStore) BookSlot(_ context.Context, appt *booking.Appointment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if existing, _ := s.findActiveLocked(appt.ProfessionalID, appt.Time); existing != nil {
		return booking.ErrSlotTaken
	}
	row, ok := s.db.slots[s.db.key(appt.ProfessionalID, appt.Time)]
	if !ok || row.bookedBy != nil {
		return booking.ErrSlotUnavailable
	}

	appt.CreatedAt = time.Now().UTC()
	appt.UpdatedAt = appt.CreatedAt
	s.db.appts[appt.ID] = *appt
	row.bookedBy = &appt.ID
	return nil
}

func (s *bookStore) CancelAndRelease(_ context.Context, id uuid.UUID) (*booking.Appointment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	a, ok := s.db.appts[id]
	if !ok || !a.Status.Live() {
		return nil, booking.ErrAppointmentNotFound
	}
	a.Status = booking.StatusCancelled
	s.db.appts[id] = a

	k := s.db.key(a.ProfessionalID, a.Time)
	if row, ok := s.db.slots[k]; ok {
		if row.bookedBy != nil && *row.bookedBy == a.ID {
			row.bookedBy = nil
		}
	} else {
		s.db.slots[k] = &memSlot{}
	}

	out := a
	return &out, nil
}

func (s *bookStore) RescheduleSlots(_ context.Context, appt *booking.Appointment, newTime time.Time, newTimeSlot string, reason *string) (*booking.Appointment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	newRow, ok := s.db.slots[s.db.key(appt.ProfessionalID, newTime)]
	if !ok || newRow.bookedBy != nil {
		return nil, booking.ErrSlotUnavailable
	}
	a, ok := s.db.appts[appt.ID]
	if !ok || !a.Status.Live() {
		return nil, booking.ErrAppointmentNotFound
	}

	oldKey := s.db.key(a.ProfessionalID, a.Time)
	a.Time = newTime
	a.TimeSlot = newTimeSlot
	if reason != nil {
		a.Reason = reason
	}
	s.db.appts[a.ID] = a
	newRow.bookedBy = &a.ID

	if row, ok := s.db.slots[oldKey]; ok {
		if row.bookedBy != nil && *row.bookedBy == a.ID {
			row.bookedBy = nil
		}
	} else {
		s.db.slots[oldKey] = &memSlot{}
	}

	out := a
	return &out, nil
}

func (s *bookStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to booking.Status) (*booking.Appointment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.appts[id]
	if !ok || a.Status != from {
		return nil, booking.ErrAppointmentNotFound
	}
	a.Status = to
	s.db.appts[id] = a
	out := a
	return &out, nil
}

func (s *bookStore) UpdateReason(_ context.Context, id uuid.UUID, reason *string) (*booking.Appointment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.appts[id]
	if !ok || !a.Status.Live() {
		return nil, booking.ErrAppointmentNotFound
	}
	a.Reason = reason
	s.db.appts[id] = a
	out := a
	return &out, nil
}

func (s *bookStore) InsertEvent(context.Context, booking.EventLog) error { return nil }

type passLocker struct{}

func (passLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(context.Context) error) error {
	return fn(ctx)
}

var testNow = time.Date(2024, 1, 14, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *memDB, uuid.UUID, uuid.UUID) {
	t.Helper()

	db := newMemDB()
	patientID := db.addPatient()
	profID := db.addProfessional(200)

	clock := func() time.Time { return testNow }
	avail := availability.NewService(&availStore{db}, &dirStore{db}, zerolog.Nop(), 7).WithClock(clock)
	query := availability.NewQueryService(&availStore{db}, &dirStore{db}).WithClock(clock)
	book := booking.NewService(&bookStore{db}, &availStore{db}, &dirStore{db}, passLocker{}, zerolog.Nop()).WithClock(clock)

	router := NewRouter(RouterConfig{
		Availability: avail,
		Query:        query,
		Booking:      book,
		Logger:       zerolog.Nop(),
		Env:          "test",
		Version:      "test",
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, db, patientID, profID
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthLiveness(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health/live")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRangeLifecycleAndGeneration(t *testing.T) {
	srv, _, _, profID := newTestServer(t)
	base := fmt.Sprintf("%s/professionals/%s", srv.URL, profID)

	resp := postJSON(t, base+"/availability-ranges", CreateRangeRequest{
		DayOfWeek:       1,
		StartTime:       "09:00",
		EndTime:         "10:00",
		IntervalMinutes: 30,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	rng := decodeBody[RangeResponse](t, resp)
	assert.Equal(t, 1, rng.DayOfWeek)
	assert.Equal(t, "09:00", rng.StartTime)

	resp = postJSON(t, base+"/slots/generate", map[string]string{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	gen := decodeBody[GenerateSlotsResponse](t, resp)
	assert.Equal(t, "additive", gen.Mode)
	assert.Equal(t, 2, gen.Added, "one Monday falls inside the 7-day window")

	resp, err := http.Get(base + "/slots?date=2024-01-15")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	slots := decodeBody[SlotsResponse](t, resp)
	assert.Equal(t, []string{"2024-01-15T09:00:00", "2024-01-15T09:30:00"}, slots.Slots)
}

func TestCreateRangeRejectsBadInput(t *testing.T) {
	srv, _, _, profID := newTestServer(t)
	base := fmt.Sprintf("%s/professionals/%s", srv.URL, profID)

	// Interval below the validator minimum.
	resp := postJSON(t, base+"/availability-ranges", CreateRangeRequest{
		DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", IntervalMinutes: 3,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "validation_failed", body.Error)

	// Passes the validator, fails domain validation.
	resp = postJSON(t, base+"/availability-ranges", CreateRangeRequest{
		DayOfWeek: 1, StartTime: "10:00", EndTime: "09:00", IntervalMinutes: 30,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body = decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "invalid_range", body.Error)
}

func TestRangesUnknownProfessional(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	resp, err := http.Get(fmt.Sprintf("%s/professionals/%s/availability-ranges", srv.URL, uuid.New()))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "professional_not_found", body.Error)
}

func TestBookAppointmentFlow(t *testing.T) {
	srv, db, patientID, profID := newTestServer(t)
	slotTS := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	db.addFreeSlot(profID, slotTS)

	req := BookAppointmentRequest{
		PatientID:      patientID.String(),
		ProfessionalID: profID.String(),
		TimeSlot:       "2024-01-15T09:00:00",
		Reason:         "checkup",
	}

	resp := postJSON(t, srv.URL+"/appointments", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	appt := decodeBody[AppointmentResponse](t, resp)
	assert.Equal(t, "scheduled", appt.Status)
	assert.Equal(t, 200.0, appt.ConsultationFee)
	assert.Equal(t, "2024-01-15T09:00:00", appt.TimeSlot)

	// The slot is consumed; a second attempt conflicts.
	resp = postJSON(t, srv.URL+"/appointments", req)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "slot_unavailable", body.Error)
}

func TestBookUnknownPatient(t *testing.T) {
	srv, db, _, profID := newTestServer(t)
	slotTS := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	db.addFreeSlot(profID, slotTS)

	resp := postJSON(t, srv.URL+"/appointments", BookAppointmentRequest{
		PatientID:      uuid.NewString(),
		ProfessionalID: profID.String(),
		TimeSlot:       "2024-01-15T09:00:00",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "patient_not_found", body.Error)
}

func TestCancelAuthorization(t *testing.T) {
	srv, db, patientID, profID := newTestServer(t)
	slotTS := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	db.addFreeSlot(profID, slotTS)

	resp := postJSON(t, srv.URL+"/appointments", BookAppointmentRequest{
		PatientID:      patientID.String(),
		ProfessionalID: profID.String(),
		TimeSlot:       "2024-01-15T09:00:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	appt := decodeBody[AppointmentResponse](t, resp)

	cancelURL := fmt.Sprintf("%s/appointments/%s/cancel", srv.URL, appt.ID)

	resp = postJSON(t, cancelURL, CancelRequest{RequestedBy: uuid.NewString()})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "not_authorized", body.Error)

	resp = postJSON(t, cancelURL, CancelRequest{RequestedBy: patientID.String()})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cancelled := decodeBody[AppointmentResponse](t, resp)
	assert.Equal(t, "cancelled", cancelled.Status)
}

func TestTransitionEndpoints(t *testing.T) {
	srv, db, patientID, profID := newTestServer(t)
	slotTS := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	db.addFreeSlot(profID, slotTS)

	resp := postJSON(t, srv.URL+"/appointments", BookAppointmentRequest{
		PatientID:      patientID.String(),
		ProfessionalID: profID.String(),
		TimeSlot:       "2024-01-15T09:00:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	appt := decodeBody[AppointmentResponse](t, resp)
	apptURL := fmt.Sprintf("%s/appointments/%s", srv.URL, appt.ID)

	resp = postJSON(t, apptURL+"/confirm", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	confirmed := decodeBody[AppointmentResponse](t, resp)
	assert.Equal(t, "confirmed", confirmed.Status)

	// The appointment time has not passed under the fixed clock.
	resp = postJSON(t, apptURL+"/no-show", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "appointment_not_elapsed", body.Error)

	resp = postJSON(t, apptURL+"/complete", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	completed := decodeBody[AppointmentResponse](t, resp)
	assert.Equal(t, "completed", completed.Status)

	// Terminal now; confirming again conflicts.
	resp = postJSON(t, apptURL+"/confirm", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body = decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "invalid_status_transition", body.Error)
}

func TestGetAppointmentNotFound(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	resp, err := http.Get(fmt.Sprintf("%s/appointments/%s", srv.URL, uuid.New()))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "appointment_not_found", body.Error)
}

func TestListAppointmentsRequiresFilter(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/appointments")
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[ErrorResponse](t, resp)
	assert.Equal(t, "missing_filter", body.Error)
}

func TestListAppointmentsByPatient(t *testing.T) {
	srv, db, patientID, profID := newTestServer(t)
	slotTS := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	db.addFreeSlot(profID, slotTS)

	resp := postJSON(t, srv.URL+"/appointments", BookAppointmentRequest{
		PatientID:      patientID.String(),
		ProfessionalID: profID.String(),
		TimeSlot:       "2024-01-15T09:00:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	listResp, err := http.Get(fmt.Sprintf("%s/appointments?patient_id=%s", srv.URL, patientID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	list := decodeBody[[]AppointmentResponse](t, listResp)
	require.Len(t, list, 1)
	assert.Equal(t, patientID, list[0].PatientID)
}

func TestStatsEmptyInventory(t *testing.T) {
	srv, _, _, profID := newTestServer(t)

	resp, err := http.Get(fmt.Sprintf("%s/professionals/%s/availability/stats", srv.URL, profID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decodeBody[StatsResponse](t, resp)

	assert.Zero(t, stats.TotalSlots)
	assert.Zero(t, stats.FutureSlots)
	assert.Zero(t, stats.AverageSlotsPerDay)
	assert.Nil(t, stats.NextAvailableSlot)
}

func TestStatsReflectsInventory(t *testing.T) {
	srv, db, _, profID := newTestServer(t)
	db.addFreeSlot(profID, time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))
	db.addFreeSlot(profID, time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC))
	db.addFreeSlot(profID, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)) // past

	resp, err := http.Get(fmt.Sprintf("%s/professionals/%s/availability/stats", srv.URL, profID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decodeBody[StatsResponse](t, resp)

	assert.Equal(t, 3, stats.TotalSlots)
	assert.Equal(t, 2, stats.FutureSlots)
	assert.Equal(t, 1, stats.DatesWithAvailability)
	assert.Equal(t, 2.0, stats.AverageSlotsPerDay)
	require.NotNil(t, stats.NextAvailableSlot)
	assert.Equal(t, "2024-01-15T09:00:00", *stats.NextAvailableSlot)
}

func TestRemoveSlotEndpoint(t *testing.T) {
	srv, db, _, profID := newTestServer(t)
	slotTS := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	db.addFreeSlot(profID, slotTS)

	url := fmt.Sprintf("%s/professionals/%s/slots?time_slot=2024-01-15T09:00:00", srv.URL, profID)
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	free, err := (&availStore{db}).ContainsFreeSlot(context.Background(), profID, slotTS)
	require.NoError(t, err)
	assert.False(t, free)
}
