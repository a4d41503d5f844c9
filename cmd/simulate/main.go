package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/careslot/scheduling/internal/availability"
	"github.com/careslot/scheduling/internal/config"
	"github.com/careslot/scheduling/internal/db"
	"github.com/careslot/scheduling/internal/logging"
)

type simConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	ConfirmRatio float64
	CancelRatio  float64
	ReadRatio    float64
	PatientLimit int
	SlotLimit    int
	PostgresDSN  string
}

// openSlot is one bookable (professional, timestamp) pair loaded before the
// run. Workers deliberately collide on these to exercise the slot lock.
type openSlot struct {
	ProfessionalID uuid.UUID
	TimeSlot       string
}

// bookedAppointment remembers who booked it so cancels can act as the right
// patient.
type bookedAppointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
}

type dataPool struct {
	patients      []uuid.UUID
	professionals []uuid.UUID
	slots         []openSlot

	mu     sync.RWMutex
	booked []bookedAppointment
}

func (p *dataPool) remember(a bookedAppointment) {
	p.mu.Lock()
	p.booked = append(p.booked, a)
	p.mu.Unlock()
}

func (p *dataPool) randomBooked(rng *rand.Rand) (bookedAppointment, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.booked) == 0 {
		return bookedAppointment{}, false
	}
	return p.booked[rng.Intn(len(p.booked))], true
}

// opMetrics accumulates outcomes and latencies for one operation type.
type opMetrics struct {
	mu        sync.Mutex
	total     int64
	success   int64
	conflict  int64
	failed    int64
	latencies []time.Duration
}

func (m *opMetrics) record(took time.Duration, status int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	switch {
	case err != nil:
		m.failed++
	case status == http.StatusOK || status == http.StatusCreated:
		m.success++
	case status == http.StatusConflict:
		m.conflict++
	default:
		m.failed++
	}
	m.latencies = append(m.latencies, took)
}

type latencySummary struct {
	avg, min, max, p50, p95 time.Duration
}

func (m *opMetrics) summary() (total, success, conflict, failed int64, lat latencySummary) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total, success, conflict, failed = m.total, m.success, m.conflict, m.failed
	if len(m.latencies) == 0 {
		return
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	lat = latencySummary{
		avg: sum / time.Duration(len(sorted)),
		min: sorted[0],
		max: sorted[len(sorted)-1],
		p50: quantile(sorted, 0.50),
		p95: quantile(sorted, 0.95),
	}
	return
}

func quantile(sorted []time.Duration, q float64) time.Duration {
	idx := int(float64(len(sorted)) * q)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

type simulator struct {
	cfg    simConfig
	data   *dataPool
	client *http.Client

	booking opMetrics
	confirm opMetrics
	cancel  opMetrics
	read    opMetrics
	list    opMetrics
	stats   opMetrics
}

func main() {
	log := logging.New("simulate", "dev")

	cfg := loadSimConfig(log)
	if err := validateSimConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	log.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("booking", cfg.BookingRatio).
		Float64("confirm", cfg.ConfirmRatio).
		Float64("cancel", cfg.CancelRatio).
		Float64("read", cfg.ReadRatio).
		Msg("simulation config")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	data, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("load data pool")
	}

	log.Info().
		Int("patients", len(data.patients)).
		Int("professionals", len(data.professionals)).
		Int("open_slots", len(data.slots)).
		Msg("data pool loaded")

	sim := &simulator{
		cfg:    cfg,
		data:   data,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	sim.run(context.Background(), log)
	sim.report()

	// The report means nothing if the database ended up inconsistent.
	auditCtx, cancelAudit := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelAudit()
	if err := auditConsistency(auditCtx, pgPool); err != nil {
		log.Fatal().Err(err).Msg("consistency audit FAILED")
	}
	log.Info().Msg("consistency audit passed")
}

func loadSimConfig(log zerolog.Logger) simConfig {
	base, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load base config")
	}

	cfg := simConfig{
		APIBaseURL:   envStr("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     envDur("SIM_DURATION", 30*time.Second),
		Workers:      envInt("SIM_WORKERS", 10),
		BookingRatio: envFloat("SIM_BOOKING_RATIO", 0.4),
		ConfirmRatio: envFloat("SIM_CONFIRM_RATIO", 0.15),
		CancelRatio:  envFloat("SIM_CANCEL_RATIO", 0.15),
		ReadRatio:    envFloat("SIM_READ_RATIO", 0.3),
		PatientLimit: envInt("SIM_PATIENT_LIMIT", 4000),
		SlotLimit:    envInt("SIM_SLOT_LIMIT", 2400),
		PostgresDSN:  base.PostgresDSN,
	}

	// The four ratios are weights; scale them to sum to 1.
	sum := cfg.BookingRatio + cfg.ConfirmRatio + cfg.CancelRatio + cfg.ReadRatio
	if sum > 0 {
		cfg.BookingRatio /= sum
		cfg.ConfirmRatio /= sum
		cfg.CancelRatio /= sum
		cfg.ReadRatio /= sum
	}

	return cfg
}

func validateSimConfig(cfg simConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg simConfig) (*dataPool, error) {
	data := &dataPool{}

	var err error
	data.patients, err = queryIDs(ctx, pool, `SELECT id FROM patients LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	data.professionals, err = queryIDs(ctx, pool, `SELECT id FROM professionals`)
	if err != nil {
		return nil, fmt.Errorf("load professionals: %w", err)
	}

	// Open inventory: free, still in the future.
	rows, err := pool.Query(ctx, `
		SELECT professional_id, slot_time FROM slots
		WHERE booked_by IS NULL AND slot_time > now()
		ORDER BY slot_time
		LIMIT $1
	`, cfg.SlotLimit)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var professionalID uuid.UUID
		var slotTime time.Time
		if err := rows.Scan(&professionalID, &slotTime); err != nil {
			return nil, err
		}
		data.slots = append(data.slots, openSlot{
			ProfessionalID: professionalID,
			TimeSlot:       availability.FormatSlotTime(slotTime),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(data.patients) == 0 || len(data.professionals) == 0 {
		return nil, fmt.Errorf("no patients or professionals loaded, run cmd/seed first")
	}
	if len(data.slots) == 0 {
		return nil, fmt.Errorf("no open slots loaded, run cmd/seed and cmd/slot-worker first")
	}

	return data, nil
}

func queryIDs(ctx context.Context, pool *pgxpool.Pool, sql string, args ...any) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *simulator) run(ctx context.Context, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Duration)
	defer cancel()

	log.Info().Msg("simulation running")

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.worker(runCtx, id)
		}(i)
	}
	wg.Wait()

	log.Info().Msg("simulation complete")
}

func (s *simulator) worker(ctx context.Context, id int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.cfg.BookingRatio:
			s.doBook(ctx, rng)
		case r < s.cfg.BookingRatio+s.cfg.ConfirmRatio:
			s.doConfirm(ctx, rng)
		case r < s.cfg.BookingRatio+s.cfg.ConfirmRatio+s.cfg.CancelRatio:
			s.doCancel(ctx, rng)
		default:
			switch rng.Intn(3) {
			case 0:
				s.doRead(ctx, rng)
			case 1:
				s.doList(ctx, rng)
			default:
				s.doStats(ctx, rng)
			}
		}
	}
}

// call fires one request, records the outcome, and hands back the status and
// body for callers that need them. Transport errors count as failures with
// status 0.
func (s *simulator) call(ctx context.Context, m *opMetrics, method, path string, payload any) (int, []byte) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			m.record(0, 0, err)
			return 0, nil
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.cfg.APIBaseURL+path, body)
	if err != nil {
		m.record(0, 0, err)
		return 0, nil
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	took := time.Since(start)
	if err != nil {
		m.record(took, 0, err)
		return 0, nil
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	m.record(took, resp.StatusCode, nil)
	return resp.StatusCode, data
}

func (s *simulator) doBook(ctx context.Context, rng *rand.Rand) {
	slot := s.data.slots[rng.Intn(len(s.data.slots))]
	patientID := s.data.patients[rng.Intn(len(s.data.patients))]

	status, body := s.call(ctx, &s.booking, http.MethodPost, "/appointments", map[string]string{
		"patient_id":      patientID.String(),
		"professional_id": slot.ProfessionalID.String(),
		"time_slot":       slot.TimeSlot,
	})
	if status != http.StatusCreated {
		return
	}

	var created struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err == nil && created.ID != uuid.Nil {
		s.data.remember(bookedAppointment{ID: created.ID, PatientID: patientID})
	}
}

func (s *simulator) doConfirm(ctx context.Context, rng *rand.Rand) {
	appt, ok := s.data.randomBooked(rng)
	if !ok {
		return
	}
	// 409 here is expected traffic: already confirmed or cancelled under us.
	s.call(ctx, &s.confirm, http.MethodPost, "/appointments/"+appt.ID.String()+"/confirm", nil)
}

func (s *simulator) doCancel(ctx context.Context, rng *rand.Rand) {
	appt, ok := s.data.randomBooked(rng)
	if !ok {
		return
	}
	s.call(ctx, &s.cancel, http.MethodPost, "/appointments/"+appt.ID.String()+"/cancel", map[string]string{
		"requested_by": appt.PatientID.String(),
	})
}

func (s *simulator) doRead(ctx context.Context, rng *rand.Rand) {
	appt, ok := s.data.randomBooked(rng)
	if !ok {
		return
	}
	s.call(ctx, &s.read, http.MethodGet, "/appointments/"+appt.ID.String(), nil)
}

func (s *simulator) doList(ctx context.Context, rng *rand.Rand) {
	patientID := s.data.patients[rng.Intn(len(s.data.patients))]
	s.call(ctx, &s.list, http.MethodGet, "/appointments?patient_id="+patientID.String()+"&limit=20", nil)
}

func (s *simulator) doStats(ctx context.Context, rng *rand.Rand) {
	professionalID := s.data.professionals[rng.Intn(len(s.data.professionals))]
	s.call(ctx, &s.stats, http.MethodGet, "/professionals/"+professionalID.String()+"/availability/stats", nil)
}

// auditConsistency checks the two invariants the whole system exists to
// protect: no professional holds two live appointments at one timestamp, and
// every live appointment owns its slot row.
func auditConsistency(ctx context.Context, pool *pgxpool.Pool) error {
	var doubleBookings int
	err := pool.QueryRow(ctx, `
		SELECT count(*) FROM (
			SELECT professional_id, appointment_time
			FROM appointments
			WHERE status IN ('scheduled', 'confirmed')
			GROUP BY professional_id, appointment_time
			HAVING count(*) > 1
		) d
	`).Scan(&doubleBookings)
	if err != nil {
		return fmt.Errorf("double booking audit: %w", err)
	}
	if doubleBookings > 0 {
		return fmt.Errorf("%d slots hold more than one live appointment", doubleBookings)
	}

	var orphaned int
	err = pool.QueryRow(ctx, `
		SELECT count(*) FROM appointments a
		WHERE a.status IN ('scheduled', 'confirmed')
		  AND NOT EXISTS (
			SELECT 1 FROM slots s
			WHERE s.professional_id = a.professional_id
			  AND s.slot_time = a.appointment_time
			  AND s.booked_by = a.id
		  )
	`).Scan(&orphaned)
	if err != nil {
		return fmt.Errorf("slot claim audit: %w", err)
	}
	if orphaned > 0 {
		return fmt.Errorf("%d live appointments do not own their slot row", orphaned)
	}

	return nil
}

func (s *simulator) report() {
	line := strings.Repeat("=", 76)
	fmt.Println("\n" + line)
	fmt.Printf("SIMULATION REPORT  (%d workers over %s)\n", s.cfg.Workers, s.cfg.Duration)
	fmt.Println(line)

	ops := []struct {
		name string
		m    *opMetrics
	}{
		{"book", &s.booking},
		{"confirm", &s.confirm},
		{"cancel", &s.cancel},
		{"get appointment", &s.read},
		{"list by patient", &s.list},
		{"availability stats", &s.stats},
	}

	for _, op := range ops {
		total, success, conflict, failed, lat := op.m.summary()
		if total == 0 {
			continue
		}
		fmt.Printf("%-20s total=%-7d ok=%-7d conflict=%-6d failed=%d\n",
			op.name, total, success, conflict, failed)
		fmt.Printf("%-20s avg=%s min=%s max=%s p50=%s p95=%s\n", "",
			lat.avg.Round(time.Millisecond), lat.min.Round(time.Millisecond),
			lat.max.Round(time.Millisecond), lat.p50.Round(time.Millisecond),
			lat.p95.Round(time.Millisecond))
	}
	fmt.Println(line)
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
