package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/careslot/scheduling/internal/availability"
	"github.com/careslot/scheduling/internal/db"
	"github.com/careslot/scheduling/internal/directory"
	"github.com/careslot/scheduling/internal/logging"
)

const slotWindowDays = 28

func main() {
	log := logging.New("seed", "dev")
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	if err := db.EnsureSchema(context.Background(), pool); err != nil {
		log.Fatal().Err(err).Msg("apply schema")
	}

	gofakeit.Seed(time.Now().UnixNano())

	professionalIDs, err := seedProfessionals(context.Background(), pool, log, 100)
	if err != nil {
		log.Fatal().Err(err).Msg("seed professionals")
	}
	if err := seedPatients(context.Background(), pool, log, 9000); err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedRanges(context.Background(), pool, log, professionalIDs); err != nil {
		log.Fatal().Err(err).Msg("seed availability ranges")
	}
	if err := materializeSlots(context.Background(), pool, log, professionalIDs); err != nil {
		log.Fatal().Err(err).Msg("materialize slots")
	}

	log.Info().Msg("seed complete")
}

// sendInTx pipelines the batch inside one transaction so a chunk lands
// all-or-nothing.
func sendInTx(ctx context.Context, pool *pgxpool.Pool, batch *pgx.Batch) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func seedProfessionals(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding professionals")

	specializations := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	ids := make([]uuid.UUID, 0, count)
	batch := &pgx.Batch{}

	for i := 0; i < count; i++ {
		id := uuid.New()
		ids = append(ids, id)

		batch.Queue(`
			INSERT INTO professionals (id, name, specialization, license_number, score, consultation_fee, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		`,
			id,
			"Dr. "+gofakeit.Name(),
			specializations[gofakeit.Number(0, len(specializations)-1)],
			fmt.Sprintf("LIC-%06d", 100000+i), // license_number is unique, keep it sequential
			gofakeit.Float64Range(3.0, 5.0),
			float64(gofakeit.Number(16, 80))*5,
		)
	}

	if err := sendInTx(ctx, pool, batch); err != nil {
		return nil, err
	}

	log.Info().Msg("professionals seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, count int) error {
	log.Info().Int("count", count).Msg("seeding patients")

	const chunk = 500

	for done := 0; done < count; {
		n := chunk
		if count-done < n {
			n = count - done
		}

		batch := &pgx.Batch{}
		for i := 0; i < n; i++ {
			batch.Queue(`
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, uuid.New(), gofakeit.Name(), gofakeit.Email())
		}

		if err := sendInTx(ctx, pool, batch); err != nil {
			return err
		}

		done += n
		log.Info().Int("seeded", done).Int("total", count).Msg("patients progress")
	}

	log.Info().Msg("patients seeded")
	return nil
}

// seedRanges gives every professional one to three weekly windows on distinct
// weekdays, e.g. Tuesdays 09:00-12:00 every 30 minutes.
func seedRanges(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, professionalIDs []uuid.UUID) error {
	log.Info().Int("professionals", len(professionalIDs)).Msg("seeding availability ranges")

	startHours := []int{8, 9, 10, 13, 14}
	intervals := []int{15, 20, 30, 60}

	total := 0
	batch := &pgx.Batch{}

	for _, professionalID := range professionalIDs {
		weekdays := []int{1, 2, 3, 4, 5, 6, 7}
		gofakeit.ShuffleInts(weekdays)

		n := gofakeit.Number(1, 3)
		for _, day := range weekdays[:n] {
			startHour := startHours[gofakeit.Number(0, len(startHours)-1)]
			endHour := startHour + gofakeit.Number(2, 4)
			interval := intervals[gofakeit.Number(0, len(intervals)-1)]

			batch.Queue(`
				INSERT INTO availability_ranges (id, professional_id, day_of_week, start_time, end_time, interval_minutes, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, now())
			`, uuid.New(), professionalID, day,
				fmt.Sprintf("%02d:00", startHour),
				fmt.Sprintf("%02d:00", endHour),
				interval)
			total++
		}
	}

	if err := sendInTx(ctx, pool, batch); err != nil {
		return err
	}

	log.Info().Int("ranges", total).Msg("availability ranges seeded")
	return nil
}

// materializeSlots runs the same generation path the API uses so the seeded
// database starts with a full forward window of bookable slots.
func materializeSlots(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, professionalIDs []uuid.UUID) error {
	log.Info().Int("professionals", len(professionalIDs)).Msg("materializing slots")

	repo := availability.NewPgRepository(pool)
	dir := directory.NewPgRepository(pool)
	svc := availability.NewService(repo, dir, log, slotWindowDays)

	total := 0
	for _, professionalID := range professionalIDs {
		res, err := svc.Regenerate(ctx, professionalID, availability.GenerateAdditive)
		if err != nil {
			return fmt.Errorf("regenerate %s: %w", professionalID, err)
		}
		total += res.Added
	}

	log.Info().Int("slots", total).Msg("slots materialized")
	return nil
}
