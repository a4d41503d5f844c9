package directory

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Professional struct {
	ID              uuid.UUID
	Name            string
	Specialization  *string
	LicenseNumber   *string
	Score           float64
	ConsultationFee float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
