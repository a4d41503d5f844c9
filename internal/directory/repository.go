package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrProfessionalNotFound = errors.New("professional not found")
)

// Repository is the identity lookup surface the scheduling services depend
// on. Callers arrive already authenticated; this only resolves IDs.
type Repository interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetProfessional(ctx context.Context, id uuid.UUID) (*Professional, error)
}
