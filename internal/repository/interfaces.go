package repository

import (
	"context"
	"errors"
	"time"

	"fixit/internal/models"
)

var (
	// ErrNotFound indicates the addressed row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a compare-and-swap write lost to a concurrent writer.
	ErrConflict = errors.New("record conflict")
)

// RequestRepository persists the request aggregate. Every mutating call takes
// the version the caller read and fails with ErrConflict when it has moved.
type RequestRepository interface {
	Create(ctx context.Context, r *models.Request) error
	Get(ctx context.Context, id string) (*models.Request, error)
	GetByTokenHash(ctx context.Context, hash string) (*models.Request, error)
	List(ctx context.Context, f RequestFilter) ([]models.Request, int, error)
	// Save writes the scalar fields and public access sub-record of r.
	Save(ctx context.Context, r *models.Request, expectedVersion int64) (int64, error)
	AppendComment(ctx context.Context, c models.Comment, expectedVersion int64, at time.Time) (int64, error)
	AppendMedia(ctx context.Context, m models.Media, expectedVersion int64, at time.Time) (int64, error)
	RemoveMedia(ctx context.Context, requestID, mediaID string, expectedVersion int64, at time.Time) (int64, error)
	// ExpirePublicAccess switches off the link with the given digest. It
	// reports whether this call made the change; losing the race is not an error.
	ExpirePublicAccess(ctx context.Context, requestID, tokenHash string, at time.Time) (bool, error)
}

type UserRepository interface {
	Create(ctx context.Context, email, name string, role models.Role, passwordHash string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, string /*passwordHash*/, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, q string, roles []models.Role, active *bool, limit, offset int) ([]models.User, int, error)
}

type VendorRepository interface {
	Create(ctx context.Context, v *models.Vendor) error
	GetByID(ctx context.Context, id string) (*models.Vendor, error)
	List(ctx context.Context, q string, activeOnly bool, limit, offset int) ([]models.Vendor, int, error)
}
