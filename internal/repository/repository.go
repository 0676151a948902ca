// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/varroawatch/hub/internal/models"
)

var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate indicates that a resource already exists
	ErrDuplicate = errors.New("resource already exists")
)

// Store groups the document repositories behind one transaction boundary.
type Store interface {
	Users() UserRepository
	Hives() HiveRepository
	Images() ImageRepository
	Reports() ReportRepository
	// WithTx runs fn against a transactional view of the store. The
	// transaction commits when fn returns nil and rolls back otherwise.
	// Calling WithTx on a transactional view reuses the open transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
	Close() error
}

// UserRepository defines the interface for user operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	UpdateLogin(ctx context.Context, id, pushToken string, at time.Time) error
}

// HiveRepository defines the interface for hive data operations
type HiveRepository interface {
	Create(ctx context.Context, hive *models.Hive) error
	Get(ctx context.Context, userID, hiveID string) (*models.Hive, error)
	// GetForUpdate locks the hive until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, userID, hiveID string) (*models.Hive, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Hive, error)
	ListStale(ctx context.Context, userID string, cutoff time.Time) ([]*models.Hive, error)
	Activate(ctx context.Context, userID, hiveID string, at time.Time) error
	// DeactivateIfStale clears is_active only if the hive is still active and
	// was last activated before cutoff. It reports whether the row changed.
	DeactivateIfStale(ctx context.Context, userID, hiveID string, cutoff time.Time) (bool, error)
	// UpdateDetectionState writes detection_count, risk_level and last_detection.
	UpdateDetectionState(ctx context.Context, hive *models.Hive) error
}

// ImageRepository defines the interface for detection image records
type ImageRepository interface {
	Create(ctx context.Context, image *models.Image) error
	Get(ctx context.Context, userID, hiveID, imageID string) (*models.Image, error)
	ListByHive(ctx context.Context, userID, hiveID string) ([]*models.Image, error)
	Delete(ctx context.Context, userID, hiveID, imageID string) error
}

// ReportRepository defines the interface for false-detection reports
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	Get(ctx context.Context, id string) (*models.Report, error)
	ListByHive(ctx context.Context, userID, hiveID string) ([]*models.Report, error)
}

// BlobStore holds the image bytes behind detection records and reports.
type BlobStore interface {
	// Upload stores data at path and returns a URL that serves it.
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Copy(ctx context.Context, srcPath, dstPath string) error
	// Publish makes path publicly readable and returns its public URL.
	Publish(ctx context.Context, path string) (string, error)
	// Delete removes path. A missing object yields ErrNotFound.
	Delete(ctx context.Context, path string) error
}
