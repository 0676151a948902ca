// FilePath: internal/repository/postgres/postgres.hive.go
package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/varroawatch/hub/internal/errors"
	"github.com/varroawatch/hub/internal/models"
	"github.com/varroawatch/hub/internal/repository"
)

const hiveColumns = `user_id, id, name, location, is_active, last_activation,
	detection_count, risk_level, last_detection, created_at`

type HiveRepo struct {
	PostgresBaseRepo
}

func (r *HiveRepo) Create(ctx context.Context, hive *models.Hive) error {
	query := `
		INSERT INTO hives (
			user_id, id, name, location, is_active, last_activation,
			detection_count, risk_level, last_detection, created_at
		) VALUES (
			:user_id, :id, :name, :location, :is_active, :last_activation,
			:detection_count, :risk_level, :last_detection, :created_at
		)`

	_, err := sqlx.NamedExecContext(ctx, r.q, query, hive)
	if err != nil {
		switch pqCode(err) {
		case pqUniqueViolation:
			return errors.NewConflictError("hive already exists", repository.ErrDuplicate)
		case pqForeignKeyViolation:
			return errors.NewNotFoundError("user not found", repository.ErrNotFound)
		}
		return errors.NewDatabaseError("failed to create hive", err)
	}
	return nil
}

func (r *HiveRepo) Get(ctx context.Context, userID, hiveID string) (*models.Hive, error) {
	hive := &models.Hive{}
	query := `SELECT ` + hiveColumns + ` FROM hives WHERE user_id = $1 AND id = $2`

	if err := sqlx.GetContext(ctx, r.q, hive, query, userID, hiveID); err != nil {
		return nil, notFoundOr(err, "hive")
	}
	return hive, nil
}

func (r *HiveRepo) GetForUpdate(ctx context.Context, userID, hiveID string) (*models.Hive, error) {
	hive := &models.Hive{}
	query := `SELECT ` + hiveColumns + ` FROM hives WHERE user_id = $1 AND id = $2 FOR UPDATE`

	if err := sqlx.GetContext(ctx, r.q, hive, query, userID, hiveID); err != nil {
		return nil, notFoundOr(err, "hive")
	}
	return hive, nil
}

func (r *HiveRepo) ListByUser(ctx context.Context, userID string) ([]*models.Hive, error) {
	hives := []*models.Hive{}
	query := `SELECT ` + hiveColumns + ` FROM hives WHERE user_id = $1 ORDER BY id`

	if err := sqlx.SelectContext(ctx, r.q, &hives, query, userID); err != nil {
		return nil, errors.NewDatabaseError("failed to list hives", err)
	}
	return hives, nil
}

func (r *HiveRepo) ListStale(ctx context.Context, userID string, cutoff time.Time) ([]*models.Hive, error) {
	hives := []*models.Hive{}
	query := `
		SELECT ` + hiveColumns + ` FROM hives
		WHERE user_id = $1 AND is_active AND last_activation < $2
		ORDER BY id`

	if err := sqlx.SelectContext(ctx, r.q, &hives, query, userID, cutoff); err != nil {
		return nil, errors.NewDatabaseError("failed to list stale hives", err)
	}
	return hives, nil
}

func (r *HiveRepo) Activate(ctx context.Context, userID, hiveID string, at time.Time) error {
	query := `UPDATE hives SET is_active = TRUE, last_activation = $3 WHERE user_id = $1 AND id = $2`

	rows, err := r.exec(ctx, "activate hive", query, userID, hiveID, at)
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NewNotFoundError("hive not found", repository.ErrNotFound)
	}
	return nil
}

func (r *HiveRepo) DeactivateIfStale(ctx context.Context, userID, hiveID string, cutoff time.Time) (bool, error) {
	query := `
		UPDATE hives SET is_active = FALSE
		WHERE user_id = $1 AND id = $2 AND is_active AND last_activation < $3`

	rows, err := r.exec(ctx, "deactivate hive", query, userID, hiveID, cutoff)
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *HiveRepo) UpdateDetectionState(ctx context.Context, hive *models.Hive) error {
	query := `
		UPDATE hives SET
			detection_count = :detection_count,
			risk_level = :risk_level,
			last_detection = :last_detection
		WHERE user_id = :user_id AND id = :id`

	result, err := sqlx.NamedExecContext(ctx, r.q, query, hive)
	if err != nil {
		return errors.NewDatabaseError("failed to update detection state", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}
	if rows == 0 {
		return errors.NewNotFoundError("hive not found", repository.ErrNotFound)
	}
	return nil
}
