package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/varroawatch/hub/internal/errors"
	"github.com/varroawatch/hub/internal/models"
	"github.com/varroawatch/hub/internal/repository"
)

type ImageRepo struct {
	PostgresBaseRepo
}

func (r *ImageRepo) Create(ctx context.Context, image *models.Image) error {
	query := `
		INSERT INTO hive_images (id, user_id, hive_id, storage_path, image_url, created_at)
		VALUES (:id, :user_id, :hive_id, :storage_path, :image_url, :created_at)`

	if _, err := sqlx.NamedExecContext(ctx, r.q, query, image); err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return errors.NewNotFoundError("hive not found", repository.ErrNotFound)
		}
		return errors.NewDatabaseError("failed to create image record", err)
	}
	return nil
}

func (r *ImageRepo) Get(ctx context.Context, userID, hiveID, imageID string) (*models.Image, error) {
	image := &models.Image{}
	query := `
		SELECT id, user_id, hive_id, storage_path, image_url, created_at
		FROM hive_images
		WHERE user_id = $1 AND hive_id = $2 AND id = $3`

	if err := sqlx.GetContext(ctx, r.q, image, query, userID, hiveID, imageID); err != nil {
		return nil, notFoundOr(err, "image")
	}
	return image, nil
}

func (r *ImageRepo) ListByHive(ctx context.Context, userID, hiveID string) ([]*models.Image, error) {
	images := []*models.Image{}
	query := `
		SELECT id, user_id, hive_id, storage_path, image_url, created_at
		FROM hive_images
		WHERE user_id = $1 AND hive_id = $2
		ORDER BY created_at DESC, id DESC`

	if err := sqlx.SelectContext(ctx, r.q, &images, query, userID, hiveID); err != nil {
		return nil, errors.NewDatabaseError("failed to list images", err)
	}
	return images, nil
}

func (r *ImageRepo) Delete(ctx context.Context, userID, hiveID, imageID string) error {
	query := `DELETE FROM hive_images WHERE user_id = $1 AND hive_id = $2 AND id = $3`

	rows, err := r.exec(ctx, "delete image", query, userID, hiveID, imageID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.NewNotFoundError("image not found", repository.ErrNotFound)
	}
	return nil
}
