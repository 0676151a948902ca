package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/varroawatch/hub/internal/errors"
	"github.com/varroawatch/hub/internal/models"
)

const reportColumns = `id, user_id, hive_id, image_id, original_timestamp,
	reported_at, storage_path, image_url, status`

type ReportRepo struct {
	PostgresBaseRepo
}

// Create inserts a report. Reports are append-only.
func (r *ReportRepo) Create(ctx context.Context, report *models.Report) error {
	query := `
		INSERT INTO reports (
			id, user_id, hive_id, image_id, original_timestamp,
			reported_at, storage_path, image_url, status
		) VALUES (
			:id, :user_id, :hive_id, :image_id, :original_timestamp,
			:reported_at, :storage_path, :image_url, :status
		)`

	if _, err := sqlx.NamedExecContext(ctx, r.q, query, report); err != nil {
		return errors.NewDatabaseError("failed to create report", err)
	}
	return nil
}

func (r *ReportRepo) Get(ctx context.Context, id string) (*models.Report, error) {
	report := &models.Report{}
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`

	if err := sqlx.GetContext(ctx, r.q, report, query, id); err != nil {
		return nil, notFoundOr(err, "report")
	}
	return report, nil
}

func (r *ReportRepo) ListByHive(ctx context.Context, userID, hiveID string) ([]*models.Report, error) {
	reports := []*models.Report{}
	query := `
		SELECT ` + reportColumns + ` FROM reports
		WHERE user_id = $1 AND hive_id = $2
		ORDER BY reported_at DESC`

	if err := sqlx.SelectContext(ctx, r.q, &reports, query, userID, hiveID); err != nil {
		return nil, errors.NewDatabaseError("failed to list reports", err)
	}
	return reports, nil
}
