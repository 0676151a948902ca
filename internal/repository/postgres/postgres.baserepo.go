package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	nuts "github.com/vaudience/go-nuts"
	"github.com/varroawatch/hub/internal/database"
	"github.com/varroawatch/hub/internal/errors"
	"github.com/varroawatch/hub/internal/repository"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// PostgresBaseRepo carries the querier shared by every repository. It is
// either the connection pool or an open transaction.
type PostgresBaseRepo struct {
	q sqlx.ExtContext
}

func (r *PostgresBaseRepo) exec(ctx context.Context, what, query string, args ...interface{}) (int64, error) {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to "+what, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewDatabaseError("failed to get rows affected", err)
	}
	return rows, nil
}

// Store is the Postgres implementation of repository.Store
type Store struct {
	db   database.DB
	q    sqlx.ExtContext
	inTx bool
}

func NewStore(db database.DB) *Store {
	return &Store{db: db, q: db.GetDB()}
}

func (s *Store) base() PostgresBaseRepo {
	return PostgresBaseRepo{q: s.q}
}

func (s *Store) Users() repository.UserRepository {
	return &UserRepo{PostgresBaseRepo: s.base()}
}

func (s *Store) Hives() repository.HiveRepository {
	return &HiveRepo{PostgresBaseRepo: s.base()}
}

func (s *Store) Images() repository.ImageRepository {
	return &ImageRepo{PostgresBaseRepo: s.base()}
}

func (s *Store) Reports() repository.ReportRepository {
	return &ReportRepo{PostgresBaseRepo: s.base()}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.GetDB().BeginTxx(ctx, nil)
	if err != nil {
		return errors.NewDatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback() // Will be ignored if transaction is committed

	if err := fn(&Store{db: s.db, q: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseError("failed to commit transaction", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return errors.NewDatabaseError("failed to ping database", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.inTx {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return errors.NewDatabaseError("failed to close database", err)
	}
	nuts.L.Infof("[PostgresStore] Closed")
	return nil
}

func notFoundOr(err error, what string) error {
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NewNotFoundError(what+" not found", repository.ErrNotFound)
	}
	return errors.NewDatabaseError("failed to get "+what, err)
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
