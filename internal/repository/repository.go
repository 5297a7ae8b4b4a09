package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"giveaway-referrals/internal/admission"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle for health checks.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// Ping checks that the database answers. Any failure counts as the store
// being unavailable.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		return fmt.Errorf("ping: %w: %w", admission.ErrStoreUnavailable, err)
	}
	return nil
}

// storeFailure adds the operation name to a store error. Transient failures
// also wrap admission.ErrStoreUnavailable so callers can retry them; anything
// else (bad SQL, constraint or bind-limit errors) would fail the same way
// again and is returned without it.
func storeFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, admission.ErrStoreUnavailable) || admission.IsRejection(err) || errors.Is(err, admission.ErrNotOwner) {
		return err
	}
	if isTransient(err) {
		return fmt.Errorf("%s: %w: %w", op, admission.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Postgres SQLSTATE classes and codes worth one more attempt.
var transientSQLStates = map[string]bool{
	"08":    true, // connection exception
	"53":    true, // insufficient resources
	"57P01": true, // admin shutdown
	"57P02": true, // crash shutdown
	"57P03": true, // cannot connect now
	"40001": true, // serialization failure
	"40P01": true, // deadlock detected
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		pgconn.Timeout(err) ||
		pgconn.SafeToRetry(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return len(pgErr.Code) == 5 && (transientSQLStates[pgErr.Code[:2]] || transientSQLStates[pgErr.Code])
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
