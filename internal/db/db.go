package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/RichardoC/lovegpt/internal/models"
)

const (
	driverSQLite   = "sqlite3"
	driverPostgres = "pgx"
)

// Database wraps the connection pool. Queries use $N placeholders, which
// both SQLite and Postgres accept as long as they appear in ascending order.
type Database struct {
	db     *sql.DB
	driver string
	dsn    string
}

// New opens the database named by dsn. postgres:// and postgresql:// URLs
// go to Postgres, anything else is treated as a SQLite path or URI.
func New(ctx context.Context, dsn string) (*Database, error) {
	var (
		conn *sql.DB
		err  error
	)
	driver := driverSQLite
	if isPostgres(dsn) {
		driver = driverPostgres
		conn, err = openPostgres(dsn)
	} else {
		conn, err = openSQLite(dsn)
	}
	if err != nil {
		return nil, err
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Database{db: conn, driver: driver, dsn: dsn}, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *Database) Close() error {
	return d.db.Close()
}

// WithTx runs fn inside a single transaction. The transaction is committed
// when fn returns nil and rolled back otherwise, including on panic. The
// returned error is classified into one of the models sentinels.
func (d *Database) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("begin transaction: %w", err))
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return classify(err)
	}
	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit transaction: %w", err))
	}
	committed = true
	return nil
}

// classify attaches a models sentinel to a raw driver error so callers can
// branch with errors.Is without knowing which driver is in use.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{models.ErrNotFound, models.ErrConflict, models.ErrInvalidInput, models.ErrStorage} {
		if errors.Is(err, known) {
			return err
		}
	}

	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %w", models.ErrConflict, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%w: %w", models.ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %w", models.ErrStorage, err)
	}
}

func isUniqueViolation(err error) bool {
	return sqliteUniqueViolation(err) || postgresCode(err) == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return sqliteForeignKeyViolation(err) || postgresCode(err) == pgForeignKeyViolation
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
