package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"TourScanner/internal/domain"
	"TourScanner/internal/ports"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

const eventsTable = "events"

var eventColumns = []string{"subject", "location", "occurs_at", "reference_url"}

// Dialect selects the SQL flavour and driver of a TableStore.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// TableOptions describes how to reach the events table.
type TableOptions struct {
	Dialect Dialect
	// DSN is a file path for sqlite and a connection URL for postgres.
	DSN string
}

// TableStore keeps accepted records in a relational table whose unique
// constraint spans all four record fields.
type TableStore struct {
	db      *sql.DB
	dialect Dialect
	dsn     string
	builder sq.StatementBuilderType

	schemaMu sync.Mutex
	ready    bool
}

var _ ports.DedupStore = (*TableStore)(nil)

// OpenTableStore prepares a connection pool. No connection is made and no
// schema is applied until the first operation.
func OpenTableStore(opts TableOptions) (*TableStore, error) {
	var (
		driverName string
		builder    sq.StatementBuilderType
	)

	switch opts.Dialect {
	case DialectSQLite:
		driverName = "sqlite"
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)
	case DialectPostgres:
		driverName = "postgres"
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	default:
		return nil, eris.Errorf("table store: unsupported dialect %q", opts.Dialect)
	}
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, eris.New("table store: empty dsn")
	}

	db, err := sql.Open(driverName, opts.DSN)
	if err != nil {
		return nil, eris.Wrapf(err, "table store: open %s", driverName)
	}
	if opts.Dialect == DialectSQLite {
		// One writer connection keeps pragmas applied and avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	return &TableStore{
		db:      db,
		dialect: opts.Dialect,
		dsn:     opts.DSN,
		builder: builder,
	}, nil
}

// Contains reports whether an equal row exists.
func (s *TableStore) Contains(ctx context.Context, record domain.Record) (bool, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return false, err
	}

	query, args, err := s.builder.
		Select("1").
		From(eventsTable).
		Where(sq.Eq{
			"subject":       record.Subject,
			"location":      record.Location,
			"occurs_at":     record.OccursAt,
			"reference_url": record.ReferenceURL,
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, eris.Wrap(err, "table store: build contains")
	}

	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, s.storeErr("contains", err)
	}
	return true, nil
}

// InsertIfAbsent issues a single ignore-on-conflict insert; the affected row
// count is the result.
func (s *TableStore) InsertIfAbsent(ctx context.Context, record domain.Record) (bool, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return false, err
	}

	insert := s.builder.
		Insert(eventsTable).
		Columns(eventColumns...).
		Values(record.Subject, record.Location, record.OccursAt, record.ReferenceURL)
	switch s.dialect {
	case DialectSQLite:
		insert = insert.Options("OR IGNORE")
	case DialectPostgres:
		insert = insert.Suffix("ON CONFLICT DO NOTHING")
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return false, eris.Wrap(err, "table store: build insert")
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, s.storeErr("insert", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, s.storeErr("insert", err)
	}
	return affected == 1, nil
}

// BulkInsertIfAbsent inserts records one statement at a time. On failure the
// results gathered so far are returned with the error.
func (s *TableStore) BulkInsertIfAbsent(ctx context.Context, records []domain.Record) ([]bool, error) {
	results := make([]bool, 0, len(records))
	for _, record := range records {
		inserted, err := s.InsertIfAbsent(ctx, record)
		if err != nil {
			return results, err
		}
		results = append(results, inserted)
	}
	return results, nil
}

// Load returns every row in insertion order.
func (s *TableStore) Load(ctx context.Context) ([]domain.Record, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	query, args, err := s.builder.
		Select(eventColumns...).
		From(eventsTable).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "table store: build load")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.storeErr("load", err)
	}

	records := []domain.Record{}
	for rows.Next() {
		var r domain.Record
		if err := rows.Scan(&r.Subject, &r.Location, &r.OccursAt, &r.ReferenceURL); err != nil {
			_ = rows.Close()
			return nil, s.storeErr("scan", err)
		}
		records = append(records, r)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, s.storeErr("load", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, s.storeErr("close rows", closeErr)
	}

	return records, nil
}

// Close releases the connection pool.
func (s *TableStore) Close() error {
	if err := s.db.Close(); err != nil {
		return eris.Wrap(err, "table store: close")
	}
	return nil
}

// ensureSchema applies pragmas and migrations once. A failed attempt is
// retried by the next operation.
func (s *TableStore) ensureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	if s.ready {
		return nil
	}

	var err error
	switch s.dialect {
	case DialectSQLite:
		err = s.prepareSQLite(ctx)
	case DialectPostgres:
		err = s.preparePostgres(ctx)
	}
	if err != nil {
		return s.storeErr("migrate", err)
	}

	s.ready = true
	return nil
}

func (s *TableStore) prepareSQLite(ctx context.Context) error {
	if dir := sqliteDir(s.dsn); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "sqlite: create dir %s", dir)
		}
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return eris.Wrapf(err, "sqlite: %s", p)
		}
	}

	// The driver works on the shared pool; closing it would close s.db.
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return eris.Wrap(err, "sqlite: migration driver")
	}
	return runMigrations("migrations/sqlite", "sqlite", driver)
}

func (s *TableStore) preparePostgres(ctx context.Context) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: acquire connection")
	}
	defer conn.Close() //nolint:errcheck

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		return eris.Wrap(err, "postgres: migration driver")
	}
	return runMigrations("migrations/postgres", "postgres", driver)
}

func runMigrations(dir, name string, driver database.Driver) error {
	src, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return eris.Wrapf(err, "%s: load migrations", name)
	}
	defer src.Close() //nolint:errcheck

	m, err := migrate.NewWithInstance("iofs", src, name, driver)
	if err != nil {
		return eris.Wrapf(err, "%s: init migrations", name)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return eris.Wrapf(err, "%s: apply migrations", name)
	}
	return nil
}

func (s *TableStore) storeErr(op string, err error) error {
	return &domain.StoreError{Op: op, Err: eris.Wrapf(err, "%s: %s", s.dialect, op)}
}

// sqliteDir returns the parent directory of a file-backed sqlite DSN.
func sqliteDir(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.HasPrefix(path, ":memory:") {
		return ""
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return ""
	}
	return dir
}
