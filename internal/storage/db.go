package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("record not found")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Options struct {
	Driver      string
	Path        string
	PostgresDSN string
}

type DB struct {
	conn   *sql.DB
	driver string
	now    func() time.Time
}

// Open opens the sqlite database at path, creating its directory.
func Open(path string) (*DB, error) {
	return OpenWith(Options{Driver: DriverSQLite, Path: path})
}

func OpenWith(opts Options) (*DB, error) {
	var (
		conn *sql.DB
		err  error
	)
	switch opts.Driver {
	case DriverSQLite, "":
		opts.Driver = DriverSQLite
		conn, err = openSQLite(opts.Path)
	case DriverPostgres:
		conn, err = openPostgres(opts.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db := &DB{conn: conn, driver: opts.Driver, now: time.Now}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{`PRAGMA journal_mode = WAL;`, `PRAGMA busy_timeout = 5000;`} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

func openPostgres(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return conn, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Driver() string { return d.driver }

func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS plans (
  source TEXT NOT NULL,
  id_key TEXT NOT NULL DEFAULT '',
  provider TEXT NOT NULL,
  plan_name TEXT NOT NULL,
  tdu TEXT NOT NULL,
  rate_500 DOUBLE PRECISION NOT NULL,
  rate_1000 DOUBLE PRECISION NOT NULL,
  rate_2000 DOUBLE PRECISION NOT NULL,
  weighted_rate DOUBLE PRECISION NOT NULL,
  term_months INTEGER NOT NULL,
  renewable_pct INTEGER NOT NULL,
  cancel_fee TEXT NOT NULL,
  rate_type TEXT NOT NULL,
  is_prepaid INTEGER NOT NULL,
  is_tou INTEGER NOT NULL,
  is_fixed INTEGER NOT NULL,
  is_new_customer INTEGER NOT NULL,
  is_promotion INTEGER NOT NULL,
  fees_details TEXT NOT NULL,
  special_terms TEXT NOT NULL,
  promo_desc TEXT NOT NULL,
  has_rebate INTEGER NOT NULL,
  rebate_amount TEXT,
  has_base_charge INTEGER NOT NULL,
  base_charge_amount TEXT,
  has_min_usage_fee INTEGER NOT NULL,
  min_usage_kwh INTEGER,
  has_pass_through INTEGER NOT NULL,
  has_usage_fees_credits INTEGER NOT NULL,
  fine_print_flags TEXT NOT NULL,
  rate_spread DOUBLE PRECISION NOT NULL,
  is_gotcha INTEGER NOT NULL,
  warnings TEXT NOT NULL,
  transparency_score INTEGER NOT NULL,
  efl_url TEXT NOT NULL,
  enroll_url TEXT NOT NULL,
  terms_url TEXT NOT NULL,
  website TEXT NOT NULL,
  enroll_phone TEXT NOT NULL,
  processed_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_plans_source ON plans(source);
CREATE INDEX IF NOT EXISTS idx_plans_tdu ON plans(tdu);

CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  status TEXT NOT NULL,
  error TEXT NOT NULL,
  seen INTEGER NOT NULL,
  accepted INTEGER NOT NULL,
  rejected_json TEXT NOT NULL,
  timings_json TEXT NOT NULL,
  published INTEGER NOT NULL,
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

CREATE TABLE IF NOT EXISTS snapshots (
  hash TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  raw_ref TEXT NOT NULL,
  size_bytes INTEGER NOT NULL,
  fetched_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS market_data (
  id INTEGER PRIMARY KEY,
  payload TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`

func (d *DB) init() error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := d.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (d *DB) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (d *DB) timestamp() string {
	return d.now().UTC().Format(timeLayout)
}

func (d *DB) SetMetadata(ctx context.Context, key, value string) error {
	_, err := d.conn.ExecContext(ctx, d.rebind(`
INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`), key, value, d.timestamp())
	return err
}

// GetMetadata returns nil when key was never set.
func (d *DB) GetMetadata(ctx context.Context, key string) (*string, error) {
	var value string
	err := d.conn.QueryRowContext(ctx, d.rebind(`SELECT value FROM metadata WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
