package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v4/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"emotion-detector/internal/logger"
)

//go:embed migrations/*/*.sql
var migrations embed.FS

// goose keeps its dialect and filesystem in package state.
var migrateMu sync.Mutex

var ErrNotFound = errors.New("record not found")

type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectRetries  uint64
}

type Store struct {
	db     *sql.DB
	driver string
	path   string
	log    *zap.Logger
	now    func() time.Time
}

// Open connects, retries the initial ping with exponential backoff and
// applies pending migrations.
func Open(ctx context.Context, opts Options, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Driver == "" {
		opts.Driver = "sqlite3"
	}
	if opts.MaxOpenConns == 0 {
		opts.MaxOpenConns = 25
	}
	if opts.MaxIdleConns == 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime == 0 {
		opts.ConnMaxLifetime = 5 * time.Minute
	}

	dsn := opts.DSN
	if opts.Driver == "sqlite3" {
		dsn = sqliteDSN(dsn)
	}
	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Driver, err)
	}

	ping := func() error {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		err := db.PingContext(pctx)
		if err != nil {
			log.Warn("database not ready", zap.String("driver", opts.Driver), zap.Error(err))
		}
		return err
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), opts.ConnectRetries), ctx)
	if err := backoff.Retry(ping, bo); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Driver, err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.Driver == "sqlite3" && strings.Contains(dsn, ":memory:") {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	s := &Store{
		db:     db,
		driver: opts.Driver,
		path:   opts.DSN,
		log:    log,
		now:    time.Now,
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("database initialized", zap.String("driver", opts.Driver))
	return s, nil
}

func sqliteDSN(path string) string {
	if path == "" {
		path = "emotions.db"
	}
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000"
}

func (s *Store) dialect() string {
	if s.driver == "pgx" {
		return "postgres"
	}
	return "sqlite3"
}

func (s *Store) migrate() error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(logger.GooseAdapter{Log: s.log.Sugar()})
	if err := goose.SetDialect(s.dialect()); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.Up(s.db, "migrations/"+s.dialect()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Driver() string {
	return s.driver
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.log.Info("database closed")
	return err
}

// rebind rewrites ? placeholders to $N for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != "pgx" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
