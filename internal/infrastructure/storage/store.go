package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ArticlesPipeline/internal/ports"
)

// Store is the canonical URL-keyed store shared by every stage.
type Store struct {
	db      *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
	logger  *slog.Logger

	mu      sync.Mutex
	ensured map[string]bool
}

var (
	_ ports.ArticleRepository        = (*Store)(nil)
	_ ports.SummaryRepository        = (*Store)(nil)
	_ ports.UnifiedRepository        = (*Store)(nil)
	_ ports.ClassificationRepository = (*Store)(nil)
)

// Open connects and pings the configured database.
func Open(ctx context.Context, driver, dsn string, log *slog.Logger) (*Store, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	if dialect.Driver == SQLite.Driver {
		dsn = withSQLiteTimeFormat(dsn)
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if dialect.Driver == SQLite.Driver {
		// single writer; every query drains its rows before the next statement
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return New(db, dialect, log), nil
}

// New wraps an existing handle.
func New(db *sql.DB, dialect Dialect, log *slog.Logger) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		sb:      sq.StatementBuilder.PlaceholderFormat(dialect.Placeholder),
		logger:  log,
		ensured: map[string]bool{},
	}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// withSQLiteTimeFormat makes the driver write timestamps in a form it parses back into time.Time.
func withSQLiteTimeFormat(dsn string) string {
	if strings.Contains(dsn, "_time_format=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_time_format=sqlite"
}

func (s *Store) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Store) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
