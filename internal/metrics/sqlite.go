package metrics

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists publish attempts in SQLite.
type Store struct {
	db *sqlx.DB
}

var _ Sink = (*Store)(nil)

// NewStore opens (or creates) the attempts database under dataDir and
// applies pending migrations.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "attempts.db")
	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := runMigrations(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db := sqlx.NewDb(sqlDB, "sqlite3")
	// SQLite does not support concurrent writers.
	db.SetMaxOpenConns(1)

	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends one attempt row.
func (s *Store) Record(ctx context.Context, attempt Attempt) error {
	query := `
		INSERT INTO publish_attempts
			(run_id, created_at, source_user, source_id, target_platform, success, error_kind, text_length, elapsed_ms)
		VALUES
			(:run_id, :created_at, :source_user, :source_id, :target_platform, :success, :error_kind, :text_length, :elapsed_ms)
	`

	_, err := s.db.NamedExecContext(ctx, query, map[string]interface{}{
		"run_id":          attempt.RunID,
		"created_at":      attempt.Timestamp.UTC().Unix(),
		"source_user":     attempt.SourceUser,
		"source_id":       attempt.SourceID,
		"target_platform": attempt.TargetPlatform,
		"success":         attempt.Success,
		"error_kind":      attempt.ErrorKind,
		"text_length":     attempt.TextLength,
		"elapsed_ms":      attempt.Elapsed.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

type attemptRow struct {
	RunID          string         `db:"run_id"`
	CreatedAt      int64          `db:"created_at"`
	SourceUser     string         `db:"source_user"`
	SourceID       string         `db:"source_id"`
	TargetPlatform string         `db:"target_platform"`
	Success        bool           `db:"success"`
	ErrorKind      sql.NullString `db:"error_kind"`
	TextLength     int            `db:"text_length"`
	ElapsedMS      int64          `db:"elapsed_ms"`
}

// Summary aggregates attempts recorded since the given time.
func (s *Store) Summary(ctx context.Context, since time.Time) (Summary, error) {
	var rows []attemptRow
	query := `
		SELECT run_id, created_at, source_user, source_id, target_platform, success, error_kind, text_length, elapsed_ms
		FROM publish_attempts
		WHERE created_at >= ?
		ORDER BY created_at ASC
	`
	if err := s.db.SelectContext(ctx, &rows, query, since.UTC().Unix()); err != nil {
		return Summary{}, fmt.Errorf("select attempts: %w", err)
	}

	summary := Summary{Total: len(rows)}
	if len(rows) == 0 {
		return summary, nil
	}

	byPlatform := make(map[string]*PlatformSummary)
	var order []string
	var elapsedTotal int64
	for _, row := range rows {
		ps, ok := byPlatform[row.TargetPlatform]
		if !ok {
			ps = &PlatformSummary{Platform: row.TargetPlatform}
			byPlatform[row.TargetPlatform] = ps
			order = append(order, row.TargetPlatform)
		}
		ps.Total++
		if row.Success {
			ps.Succeeded++
			summary.Succeeded++
		} else {
			ps.Failed++
			summary.Failed++
		}
		elapsedTotal += row.ElapsedMS
	}

	summary.SuccessRate = float64(summary.Succeeded) / float64(summary.Total)
	summary.AvgElapsedMS = float64(elapsedTotal) / float64(summary.Total)
	for _, name := range order {
		summary.Platforms = append(summary.Platforms, *byPlatform[name])
	}
	return summary, nil
}
