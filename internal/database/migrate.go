package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// ColumnAddition adds a nullable column when the table does not have it yet.
type ColumnAddition struct {
	Table      string
	Column     string
	Definition string // type and constraints, e.g. "TEXT"
}

// Migration is one schema version. Statements run first, then the column
// additions, all in a single transaction.
type Migration struct {
	Version     int
	Description string
	Statements  []string
	Columns     []ColumnAddition
}

// Dialect holds the engine-specific parts of migrating.
type Dialect interface {
	// Placeholder returns the bind parameter for the n-th argument (1-based)
	Placeholder(n int) string
	// TableColumns lists the existing column names of table
	TableColumns(ctx context.Context, tx *sql.Tx, table string) (map[string]bool, error)
}

// Migrator applies versioned migrations and records them in schema_migrations.
type Migrator struct {
	db         *sql.DB
	dialect    Dialect
	migrations []Migration
	logger     *slog.Logger
}

// NewMigrator creates a migrator. Migrations may be given in any order.
func NewMigrator(db *sql.DB, dialect Dialect, migrations []Migration, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return &Migrator{db: db, dialect: dialect, migrations: sorted, logger: logger}
}

func (m *Migrator) initialize(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at BIGINT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	return nil
}

// Applied returns the applied migration versions in ascending order.
func (m *Migrator) Applied(ctx context.Context) ([]int, error) {
	if err := m.initialize(ctx); err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return versions, nil
}

// Up applies all pending migrations and returns the versions it applied.
func (m *Migrator) Up(ctx context.Context) ([]int, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	var ran []int
	for _, mig := range m.migrations {
		if done[mig.Version] {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return ran, fmt.Errorf("migration %d (%s): %w", mig.Version, mig.Description, err)
		}
		m.logger.Info("applied migration", "version", mig.Version, "description", mig.Description)
		ran = append(ran, mig.Version)
	}
	return ran, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, stmt := range mig.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute statement: %w", err)
		}
	}

	existing := make(map[string]map[string]bool)
	for _, col := range mig.Columns {
		cols, ok := existing[col.Table]
		if !ok {
			cols, err = m.dialect.TableColumns(ctx, tx, col.Table)
			if err != nil {
				return fmt.Errorf("inspect table %s: %w", col.Table, err)
			}
			existing[col.Table] = cols
		}
		if cols[col.Column] {
			m.logger.Debug("column already present", "table", col.Table, "column", col.Column)
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", col.Table, col.Column, col.Definition)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s.%s: %w", col.Table, col.Column, err)
		}
		cols[col.Column] = true
	}

	record := fmt.Sprintf("INSERT INTO schema_migrations (version, description, applied_at) VALUES (%s, %s, %s)",
		m.dialect.Placeholder(1), m.dialect.Placeholder(2), m.dialect.Placeholder(3))
	if _, err := tx.ExecContext(ctx, record, mig.Version, mig.Description, time.Now().Unix()); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
