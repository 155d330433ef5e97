package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/kozaktomas/photo-story/internal/database"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func mustSQL(name string) string {
	content, err := migrationsFS.ReadFile("migrations/" + name)
	if err != nil {
		panic("missing embedded migration " + name + ": " + err.Error())
	}
	return string(content)
}

var migrations = []database.Migration{
	{
		Version:     1,
		Description: "create photos",
		Statements:  []string{mustSQL("001_create_photos.sql")},
	},
	{
		Version:     2,
		Description: "add embedding",
		Statements:  []string{mustSQL("002_enable_vector.sql")},
		Columns: []database.ColumnAddition{
			{Table: "photos", Column: "embedding", Definition: "vector"},
		},
	},
	{
		Version:     3,
		Description: "add hashtags and caption",
		Columns: []database.ColumnAddition{
			{Table: "photos", Column: "hashtags", Definition: "TEXT"},
			{Table: "photos", Column: "caption", Definition: "TEXT"},
		},
	},
	{
		Version:     4,
		Description: "create preferences",
		Statements:  []string{mustSQL("004_create_preferences.sql")},
	},
}

// Migrate applies all pending migrations automatically on startup
func (p *Pool) Migrate(ctx context.Context) ([]int, error) {
	return database.NewMigrator(p.db, dialect{}, migrations, p.logger).Up(ctx)
}

// MigrationsApplied returns the list of applied migrations
func (p *Pool) MigrationsApplied(ctx context.Context) ([]int, error) {
	return database.NewMigrator(p.db, dialect{}, migrations, p.logger).Applied(ctx)
}

type dialect struct{}

func (dialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (dialect) TableColumns(ctx context.Context, tx *sql.Tx, table string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT column_name FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1`, table)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
