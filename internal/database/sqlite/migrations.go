package sqlite

import "github.com/kozaktomas/photo-story/internal/database"

var migrations = []database.Migration{
	{
		Version:     1,
		Description: "create photos",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS photos (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				file_path TEXT NOT NULL,
				date_taken TEXT,
				region TEXT,
				locality TEXT,
				sub_locality TEXT,
				street TEXT,
				latitude REAL,
				longitude REAL,
				detected_objects TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_photos_file_path ON photos(file_path)`,
			`CREATE INDEX IF NOT EXISTS idx_photos_date_taken ON photos(date_taken)`,
		},
	},
	{
		Version:     2,
		Description: "add embedding",
		Columns: []database.ColumnAddition{
			{Table: "photos", Column: "embedding", Definition: "BLOB"},
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
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS preferences (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at INTEGER NOT NULL
			)`,
		},
	},
}
