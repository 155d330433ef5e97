package mariadb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Original is one primary file from the PhotoPrism index.
type Original struct {
	FileName    string     // relative to the originals root
	TakenAt     *time.Time // nil when PhotoPrism has no capture time
	Description string
	Labels      []string // label slugs PhotoPrism is reasonably sure about
}

// Hashtags renders Labels as "#a #b".
func (o Original) Hashtags() string {
	return labelsToHashtags(o.Labels)
}

func labelsToHashtags(labels []string) string {
	tags := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		tags = append(tags, "#"+strings.ReplaceAll(l, " ", "-"))
	}
	return strings.Join(tags, " ")
}

// maxLabelUncertainty drops PhotoPrism labels it is unsure about (0-100 scale).
const maxLabelUncertainty = 50

// ListOriginals returns primary, present originals ordered by capture time.
// limit <= 0 returns all.
func (p *Pool) ListOriginals(ctx context.Context, limit int) ([]Original, error) {
	query := `
		SELECT f.file_name, p.taken_at, p.taken_src, COALESCE(p.photo_description, ''),
			COALESCE(GROUP_CONCAT(l.label_slug ORDER BY pl.uncertainty SEPARATOR ','), '')
		FROM files f
		JOIN photos p ON p.id = f.photo_id
		LEFT JOIN photos_labels pl ON pl.photo_id = p.id AND pl.uncertainty < ?
		LEFT JOIN labels l ON l.id = pl.label_id AND l.deleted_at IS NULL
		WHERE f.file_primary = 1 AND f.file_missing = 0 AND f.file_root = '/'
			AND p.deleted_at IS NULL
		GROUP BY f.id, f.file_name, p.taken_at, p.taken_src, p.photo_description
		ORDER BY p.taken_at, f.id`
	args := []any{maxLabelUncertainty}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query originals: %w", err)
	}
	defer rows.Close()

	var originals []Original
	for rows.Next() {
		var o Original
		var takenAt sql.NullTime
		var takenSrc, labels string
		if err := rows.Scan(&o.FileName, &takenAt, &takenSrc, &o.Description, &labels); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		// PhotoPrism fills taken_at with the import time when the source is unknown
		if takenAt.Valid && takenSrc != "" && takenSrc != "auto" {
			t := takenAt.Time
			o.TakenAt = &t
		}
		if labels != "" {
			o.Labels = strings.Split(labels, ",")
		}
		originals = append(originals, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return originals, nil
}
