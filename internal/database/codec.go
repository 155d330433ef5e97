package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// NullString maps "" to NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// EncodeObjects serializes detected objects as a JSON array; none is NULL.
func EncodeObjects(objects []DetectedObject) (sql.NullString, error) {
	if len(objects) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(objects)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding detected objects: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// DecodeObjects parses a JSON array written by EncodeObjects.
func DecodeObjects(s sql.NullString) ([]DetectedObject, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var objects []DetectedObject
	if err := json.Unmarshal([]byte(s.String), &objects); err != nil {
		return nil, fmt.Errorf("decoding detected objects: %w", err)
	}
	return objects, nil
}

// RowColumns are the nullable scan targets shared by the SQL backends.
// The embedding column is scanned separately because its codec differs.
type RowColumns struct {
	ID          int64
	FilePath    string
	DateTaken   sql.NullString
	Region      sql.NullString
	Locality    sql.NullString
	SubLocality sql.NullString
	Street      sql.NullString
	Latitude    sql.NullFloat64
	Longitude   sql.NullFloat64
	Objects     sql.NullString
	Hashtags    sql.NullString
	Caption     sql.NullString
}

// Targets returns scan destinations in PhotoColumns order, without the embedding.
func (c *RowColumns) Targets() []any {
	return []any{
		&c.ID, &c.FilePath, &c.DateTaken,
		&c.Region, &c.Locality, &c.SubLocality, &c.Street,
		&c.Latitude, &c.Longitude, &c.Objects, &c.Hashtags, &c.Caption,
	}
}

// PhotoColumns is the select list matching RowColumns.Targets.
const PhotoColumns = `id, file_path, date_taken, region, locality, sub_locality, street,
	latitude, longitude, detected_objects, hashtags, caption`

// Record converts scanned columns into a PhotoRecord. A partial coordinate
// pair is dropped, as is an address with every level empty.
func (c *RowColumns) Record() (PhotoRecord, error) {
	p := PhotoRecord{
		ID:        c.ID,
		FilePath:  c.FilePath,
		DateTaken: c.DateTaken.String,
		Hashtags:  c.Hashtags.String,
		Caption:   c.Caption.String,
	}

	addr := Address{
		Region:      c.Region.String,
		Locality:    c.Locality.String,
		SubLocality: c.SubLocality.String,
		Street:      c.Street.String,
	}
	if !addr.IsEmpty() {
		p.Location = &addr
	}

	if c.Latitude.Valid && c.Longitude.Valid {
		p.Coordinates = &Coordinates{Latitude: c.Latitude.Float64, Longitude: c.Longitude.Float64}
	}

	objects, err := DecodeObjects(c.Objects)
	if err != nil {
		return p, err
	}
	p.DetectedObjects = objects
	return p, nil
}

// InsertArgs returns the values for the non-key, non-embedding columns in
// PhotoColumns order (without id).
func InsertArgs(p *PhotoRecord) ([]any, error) {
	objects, err := EncodeObjects(p.DetectedObjects)
	if err != nil {
		return nil, err
	}

	var addr Address
	if p.Location != nil {
		addr = *p.Location
	}
	var lat, lon sql.NullFloat64
	if p.Coordinates != nil {
		lat = sql.NullFloat64{Float64: p.Coordinates.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: p.Coordinates.Longitude, Valid: true}
	}

	return []any{
		p.FilePath, NullString(p.DateTaken),
		NullString(addr.Region), NullString(addr.Locality), NullString(addr.SubLocality), NullString(addr.Street),
		lat, lon, objects, NullString(p.Hashtags), NullString(p.Caption),
	}, nil
}
