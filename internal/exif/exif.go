// Package exif extracts the GPS fix and capture time from photo metadata.
package exif

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	goexif "github.com/rwcarlsen/goexif/exif"

	"github.com/kozaktomas/photo-story/internal/database"
)

// ErrNoExif is returned when the image carries no readable EXIF block.
var ErrNoExif = errors.New("no exif data")

// Metadata holds the fields the enrichment pipeline needs. Nil means absent.
type Metadata struct {
	Coordinates *database.Coordinates
	TakenAt     *time.Time
}

// Read decodes EXIF from JPEG or TIFF bytes. A missing GPS fix or capture
// time is not an error; a missing or corrupt EXIF block is ErrNoExif.
func Read(data []byte) (Metadata, error) {
	var meta Metadata

	x, err := goexif.Decode(bytes.NewReader(data))
	if err != nil {
		if x == nil || goexif.IsCriticalError(err) {
			return meta, fmt.Errorf("%w: %v", ErrNoExif, err)
		}
		// Non-critical errors leave a partially decoded block usable
	}

	if lat, lon, err := x.LatLong(); err == nil && validFix(lat, lon) {
		meta.Coordinates = &database.Coordinates{Latitude: lat, Longitude: lon}
	}

	if t, err := x.DateTime(); err == nil && !t.IsZero() {
		meta.TakenAt = &t
	}

	return meta, nil
}

// validFix rejects NaN and out-of-range values produced by malformed rationals.
func validFix(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
