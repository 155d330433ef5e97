package database

import (
	"strings"
	"time"
)

// DateLayout is the fixed format of PhotoRecord.DateTaken. Date queries use
// its first ten characters (DayLayout), so both must stay in sync.
const (
	DateLayout = "2006-01-02 15:04:05"
	DayLayout  = "2006-01-02"
)

// Coordinates is a GPS fix in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsZero reports whether the fix is exactly (0,0), which is never a real fix.
func (c Coordinates) IsZero() bool {
	return c.Latitude == 0 && c.Longitude == 0
}

// Address is a hierarchical place label. Empty levels are absent.
type Address struct {
	Region      string `json:"region,omitempty"`       // administrative area
	Locality    string `json:"locality,omitempty"`     // city, or sub-admin area
	SubLocality string `json:"sub_locality,omitempty"` // district, or street name
	Street      string `json:"street,omitempty"`       // thoroughfare + feature name
}

// IsEmpty reports whether no level is set.
func (a Address) IsEmpty() bool {
	return a.Region == "" && a.Locality == "" && a.SubLocality == "" && a.Street == ""
}

// DetectedObject is one classifier prediction.
type DetectedObject struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// PhotoRecord is one enriched photo.
type PhotoRecord struct {
	ID              int64            `json:"id"`
	FilePath        string           `json:"file_path"`
	DateTaken       string           `json:"date_taken,omitempty"`
	Location        *Address         `json:"location,omitempty"`
	Coordinates     *Coordinates     `json:"coordinates,omitempty"`
	DetectedObjects []DetectedObject `json:"detected_objects,omitempty"`
	Embedding       []float32        `json:"embedding,omitempty"`
	Hashtags        string           `json:"hashtags,omitempty"`
	Caption         string           `json:"caption,omitempty"`
}

// Labels returns the detected object labels in classifier order.
func (p *PhotoRecord) Labels() []string {
	labels := make([]string, 0, len(p.DetectedObjects))
	for _, obj := range p.DetectedObjects {
		labels = append(labels, obj.Label)
	}
	return labels
}

// Day returns the yyyy-MM-dd part of DateTaken, or "" if it is too short.
func (p *PhotoRecord) Day() string {
	if len(p.DateTaken) < len(DayLayout) {
		return ""
	}
	return p.DateTaken[:len(DayLayout)]
}

// TagList splits Hashtags on '#' and whitespace, dropping empty entries.
func (p *PhotoRecord) TagList() []string {
	fields := strings.FieldsFunc(p.Hashtags, func(r rune) bool {
		return r == '#' || r == ' ' || r == '\t' || r == '\n' || r == ','
	})
	return fields
}

// SearchHistoryItem is one past text query. Items are unique by Query.
type SearchHistoryItem struct {
	Query     string    `json:"query"`
	ImagePath string    `json:"image_path,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// FormatDate renders t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a DateTaken value in the local time zone.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}
