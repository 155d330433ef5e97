package database

import (
	"slices"
	"testing"
	"time"
)

func TestCoordinates_IsZero(t *testing.T) {
	tests := []struct {
		name string
		c    Coordinates
		want bool
	}{
		{"origin", Coordinates{0, 0}, true},
		{"equator", Coordinates{0, 12.5}, false},
		{"meridian", Coordinates{51.47, 0}, false},
		{"seoul", Coordinates{37.5665, 126.978}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.c.IsZero(); got != tc.want {
				t.Errorf("IsZero() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPhotoRecord_Day(t *testing.T) {
	p := PhotoRecord{DateTaken: "2024-05-01 09:00:00"}
	if p.Day() != "2024-05-01" {
		t.Errorf("expected 2024-05-01, got %q", p.Day())
	}

	short := PhotoRecord{DateTaken: "2024"}
	if short.Day() != "" {
		t.Errorf("expected empty day, got %q", short.Day())
	}
}

func TestPhotoRecord_TagList(t *testing.T) {
	p := PhotoRecord{Hashtags: "#beach #sunset,#  family"}
	got := p.TagList()
	want := []string{"beach", "sunset", "family"}
	if !slices.Equal(got, want) {
		t.Errorf("TagList() = %v, want %v", got, want)
	}
}

func TestPhotoRecord_Labels(t *testing.T) {
	p := PhotoRecord{DetectedObjects: []DetectedObject{{"dog", 0.9}, {"beach", 0.7}}}
	if !slices.Equal(p.Labels(), []string{"dog", "beach"}) {
		t.Errorf("unexpected labels: %v", p.Labels())
	}
}

func TestFormatAndParseDate(t *testing.T) {
	ts := time.Date(2024, 5, 1, 8, 30, 15, 0, time.Local)
	s := FormatDate(ts)
	if s != "2024-05-01 08:30:15" {
		t.Fatalf("unexpected format: %q", s)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if !parsed.Equal(ts) {
		t.Errorf("expected %v, got %v", ts, parsed)
	}

	if _, err := ParseDate("01/05/2024"); err == nil {
		t.Error("expected error for foreign layout")
	}
}
