// Package geo turns GPS fixes into hierarchical place labels.
package geo

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/kozaktomas/photo-story/internal/database"
)

// NoRegionInfo is the text returned when no place could be resolved.
const NoRegionInfo = "no region info"

// ErrNoResult is returned by providers that found nothing at a coordinate.
var ErrNoResult = errors.New("no geocoding result")

// Address is the raw reverse-geocoding answer, named after the platform
// geocoder fields the labeling rules are written against.
type Address struct {
	AdminArea    string
	SubAdminArea string
	Locality     string
	SubLocality  string
	Thoroughfare string
	FeatureName  string
}

// Provider resolves a coordinate to an address.
type Provider interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (*Address, error)
}

// Result is a labeled location. Address is nil when nothing was resolved.
type Result struct {
	Address *database.Address
	Text    string
}

// Labeler applies the fallback rules on top of a Provider.
type Labeler struct {
	provider Provider
	logger   *slog.Logger
}

// NewLabeler creates a labeler. A nil provider labels everything NoRegionInfo.
func NewLabeler(provider Provider, logger *slog.Logger) *Labeler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Labeler{provider: provider, logger: logger}
}

// Label never fails: provider errors are logged and produce NoRegionInfo.
func (l *Labeler) Label(ctx context.Context, c database.Coordinates) Result {
	none := Result{Text: NoRegionInfo}
	if l.provider == nil {
		return none
	}

	raw, err := l.provider.ReverseGeocode(ctx, c.Latitude, c.Longitude)
	if err != nil {
		if !errors.Is(err, ErrNoResult) {
			l.logger.Warn("reverse geocoding failed",
				"lat", c.Latitude, "lon", c.Longitude, "error", err)
		}
		return none
	}
	if raw == nil {
		return none
	}

	addr := FromProvider(*raw)
	if addr.IsEmpty() {
		return none
	}
	return Result{Address: &addr, Text: Text(addr)}
}

// FromProvider maps provider fields onto the stored address levels.
func FromProvider(a Address) database.Address {
	thoroughfare := strings.TrimSpace(a.Thoroughfare)
	locality := strings.TrimSpace(a.Locality)
	if locality == "" {
		locality = strings.TrimSpace(a.SubAdminArea)
	}
	sub := strings.TrimSpace(a.SubLocality)
	if sub == "" {
		sub = thoroughfare
	}
	return database.Address{
		Region:      strings.TrimSpace(a.AdminArea),
		Locality:    locality,
		SubLocality: sub,
		Street:      strings.TrimSpace(thoroughfare + " " + strings.TrimSpace(a.FeatureName)),
	}
}

// Text joins the non-empty Region, Locality and SubLocality with spaces.
func Text(a database.Address) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.Region, a.Locality, a.SubLocality} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return NoRegionInfo
	}
	return strings.Join(parts, " ")
}
