// Package timeline builds the per-day story view over enriched photos.
package timeline

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kozaktomas/photo-story/internal/apperr"
	"github.com/kozaktomas/photo-story/internal/database"
)

// NoLocationInfo labels items without a usable address.
const NoLocationInfo = "no location info"

// Item is one photo on a day's timeline. Items are built fresh on every call
// and never persisted.
type Item struct {
	Timestamp     time.Time             `json:"timestamp"`
	LocationLabel string                `json:"location_label"`
	FilePath      string                `json:"file_path"`
	Coordinates   *database.Coordinates `json:"coordinates,omitempty"`
	Description   string                `json:"description"`
	Story         string                `json:"story,omitempty"`
}

// Builder reads a day's photos and turns them into ordered timeline items.
type Builder struct {
	store             database.PhotoReader
	events            *Events
	descriptionPrefix string
	now               func() time.Time
	logger            *slog.Logger
}

// NewBuilder creates a builder. events may be nil when nobody listens.
func NewBuilder(store database.PhotoReader, events *Events, descriptionPrefix string, logger *slog.Logger) *Builder {
	if events == nil {
		events = NewEvents()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		store:             store,
		events:            events,
		descriptionPrefix: descriptionPrefix,
		now:               time.Now,
		logger:            logger,
	}
}

// Events returns the broadcaster the builder publishes on.
func (b *Builder) Events() *Events {
	return b.events
}

// BuildTimeline returns one item per photo taken on date (yyyy-MM-dd, or any
// prefix of DateLayout), ordered by capture time. Photos sharing a timestamp
// keep store order.
func (b *Builder) BuildTimeline(ctx context.Context, date string) ([]Item, error) {
	photos, err := b.store.FindByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(photos))
	for i := range photos {
		items = append(items, b.toItem(&photos[i]))
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.Before(items[j].Timestamp)
	})

	b.events.Publish(Event{Type: EventTimelineBuilt, Date: date, Items: len(items), At: b.now()})
	return items, nil
}

func (b *Builder) toItem(p *database.PhotoRecord) Item {
	ts, err := database.ParseDate(p.DateTaken)
	if err != nil {
		b.logger.Warn("unparseable photo date, using current time",
			"id", p.ID, "date_taken", p.DateTaken, "error", err)
		ts = b.now()
	}

	item := Item{
		Timestamp:     ts,
		LocationLabel: LocationLabel(p.Location),
		FilePath:      p.FilePath,
	}
	if p.Coordinates != nil && !p.Coordinates.IsZero() {
		c := *p.Coordinates
		item.Coordinates = &c
	}
	if len(p.DetectedObjects) > 0 {
		item.Description = b.descriptionPrefix + strings.Join(p.Labels(), ", ")
	}
	return item
}

// LocationLabel joins the region and sub-locality of an address.
func LocationLabel(a *database.Address) string {
	if a == nil {
		return NoLocationInfo
	}
	label := strings.TrimSpace(strings.Join(nonEmpty(a.Region, a.SubLocality), " "))
	if label == "" {
		return NoLocationInfo
	}
	return label
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// UpdateStory publishes a user's narrative edit for one photo of a day.
// Stories are not written to the photo store.
func (b *Builder) UpdateStory(date, filePath, story string) error {
	if strings.TrimSpace(date) == "" || strings.TrimSpace(filePath) == "" {
		return apperr.Invalid("date and file path are required")
	}
	b.events.Publish(Event{
		Type:     EventStoryUpdated,
		Date:     date,
		FilePath: filePath,
		Story:    story,
		At:       b.now(),
	})
	return nil
}
