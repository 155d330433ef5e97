// Package enrich turns raw photo references into persisted PhotoRecords.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/photo-story/internal/ai"
	"github.com/kozaktomas/photo-story/internal/apperr"
	"github.com/kozaktomas/photo-story/internal/database"
	"github.com/kozaktomas/photo-story/internal/exif"
	"github.com/kozaktomas/photo-story/internal/fingerprint"
	"github.com/kozaktomas/photo-story/internal/geo"
	"github.com/kozaktomas/photo-story/internal/photosource"
)

// RawPhoto is an input to the pipeline.
type RawPhoto struct {
	Ref        string     `json:"ref"`
	CapturedAt *time.Time `json:"captured_at,omitempty"` // used when EXIF has no capture time
	Hashtags   string     `json:"hashtags,omitempty"`
	Caption    string     `json:"caption,omitempty"`
}

// DateSource names where DateTaken came from.
type DateSource string

const (
	DateFromExif     DateSource = "exif"
	DateFromCaptured DateSource = "captured"
	DateFromClock    DateSource = "now"
)

// Outcome reports the saved record and how each step ended.
type Outcome struct {
	Record      *database.PhotoRecord
	Coordinates Field[database.Coordinates]
	Location    Field[database.Address]
	DateTaken   Field[string]
	DateSource  DateSource
	Objects     Field[[]database.DetectedObject]
	Embedding   Field[[]float32]
}

// Options configures a Pipeline. Store and Opener are required; every other
// collaborator is optional and its step reports StatusAbsent when missing.
type Options struct {
	Store      database.PhotoStore
	Opener     photosource.Opener
	Labeler    *geo.Labeler
	Classifier ai.Classifier
	Encoder    fingerprint.ImageEncoder
	Logger     *slog.Logger

	MinConfidence float64

	// ReadMetadata defaults to exif.Read.
	ReadMetadata func([]byte) (exif.Metadata, error)
	// Now defaults to time.Now.
	Now func() time.Time
}

// Pipeline enriches and persists photos.
type Pipeline struct {
	store         database.PhotoStore
	opener        photosource.Opener
	labeler       *geo.Labeler
	classifier    ai.Classifier
	encoder       fingerprint.ImageEncoder
	logger        *slog.Logger
	minConfidence float64
	readMetadata  func([]byte) (exif.Metadata, error)
	now           func() time.Time
}

// NewPipeline creates a pipeline from opts.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Store == nil {
		return nil, errors.New("enrich: store is required")
	}
	if opts.Opener == nil {
		return nil, errors.New("enrich: opener is required")
	}
	p := &Pipeline{
		store:         opts.Store,
		opener:        opts.Opener,
		labeler:       opts.Labeler,
		classifier:    opts.Classifier,
		encoder:       opts.Encoder,
		logger:        opts.Logger,
		minConfidence: opts.MinConfidence,
		readMetadata:  opts.ReadMetadata,
		now:           opts.Now,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.readMetadata == nil {
		p.readMetadata = exif.Read
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// Enrich runs every step for one photo and inserts the resulting record.
// Only an unreadable reference or a storage failure is returned as an error;
// all other degradations are reported in the Outcome.
func (p *Pipeline) Enrich(ctx context.Context, raw RawPhoto) (*Outcome, error) {
	if raw.Ref == "" {
		return nil, apperr.Invalid("photo reference is required")
	}

	data, err := p.opener.Open(ctx, raw.Ref)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeEnrichment, "failed to open "+raw.Ref, err)
	}

	out := &Outcome{}
	log := p.logger.With("ref", raw.Ref)

	meta, err := p.readMetadata(data)
	if err != nil && !errors.Is(err, exif.ErrNoExif) {
		log.Warn("failed to read metadata", "error", err)
	}

	out.Coordinates = coordinates(meta)
	out.Location = p.location(ctx, out.Coordinates)
	out.DateTaken, out.DateSource = p.dateTaken(meta, raw)
	out.Objects = p.objects(ctx, data)
	out.Embedding = p.embedding(ctx, data)

	if out.Objects.Err != nil {
		log.Warn("classification failed", "error", out.Objects.Err)
	}
	if out.Embedding.Err != nil {
		log.Warn("embedding failed", "error", out.Embedding.Err)
	}

	record := &database.PhotoRecord{
		FilePath:  raw.Ref,
		DateTaken: out.DateTaken.Value,
		Hashtags:  norm.NFC.String(raw.Hashtags),
		Caption:   norm.NFC.String(raw.Caption),
	}
	if out.Coordinates.OK() {
		c := out.Coordinates.Value
		record.Coordinates = &c
	}
	if out.Location.OK() {
		a := out.Location.Value
		record.Location = &a
	}
	if out.Objects.OK() {
		record.DetectedObjects = out.Objects.Value
	}
	if out.Embedding.OK() {
		record.Embedding = out.Embedding.Value
	}

	id, err := p.store.Insert(ctx, record)
	if err != nil {
		if !apperr.Is(err, apperr.CodeStorage) {
			err = apperr.Storage("failed to save "+raw.Ref, err)
		}
		return out, err
	}
	record.ID = id
	out.Record = record

	log.Debug("photo enriched",
		"id", id,
		"date_source", out.DateSource,
		"coordinates", out.Coordinates.Status,
		"location", out.Location.Status,
		"objects", len(record.DetectedObjects),
		"embedding", out.Embedding.Status)
	return out, nil
}

func coordinates(meta exif.Metadata) Field[database.Coordinates] {
	if meta.Coordinates == nil || meta.Coordinates.IsZero() {
		return absent[database.Coordinates]()
	}
	return ok(*meta.Coordinates)
}

func (p *Pipeline) location(ctx context.Context, c Field[database.Coordinates]) Field[database.Address] {
	if !c.OK() || p.labeler == nil {
		return absent[database.Address]()
	}
	res := p.labeler.Label(ctx, c.Value)
	if res.Address == nil {
		return absent[database.Address]()
	}
	return ok(*res.Address)
}

// dateTaken prefers the EXIF capture time, then the caller's timestamp, then the clock.
func (p *Pipeline) dateTaken(meta exif.Metadata, raw RawPhoto) (Field[string], DateSource) {
	switch {
	case meta.TakenAt != nil:
		return ok(database.FormatDate(*meta.TakenAt)), DateFromExif
	case raw.CapturedAt != nil:
		return ok(database.FormatDate(*raw.CapturedAt)), DateFromCaptured
	default:
		return ok(database.FormatDate(p.now())), DateFromClock
	}
}

func (p *Pipeline) objects(ctx context.Context, data []byte) Field[[]database.DetectedObject] {
	if p.classifier == nil {
		return absent[[]database.DetectedObject]()
	}

	// Classifiers downscale to their own size limit.
	labels, err := p.classifier.Classify(ctx, data)
	if err != nil {
		return failed[[]database.DetectedObject](fmt.Errorf("%s: %w", p.classifier.Name(), err))
	}

	objects := make([]database.DetectedObject, 0, len(labels))
	for _, l := range labels {
		if l.Confidence < p.minConfidence {
			continue
		}
		objects = append(objects, database.DetectedObject{Label: l.Name, Confidence: l.Confidence})
	}
	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].Confidence > objects[j].Confidence
	})
	return ok(objects)
}

func (p *Pipeline) embedding(ctx context.Context, data []byte) Field[[]float32] {
	if p.encoder == nil {
		return absent[[]float32]()
	}
	emb, err := p.encoder.ComputeEmbedding(ctx, data)
	if err != nil {
		return failed[[]float32](err)
	}
	if len(emb) == 0 {
		return absent[[]float32]()
	}
	return ok(emb)
}
