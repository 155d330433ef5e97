package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-story/internal/config"
	"github.com/kozaktomas/photo-story/internal/database/mariadb"
	"github.com/kozaktomas/photo-story/internal/enrich"
	"github.com/kozaktomas/photo-story/internal/photosource"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [paths...]",
	Short: "Enrich photos and store them",
	Long: `Read EXIF location and capture time, reverse-geocode the location, detect
objects and compute an image embedding for each photo, then store the result.

Arguments may be image files, directories (walked recursively) or
s3://bucket/key references when MinIO is configured.

Examples:
  # Enrich a folder of photos
  photo-story enrich ~/Pictures/korea

  # Tag every photo and skip ones already stored
  photo-story enrich ~/Pictures/korea --hashtag seoul --skip-existing

  # Import originals from a PhotoPrism index
  photo-story enrich --from-photoprism --limit 500`,
	RunE: runEnrich,
}

func init() {
	rootCmd.AddCommand(enrichCmd)

	enrichCmd.Flags().Int("concurrency", 0, "Photos processed in parallel (default from ENRICH_CONCURRENCY)")
	enrichCmd.Flags().Bool("skip-existing", false, "Skip photos whose path is already stored")
	enrichCmd.Flags().Bool("from-photoprism", false, "Read photos from the PhotoPrism index database")
	enrichCmd.Flags().Int("limit", 0, "Maximum number of PhotoPrism originals to import (0 = all)")
	enrichCmd.Flags().StringSlice("hashtag", nil, "Hashtag added to every photo (can be specified multiple times)")
	enrichCmd.Flags().String("caption", "", "Caption stored with every photo")
	enrichCmd.Flags().Bool("json", false, "Output results as JSON")
}

// imageExtensions are the file types picked up when walking directories.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
	".bmp": true, ".gif": true, ".heic": true, ".tif": true, ".tiff": true,
}

// EnrichOutput is the JSON summary of an enrich run.
type EnrichOutput struct {
	Enriched  int                `json:"enriched"`
	Skipped   int                `json:"skipped"`
	Failed    int                `json:"failed"`
	Cancelled int                `json:"cancelled"`
	Errors    []EnrichErrorEntry `json:"errors,omitempty"`
}

// EnrichErrorEntry is one failed photo.
type EnrichErrorEntry struct {
	Ref   string `json:"ref"`
	Error string `json:"error"`
}

func runEnrich(cmd *cobra.Command, args []string) error {
	fromPhotoPrism := mustGetBool(cmd, "from-photoprism")
	if len(args) == 0 && !fromPhotoPrism {
		return errors.New("provide photo paths or --from-photoprism")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var photos []enrich.RawPhoto
	filesRoot := ""
	if fromPhotoPrism {
		photos, err = loadPhotoPrismOriginals(ctx, a.cfg.PhotoPrism, mustGetInt(cmd, "limit"))
		if err != nil {
			return err
		}
		filesRoot = a.cfg.PhotoPrism.OriginalsPath
	}
	fromArgs, err := collectPhotos(args)
	if err != nil {
		return err
	}
	photos = append(photos, fromArgs...)
	applyTags(photos, mustGetStringSlice(cmd, "hashtag"), mustGetString(cmd, "caption"))

	jsonOutput := mustGetBool(cmd, "json")
	if len(photos) == 0 {
		if jsonOutput {
			return outputJSON(EnrichOutput{})
		}
		fmt.Println("No photos found")
		return nil
	}

	pipeline, err := a.pipeline(ctx, filesRoot)
	if err != nil {
		return err
	}

	concurrency := mustGetInt(cmd, "concurrency")
	if concurrency <= 0 {
		concurrency = a.cfg.Defaults.Enrich.Concurrency
	}

	if !jsonOutput {
		fmt.Printf("Enriching %d photos with %d workers...\n", len(photos), concurrency)
	}
	bar := newEnrichProgressBar(len(photos), jsonOutput)

	res := pipeline.EnrichBatch(ctx, photos, enrich.BatchOptions{
		Concurrency:  concurrency,
		SkipExisting: mustGetBool(cmd, "skip-existing"),
		OnProgress: func(p enrich.Progress) {
			if bar != nil {
				bar.Add(1)
			}
		},
	})
	if bar != nil {
		bar.Finish()
	}

	return outputEnrichResult(res, jsonOutput)
}

func loadPhotoPrismOriginals(ctx context.Context, cfg config.PhotoPrismConfig, limit int) ([]enrich.RawPhoto, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("PHOTOPRISM_DATABASE_URL environment variable is required for --from-photoprism")
	}
	if cfg.OriginalsPath == "" {
		return nil, errors.New("PHOTOPRISM_ORIGINALS_PATH environment variable is required for --from-photoprism")
	}

	pool, err := mariadb.NewPool(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PhotoPrism database: %w", err)
	}
	defer pool.Close()

	originals, err := pool.ListOriginals(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list PhotoPrism originals: %w", err)
	}

	photos := make([]enrich.RawPhoto, 0, len(originals))
	for _, o := range originals {
		photos = append(photos, enrich.RawPhoto{
			Ref:        o.FileName,
			CapturedAt: o.TakenAt,
			Hashtags:   o.Hashtags(),
			Caption:    o.Description,
		})
	}
	return photos, nil
}

// collectPhotos expands directories into the image files they contain.
// Local paths come back absolute.
func collectPhotos(args []string) ([]enrich.RawPhoto, error) {
	var photos []enrich.RawPhoto
	for _, arg := range args {
		if photosource.IsObjectRef(arg) {
			photos = append(photos, enrich.RawPhoto{Ref: arg})
			continue
		}

		// Local files never resolve against a PhotoPrism originals root.
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", arg, err)
		}
		arg = abs
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			photos = append(photos, enrich.RawPhoto{Ref: arg})
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && imageExtensions[strings.ToLower(filepath.Ext(path))] {
				photos = append(photos, enrich.RawPhoto{Ref: path})
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}
	return photos, nil
}

// applyTags appends hashtags and sets the caption where the photo has none.
func applyTags(photos []enrich.RawPhoto, hashtags []string, caption string) {
	var tags []string
	for _, h := range hashtags {
		if h = strings.TrimPrefix(strings.TrimSpace(h), "#"); h != "" {
			tags = append(tags, "#"+h)
		}
	}
	extra := strings.Join(tags, " ")

	for i := range photos {
		if extra != "" {
			photos[i].Hashtags = strings.TrimSpace(photos[i].Hashtags + " " + extra)
		}
		if caption != "" && photos[i].Caption == "" {
			photos[i].Caption = caption
		}
	}
}

// newEnrichProgressBar creates a progress bar, or nil for JSON output.
func newEnrichProgressBar(count int, jsonOutput bool) *progressbar.ProgressBar {
	if jsonOutput {
		return nil
	}
	return progressbar.NewOptions(count,
		progressbar.OptionSetDescription("Enriching photos"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

func outputEnrichResult(res *enrich.BatchResult, jsonOutput bool) error {
	out := EnrichOutput{
		Enriched:  res.Enriched,
		Skipped:   res.Skipped,
		Failed:    res.Failed,
		Cancelled: res.Cancelled,
	}
	for _, item := range res.Items {
		if item.Status == enrich.ItemFailed && item.Err != nil {
			out.Errors = append(out.Errors, EnrichErrorEntry{Ref: item.Ref, Error: item.Err.Error()})
		}
	}

	if jsonOutput {
		return outputJSON(out)
	}

	fmt.Printf("\nEnriched:  %d\n", out.Enriched)
	fmt.Printf("Skipped:   %d\n", out.Skipped)
	fmt.Printf("Failed:    %d\n", out.Failed)
	if out.Cancelled > 0 {
		fmt.Printf("Cancelled: %d\n", out.Cancelled)
	}
	if len(out.Errors) > 0 {
		fmt.Printf("\nErrors:\n")
		for _, e := range out.Errors {
			fmt.Printf("  - %s: %s\n", e.Ref, e.Error)
		}
	}
	return nil
}
