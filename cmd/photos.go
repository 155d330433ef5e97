package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-story/internal/database"
	"github.com/kozaktomas/photo-story/internal/geo"
)

var photosCmd = &cobra.Command{
	Use:   "photos",
	Short: "Inspect and maintain stored photos",
}

var photosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored photos",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPhotos(cmd, func(ctx context.Context, store database.PhotoStore) ([]database.PhotoRecord, error) {
			return store.FindAll(ctx)
		})
	},
}

var photosDateCmd = &cobra.Command{
	Use:   "date <yyyy-MM-dd>",
	Short: "List photos taken on a day (any prefix of yyyy-MM-dd HH:mm:ss works)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPhotos(cmd, func(ctx context.Context, store database.PhotoStore) ([]database.PhotoRecord, error) {
			return store.FindByDate(ctx, args[0])
		})
	},
}

var photosHashtagCmd = &cobra.Command{
	Use:   "hashtag <tag>",
	Short: "List photos whose hashtags contain a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPhotos(cmd, func(ctx context.Context, store database.PhotoStore) ([]database.PhotoRecord, error) {
			return store.FindByHashtag(ctx, args[0])
		})
	},
}

var photosDatesCmd = &cobra.Command{
	Use:   "dates",
	Short: "List the days that have photos",
	Args:  cobra.NoArgs,
	RunE:  runPhotosDates,
}

var photosDedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Remove duplicate records, keeping the oldest per file path",
	Args:  cobra.NoArgs,
	RunE:  runPhotosDedupe,
}

var photosClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored photo",
	Args:  cobra.NoArgs,
	RunE:  runPhotosClear,
}

func init() {
	rootCmd.AddCommand(photosCmd)
	photosCmd.AddCommand(photosListCmd, photosDateCmd, photosHashtagCmd, photosDatesCmd, photosDedupeCmd, photosClearCmd)

	for _, c := range []*cobra.Command{photosListCmd, photosDateCmd, photosHashtagCmd, photosDatesCmd} {
		c.Flags().Bool("json", false, "Output as JSON")
	}
	photosClearCmd.Flags().Bool("yes", false, "Confirm deletion of all photos")
}

// withPhotos runs query against the store and prints the result.
func withPhotos(cmd *cobra.Command, query func(context.Context, database.PhotoStore) ([]database.PhotoRecord, error)) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	photos, err := query(ctx, a.store)
	if err != nil {
		return fmt.Errorf("failed to query photos: %w", err)
	}

	if mustGetBool(cmd, "json") {
		for i := range photos {
			photos[i].Embedding = nil
		}
		return outputJSON(photos)
	}
	printPhotoTable(photos)
	return nil
}

func printPhotoTable(photos []database.PhotoRecord) {
	if len(photos) == 0 {
		fmt.Println("No photos found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tPATH\tLOCATION\tOBJECTS\tHASHTAGS")
	for i := range photos {
		p := &photos[i]
		location := geo.NoRegionInfo
		if p.Location != nil {
			location = geo.Text(*p.Location)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.DateTaken, p.FilePath, location, strings.Join(p.Labels(), ", "), p.Hashtags)
	}
	w.Flush()
	fmt.Printf("\nTotal: %d\n", len(photos))
}

func runPhotosDates(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	dates, err := a.store.DistinctDates(ctx)
	if err != nil {
		return fmt.Errorf("failed to list dates: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(dates)
	}
	if len(dates) == 0 {
		fmt.Println("No photos found")
		return nil
	}
	for _, d := range dates {
		fmt.Println(d)
	}
	return nil
}

func runPhotosDedupe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.store.DeleteDuplicates(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove duplicates: %w", err)
	}
	fmt.Printf("Removed %d duplicate photos\n", removed)
	return nil
}

func runPhotosClear(cmd *cobra.Command, args []string) error {
	if !mustGetBool(cmd, "yes") {
		return errors.New("refusing to delete all photos without --yes")
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	count, err := a.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count photos: %w", err)
	}
	if err := a.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to delete photos: %w", err)
	}
	fmt.Printf("Deleted %d photos\n", count)
	return nil
}
