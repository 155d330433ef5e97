package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-story/internal/photosource"
	"github.com/kozaktomas/photo-story/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find photos by text or by a similar image",
}

var searchTextCmd = &cobra.Command{
	Use:   "text <query>",
	Short: "Find photos matching a text description",
	Long: `Embed the query text and rank stored photos by cosine similarity.
The query is recorded in the search history.

Examples:
  photo-story search text "night market food stalls"
  photo-story search text "바닷가 일몰" --k 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearchText,
}

var searchSimilarCmd = &cobra.Command{
	Use:   "similar <file-path>",
	Short: "Find stored photos similar to an image",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearchSimilar,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.AddCommand(searchTextCmd, searchSimilarCmd)

	for _, c := range []*cobra.Command{searchTextCmd, searchSimilarCmd} {
		c.Flags().Int("k", 0, "Number of results (default from the search.top_k setting)")
		c.Flags().Bool("json", false, "Output as JSON")
	}
	searchTextCmd.Flags().String("image", "", "Thumbnail path stored with the history entry")
}

func searchK(cmd *cobra.Command, a *app) int {
	if k := mustGetInt(cmd, "k"); k > 0 {
		return k
	}
	return a.cfg.Defaults.Search.TopK
}

func runSearchText(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	query := strings.Join(args, " ")
	matches, err := a.textSearcher(a.engine(), a.ledger()).Search(ctx, query, mustGetString(cmd, "image"), searchK(cmd, a))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return outputMatches(matches, mustGetBool(cmd, "json"))
}

func runSearchSimilar(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	router := &photosource.Router{Files: photosource.FileOpener{}}
	objects, err := photosource.NewObjectOpener(a.cfg.MinIO)
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}
	if objects != nil {
		router.Objects = objects
	}

	data, err := router.Open(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	embedding, err := a.encoder().ComputeEmbedding(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to compute embedding: %w", err)
	}

	matches, err := a.engine().SearchTopK(ctx, embedding, searchK(cmd, a))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return outputMatches(matches, mustGetBool(cmd, "json"))
}

func outputMatches(matches []search.Match, jsonOutput bool) error {
	for i := range matches {
		matches[i].Record.Embedding = nil
	}
	if jsonOutput {
		if matches == nil {
			matches = []search.Match{}
		}
		return outputJSON(matches)
	}
	if len(matches) == 0 {
		fmt.Println("No matching photos")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tID\tDATE\tPATH")
	for _, m := range matches {
		fmt.Fprintf(w, "%.4f\t%d\t%s\t%s\n", m.Score, m.Record.ID, m.Record.DateTaken, m.Record.FilePath)
	}
	w.Flush()
	return nil
}
