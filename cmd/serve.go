package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-story/internal/timeline"
	"github.com/kozaktomas/photo-story/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web API",
	Long: `Start the Photo Story HTTP API.
It serves photo queries, background enrichment jobs with SSE progress,
day timelines with live story updates, similarity search and search history.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().String("files-root", "", "Directory relative photo references resolve against")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	pipeline, err := a.pipeline(ctx, mustGetString(cmd, "files-root"))
	if err != nil {
		return err
	}

	engine := a.engine()
	ledger := a.ledger()
	port, host := resolveServeHostPort(cmd)

	server := web.NewServer(web.Deps{
		Config:   a.cfg,
		Store:    a.store,
		Pipeline: pipeline,
		Timeline: a.timeline(timeline.NewEvents()),
		Engine:   engine,
		Text:     a.textSearcher(engine, ledger),
		Ledger:   ledger,
		Logger:   a.logger,
	}, host, port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Photo Story API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
