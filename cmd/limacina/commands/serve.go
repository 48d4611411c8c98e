package commands

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/limacina/launcher/internal/httpapi"
	"github.com/limacina/launcher/internal/printer"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve launcher state over HTTP",
	Long: `Start the local state server and run the initialization sequence.

Endpoints:
  GET /healthz     503 while loading, 200 once ready
  GET /api/state   Core and server state as JSON
  GET /api/routes  The route table
  GET /, /home, /profile
                   The matched route once ready, 503 while loading

The server runs until interrupted (Ctrl+C).`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from serve.addr in limacina.yml)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// A long-running server always logs.
	setupLogging(true)

	a, err := loadApp()
	if err != nil {
		return err
	}

	addr := a.cfg.Serve.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := httpapi.NewServer(addr, a.core, a.servers, a.routes)
	if err := srv.Start(); err != nil {
		return printer.ErrorWithContext(
			"failed to start state server",
			err.Error(),
			map[string]string{"Address": addr},
			[]string{"Pick another address with --addr"},
		)
	}
	printer.Success("Serving launcher state on http://%s (session %s)\n", srv.Addr(), a.sessionID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	initDone := make(chan error, 1)
	go func() {
		initDone <- a.sequencer.Initialize(ctx)
	}()

	select {
	case err := <-initDone:
		if err != nil {
			log.Printf("[ERROR] Initialization failed: %v", err)
		} else {
			log.Printf("[INFO] Launcher ready")
		}
		<-ctx.Done()
	case <-ctx.Done():
	}

	log.Printf("[INFO] Received shutdown signal, shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] State server shutdown error: %v", err)
		return err
	}
	log.Printf("[INFO] State server stopped")
	return nil
}
