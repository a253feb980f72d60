package paperqa

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/paperqa/paperqa/pkg/server"
	"github.com/paperqa/paperqa/pkg/server/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PaperQA HTTP server",
	Long: `Start the PaperQA HTTP server to provide REST API access to the pipeline.

The server provides endpoints for:
- Asking questions (/api/v1/ask)
- Semantic search (/api/v1/search)
- Indexing and index maintenance (/api/v1/index, /api/v1/documents/:id)
- Document classification (/api/v1/classify)
- Batch classification (/api/v1/documents/pending, /api/v1/documents/process)
- Health checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "Server host")
	serveCmd.Flags().Int("port", 8080, "Server port")
	serveCmd.Flags().String("mode", "release", "Server mode (debug, release, test)")

	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.mode", serveCmd.Flags().Lookup("mode"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Server.Port <= 0 || a.cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", a.cfg.Server.Port)
	}

	var applier handlers.MetadataApplier
	if a.applier != nil {
		applier = a.applier
	}
	opts := []server.Option{
		server.WithClassifier(a.classifier, applier),
	}
	if a.source != nil {
		opts = append(opts, server.WithDocumentSource(a.source))
	}
	if a.processor != nil {
		opts = append(opts, server.WithProcessor(a.processor))
	}

	srv := server.New(a.cfg, a.client, opts...)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		a.logger.Info("server listening",
			"host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		a.logger.Info("shutting down", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	}
}
