// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pnld-converter/internal/extract"
	"github.com/pdiddy/pnld-converter/internal/pipeline"
	"github.com/pdiddy/pnld-converter/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP conversion API",
	Long: `Serve starts the HTTP API. POST a PDF as the multipart field "file" to
/convert and the response is the PNLD package (converted_work.pnld).
GET / and GET /health report readiness. SIGINT or SIGTERM shuts the server
down gracefully.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8000)")
	serveCmd.Flags().String("workspace-dir", "", "parent directory for per-request workspaces (default temp)")
	serveCmd.Flags().String("backend", "", "extraction backend: native or container (default native)")
	serveCmd.Flags().Int64("max-upload-bytes", 0, "maximum request body size (default 50 MiB)")

	bindFlag(serveCmd, "server.addr", "addr")
	bindFlag(serveCmd, "workspace.dir", "workspace-dir")
	bindFlag(serveCmd, "extraction.backend", "backend")
	bindFlag(serveCmd, "server.max_upload_bytes", "max-upload-bytes")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ext, err := extract.New(ctx, cfg.Extraction)
	if err != nil {
		return err
	}
	logger.Info("starting",
		"version", version,
		"backend", cfg.Extraction.Backend,
		"workspaceDir", cfg.Workspace.Dir,
		"maxUploadBytes", cfg.Server.MaxUploadBytes,
	)

	conv := pipeline.New(ext, cfg, logger)
	return server.New(conv, cfg, logger).ListenAndServe(ctx)
}
