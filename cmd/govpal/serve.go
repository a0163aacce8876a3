package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"govpal/internal/extract/pdf"
	"govpal/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("listen", "", "override listen address (host:port)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	svc, cfg, log, err := openService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
	}

	srv, err := server.New(server.Config{
		ListenAddr:     cfg.Server.Listen,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, server.Services{Ingest: svc, Search: svc}, log)
	if err != nil {
		return err
	}

	if err := pdf.New(cfg.Extract.PDFToText).CheckAvailable(); err != nil {
		log.Warn("PDF ingestion will fail until the tool is installed", "error", err, "install", pdf.InstallInstructions())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting govpal", "listen", cfg.Server.Listen, "backend", cfg.Index.Backend,
		"index_dir", cfg.Index.Dir, "embedder", svc.EmbedderName())
	return srv.Start(ctx)
}
