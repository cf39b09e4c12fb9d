package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"experimentdb/internal/blob"
	"experimentdb/internal/core"
	"experimentdb/internal/httpapi"
	"experimentdb/internal/upload"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the record resources over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("blob-driver", "fs", "file storage: fs, s3 or memory")
	cmd.Flags().String("media-root", "./media", "directory of the fs file storage")
	cmd.Flags().String("wiki-base-url", "", "MediaWiki base URL for protocol permalinks")
	a.bind(cmd, map[string]string{
		"http.addr":     "addr",
		"blob.driver":   "blob-driver",
		"blob.fs_root":  "media-root",
		"wiki.base_url": "wiki-base-url",
	})
	return cmd
}

func (a *app) serve(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := a.openStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(a.logger, store)

	files, err := blob.Open(ctx, a.cfg.BlobOptions())
	if err != nil {
		return fmt.Errorf("open %s file storage: %w", a.cfg.Blob.Driver, err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		return err
	}
	svc := core.NewService(store,
		core.WithLogger(a.logger),
		core.WithMetricsRecorder(recorder),
		core.WithAuditRecorder(core.SlogAuditRecorder{Logger: a.logger}),
	)

	srv, err := httpapi.New(svc,
		httpapi.WithLogger(a.logger),
		httpapi.WithMetrics(reg, reg),
		httpapi.WithUploader(upload.New(files, upload.WithLogger(a.logger))),
		httpapi.WithWikiBaseURL(a.cfg.Wiki.BaseURL),
	)
	if err != nil {
		return err
	}
	a.logger.Info("starting server",
		"storage", a.cfg.Storage.Driver,
		"files", files.Driver(),
		"addr", a.cfg.HTTP.Addr)
	return srv.Start(ctx, a.cfg.HTTP.Addr)
}
