package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"pkt.systems/pslog"

	"github.com/onyxstream/coordlog"
	"github.com/onyxstream/coordlog/internal/metrics"
	"github.com/onyxstream/coordlog/internal/pathutil"
)

const appName = "coordlogd"

func submain(ctx context.Context) int {
	baseLogger := pslog.LoggerFromEnv(
		pslog.WithEnvPrefix("COORDLOG_LOG_"),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, MinLevel: pslog.InfoLevel}),
		pslog.WithEnvWriter(os.Stderr),
	).With("app", appName)
	cmd := newRootCommand(baseLogger)
	ctx = withSignalCancel(ctx)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "%s\n", err)
		}
		return 1
	}
	return 0
}

func withSignalCancel(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx
}

func newRootCommand(logger pslog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "operate a coordlog tenancy: bootstrap, write, tail, chunks, pulses, GC",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.String("tenancy-id", "", "tenancy id forming the namespace prefix (required)")
	flags.String("address", coordlog.DefaultAddress, "coordination service connect string")
	flags.Bool("server", false, "start the embedded in-process coordination server")
	flags.Int("server-port", coordlog.DefaultServerPort, "embedded server listening port")
	flags.String("backend", coordlog.DefaultBackend,
		fmt.Sprintf("coordination backend (%s)", strings.Join(coordlog.ValidBackends(), " or ")))
	flags.String("backend-root", "", "disk backend root directory")
	flags.String("codec", coordlog.DefaultCodec, "payload codec (yaml-snappy or json)")
	flags.String("metrics-listen", "", "Prometheus scrape endpoint bind address (empty disables)")
	for _, name := range []string{
		"tenancy-id", "address", "server", "server-port",
		"backend", "backend-root", "codec", "metrics-listen",
	} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("COORDLOG")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	root.AddCommand(
		newBootstrapCommand(logger),
		newWriteLogCommand(logger),
		newTailCommand(logger),
		newWriteChunkCommand(logger),
		newReadChunkCommand(logger),
		newForceWriteChunkCommand(logger),
		newUpdateOriginCommand(logger),
		newPulseCommand(logger),
		newPSCommand(logger),
		newGCCommand(logger),
		newInspectCommand(logger),
		newVersionCommand(),
	)
	return root
}

// openBackend builds, starts, and returns a Backend from the bound flags.
// The caller owns Close.
func openBackend(ctx context.Context, logger pslog.Logger) (*coordlog.Backend, error) {
	backendRoot, err := pathutil.Expand(viper.GetString("backend-root"))
	if err != nil {
		return nil, fmt.Errorf("expand backend root: %w", err)
	}
	cfg := coordlog.Config{
		TenancyID:   viper.GetString("tenancy-id"),
		Address:     viper.GetString("address"),
		Server:      viper.GetBool("server"),
		ServerPort:  viper.GetInt("server-port"),
		Backend:     viper.GetString("backend"),
		BackendRoot: backendRoot,
		Codec:       viper.GetString("codec"),
		Logger:      logger,
	}
	if listen := strings.TrimSpace(viper.GetString("metrics-listen")); listen != "" {
		registry := prometheus.NewRegistry()
		cfg.Metrics = metrics.NewPrometheus(registry)
		go serveMetrics(listen, registry, logger)
	}
	b, err := coordlog.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := b.Start(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func serveMetrics(listen string, registry *prometheus.Registry, logger pslog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(listen, mux); err != nil {
		logger.Error("metrics listener failed", "listen", listen, "error", err)
	}
}
