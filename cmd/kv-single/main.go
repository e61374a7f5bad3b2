package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/heysubinoy/pyazkv/internal/server"
	"github.com/heysubinoy/pyazkv/pkg/config"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath  string
		httpAddr    string
		grpcAddr    string
		metricsAddr string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:           "kv-single",
		Short:         "Single-node in-memory key-value store served over HTTP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// Flags win over file and environment.
			flags := cmd.Flags()
			if flags.Changed("http-addr") {
				cfg.HTTPAddr = httpAddr
			}
			if flags.Changed("grpc-addr") {
				cfg.GRPCAddr = grpcAddr
			}
			if flags.Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := cfg.Logger("pyazkv")

			srv, err := server.Start(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&httpAddr, "http-addr", config.DefaultHTTPAddr, "HTTP listen address")
	flags.StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (disabled when empty)")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "metrics listen address (disabled when empty)")
	flags.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level: trace, debug, info, warn, error")

	return cmd
}
