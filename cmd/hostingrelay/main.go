package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"hostingrelay/internal/config"
	"hostingrelay/internal/httpx"
	"hostingrelay/internal/ics"
	appLog "hostingrelay/internal/log"
	"hostingrelay/internal/probe"
	"hostingrelay/internal/relay"
	"hostingrelay/internal/version"
	"hostingrelay/internal/web"
)

const defaultConfigPath = "/etc/hostingrelay/config.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          version.Name,
		Short:        version.Description,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (DEBUG, INFO, ERROR); overrides config")

	root.AddCommand(
		newServeCmd(opts),
		newRelayCmd(opts),
		newInitCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the config file and applies the log level.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	conf, err := config.Load(opts.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", opts.configPath)
		return nil, err
	}

	level := conf.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(level))
	return conf, nil
}

// buildService wires registry -> transport -> aggregator -> service.
func buildService(conf *config.Config) (*relay.Service, error) {
	registry, err := conf.Registry()
	if err != nil {
		appLog.Error("invalid source configuration", err)
		return nil, err
	}

	agg := relay.NewAggregator(registry, ics.NewTransport(conf.FetchTimeout), relay.Options{
		Namespace:      conf.Namespace,
		MaxConcurrency: conf.MaxConcurrency,
	})
	return relay.NewService(agg), nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve relayed calendars over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if listen != "" {
				conf.Listen = listen
			}

			appLog.Info("effective config",
				"listen", conf.Listen,
				"namespace", conf.Namespace,
				"max_concurrency", conf.MaxConcurrency,
				"fetch_timeout", conf.FetchTimeout,
				"probe", conf.Probe,
				"source_count", len(conf.Sources),
			)

			svc, err := buildService(conf)
			if err != nil {
				return err
			}

			meterProvider, err := httpx.SetupPrometheusExporter()
			if err != nil {
				appLog.Error("failed to initialize metrics", err)
				return err
			}
			otel.SetMeterProvider(meterProvider)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := httpx.Shutdown(shutdownCtx, meterProvider); err != nil {
					appLog.Error("failed to shut down metrics", err)
				}
			}()

			telemetry, err := httpx.NewTelemetry()
			if err != nil {
				appLog.Error("failed to initialize telemetry", err)
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			var statuses web.StatusReporter
			if conf.Probe != "" {
				prober := probe.New(svc)
				if err := prober.Start(conf.Probe); err != nil {
					appLog.Error("invalid probe schedule", err, "probe", conf.Probe)
					return err
				}
				defer func() {
					stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
					defer stop()
					prober.Stop(stopCtx)
				}()
				statuses = prober
			}

			srv := web.NewServer(conf, svc, statuses, telemetry)
			if err := srv.Run(ctx); err != nil {
				appLog.Error("HTTP server error", err)
				return err
			}
			appLog.Info("hostingrelay exiting")
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func newRelayCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "relay <type>",
		Short: "Print the relayed calendar for one source key, or \"all\", and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(opts)
			if err != nil {
				return err
			}
			svc, err := buildService(conf)
			if err != nil {
				return err
			}

			text, err := svc.GetRelay(cmd.Context(), args[0])
			if err != nil {
				appLog.Error("relay failed", err, "type", args[0])
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
	}
}

func newInitCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(opts.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", opts.configPath)
			}

			conf := config.DefaultConfig()
			conf.Sources = []config.SourceConfig{{
				Key:          "air",
				URL:          "https://www.airbnb.com/calendar/ical/<listing>.ics?s=<token>",
				StripPattern: "Reserved - ",
				AddPrefix:    "air",
			}}
			if err := conf.Save(opts.configPath); err != nil {
				appLog.Error("failed to write config", err, "config_path", opts.configPath)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", opts.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Summary())
		},
	}
}
