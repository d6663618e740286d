package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/moolen/faultlens/internal/api/handlers"
	"github.com/moolen/faultlens/internal/apiserver"
	"github.com/moolen/faultlens/internal/config"
	"github.com/moolen/faultlens/internal/dga"
	"github.com/moolen/faultlens/internal/faulttree"
	"github.com/moolen/faultlens/internal/lifecycle"
	"github.com/moolen/faultlens/internal/logging"
	"github.com/moolen/faultlens/internal/metrics"
	"github.com/moolen/faultlens/internal/session"
	"github.com/moolen/faultlens/internal/tracing"
)

type serveOptions struct {
	configPath      string
	watchConfig     bool
	port            int
	shutdownTimeout time.Duration
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the FaultLens API server",
		Long: `Start the HTTP API server. Diagnosis thresholds and fusion weights are
reloaded when the config file changes.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			levelFromFlag := cmd.Flags().Changed("log-level")
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := runServe(ctx, opts, levelFromFlag); err != nil {
				HandleError(err, "Server error")
			}
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "faultlens.yaml", "Path to the YAML config file")
	cmd.Flags().BoolVar(&opts.watchConfig, "watch-config", true, "Reload diagnosis settings when the config file changes")
	cmd.Flags().IntVar(&opts.port, "port", 0, "Override server.port from the config file")
	cmd.Flags().DurationVar(&opts.shutdownTimeout, "shutdown-timeout", 15*time.Second, "Time allowed for graceful shutdown")
	return cmd
}

// components is everything runServe starts.
type components struct {
	engine  *dga.Engine
	server  *apiserver.Server
	tracer  *tracing.Provider
	watcher *config.Watcher
}

// buildComponents wires the services for cfg. reload is called with every
// config the watcher loads.
func buildComponents(cfg *config.Config, configPath string, watch bool, reload func(*config.Config)) (*components, error) {
	tracer, err := tracing.NewProvider(cfg.TracingProvider(), Version)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	sessions, err := session.NewStore(cfg.Sessions.MaxEntries, m.Sessions,
		session.WithMaxTreeNodes(cfg.Sessions.MaxTreeNodes))
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	catalog, err := faulttree.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("fault tree catalog: %w", err)
	}
	engine := dga.NewEngine(cfg.Engine(), cfg.Batch.Concurrency)

	server := apiserver.New(apiserver.Config{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers.Deps{
		Engine:   engine,
		Catalog:  catalog,
		Sessions: sessions,
		Metrics:  m,
	}, tracer, registry)

	c := &components{engine: engine, server: server, tracer: tracer}
	if !watch {
		return c, nil
	}

	c.watcher, err = config.NewWatcher(config.WatcherConfig{FilePath: configPath}, func(next *config.Config) error {
		if err := engine.Reconfigure(next.Engine()); err != nil {
			return err
		}
		if reload != nil {
			reload(next)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	return c, nil
}

func runServe(ctx context.Context, opts *serveOptions, levelFromFlag bool) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}

	// The config file sets the default level unless --log-level was given.
	applyLevel := func(c *config.Config) {
		if levelFromFlag {
			return
		}
		if err := logging.Initialize(c.LogLevel); err != nil {
			logging.GetLogger("server").Warn("Failed to apply log level %q: %v", c.LogLevel, err)
		}
	}
	applyLevel(cfg)
	logger := logging.GetLogger("server")

	logger.Info("Starting FaultLens v%s", Version)
	logger.Debug("Configuration loaded from %s: port=%d", opts.configPath, cfg.Server.Port)

	c, err := buildComponents(cfg, opts.configPath, opts.watchConfig, applyLevel)
	if err != nil {
		return err
	}

	manager := lifecycle.NewManager()
	manager.SetShutdownTimeout(opts.shutdownTimeout)
	registered := []lifecycle.Component{c.tracer}
	if c.watcher != nil {
		registered = append(registered, c.watcher)
	}
	registered = append(registered, c.server)
	for _, comp := range registered {
		if err := manager.Register(comp); err != nil {
			return fmt.Errorf("register %s: %w", comp.Name(), err)
		}
	}

	if err := manager.Start(ctx); err != nil {
		return err
	}
	logger.Info("Application started successfully")

	<-ctx.Done()
	logger.Info("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.shutdownTimeout)
	defer cancel()
	if err := manager.Stop(shutdownCtx); err != nil {
		logger.Error("Error during shutdown: %v", err)
		return err
	}

	logger.Info("Shutdown complete")
	return nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the FaultLens config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [FILE]",
		Short: "Write a config file with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "faultlens.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}
			if err := config.Write(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Load and validate a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
