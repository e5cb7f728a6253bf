package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dispatch "simple_dispatch"
	"simple_dispatch/internal/config"
	"simple_dispatch/internal/demo"
	"simple_dispatch/internal/logging"
)

// set build metadata
var version = "dev"

var (
	configPath  string
	addrFlag    string
	threadsFlag int
	sanitize    bool
	metricsAddr string
	logLevel    string
	staticDir   string
)

var rootCmd = &cobra.Command{
	Use:   "simple-dispatch",
	Short: "Serve the demo application through the dispatch harness",
	Long: `simple-dispatch binds the demo router and its context to a listening
socket and dispatches every request across the configured workers.

Settings are taken from flags, then SIMPLE_DISPATCH_* environment variables
(a .env file in the working directory is loaded first), then the YAML
config file, then built-in defaults.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", "./config.yaml", "path to the YAML config file")
	f.StringVar(&addrFlag, "addr", "", "listen address (default :3000)")
	f.IntVar(&threadsFlag, "threads", 0, "number of workers")
	f.BoolVar(&sanitize, "sanitize", false, "HTML-escape decoded form values")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	f.StringVar(&staticDir, "static-dir", "", "directory served under /static/")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "simple-dispatch: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	// load .env file if present
	_ = godotenv.Load(".env")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	maxBody, _ := cfg.MaxBodyBytes()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := dispatch.NewMetrics(reg)

	appCtx := demo.Context{
		Name:      cfg.App.Name,
		StaticDir: cfg.App.StaticDir,
		Started:   time.Now(),
	}
	srv := dispatch.New[demo.Context](demo.Routes(), appCtx).Threads(cfg.Server.Threads)
	if cfg.Server.Sanitize {
		srv.Sanitize()
	}
	srv.Name = cfg.App.Name
	srv.ReadTimeout = cfg.Server.ReadTimeout
	srv.WriteTimeout = cfg.Server.WriteTimeout
	srv.IdleTimeout = cfg.Server.IdleTimeout
	srv.MaxBodySize = maxBody
	srv.Concurrency = cfg.Server.Concurrency
	srv.Logger = log
	srv.Metrics = metrics

	if cfg.Metrics.Address != "" {
		go serveMetrics(log, cfg.Metrics.Address, reg)
	}

	log.Info("listening",
		zap.String("addr", cfg.Server.Address),
		zap.Int("threads", cfg.Server.Threads),
		zap.Bool("sanitize", cfg.Server.Sanitize),
		zap.String("version", version))
	return srv.ListenAndServe(cfg.Server.Address)
}

// loadConfig applies defaults, the config file, env and flags, in that
// order of increasing precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || cmd.Flags().Changed("config") {
			return nil, err
		}
		cfg = config.Default()
	}
	if _, err := config.ApplyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Address = addrFlag
	}
	if flags.Changed("threads") {
		cfg.Server.Threads = threadsFlag
	}
	if flags.Changed("sanitize") {
		cfg.Server.Sanitize = sanitize
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Address = metricsAddr
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("static-dir") {
		cfg.App.StaticDir = staticDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func serveMetrics(log *zap.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	log.Info("metrics listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped", zap.Error(err))
	}
}
