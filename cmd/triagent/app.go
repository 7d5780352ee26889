package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/c360studio/triagent/bus"
	"github.com/c360studio/triagent/config"
	"github.com/c360studio/triagent/llm"
	"github.com/c360studio/triagent/processor/analytics"
	"github.com/c360studio/triagent/processor/diagnoser"
	"github.com/c360studio/triagent/processor/remediator"
	"github.com/c360studio/triagent/processor/validator"
	"github.com/c360studio/triagent/secrets"
	"github.com/c360studio/triagent/triage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func run(configPath, logLevel string) error {
	printBanner()

	logger := newLogger(logLevel)
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath, logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Verbose {
		logger = newLogger("debug")
		slog.SetDefault(logger)
	}

	ctx := context.Background()

	// Provider API keys come from the secret store; the providers read
	// them from the environment when building request headers.
	if err := secrets.ExportProviderKeys(ctx, secretStore()); err != nil {
		logger.Warn("Failed to export provider keys", "error", err)
	}

	failure, err := cfg.FailureTopic()
	if err != nil {
		return fmt.Errorf("resolve failure topic: %w", err)
	}
	validation, err := cfg.ValidationTopic()
	if err != nil {
		return fmt.Errorf("resolve validation topic: %w", err)
	}
	remediation, err := cfg.RemediationTopic()
	if err != nil {
		return fmt.Errorf("resolve remediation topic: %w", err)
	}

	logger.Info("Pipeline topics resolved",
		"failure", failure.Path(),
		"validation", validation.Path(),
		"remediation", remediation.Path())

	b, err := connectBus(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	subjects := []string{failure.Subject(), validation.Subject(), remediation.Subject()}
	if err := b.EnsureStream(ctx, cfg.NATS.Stream, subjects); err != nil {
		return err
	}

	router := newRouter(cfg, logger)

	obs, err := analytics.New(analytics.Config{
		FailureSubject:     failure.Subject(),
		ValidationSubject:  validation.Subject(),
		RemediationSubject: remediation.Subject(),
	}, analytics.Deps{Bus: b, Logger: logger})
	if err != nil {
		return fmt.Errorf("create analytics observer: %w", err)
	}

	diagCfg := diagnoser.DefaultConfig()
	diagCfg.StreamName = cfg.NATS.Stream
	diagCfg.InputSubject = failure.Subject()
	diagCfg.OutputSubject = validation.Subject()
	diagCfg.Provider = cfg.Model.Provider
	diagCfg.Model = cfg.Model.Model
	if cfg.Model.Timeout > 0 {
		diagCfg.RouteTimeout = cfg.Model.Timeout
	}
	diag, err := diagnoser.New(diagCfg, diagnoser.Deps{Bus: b, Router: router, Logger: logger})
	if err != nil {
		return fmt.Errorf("create diagnoser: %w", err)
	}

	valCfg := validator.DefaultConfig()
	valCfg.StreamName = cfg.NATS.Stream
	valCfg.InputSubject = validation.Subject()
	valCfg.OutputSubject = remediation.Subject()
	valCfg.ApprovedKeywords = cfg.Policy.ApprovedKeywords
	valCfg.KeywordFile = cfg.Policy.KeywordFile
	val, err := validator.New(valCfg, validator.Deps{Bus: b, Logger: logger})
	if err != nil {
		return fmt.Errorf("create validator: %w", err)
	}

	remCfg := remediator.DefaultConfig()
	remCfg.StreamName = cfg.NATS.Stream
	remCfg.InputSubject = remediation.Subject()
	rem, err := remediator.New(remCfg, remediator.Deps{
		Bus:      b,
		Logger:   logger,
		OnResult: obs.ObserveExecution,
	})
	if err != nil {
		return fmt.Errorf("create remediator: %w", err)
	}

	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := obs.Start(); err != nil {
		return fmt.Errorf("start analytics observer: %w", err)
	}
	defer obs.Stop()

	if err := diag.Start(signalCtx); err != nil {
		return fmt.Errorf("start diagnoser: %w", err)
	}
	defer diag.Stop()

	if err := val.Start(signalCtx); err != nil {
		return fmt.Errorf("start validator: %w", err)
	}
	defer val.Stop()

	if err := rem.Start(signalCtx); err != nil {
		return fmt.Errorf("start remediator: %w", err)
	}
	defer rem.Stop()

	metricsServer := startMetricsServer(cfg.Metrics.Addr, logger)
	if metricsServer != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	slog.Info("Triagent ready",
		"version", Version,
		"stream", cfg.NATS.Stream,
		"provider", cfg.Model.Provider)

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")
	slog.Info("Triagent shutdown complete")
	return nil
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════╗")
	fmt.Println("║            Triagent v" + Version + "                    ║")
	fmt.Println("║      CI/CD Failure Triage Pipeline            ║")
	fmt.Println("╚═══════════════════════════════════════════════╝")
}

func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// secretStore picks the secret backend: a directory of secret files
// when SECRETS_DIR is set, the process environment otherwise.
func secretStore() secrets.Store {
	if dir := os.Getenv("SECRETS_DIR"); dir != "" {
		return secrets.NewDirStore(dir)
	}
	return secrets.NewEnvStore()
}

func connectBus(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*bus.Bus, error) {
	url := cfg.NATS.URL
	logger.Info("Connecting to NATS", "url", url)

	b, err := bus.Connect(ctx, url,
		bus.WithName(appName),
		bus.WithLogger(logger),
		bus.WithMaxReconnects(-1),
	)
	if err != nil {
		return nil, wrapNATSError(err, url)
	}

	logger.Info("Connected to NATS")
	return b, nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

To start NATS:
  docker compose up -d nats

Or set NATS_URL environment variable to point to your NATS server.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}

func newRouter(cfg *config.Config, logger *slog.Logger) *llm.Router {
	opts := []llm.RouterOption{llm.WithLogger(logger)}
	if cfg.Model.Timeout > 0 {
		opts = append(opts, llm.WithHTTPClient(&http.Client{Timeout: cfg.Model.Timeout}))
	}
	if cfg.Model.BaseURL != "" {
		opts = append(opts, llm.WithBaseURL(cfg.Model.Provider, cfg.Model.BaseURL))
	}
	return llm.NewRouter(opts...)
}

func startMetricsServer(addr string, logger *slog.Logger) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Info("Metrics endpoint listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("Metrics server stopped", "error", err)
		}
	}()
	return server
}

// injectCmd publishes a synthetic failure event to the failure topic
// so the whole pipeline can be exercised end to end.
func injectCmd() *cobra.Command {
	var (
		configPath  string
		repository  string
		buildID     string
		step        string
		errorText   string
		logText     string
		ciProvider  string
		buildStatus string
	)

	cmd := &cobra.Command{
		Use:   "inject",
		Short: "Publish a synthetic pipeline failure",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger("info")

			cfg, err := config.Load(configPath, logger)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			failure, err := cfg.FailureTopic()
			if err != nil {
				return fmt.Errorf("resolve failure topic: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			b, err := connectBus(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.EnsureStream(ctx, cfg.NATS.Stream, []string{failure.Subject()}); err != nil {
				return err
			}

			if buildID == "" {
				buildID = triage.NewID("build")
			}

			event := triage.FailureEvent{
				BuildStatus: buildStatus,
				Step:        step,
				Error:       errorText,
				Log:         logText,
				Repository:  repository,
				BuildID:     buildID,
				Provider:    ciProvider,
			}
			data, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("encode event: %w", err)
			}

			if err := b.Publish(ctx, failure.Subject(), data); err != nil {
				return err
			}

			fmt.Printf("Published failure event to %s\n", failure.Path())
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&repository, "repository", "example/repo", "Repository the failure came from")
	cmd.Flags().StringVar(&buildID, "build-id", "", "Build identifier (default: generated)")
	cmd.Flags().StringVar(&step, "step", "npm install", "Pipeline step that failed")
	cmd.Flags().StringVar(&errorText, "error", "npm ERR! ERESOLVE could not resolve dependency tree, try --legacy-peer-deps", "Error text")
	cmd.Flags().StringVar(&logText, "log", "", "Additional log text")
	cmd.Flags().StringVar(&ciProvider, "provider", "github-actions", "CI provider name")
	cmd.Flags().StringVar(&buildStatus, "build-status", "failed", "Build status")

	return cmd
}
