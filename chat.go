package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chatwidget/config"
	"chatwidget/logging"
	"chatwidget/server"
	"chatwidget/telemetry"
)

var (
	configPath string
	listenAddr string
	verbose    bool
	tlsAuto    bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd serves the widget when run without a subcommand
var rootCmd = &cobra.Command{
	Use:   "chatwidget",
	Short: "Chat widget for OpenAI-compatible completion APIs",
	Long: `chatwidget serves a single-page chat widget. Messages are relayed to a
chat-completion endpoint with the API key the user enters in the settings panel;
the key is validated on every change and never stored.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if listenAddr != "" {
			loaded.Server.Address = listenAddr
		}
		if verbose {
			loaded.Log.Debug = true
		}
		cfg = loaded

		logger, err = logging.New(cfg.Log.Debug)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat widget over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: "+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "addr", "", "Listen address (overrides server.address)")
	rootCmd.PersistentFlags().BoolVar(&tlsAuto, "tls-auto", false, "Look for TLS certificates in common locations when none are configured")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(auditCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.NewMetrics()
	p, err := newPipelines(cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer p.Close()

	endpoint := cfg.Endpoint()
	srv := server.NewServer(server.ServerConfig{
		Address:         cfg.Server.Address,
		Dispatcher:      p.dispatcher,
		Watcher:         p.watcher,
		Sessions:        server.NewSessionStore(cfg.SessionTTL(), metrics),
		Metrics:         metrics,
		Logger:          logger,
		Provider:        p.provider.GetInfo(),
		ProviderTimeout: endpoint.Timeout,
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
		AuditEnabled:    p.audit != nil,
		TrustProxy:      cfg.Server.TrustProxy,
	})

	certFile, keyFile := resolveTLS(cfg, tlsAuto)
	return srv.ListenAndServe(ctx, certFile, keyFile)
}
