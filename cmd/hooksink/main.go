package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hooksink/hooksink/internal/config"
	"github.com/hooksink/hooksink/internal/log"
	"github.com/hooksink/hooksink/internal/metrics"
	"github.com/hooksink/hooksink/internal/store"
	"github.com/hooksink/hooksink/internal/tui/watch"
	"github.com/hooksink/hooksink/internal/webhook"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "start":
		os.Exit(runStart(args))
	case "watch":
		os.Exit(runWatch(args))
	case "version":
		fmt.Printf("hooksink version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`hooksink - Signed webhook receiver with an ephemeral event log

Usage:
  hooksink <command> [flags]

Commands:
  start     Run the receiver service in foreground
  watch     Live terminal view of received deliveries
  version   Show version information
  help      Show this help message

Start flags:
  --config <path>   YAML configuration file (environment used otherwise)

Watch flags:
  --url <url>       Receiver base URL (default http://127.0.0.1:8080)
  --token <token>   Read-endpoint token (default $HOOKSINK_EVENTS_TOKEN)
`)
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to YAML configuration file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	log.Setup(cfg.LogLevel, cfg.LogFormat)
	logger := log.WithComponent("hooksink")

	if *configPath != "" {
		if fp, err := config.Fingerprint(*configPath); err == nil {
			logger.Info("configuration loaded", "path", *configPath, "blake3", fp)
		}
	}

	metrics.Register()

	st := store.New(cfg.StoreCapacity)
	srv := webhook.New(webhook.Config{
		Listen:      cfg.Listen,
		Path:        cfg.WebhookPath,
		Secret:      cfg.Secret,
		EventsToken: cfg.EventsToken,
		MaxBodySize: cfg.MaxBodySize,
	}, st, log.WithComponent("webhook"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("receiver exited", "error", err)
		return 1
	}
	return 0
}

// loadConfig prefers the config file when given, otherwise the environment.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.FromEnv()
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	apiURL := fs.String("url", "http://127.0.0.1:8080", "Receiver base URL")
	token := fs.String("token", os.Getenv("HOOKSINK_EVENTS_TOKEN"), "Read-endpoint token")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	p := tea.NewProgram(watch.New(*apiURL, *token))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		return 1
	}
	return 0
}
