// Command tradewire connects to the trading platform, prints an account
// snapshot, and keeps the session alive until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/coachpo/tradewire"
	"github.com/coachpo/tradewire/config"
	"github.com/coachpo/tradewire/internal/observability"
	"github.com/coachpo/tradewire/internal/telemetry"
	"github.com/coachpo/tradewire/supervisor"
)

const telemetryShutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(os.Stderr, "tradewire ", log.LstdFlags)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	observability.SetLogger(observability.StdLogger{})

	provider, shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		logger.Fatalf("init telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer stop()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Printf("telemetry shutdown: %v", err)
		}
	}()

	metrics, err := telemetry.NewMetrics(provider)
	if err != nil {
		logger.Fatalf("init metrics: %v", err)
	}

	build := func(ctx context.Context) (supervisor.Session, error) {
		client, err := tradewire.New(cfg, tradewire.WithMetrics(metrics))
		if err != nil {
			return nil, err
		}
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}

	onSession := func(sess supervisor.Session) {
		client, ok := sess.(*tradewire.Client)
		if !ok {
			return
		}
		if err := client.SelectAccount(ctx, cfg.DefaultAccount); err != nil {
			logger.Printf("select account: %v", err)
			return
		}
		printSnapshot(ctx, logger, client)
	}

	sup := supervisor.New(build,
		supervisor.WithMaxInterval(time.Minute),
		supervisor.WithSessionHook(onSession))

	var wg conc.WaitGroup
	wg.Go(func() {
		if err := sup.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("supervisor stopped: %v", err)
		}
	})
	wg.Wait()
	logger.Println("shutdown complete")
}

func loadConfig(path string) (config.Settings, error) {
	if path != "" {
		return config.FromYAMLFile(path)
	}
	cfg := config.FromEnv()
	return cfg, cfg.Validate()
}

func printSnapshot(ctx context.Context, logger *log.Logger, client *tradewire.Client) {
	balances, err := client.Balances(ctx)
	if err != nil {
		logger.Printf("fetch balances: %v", err)
		return
	}
	for _, b := range balances {
		logger.Printf("balance id=%d type=%d %s %s", b.ID, b.Type, b.Amount, b.Currency)
	}
}
