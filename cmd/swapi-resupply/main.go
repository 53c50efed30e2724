package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/swapi-resupply/internal/config"
	"github.com/Sternrassler/swapi-resupply/pkg/logging"
	"github.com/Sternrassler/swapi-resupply/pkg/metrics"
	"github.com/Sternrassler/swapi-resupply/pkg/resupply"
	"github.com/Sternrassler/swapi-resupply/pkg/session"
	"github.com/Sternrassler/swapi-resupply/pkg/swapi"
	"github.com/redis/go-redis/v9"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Getenv, os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run wires the application and returns the process exit code. An
// interrupt at any step exits 0.
func run(ctx context.Context, getenv func(string) string, stdin io.Reader, stdout, stderr io.Writer) int {
	err := execute(ctx, getenv, stdin, stdout, stderr)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		logger := logging.NewLogger("main")
		logger.Info().Msg("Interrupted")
		return 0
	}
	if err != nil {
		fmt.Fprintf(stdout, "Error: %s\n", err)
		return 1
	}
	return 0
}

func execute(ctx context.Context, getenv func(string) string, stdin io.Reader, stdout, stderr io.Writer) error {
	if err := config.LoadEnvFile(getenv("SWAPI_ENV_FILE")); err != nil {
		return err
	}

	cfg, err := config.Load(getenv)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	logCfg := cfg.Logging()
	logCfg.Output = stderr
	logging.Setup(logCfg)
	logger := logging.NewLogger("main")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Error().Err(err).Msg("Metrics endpoint stopped")
			}
		}()
	}

	rdb, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		logger.Info().Msg("Connected to Redis, page cache enabled")
	}

	client, err := swapi.New(cfg.Client(rdb))
	if err != nil {
		return fmt.Errorf("create SWAPI client: %w", err)
	}
	defer client.Close()

	ships, err := client.FetchAllStarships(ctx)
	if err != nil {
		return err
	}

	calc := resupply.NewCalculator()
	calc.SkipInvalid = cfg.SkipInvalid

	return session.New(ships, calc).Run(ctx, stdin, stdout)
}

func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := cfg.RedisOptions()
	if err != nil || opts == nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return rdb, nil
}
