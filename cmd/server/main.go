package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/SanjoDeundiak/broker-shell/pkg/lib/config"
	"github.com/SanjoDeundiak/broker-shell/pkg/lib/history"
	"github.com/SanjoDeundiak/broker-shell/pkg/lib/locator"
	"github.com/SanjoDeundiak/broker-shell/pkg/lib/logging"
	"github.com/SanjoDeundiak/broker-shell/pkg/lib/supervisor"
)

func main() {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	logger := logging.NewRuntime()
	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("Broker shell failed")
	}
}

func run(logger zerolog.Logger) error {
	cfg, err := config.Load(os.Getenv(config.EnvConfigPath), os.Getenv)
	if err != nil {
		return err
	}

	loc := locator.New(cfg.Component, cfg.Mode, locator.WithDevDir(cfg.BinaryDir))
	opts := []supervisor.Option{
		supervisor.WithLogger(logger.With().Str("component", cfg.Component).Logger()),
		supervisor.WithArgs(cfg.Args...),
		supervisor.WithStopTimeout(cfg.StopTimeout()),
		supervisor.WithOutputTail(cfg.OutputTailLines),
		supervisor.WithInstanceLock(cfg.LockPath),
		supervisor.WithCgroup(cfg.Cgroup),
	}
	if cfg.HistoryPath != "" {
		store, err := history.Open(cfg.HistoryPath, history.WithLogger(logger))
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, supervisor.WithRecorder(store))
	}
	sup := supervisor.New(loc, opts...)

	logger.Info().Str("mode", cfg.Mode.String()).Str("triple", locator.HostPlatform().Triple()).Msg("Launching broker")
	if err := sup.Start(); err != nil {
		return fmt.Errorf("start broker: %w", err)
	}

	srv, err := NewGRPCServer(cfg, NewBrokerHealthServer(sup, logger), logger)
	if err != nil {
		stopBroker(sup, logger)
		sup.Close()
		return fmt.Errorf("failed to initialize server: %w", err)
	}
	logger.Info().Stringer("addr", srv.Addr()).Bool("tls", srv.TLS()).Msg("Server listening")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()

	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutting down")
	case err = <-serveErr:
	}

	stopBroker(sup, logger)
	// Ends open Watch streams, GracefulStop would wait for them forever.
	sup.Close()
	srv.Stop()

	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

// stopBroker returns once the broker exited; Stop itself bounds the wait.
func stopBroker(sup *supervisor.Supervisor, logger zerolog.Logger) {
	st, err := sup.Stop(context.Background())
	if err != nil {
		logger.Error().Err(err).Msg("Broker did not stop cleanly")
		return
	}
	logger.Info().Str("state", st.State.String()).Msg("Broker stopped")
}
