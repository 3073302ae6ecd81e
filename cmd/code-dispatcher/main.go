package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"homeexpense/internal/amqp"
	"homeexpense/internal/cli"
	"homeexpense/internal/log"
	"homeexpense/internal/worker"
)

func main() {
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cli.LoadEnvFile(logger)

	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	if !cfg.HasAMQP() {
		logger.Error("AMQP_URL is required for the code dispatcher",
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	logger.Info("Starting code-dispatcher", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}

	dispatcher := worker.NewCodeDispatcher(worker.LogGateway{Logger: logger.WithComponent(log.ComponentDispatch)}, logger)

	ctx, stop := cli.SignalContext()
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeCodeDeliveries(gctx, dispatcher.Handle)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sent, dropped := dispatcher.Stats()
				logger.Debug("Dispatcher stats", "sent", sent, "dropped", dropped)
			case <-gctx.Done():
				return nil
			}
		}
	})

	err = g.Wait()
	_ = cli.Shutdown(logger, 10*time.Second, cli.Closer{Name: "amqp", Fn: func(context.Context) error { return client.Close() }})
	if err != nil {
		logger.Error("Code dispatcher stopped with error", log.FieldError, err.Error())
		os.Exit(1)
	}

	sent, dropped := dispatcher.Stats()
	logger.Info("Code dispatcher stopped", "sent", sent, "dropped", dropped)
}
