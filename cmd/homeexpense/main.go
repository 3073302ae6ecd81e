package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"homeexpense/internal/auth"
	"homeexpense/internal/backend"
	"homeexpense/internal/cache"
	"homeexpense/internal/cli"
	"homeexpense/internal/config"
	"homeexpense/internal/dashboard"
	apphttp "homeexpense/internal/http"
	"homeexpense/internal/ledger"
	"homeexpense/internal/log"
	"homeexpense/internal/otp"
	"homeexpense/internal/session"
)

const shutdownTimeout = 30 * time.Second

func main() {
	bootstrap := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cli.LoadEnvFile(bootstrap)

	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg.LogLevel)

	if err := run(logger, cfg); err != nil {
		logger.Error("Server exited with error", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(logger *log.Logger, cfg *config.Config) error {
	port := cfg.Port
	ctx, stop := cli.SignalContext()
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}

	factory := backend.NewFactory(logger)
	store, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	sender, err := factory.CreateCodeSender(ctx, backendCfg)
	if err != nil {
		_ = store.Cleanup()
		return err
	}

	flow := auth.NewFlow(auth.FlowConfig{
		Accounts: auth.NewService(store.Store, logger),
		Issuer:   otp.NewIssuer(cfg.OTPTTL),
		Sender:   sender.Sender,
		DemoMode: cfg.OTPDemoMode,
		Logger:   logger,
	})
	led := ledger.NewService(store.Store, logger)
	sessions := session.NewManager(session.Config{
		Secure: cfg.CookieSecure,
		TTL:    cfg.SessionTTL,
	}, logger)

	srv, err := apphttp.NewServer(":"+port, apphttp.Deps{
		Flow:               flow,
		Ledger:             led,
		Dashboard:          dashboard.NewService(led, nil),
		Sessions:           sessions,
		Store:              store.Store,
		Logger:             logger,
		Currency:           cfg.Currency,
		RateLimitPerMinute: cfg.RateLimitRPM,
	})
	if err != nil {
		_ = store.Cleanup()
		return err
	}

	janitor := cache.NewJanitor(logger, sessions.Store())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting homeexpense server",
			"port", port,
			log.FieldBackend, string(backendCfg.Type),
			"code_queue", sender.Queued,
			"demo_mode", cfg.OTPDemoMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return janitor.Run(gctx, 10*time.Minute)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)
		return cli.Shutdown(logger, shutdownTimeout,
			cli.Closer{Name: "http", Fn: srv.Shutdown},
			cli.Closer{Name: "code sender", Fn: cleanupFn(sender.Cleanup)},
			cli.Closer{Name: "store", Fn: cleanupFn(store.Cleanup)},
		)
	})

	return g.Wait()
}

func cleanupFn(fn backend.CleanupFunc) func(context.Context) error {
	if fn == nil {
		return nil
	}
	return func(context.Context) error { return fn() }
}
