package backend

import (
	"context"
	"fmt"

	"homeexpense/internal/amqp"
	"homeexpense/internal/log"
	"homeexpense/internal/otp"
	"homeexpense/internal/storage"
	"homeexpense/internal/storage/csvstore"
	"homeexpense/internal/storage/memory"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Nop()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case CSVBackend:
		return f.createCSVBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createCSVBackend(ctx context.Context, config Config) (*Result, error) {
	store, err := csvstore.New(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize csv store: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized csv backend", "data_directory", config.DataDirectory)
	return &Result{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context) (*Result, error) {
	store := memory.New()
	f.logger.WarnContext(ctx, "Initialized memory backend, data is lost on restart")
	return &Result{Store: store, Cleanup: store.Close}, nil
}

// CreateCodeSender publishes codes to RabbitMQ when an AMQP URL is set and
// uses the demo sender otherwise. An unreachable broker falls back to the demo
// sender only in demo mode, where the code is shown on screen anyway.
func (f *DefaultFactory) CreateCodeSender(ctx context.Context, config Config) (*SenderResult, error) {
	demo := &SenderResult{Sender: otp.DemoSender{Logger: f.logger}}
	if config.AMQPURL == "" {
		return demo, nil
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		if !config.OTPDemoMode {
			return nil, fmt.Errorf("failed to initialize AMQP code delivery: %w", err)
		}
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, codes are only shown on screen", log.FieldError, err.Error())
		return demo, nil
	}

	f.logger.InfoContext(ctx, "Initialized AMQP code delivery",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return &SenderResult{Sender: amqp.CodeSender{Client: client}, Cleanup: client.Close, Queued: true}, nil
}
