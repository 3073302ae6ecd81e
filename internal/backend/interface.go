package backend

import (
	"context"

	"homeexpense/internal/otp"
	"homeexpense/internal/storage"
)

type BackendType string

const (
	CSVBackend    BackendType = "csv"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (t BackendType) String() string {
	return string(t)
}

func (t BackendType) IsValid() bool {
	switch t {
	case CSVBackend, SQLiteBackend, MemoryBackend:
		return true
	}
	return false
}

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result is a ready storage backend and its cleanup.
type Result struct {
	Store   storage.Store
	Cleanup CleanupFunc
}

// SenderResult is the configured code delivery channel and its cleanup.
type SenderResult struct {
	Sender  otp.Sender
	Cleanup CleanupFunc
	Queued  bool
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
	CreateCodeSender(ctx context.Context, config Config) (*SenderResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	DataDirectory string
	SQLiteDBPath  string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// OTPDemoMode allows falling back to on-screen codes when the broker is down.
	OTPDemoMode bool
}
