package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"homeexpense/internal/log"
)

func TestShutdownRunsAllClosersInOrder(t *testing.T) {
	var order []string
	boom := errors.New("boom")

	err := Shutdown(log.Nop(), time.Second,
		Closer{Name: "http", Fn: func(context.Context) error { order = append(order, "http"); return nil }},
		Closer{Name: "skipped"},
		Closer{Name: "amqp", Fn: func(context.Context) error { order = append(order, "amqp"); return boom }},
		Closer{Name: "store", Fn: func(context.Context) error { order = append(order, "store"); return nil }},
	)

	if !errors.Is(err, boom) {
		t.Fatalf("Shutdown() error = %v, want boom", err)
	}
	if len(order) != 3 || order[0] != "http" || order[1] != "amqp" || order[2] != "store" {
		t.Fatalf("order = %v", order)
	}
}

func TestSetupLoggerParsesLevel(t *testing.T) {
	logger := SetupLogger("debug")
	if !logger.Enabled(context.Background(), -4) {
		t.Fatal("debug level should be enabled")
	}
}
