package memory

import (
	"testing"

	"homeexpense/internal/storage"
	"homeexpense/internal/storage/storagetest"
)

func TestMemoryStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New() })
}
