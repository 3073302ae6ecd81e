package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"homeexpense/internal/core"
	"homeexpense/internal/storage"
	"homeexpense/internal/storage/storagetest"
)

func newSQLite(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return newSQLite(t) })
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	repo, err := storage.NewSQLiteRepository(path, nil)
	require.NoError(t, err)
	require.NoError(t, repo.AppendSalary(context.Background(), "k", core.SalaryRecord{Amount: core.Money{Cents: 10}, Date: core.NewDate(2025, 1, 1)}))
	require.NoError(t, repo.Close())

	require.NoError(t, storage.RunMigrations(path))

	repo, err = storage.NewSQLiteRepository(path, nil)
	require.NoError(t, err)
	defer repo.Close()

	rec, ok, err := repo.LatestSalary(context.Background(), "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(10), rec.Amount.Cents)
}
