// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeexpense/internal/core"
	"homeexpense/internal/storage"
)

// Run exercises a fresh store returned by newStore for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("salary history", func(t *testing.T) { testSalary(t, newStore(t)) })
	t.Run("expenses", func(t *testing.T) { testExpenses(t, newStore(t)) })
	t.Run("accounts are partitioned", func(t *testing.T) { testPartition(t, newStore(t)) })
}

func testAccounts(t *testing.T, s storage.Store) {
	ctx := context.Background()
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.Local)

	first := core.Account{Mobile: "+92 300 1234567", PasswordHash: "h1", DisplayName: "Ayesha", CreatedAt: created}
	require.NoError(t, s.CreateAccount(ctx, first))

	err := s.CreateAccount(ctx, core.Account{Mobile: first.Mobile, PasswordHash: "h2", DisplayName: "Other"})
	require.ErrorIs(t, err, storage.ErrAccountExists)

	got, err := s.GetAccount(ctx, first.Mobile)
	require.NoError(t, err)
	assert.Equal(t, "h1", got.PasswordHash)
	assert.Equal(t, "Ayesha", got.DisplayName)
	assert.True(t, created.Equal(got.CreatedAt), "created_at round trip: %v", got.CreatedAt)

	// No normalization beyond the storage key: a differently formatted number is another account.
	_, err = s.GetAccount(ctx, "923001234567")
	require.ErrorIs(t, err, storage.ErrAccountNotFound)
	require.NoError(t, s.CreateAccount(ctx, core.Account{Mobile: "923001234567", PasswordHash: "h3", DisplayName: "Twin"}))

	require.NoError(t, s.Ping(ctx))
}

func testSalary(t *testing.T, s storage.Store) {
	ctx := context.Background()
	key := "03001234567"

	_, ok, err := s.LatestSalary(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.AppendSalary(ctx, key, core.SalaryRecord{Amount: core.Money{Cents: 5000000}, Date: core.NewDate(2025, 1, 1)}))
	require.NoError(t, s.AppendSalary(ctx, key, core.SalaryRecord{Amount: core.Money{Cents: 6000050}, Date: core.NewDate(2025, 2, 1)}))
	require.NoError(t, s.AppendSalary(ctx, key, core.SalaryRecord{Amount: core.Money{}, Date: core.NewDate(2025, 1, 15)}))

	latest, ok, err := s.LatestSalary(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(0), latest.Amount.Cents, "latest appended wins regardless of date")

	history, err := s.SalaryHistory(ctx, key)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, int64(6000050), history[1].Amount.Cents)
	assert.Equal(t, core.NewDate(2025, 2, 1), history[1].Date)
}

func newExpense(day int, c core.Category, cents int64, note string) core.Expense {
	return core.Expense{
		ID:       uuid.NewString(),
		Date:     core.NewDate(2025, 3, day),
		Category: c,
		Amount:   core.Money{Cents: cents},
		Note:     note,
	}
}

func testExpenses(t *testing.T, s storage.Store) {
	ctx := context.Background()
	key := "03001234567"

	rows, err := s.ListExpenses(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, rows)

	a := newExpense(3, core.Food, 10000, "groceries, weekly")
	b := newExpense(1, core.Rent, 25050, `say "hi"`)
	c := newExpense(2, core.Medical, 999, "")
	for _, e := range []core.Expense{a, b, c} {
		require.NoError(t, s.AppendExpense(ctx, key, e))
	}

	rows, err = s.ListExpenses(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []core.Expense{a, b, c}, rows, "insertion order and values survive")

	deleted, err := s.DeleteExpense(ctx, key, b.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteExpense(ctx, key, b.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	rows, err = s.ListExpenses(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []core.Expense{a, c}, rows)

	require.NoError(t, s.ClearExpenses(ctx, key))
	rows, err = s.ListExpenses(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, s.ClearExpenses(ctx, key), "clearing an empty ledger is fine")
}

func testPartition(t *testing.T, s storage.Store) {
	ctx := context.Background()

	require.NoError(t, s.AppendExpense(ctx, "111", newExpense(1, core.Gas, 100, "")))
	require.NoError(t, s.AppendExpense(ctx, "222", newExpense(1, core.Gas, 200, "")))
	require.NoError(t, s.AppendSalary(ctx, "111", core.SalaryRecord{Amount: core.Money{Cents: 1}, Date: core.NewDate(2025, 1, 1)}))

	require.NoError(t, s.ClearExpenses(ctx, "111"))

	rows, err := s.ListExpenses(ctx, "222")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, ok, err := s.LatestSalary(ctx, "222")
	require.NoError(t, err)
	assert.False(t, ok)
}
