package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeexpense/internal/core"
	"homeexpense/internal/storage/csvstore"
	"homeexpense/internal/storage/memory"
)

const key = "03001234567"

func newService(t *testing.T) *Service {
	t.Helper()
	n := 0
	return NewService(memory.New(), nil,
		WithClock(func() time.Time { return time.Date(2025, 3, 15, 18, 30, 0, 0, time.UTC) }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }))
}

func money(t *testing.T, s string) core.Money {
	t.Helper()
	m, err := core.ParseMoney(s)
	require.NoError(t, err)
	return m
}

func add(t *testing.T, s *Service, amount string, c core.Category) (core.Expense, error) {
	t.Helper()
	return s.AddExpense(context.Background(), key, core.Expense{
		Date:     core.NewDate(2025, 3, 1),
		Category: c,
		Amount:   money(t, amount),
	})
}

func TestSalary(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	got, err := s.CurrentSalary(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Cents, "no history means 0")

	require.NoError(t, s.SetSalary(ctx, key, money(t, "50000")))
	require.NoError(t, s.SetSalary(ctx, key, money(t, "62000.50")))

	got, err = s.CurrentSalary(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "62000.50", got.String())

	history, err := s.SalaryHistory(ctx, key)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, core.NewDate(2025, 3, 15), history[1].Date)

	err = s.SetSalary(ctx, key, core.Money{Cents: -1})
	assert.True(t, core.IsValidation(err))
}

func TestTotalsAndRemaining(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	_, err := add(t, s, "100", core.Food)
	require.NoError(t, err)
	_, err = add(t, s, "250.50", core.Rent)
	require.NoError(t, err)
	_, err = add(t, s, "0", core.Other)
	require.ErrorIs(t, err, core.ErrInvalidAmount)

	total, err := s.Total(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "350.50", total.String())

	rem, err := s.Remaining(ctx, key, money(t, "1000"))
	require.NoError(t, err)
	assert.Equal(t, "649.50", rem.String())

	rem, err = s.Remaining(ctx, key, money(t, "100"))
	require.NoError(t, err)
	assert.Equal(t, "-250.50", rem.String())
	assert.True(t, rem.IsNegative())

	require.NoError(t, s.SetSalary(ctx, key, money(t, "100")))
	snap, err := s.Snapshot(ctx, key)
	require.NoError(t, err)
	assert.True(t, snap.OverBudget())
	assert.Equal(t, "-250.50", snap.Remaining().String())
}

func TestAddExpenseAssignsIDs(t *testing.T) {
	s := newService(t)
	a, err := add(t, s, "1", core.Gas)
	require.NoError(t, err)
	b, err := add(t, s, "2", core.Gas)
	require.NoError(t, err)
	assert.Equal(t, "id-1", a.ID)
	assert.Equal(t, "id-2", b.ID)

	_, err = s.AddExpense(context.Background(), key, core.Expense{Date: core.NewDate(2025, 1, 1), Category: "Travel", Amount: core.Money{Cents: 1}})
	assert.ErrorIs(t, err, core.ErrInvalidCategory)
}

func TestDeleteExpenseAt(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	for _, amt := range []string{"1", "2", "3"} {
		_, err := add(t, s, amt, core.Food)
		require.NoError(t, err)
	}

	ok, err := s.DeleteExpenseAt(ctx, key, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	rows, err := s.Expenses(ctx, key)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1.00", rows[0].Amount.String())
	assert.Equal(t, "3.00", rows[1].Amount.String())

	ok, err = s.DeleteExpenseAt(ctx, key, 2)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.DeleteExpenseAt(ctx, key, -1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteByIDAndClear(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	a, err := add(t, s, "1", core.Food)
	require.NoError(t, err)
	_, err = add(t, s, "2", core.Food)
	require.NoError(t, err)

	ok, err := s.DeleteExpense(ctx, key, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.DeleteExpense(ctx, key, a.ID)
	require.NoError(t, err)
	assert.False(t, ok, "stale id deletes nothing")

	require.NoError(t, s.SetSalary(ctx, key, money(t, "10")))
	require.NoError(t, s.ClearAll(ctx, key))
	rows, err := s.Expenses(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, rows)

	salary, err := s.CurrentSalary(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "10.00", salary.String(), "clear keeps the salary history")
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	store, err := csvstore.New(t.TempDir())
	require.NoError(t, err)
	s := NewService(store, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AddExpense(ctx, key, core.Expense{Date: core.NewDate(2025, 1, 1), Category: core.Food, Amount: core.Money{Cents: 100}})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	total, err := s.Total(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "20.00", total.String())
	assert.Equal(t, 0, s.locks.size(), "lock table drained")
}
