package storage

import (
	"context"
	"errors"

	"homeexpense/internal/core"
)

var (
	ErrAccountExists   = errors.New("account already exists")
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidKey      = errors.New("invalid account key")
)

// Ports implemented by every storage backend. Ledger methods take the
// sanitized account key (core.AccountKey), never the raw mobile number.
type (
	AccountStore interface {
		// CreateAccount fails with ErrAccountExists when the exact mobile string is present.
		CreateAccount(ctx context.Context, a core.Account) error
		// GetAccount fails with ErrAccountNotFound.
		GetAccount(ctx context.Context, mobile string) (core.Account, error)
	}

	SalaryStore interface {
		// LatestSalary returns the most recently appended record; ok is false when there is none.
		LatestSalary(ctx context.Context, key string) (rec core.SalaryRecord, ok bool, err error)
		AppendSalary(ctx context.Context, key string, rec core.SalaryRecord) error
		SalaryHistory(ctx context.Context, key string) ([]core.SalaryRecord, error)
	}

	ExpenseStore interface {
		// ListExpenses returns rows in insertion order.
		ListExpenses(ctx context.Context, key string) ([]core.Expense, error)
		AppendExpense(ctx context.Context, key string, e core.Expense) error
		// DeleteExpense removes the row with the given id and reports whether it existed.
		DeleteExpense(ctx context.Context, key, id string) (bool, error)
		// ClearExpenses removes the whole expense table of the account.
		ClearExpenses(ctx context.Context, key string) error
	}

	LedgerStore interface {
		SalaryStore
		ExpenseStore
	}

	// Store is a complete backend.
	Store interface {
		AccountStore
		LedgerStore
		Ping(ctx context.Context) error
		Close() error
	}
)
