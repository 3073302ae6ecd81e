// Package ledger is the per-account salary history and expense table.
// Every operation on one account runs under that account's lock, so a
// read-modify-write never interleaves with another within this process.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"homeexpense/internal/core"
	"homeexpense/internal/log"
	"homeexpense/internal/storage"
)

// Snapshot is a consistent read of one account's ledger.
type Snapshot struct {
	Salary   core.Money
	Expenses []core.Expense
}

func (s Snapshot) Total() core.Money {
	return core.Total(s.Expenses)
}

func (s Snapshot) Remaining() core.Money {
	return core.Remaining(s.Salary, s.Total())
}

func (s Snapshot) OverBudget() bool {
	return s.Remaining().IsNegative()
}

type Service struct {
	store  storage.LedgerStore
	locks  *keyedMutex
	now    func() time.Time
	newID  func() string
	logger *log.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func NewService(store storage.LedgerStore, logger *log.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	s := &Service{
		store:  store,
		locks:  newKeyedMutex(),
		now:    time.Now,
		newID:  uuid.NewString,
		logger: logger.WithComponent(log.ComponentLedger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the service clock's current date.
func (s *Service) Today() core.Date {
	return core.DateOf(s.now())
}

// CurrentSalary is the most recently appended salary, or 0.
func (s *Service) CurrentSalary(ctx context.Context, key string) (core.Money, error) {
	unlock := s.locks.Lock(key)
	defer unlock()
	return s.currentSalary(ctx, key)
}

func (s *Service) currentSalary(ctx context.Context, key string) (core.Money, error) {
	rec, ok, err := s.store.LatestSalary(ctx, key)
	if err != nil {
		return core.Money{}, fmt.Errorf("latest salary: %w", err)
	}
	if !ok {
		return core.Money{}, nil
	}
	return rec.Amount, nil
}

// SetSalary appends a salary record dated today. History is never replaced.
func (s *Service) SetSalary(ctx context.Context, key string, amount core.Money) error {
	rec := core.SalaryRecord{Amount: amount, Date: s.Today()}
	if err := rec.Validate(); err != nil {
		return err
	}

	unlock := s.locks.Lock(key)
	defer unlock()

	if err := s.store.AppendSalary(ctx, key, rec); err != nil {
		return fmt.Errorf("append salary: %w", err)
	}
	s.logger.InfoContext(ctx, "Salary updated",
		log.FieldOperation, log.OpSalary, log.FieldAccount, key, log.FieldAmount, amount.String())
	return nil
}

func (s *Service) SalaryHistory(ctx context.Context, key string) ([]core.SalaryRecord, error) {
	unlock := s.locks.Lock(key)
	defer unlock()
	return s.store.SalaryHistory(ctx, key)
}

// Expenses lists rows in insertion order.
func (s *Service) Expenses(ctx context.Context, key string) ([]core.Expense, error) {
	unlock := s.locks.Lock(key)
	defer unlock()
	return s.store.ListExpenses(ctx, key)
}

// AddExpense validates e, assigns it a fresh id and appends it.
func (s *Service) AddExpense(ctx context.Context, key string, e core.Expense) (core.Expense, error) {
	e.Note = strings.TrimSpace(e.Note)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.ID = s.newID()

	unlock := s.locks.Lock(key)
	defer unlock()

	if err := s.store.AppendExpense(ctx, key, e); err != nil {
		return core.Expense{}, fmt.Errorf("append expense: %w", err)
	}
	s.logger.InfoContext(ctx, "Expense added",
		log.NewFields().
			WithOperation(log.OpAdd).
			WithAccount(key).
			WithExpense(e.ID, string(e.Category), e.Amount.String()).
			ToSlice()...)
	return e, nil
}

// DeleteExpense removes the row with id and reports whether it existed.
func (s *Service) DeleteExpense(ctx context.Context, key, id string) (bool, error) {
	unlock := s.locks.Lock(key)
	defer unlock()

	ok, err := s.store.DeleteExpense(ctx, key, id)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	if ok {
		s.logger.InfoContext(ctx, "Expense deleted",
			log.FieldOperation, log.OpDelete, log.FieldAccount, key, log.FieldExpenseID, id)
	}
	return ok, nil
}

// DeleteExpenseAt removes the row at a position of the insertion ordered
// table. Out of range indexes delete nothing and return false.
func (s *Service) DeleteExpenseAt(ctx context.Context, key string, index int) (bool, error) {
	unlock := s.locks.Lock(key)
	defer unlock()

	rows, err := s.store.ListExpenses(ctx, key)
	if err != nil {
		return false, fmt.Errorf("list expenses: %w", err)
	}
	if index < 0 || index >= len(rows) {
		return false, nil
	}
	return s.store.DeleteExpense(ctx, key, rows[index].ID)
}

// ClearAll drops the whole expense table. Salary history is kept.
func (s *Service) ClearAll(ctx context.Context, key string) error {
	unlock := s.locks.Lock(key)
	defer unlock()

	if err := s.store.ClearExpenses(ctx, key); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	s.logger.InfoContext(ctx, "Expenses cleared", log.FieldOperation, log.OpClear, log.FieldAccount, key)
	return nil
}

// Total sums every expense of the account.
func (s *Service) Total(ctx context.Context, key string) (core.Money, error) {
	rows, err := s.Expenses(ctx, key)
	if err != nil {
		return core.Money{}, err
	}
	return core.Total(rows), nil
}

// Remaining is salary minus total; negative means over budget.
func (s *Service) Remaining(ctx context.Context, key string, salary core.Money) (core.Money, error) {
	total, err := s.Total(ctx, key)
	if err != nil {
		return core.Money{}, err
	}
	return core.Remaining(salary, total), nil
}

// Snapshot reads salary and expenses under one lock.
func (s *Service) Snapshot(ctx context.Context, key string) (Snapshot, error) {
	unlock := s.locks.Lock(key)
	defer unlock()

	salary, err := s.currentSalary(ctx, key)
	if err != nil {
		return Snapshot{}, err
	}
	rows, err := s.store.ListExpenses(ctx, key)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list expenses: %w", err)
	}
	return Snapshot{Salary: salary, Expenses: rows}, nil
}
