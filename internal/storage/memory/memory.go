// Package memory is a process-local storage backend. Nothing survives a restart.
package memory

import (
	"context"
	"slices"
	"sync"

	"homeexpense/internal/core"
	"homeexpense/internal/storage"
)

type ledger struct {
	salaries []core.SalaryRecord
	expenses []core.Expense
}

type Store struct {
	mu       sync.Mutex
	accounts map[string]core.Account
	ledgers  map[string]*ledger
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts: make(map[string]core.Account),
		ledgers:  make(map[string]*ledger),
	}
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.Mobile]; ok {
		return storage.ErrAccountExists
	}
	s.accounts[a.Mobile] = a
	return nil
}

func (s *Store) GetAccount(_ context.Context, mobile string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[mobile]
	if !ok {
		return core.Account{}, storage.ErrAccountNotFound
	}
	return a, nil
}

func (s *Store) ledger(key string) *ledger {
	l, ok := s.ledgers[key]
	if !ok {
		l = &ledger{}
		s.ledgers[key] = l
	}
	return l
}

func (s *Store) LatestSalary(_ context.Context, key string) (core.SalaryRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.ledger(key)
	if len(l.salaries) == 0 {
		return core.SalaryRecord{}, false, nil
	}
	return l.salaries[len(l.salaries)-1], true, nil
}

func (s *Store) AppendSalary(_ context.Context, key string, rec core.SalaryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.ledger(key)
	l.salaries = append(l.salaries, rec)
	return nil
}

func (s *Store) SalaryHistory(_ context.Context, key string) ([]core.SalaryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ledger(key).salaries), nil
}

func (s *Store) ListExpenses(_ context.Context, key string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ledger(key).expenses), nil
}

func (s *Store) AppendExpense(_ context.Context, key string, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.ledger(key)
	l.expenses = append(l.expenses, e)
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, key, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.ledger(key)
	i := slices.IndexFunc(l.expenses, func(e core.Expense) bool { return e.ID == id })
	if i < 0 {
		return false, nil
	}
	l.expenses = slices.Delete(l.expenses, i, i+1)
	return true, nil
}

func (s *Store) ClearExpenses(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger(key).expenses = nil
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
