// Package csvstore keeps accounts and ledgers in flat CSV files under one directory:
//
//	users.csv                    mobile,password_hash,name,created_at
//	<key>_monthly_salary.csv     salary,date
//	<key>_expenses.csv           id,date,category,amount,note
//
// where <key> is core.AccountKey of the mobile number.
package csvstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"homeexpense/internal/core"
	"homeexpense/internal/storage"
)

const (
	usersFile     = "users.csv"
	salarySuffix  = "_monthly_salary.csv"
	expenseSuffix = "_expenses.csv"
)

var (
	usersHeader   = []string{"mobile", "password_hash", "name", "created_at"}
	salaryHeader  = []string{"salary", "date"}
	expenseHeader = []string{"id", "date", "category", "amount", "note"}

	usersAliases = map[string]string{"password": "password_hash"}
)

// Store serializes all file access through one mutex; each operation reads
// and rewrites whole files.
type Store struct {
	dir   string
	mu    sync.Mutex
	newID func() string
}

var _ storage.Store = (*Store)(nil)

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: dir, newID: uuid.NewString}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) usersPath() string { return filepath.Join(s.dir, usersFile) }
func (s *Store) salaryPath(key string) string { return filepath.Join(s.dir, key+salarySuffix) }
func (s *Store) expensePath(key string) string { return filepath.Join(s.dir, key+expenseSuffix) }

func (s *Store) readAccounts() (table, error) {
	t, err := readTable(s.usersPath(), usersAliases)
	if err != nil {
		return t, err
	}
	if len(t.rows) > 0 && (!t.has("mobile") || !t.has("password_hash")) {
		return t, fmt.Errorf("%s: missing mobile or password_hash column", usersFile)
	}
	return t, nil
}

func accountFromRow(t table, row []string) core.Account {
	a := core.Account{
		Mobile:       t.get(row, "mobile"),
		PasswordHash: t.get(row, "password_hash"),
		DisplayName:  t.get(row, "name"),
	}
	if ts, err := time.ParseInLocation(core.TimestampLayout, t.get(row, "created_at"), time.Local); err == nil {
		a.CreatedAt = ts
	}
	return a
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.readAccounts()
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(t.rows)+1)
	for _, row := range t.rows {
		existing := accountFromRow(t, row)
		if existing.Mobile == a.Mobile {
			return storage.ErrAccountExists
		}
		rows = append(rows, accountRecord(existing))
	}
	rows = append(rows, accountRecord(a))

	return writeTable(s.usersPath(), usersHeader, rows)
}

func accountRecord(a core.Account) []string {
	created := ""
	if !a.CreatedAt.IsZero() {
		created = a.CreatedAt.Format(core.TimestampLayout)
	}
	return []string{a.Mobile, a.PasswordHash, a.DisplayName, created}
}

func (s *Store) GetAccount(_ context.Context, mobile string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.readAccounts()
	if err != nil {
		return core.Account{}, err
	}
	for _, row := range t.rows {
		if t.get(row, "mobile") == mobile {
			return accountFromRow(t, row), nil
		}
	}
	return core.Account{}, storage.ErrAccountNotFound
}

// checkKey rejects keys that would name a file outside the data directory.
func checkKey(key string) error {
	if key == "" || key == "." || key == ".." || filepath.Base(key) != key || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %q", storage.ErrInvalidKey, key)
	}
	return nil
}

func (s *Store) readSalaries(key string) ([]core.SalaryRecord, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	t, err := readTable(s.salaryPath(key), nil)
	if err != nil {
		return nil, err
	}
	out := make([]core.SalaryRecord, 0, len(t.rows))
	for i, row := range t.rows {
		amount, err := core.ParseMoney(t.get(row, "salary"))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: salary: %w", key+salarySuffix, i+2, err)
		}
		rec := core.SalaryRecord{Amount: amount}
		if d := t.get(row, "date"); d != "" {
			if rec.Date, err = core.ParseDate(d); err != nil {
				return nil, fmt.Errorf("%s row %d: %w", key+salarySuffix, i+2, err)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) LatestSalary(_ context.Context, key string) (core.SalaryRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.readSalaries(key)
	if err != nil || len(history) == 0 {
		return core.SalaryRecord{}, false, err
	}
	return history[len(history)-1], true, nil
}

func (s *Store) SalaryHistory(_ context.Context, key string) ([]core.SalaryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readSalaries(key)
}

func (s *Store) AppendSalary(_ context.Context, key string, rec core.SalaryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.readSalaries(key)
	if err != nil {
		return err
	}
	history = append(history, rec)

	rows := make([][]string, 0, len(history))
	for _, r := range history {
		rows = append(rows, []string{r.Amount.String(), r.Date.String()})
	}
	return writeTable(s.salaryPath(key), salaryHeader, rows)
}

// readExpenses parses the expense table. Rows lacking an id get a fresh one;
// migrated reports whether that happened so the caller can persist the ids.
func (s *Store) readExpenses(key string) (rows []core.Expense, migrated bool, err error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	t, err := readTable(s.expensePath(key), nil)
	if err != nil {
		return nil, false, err
	}
	name := key + expenseSuffix
	rows = make([]core.Expense, 0, len(t.rows))
	for i, row := range t.rows {
		e := core.Expense{
			ID:   t.get(row, "id"),
			Note: t.get(row, "note"),
		}
		if e.ID == "" {
			e.ID = s.newID()
			migrated = true
		}
		if e.Date, err = core.ParseDate(t.get(row, "date")); err != nil {
			return nil, false, fmt.Errorf("%s row %d: %w", name, i+2, err)
		}
		if e.Amount, err = core.ParseMoney(t.get(row, "amount")); err != nil {
			return nil, false, fmt.Errorf("%s row %d: amount: %w", name, i+2, err)
		}
		raw := t.get(row, "category")
		if c, err := core.ParseCategory(raw); err == nil {
			e.Category = c
		} else {
			e.Category = core.Category(raw)
		}
		rows = append(rows, e)
	}
	return rows, migrated, nil
}

func (s *Store) writeExpenses(key string, rows []core.Expense) error {
	records := make([][]string, 0, len(rows))
	for _, e := range rows {
		records = append(records, []string{e.ID, e.Date.String(), string(e.Category), e.Amount.String(), e.Note})
	}
	return writeTable(s.expensePath(key), expenseHeader, records)
}

func (s *Store) ListExpenses(_ context.Context, key string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, migrated, err := s.readExpenses(key)
	if err != nil {
		return nil, err
	}
	if migrated {
		if err := s.writeExpenses(key, rows); err != nil {
			return nil, fmt.Errorf("persist expense ids: %w", err)
		}
	}
	return rows, nil
}

func (s *Store) AppendExpense(_ context.Context, key string, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, _, err := s.readExpenses(key)
	if err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = s.newID()
	}
	return s.writeExpenses(key, append(rows, e))
}

func (s *Store) DeleteExpense(_ context.Context, key, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, _, err := s.readExpenses(key)
	if err != nil {
		return false, err
	}
	kept := rows[:0]
	found := false
	for _, e := range rows {
		if e.ID == id && !found {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return false, nil
	}
	return true, s.writeExpenses(key, kept)
}

func (s *Store) ClearExpenses(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkKey(key); err != nil {
		return err
	}
	if err := os.Remove(s.expensePath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove expense table: %w", err)
	}
	return nil
}

// Ping checks that the data directory is still there and writable.
func (s *Store) Ping(context.Context) error {
	f, err := os.CreateTemp(s.dir, ".ping-*")
	if err != nil {
		return fmt.Errorf("data directory not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (s *Store) Close() error { return nil }
