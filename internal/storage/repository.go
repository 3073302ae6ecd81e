package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"homeexpense/internal/core"
	"homeexpense/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the embedded database backend.
type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if logger == nil {
		logger = log.Nop()
	}
	return &SQLiteRepository{db: db, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE mobile = ?`, a.Mobile).Scan(&exists)
	switch {
	case err == nil:
		return ErrAccountExists
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("lookup account: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (mobile, password_hash, display_name, created_at) VALUES (?, ?, ?, ?)`,
		a.Mobile, a.PasswordHash, a.DisplayName, a.CreatedAt.Format(core.TimestampLayout))
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.logger.InfoContext(ctx, "Account saved to SQLite", log.FieldAccount, core.AccountKey(a.Mobile))
	return nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, mobile string) (core.Account, error) {
	var (
		a       core.Account
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT mobile, password_hash, display_name, created_at FROM accounts WHERE mobile = ?`, mobile).
		Scan(&a.Mobile, &a.PasswordHash, &a.DisplayName, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	if ts, err := time.ParseInLocation(core.TimestampLayout, created, time.Local); err == nil {
		a.CreatedAt = ts
	}
	return a, nil
}

func (r *SQLiteRepository) LatestSalary(ctx context.Context, key string) (core.SalaryRecord, bool, error) {
	var (
		cents int64
		date  string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT amount_cents, effective_date FROM salaries WHERE account_key = ? ORDER BY seq DESC LIMIT 1`, key).
		Scan(&cents, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SalaryRecord{}, false, nil
	}
	if err != nil {
		return core.SalaryRecord{}, false, fmt.Errorf("get latest salary: %w", err)
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.SalaryRecord{}, false, err
	}
	return core.SalaryRecord{Amount: core.Money{Cents: cents}, Date: d}, true, nil
}

func (r *SQLiteRepository) AppendSalary(ctx context.Context, key string, rec core.SalaryRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO salaries (account_key, amount_cents, effective_date) VALUES (?, ?, ?)`,
		key, rec.Amount.Cents, rec.Date.String())
	if err != nil {
		return fmt.Errorf("insert salary: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SalaryHistory(ctx context.Context, key string) ([]core.SalaryRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT amount_cents, effective_date FROM salaries WHERE account_key = ? ORDER BY seq`, key)
	if err != nil {
		return nil, fmt.Errorf("list salaries: %w", err)
	}
	defer rows.Close()

	var out []core.SalaryRecord
	for rows.Next() {
		var (
			cents int64
			date  string
		)
		if err := rows.Scan(&cents, &date); err != nil {
			return nil, fmt.Errorf("scan salary: %w", err)
		}
		d, err := core.ParseDate(date)
		if err != nil {
			return nil, err
		}
		out = append(out, core.SalaryRecord{Amount: core.Money{Cents: cents}, Date: d})
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, key string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, expense_date, category, amount_cents, note FROM expenses WHERE account_key = ? ORDER BY seq`, key)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e        core.Expense
			date     string
			category string
		)
		if err := rows.Scan(&e.ID, &date, &category, &e.Amount.Cents, &e.Note); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, err
		}
		e.Category = core.Category(category)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AppendExpense(ctx context.Context, key string, e core.Expense) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, account_key, expense_date, category, amount_cents, note) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, key, e.Date.String(), string(e.Category), e.Amount.Cents, e.Note)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	r.logger.DebugContext(ctx, "Expense saved to SQLite",
		log.FieldAccount, key, log.FieldExpenseID, e.ID, log.FieldAmount, e.Amount.String())
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, key, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE account_key = ? AND id = ?`, key, id)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ClearExpenses(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE account_key = ?`, key); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	return nil
}
