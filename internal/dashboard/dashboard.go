// Package dashboard builds the read model of the expense dashboard from a
// ledger snapshot and produces the CSV export.
package dashboard

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"homeexpense/internal/core"
	"homeexpense/internal/ledger"
	"homeexpense/internal/session"
)

// View is everything the dashboard page renders. It is recomputed from the
// store on every request.
type View struct {
	Owner      session.Identity
	Salary     core.Money
	Total      core.Money
	Remaining  core.Money
	OverBudget bool
	Rows       []core.Expense
	Breakdown  []core.CategoryShare
	Insights   core.Insights
	Today      core.Date
}

func (v View) Empty() bool {
	return len(v.Rows) == 0
}

type Service struct {
	ledger *ledger.Service
	now    func() time.Time
}

func NewService(l *ledger.Service, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{ledger: l, now: now}
}

// Build derives a View from a snapshot.
func Build(owner session.Identity, snap ledger.Snapshot, today core.Date) View {
	total := snap.Total()
	remaining := core.Remaining(snap.Salary, total)
	return View{
		Owner:      owner,
		Salary:     snap.Salary,
		Total:      total,
		Remaining:  remaining,
		OverBudget: remaining.IsNegative(),
		Rows:       core.SortByDateDesc(snap.Expenses),
		Breakdown:  core.Breakdown(snap.Expenses),
		Insights:   core.ComputeInsights(snap.Expenses),
		Today:      today,
	}
}

func (s *Service) Load(ctx context.Context, owner session.Identity) (View, error) {
	snap, err := s.ledger.Snapshot(ctx, owner.Key())
	if err != nil {
		return View{}, err
	}
	return Build(owner, snap, core.DateOf(s.now())), nil
}

// ExportFilename names the download after the current date.
func ExportFilename(t time.Time) string {
	return fmt.Sprintf("expenses_%s.csv", t.Format("20060102"))
}

var exportHeader = []string{"date", "category", "amount", "note"}

// WriteCSV writes rows, newest first, in the expense table's column layout.
func WriteCSV(w io.Writer, rows []core.Expense) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, e := range core.SortByDateDesc(rows) {
		if err := cw.Write([]string{e.Date.String(), string(e.Category), e.Amount.String(), e.Note}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export writes the owner's expenses to w and returns the download filename.
func (s *Service) Export(ctx context.Context, owner session.Identity, w io.Writer) (string, error) {
	rows, err := s.ledger.Expenses(ctx, owner.Key())
	if err != nil {
		return "", err
	}
	if err := WriteCSV(w, rows); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return ExportFilename(s.now()), nil
}
