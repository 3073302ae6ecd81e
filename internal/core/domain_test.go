package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestAccountKey(t *testing.T) {
	cases := map[string]string{
		"+92 300 1234567": "923001234567",
		"03001234567":     "03001234567",
		"+1-555 0100":     "1-5550100",
		"":                "",
	}
	for in, want := range cases {
		if got := AccountKey(in); got != want {
			t.Fatalf("AccountKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, err := ParseCategory(strings.ToLower(string(c)))
		if err != nil || got != c {
			t.Fatalf("ParseCategory(%q) = %q, %v", c, got, err)
		}
	}
	if _, err := ParseCategory("Travel"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-09")
	if err != nil || d != NewDate(2025, 3, 9) {
		t.Fatalf("ParseDate = %v, %v", d, err)
	}
	d, err = ParseDate("2025-03-09 00:00:00")
	if err != nil || d.String() != "2025-03-09" {
		t.Fatalf("ParseDate with time = %v, %v", d, err)
	}
	if _, err := ParseDate("09/03/2025"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDaysBetween(t *testing.T) {
	if got := DaysBetween(NewDate(2025, 1, 1), NewDate(2025, 1, 1)); got != 1 {
		t.Fatalf("same day = %d, want 1", got)
	}
	if got := DaysBetween(NewDate(2025, 1, 10), NewDate(2025, 1, 1)); got != 10 {
		t.Fatalf("reversed span = %d, want 10", got)
	}
	if got := DaysBetween(NewDate(2024, 2, 28), NewDate(2024, 3, 1)); got != 3 {
		t.Fatalf("leap span = %d, want 3", got)
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Date:     NewDate(2025, 1, 1),
		Category: Food,
		Amount:   Money{Cents: 100},
		Note:     "groceries",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		e     Expense
		field string
		err   error
	}{
		{Expense{Date: Date{Time: time.Time{}}, Category: Food, Amount: Money{Cents: 1}}, "date", ErrInvalidDate},
		{Expense{Date: NewDate(2025, 1, 1), Category: "Travel", Amount: Money{Cents: 1}}, "category", ErrInvalidCategory},
		{Expense{Date: NewDate(2025, 1, 1), Category: Food, Amount: Money{Cents: 0}}, "amount", ErrInvalidAmount},
		{Expense{Date: NewDate(2025, 1, 1), Category: Food, Amount: Money{Cents: -5}}, "amount", ErrInvalidAmount},
		{Expense{Date: NewDate(2025, 1, 1), Category: Food, Amount: Money{Cents: 1}, Note: strings.Repeat("x", 101)}, "note", ErrNoteTooLong},
	}
	for i, tc := range bads {
		err := tc.e.Validate()
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("case %d expected ValidationError, got %v", i, err)
		}
		if ve.Field != tc.field || !errors.Is(err, tc.err) {
			t.Fatalf("case %d got field %q err %v", i, ve.Field, err)
		}
	}

	exact := good
	exact.Note = strings.Repeat("é", MaxNoteLength)
	if err := exact.Validate(); err != nil {
		t.Fatalf("note of exactly %d runes should pass: %v", MaxNoteLength, err)
	}
}

func TestSalaryRecordValidate(t *testing.T) {
	if err := (SalaryRecord{Amount: Money{}, Date: NewDate(2025, 1, 1)}).Validate(); err != nil {
		t.Fatalf("zero salary should be accepted: %v", err)
	}
	if err := (SalaryRecord{Amount: Money{Cents: -1}, Date: NewDate(2025, 1, 1)}).Validate(); !IsValidation(err) {
		t.Fatalf("negative salary should be a validation error, got %v", err)
	}
}
