package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Food        Category = "Food"
	Rent        Category = "Rent"
	Electricity Category = "Electricity"
	Gas         Category = "Gas"
	Education   Category = "Education"
	Medical     Category = "Medical"
	Other       Category = "Other"
)

// Input limits enforced at the form boundary.
const (
	MinMobileLength   = 10
	MaxMobileLength   = 15
	MinPasswordLength = 6
	MaxNoteLength     = 100
)

// Layouts used by every persisted table.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

// Categories lists the expense categories in display order.
var Categories = []Category{Food, Rent, Electricity, Gas, Education, Medical, Other}

type (
	Category string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Account is a registered mobile number. It is never updated after signup.
	Account struct {
		Mobile       string
		PasswordHash string
		DisplayName  string
		CreatedAt    time.Time
	}

	// SalaryRecord is one entry of the append-only salary history.
	SalaryRecord struct {
		Amount Money
		Date   Date
	}

	Expense struct {
		ID       string
		Date     Date
		Category Category
		Amount   Money
		Note     string
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrNoteTooLong     = errors.New("note too long")
	ErrRequired        = errors.New("required field missing")
	ErrMobileTooShort  = errors.New("mobile number too short")
	ErrMobileInvalid   = errors.New("invalid mobile number")
	ErrPasswordShort   = errors.New("password too short")
	ErrPasswordMatch   = errors.New("passwords do not match")
)

// ValidationError carries the offending form field and a message fit for display.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Invalid builds a ValidationError.
func Invalid(field string, err error, message string) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// AccountKey derives the storage key for a mobile number: all '+' and ' ' removed.
// No other normalization happens, so differently formatted numbers stay distinct accounts.
func AccountKey(mobile string) string {
	return strings.NewReplacer("+", "", " ", "").Replace(mobile)
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

func (c Category) String() string {
	return string(c)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD date. A trailing time component, as written by
// spreadsheet tools, is ignored.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// DaysBetween returns the number of calendar days from a to b, inclusive of both ends.
func DaysBetween(a, b Date) int {
	if b.Before(a.Time) {
		a, b = b, a
	}
	return int(b.Sub(a.Time).Hours()/24) + 1
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return Invalid("date", err, "Please choose a valid date")
	}
	if !e.Category.Valid() {
		return Invalid("category", ErrInvalidCategory, "Please choose a category")
	}
	if e.Amount.Cents <= 0 {
		return Invalid("amount", ErrInvalidAmount, "Amount must be greater than 0")
	}
	if utf8.RuneCountInString(e.Note) > MaxNoteLength {
		return Invalid("note", ErrNoteTooLong, fmt.Sprintf("Note must be at most %d characters", MaxNoteLength))
	}
	return nil
}

func (s SalaryRecord) Validate() error {
	if s.Amount.Cents < 0 {
		return Invalid("salary", ErrInvalidAmount, "Salary cannot be negative")
	}
	return s.Date.Validate()
}
