package core

import "testing"

func TestParseMoney(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true},
		{"1.004", 100, true},
		{" 2.50 ", 250, true},
		{"250.5", 25050, true},
		{"0", 0, true},
		{"1e2", 10000, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1,234,5", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseMoney(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %d", tc.in, got.Cents)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:      "0.00",
		5:      "0.05",
		35050:  "350.50",
		-25050: "-250.50",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	salary := Money{Cents: 10000}
	total := Money{Cents: 10000}.Add(Money{Cents: 25050})
	if total.Cents != 35050 {
		t.Fatalf("Add = %d", total.Cents)
	}
	rem := salary.Sub(total)
	if rem.Cents != -25050 || !rem.IsNegative() {
		t.Fatalf("Sub = %d", rem.Cents)
	}
}
