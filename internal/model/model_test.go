package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDefault_EmptyHistories(t *testing.T) {
	s := Default()
	if s.SessionHistory == nil || s.TotalHistory == nil {
		t.Fatal("default histories should be non-nil")
	}
	if len(s.SessionHistory) != 0 || len(s.TotalHistory) != 0 {
		t.Errorf("default histories should be empty, got %d/%d",
			len(s.SessionHistory), len(s.TotalHistory))
	}
	if !s.IsDefault() {
		t.Error("Default() should report IsDefault")
	}
}

func TestClone_DoesNotAlias(t *testing.T) {
	s := Default()
	s.SessionHistory = append(s.SessionHistory, d("0.00000001"))

	c := s.Clone()
	c.SessionHistory[0] = d("5")

	if !s.SessionHistory[0].Equal(d("0.00000001")) {
		t.Errorf("clone mutated original: %s", s.SessionHistory[0])
	}
}

func TestEqual_DecimalByValue(t *testing.T) {
	a := Default()
	a.Multiply.Balance = d("0.1")
	b := Default()
	b.Multiply.Balance = d("0.10000000")

	if !a.Equal(b) {
		t.Error("0.1 and 0.10000000 should compare equal")
	}

	b.TotalHistory = []decimal.Decimal{d("1")}
	if a.Equal(b) {
		t.Error("different histories should not compare equal")
	}
}

func TestRound_EightPlaces(t *testing.T) {
	got := Round(d("0.123456789"))
	if !got.Equal(d("0.12345679")) {
		t.Errorf("expected 0.12345679, got %s", got)
	}
}

func TestInRange(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0", true},
		{"0.00000001", true},
		{"-123456.78901234", true},
		{"1e30", true},
		{"1e-30", true},
		{"1e31", false},
		{"1e-31", false},
		{"1e400000000", false},
		{"-1e400000000", false},
		{"1e-400000000", false},
		{"1234567890123456789012345678901234567890", true},
		{"12345678901234567890123456789012345678901234567890", false},
	}
	for _, tt := range tests {
		if got := InRange(d(tt.in)); got != tt.want {
			t.Errorf("InRange(%s) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestState_InRangeChecksHistories(t *testing.T) {
	s := Default()
	if !s.InRange() {
		t.Fatal("default state should be in range")
	}
	s.TotalHistory = []decimal.Decimal{d("1"), d("1e400000000")}
	if s.InRange() {
		t.Error("oversized history entry not detected")
	}
}

func TestState_Consistent(t *testing.T) {
	s := Default()
	s.Multiply.Bets = 2
	s.TotalHistory = []decimal.Decimal{d("1")}
	if s.Consistent() {
		t.Error("bets 2 with one history entry should be inconsistent")
	}
	s.TotalHistory = append(s.TotalHistory, d("2"))
	if !s.Consistent() {
		t.Error("bets 2 with two history entries should be consistent")
	}
}
