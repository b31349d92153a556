// Package model defines the betting state record shared across the dashboard.
// All monetary values use shopspring/decimal, never float64.
package model

import (
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits kept on every decimal field.
const MoneyScale int32 = 8

// Wins holds the auto-roll counters.
type Wins struct {
	BTC     decimal.Decimal `json:"btc"`
	RP      int64           `json:"rp"`      // reserved
	Tickets int64           `json:"tickets"` // reserved
}

// Spent is reserved for extension; nothing mutates it yet.
type Spent struct {
	RP       int64 `json:"rp"`
	Captchas int64 `json:"captchas"`
}

// Multiply holds the running totals of the multiply loop.
type Multiply struct {
	Balance  decimal.Decimal `json:"balance"` // may go negative
	Bets     int64           `json:"bets"`
	Sessions int64           `json:"sessions"` // reserved
}

// BettingState is the single persisted aggregate.
//
// Invariants: Multiply.Bets == len(TotalHistory), and SessionHistory holds
// one entry per successful auto-roll tick since the last reset.
type BettingState struct {
	Wins           Wins              `json:"wins"`
	Spent          Spent             `json:"spent"`
	Multiply       Multiply          `json:"multiply"`
	SessionHistory []decimal.Decimal `json:"sessionHistory"`
	TotalHistory   []decimal.Decimal `json:"totalHistory"`
}

// Default returns the zero-value record with empty, non-nil histories.
func Default() BettingState {
	return BettingState{
		Wins:           Wins{BTC: decimal.Zero},
		Multiply:       Multiply{Balance: decimal.Zero},
		SessionHistory: []decimal.Decimal{},
		TotalHistory:   []decimal.Decimal{},
	}
}

// Limits on decimals taken from outside the process. Arithmetic on a value
// like 1e400000000 expands it to hundreds of millions of digits, so such
// input must be rejected before it is rounded, compared or converted.
const (
	MaxExponent = 30
	maxCoefBits = 133 // 40 decimal digits
)

// InRange reports whether v is small enough to do arithmetic on.
func InRange(v decimal.Decimal) bool {
	e := v.Exponent()
	if e < -MaxExponent || e > MaxExponent {
		return false
	}
	return v.Coefficient().BitLen() <= maxCoefBits
}

// InRange reports whether every decimal in s is small enough to do
// arithmetic on.
func (s BettingState) InRange() bool {
	if !InRange(s.Wins.BTC) || !InRange(s.Multiply.Balance) {
		return false
	}
	for _, v := range s.SessionHistory {
		if !InRange(v) {
			return false
		}
	}
	for _, v := range s.TotalHistory {
		if !InRange(v) {
			return false
		}
	}
	return true
}

// Consistent reports whether the multiply bet count matches its history.
func (s BettingState) Consistent() bool {
	return s.Multiply.Bets == int64(len(s.TotalHistory))
}

// Round quantizes a value to MoneyScale fractional digits.
func Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(MoneyScale)
}

// Clone returns a deep copy so callers can't alias the history slices.
func (s BettingState) Clone() BettingState {
	out := s
	out.SessionHistory = append(make([]decimal.Decimal, 0, len(s.SessionHistory)), s.SessionHistory...)
	out.TotalHistory = append(make([]decimal.Decimal, 0, len(s.TotalHistory)), s.TotalHistory...)
	return out
}

// Equal compares two records, treating decimals by value (0.1 == 0.10).
func (s BettingState) Equal(o BettingState) bool {
	if !s.Wins.BTC.Equal(o.Wins.BTC) || s.Wins.RP != o.Wins.RP || s.Wins.Tickets != o.Wins.Tickets {
		return false
	}
	if s.Spent != o.Spent {
		return false
	}
	if !s.Multiply.Balance.Equal(o.Multiply.Balance) ||
		s.Multiply.Bets != o.Multiply.Bets ||
		s.Multiply.Sessions != o.Multiply.Sessions {
		return false
	}
	return equalSeries(s.SessionHistory, o.SessionHistory) &&
		equalSeries(s.TotalHistory, o.TotalHistory)
}

// IsDefault reports whether s carries no recorded activity.
func (s BettingState) IsDefault() bool {
	return s.Equal(Default())
}

func equalSeries(a, b []decimal.Decimal) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
