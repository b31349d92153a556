package engine

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atmx/betting-dashboard/internal/model"
)

var (
	// DefaultBaseBet is used when the base bet input is missing or invalid.
	DefaultBaseBet = decimal.New(1, -8)

	// DefaultOdds is used when the odds input is missing, invalid or below 1.
	DefaultOdds = decimal.NewFromInt(2)
)

// Params are the multiply inputs, fixed for the length of one run.
type Params struct {
	BaseBet decimal.Decimal `json:"base_bet"`
	Odds    decimal.Decimal `json:"odds"`
}

// DefaultParams returns the inputs the page starts with.
func DefaultParams() Params {
	return Params{BaseBet: DefaultBaseBet, Odds: DefaultOdds}
}

// ParseParams reads the raw base bet and odds inputs. Parse failures and
// out-of-range values are replaced with the defaults, never reported.
func ParseParams(baseBet, odds string) Params {
	p := DefaultParams()

	if v, err := decimal.NewFromString(strings.TrimSpace(baseBet)); err == nil {
		p.BaseBet = v
	}
	if v, err := decimal.NewFromString(strings.TrimSpace(odds)); err == nil {
		p.Odds = v
	}
	return p.normalized()
}

// normalized replaces oversized or non-positive bets and oversized odds or
// odds below 1 with the defaults.
func (p Params) normalized() Params {
	out := DefaultParams()
	// Oversized values never reach Round or Cmp.
	if model.InRange(p.BaseBet) {
		if r := model.Round(p.BaseBet); r.IsPositive() {
			out.BaseBet = r
		}
	}
	if model.InRange(p.Odds) && p.Odds.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		out.Odds = p.Odds
	}
	return out
}

// WinProbability is 1/odds.
func (p Params) WinProbability() float64 {
	return 1 / p.Odds.InexactFloat64()
}
