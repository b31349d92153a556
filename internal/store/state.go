package store

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/atmx/betting-dashboard/internal/model"
)

// AutoRollUnit is credited to wins.btc on every successful auto-roll tick.
var AutoRollUnit = decimal.New(1, -8)

// StateStore owns the single BettingState for the process lifetime.
// Mutators never persist; callers write snapshots explicitly.
type StateStore struct {
	mu    sync.RWMutex
	state model.BettingState
}

// NewStateStore creates a store seeded with initial.
func NewStateStore(initial model.BettingState) *StateStore {
	return &StateStore{state: initial.Clone()}
}

// Get returns a deep-copied snapshot.
func (s *StateStore) Get() model.BettingState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Replace substitutes the whole record.
func (s *StateStore) Replace(next model.BettingState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next.Clone()
	if s.state.SessionHistory == nil {
		s.state.SessionHistory = []decimal.Decimal{}
	}
	if s.state.TotalHistory == nil {
		s.state.TotalHistory = []decimal.Decimal{}
	}
}

// ApplyAutoRollTick credits AutoRollUnit on a win and records the new total
// in the session history. Losses leave the record untouched and are not
// recorded. The bool reports whether anything changed.
func (s *StateStore) ApplyAutoRollTick(won bool) (model.BettingState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !won {
		return s.state.Clone(), false
	}
	s.state.Wins.BTC = model.Round(s.state.Wins.BTC.Add(AutoRollUnit))
	s.state.SessionHistory = append(s.state.SessionHistory, s.state.Wins.BTC)
	return s.state.Clone(), true
}

// ApplyMultiplyTick settles one multiply bet. A win adds bet*odds, a loss
// subtracts bet. Every tick, won or lost, increments the bet count and is
// recorded in the total history.
func (s *StateStore) ApplyMultiplyTick(bet, odds decimal.Decimal, won bool) model.BettingState {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance := s.state.Multiply.Balance
	if won {
		balance = balance.Add(bet.Mul(odds))
	} else {
		balance = balance.Sub(bet)
	}
	s.state.Multiply.Balance = model.Round(balance)
	s.state.Multiply.Bets++
	s.state.TotalHistory = append(s.state.TotalHistory, s.state.Multiply.Balance)
	return s.state.Clone()
}

// Reset replaces the record with model.Default().
func (s *StateStore) Reset() model.BettingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = model.Default()
	return s.state.Clone()
}
