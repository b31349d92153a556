package engine_test

import (
	"testing"
	"time"

	"github.com/atmx/betting-dashboard/internal/engine"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		baseBet string
		odds    string
		wantBet string
		wantOdd string
	}{
		{"valid", "0.001", "3", "0.001", "3"},
		{"rounded bet", "0.123456789", "2", "0.12345679", "2"},
		{"empty", "", "", "0.00000001", "2"},
		{"not numbers", "abc", "x", "0.00000001", "2"},
		{"zero bet", "0", "2", "0.00000001", "2"},
		{"negative bet", "-5", "2", "0.00000001", "2"},
		{"bet rounds to zero", "0.000000001", "2", "0.00000001", "2"},
		{"odds below one", "1", "0.5", "1", "2"},
		{"odds exactly one", "1", "1", "1", "1"},
		{"huge bet", "1e400000000", "2", "0.00000001", "2"},
		{"tiny bet", "1e-400000000", "2", "0.00000001", "2"},
		{"huge odds", "1", "1e400000000", "1", "2"},
		{"long coefficient", "123456789012345678901234567890123456789012345678901234567890", "2", "0.00000001", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done := make(chan engine.Params, 1)
			go func() { done <- engine.ParseParams(tt.baseBet, tt.odds) }()

			var p engine.Params
			select {
			case p = <-done:
			case <-time.After(2 * time.Second):
				t.Fatalf("ParseParams(%q, %q) did not return", tt.baseBet, tt.odds)
			}
			if !p.BaseBet.Equal(d(tt.wantBet)) {
				t.Errorf("base bet = %s, want %s", p.BaseBet, tt.wantBet)
			}
			if !p.Odds.Equal(d(tt.wantOdd)) {
				t.Errorf("odds = %s, want %s", p.Odds, tt.wantOdd)
			}
		})
	}
}

func TestStartMultiply_OversizedParamsCoerced(t *testing.T) {
	env := newTestEnv(t, &scriptRand{floats: []float64{0.1}})

	env.eng.StartMultiply(engine.Params{BaseBet: d("1e400000000"), Odds: d("1e400000000")})
	p := env.eng.Status().MultiplyParams
	if !p.BaseBet.Equal(engine.DefaultBaseBet) || !p.Odds.Equal(engine.DefaultOdds) {
		t.Fatalf("params = %s/%s, want defaults", p.BaseBet, p.Odds)
	}

	done := make(chan struct{})
	go func() {
		env.sched.Advance(3 * time.Second)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("multiply tick did not finish")
	}
	if env.store.Get().Multiply.Bets != 1 {
		t.Errorf("bets = %d, want 1", env.store.Get().Multiply.Bets)
	}
}
