// Package codec converts a BettingState to and from its cookie text form.
//
// The wire form is the JSON record, URL-component escaped, exactly what a
// browser cookie named "betting_state" carries. Decoding never fails loudly:
// anything malformed reports ok=false and the caller substitutes
// model.Default().
package codec

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/betting-dashboard/internal/model"
)

const (
	// DefaultCookieName is the cookie the dashboard page reads and writes.
	DefaultCookieName = "betting_state"

	// CookieMaxAge is how long a written state stays valid.
	CookieMaxAge = 7 * 24 * time.Hour
)

// Encode serializes the full record. The output is deterministic and
// round-trips through Decode.
func Encode(s model.BettingState) string {
	s = normalize(s)
	data, err := json.Marshal(s)
	if err != nil {
		// Only decimals, ints and slices: Marshal can't fail here.
		return ""
	}
	return url.QueryEscape(string(data))
}

// Decode parses cookie text. It returns ok=false for empty, badly escaped,
// non-object or semantically invalid input, for decimals outside
// model.InRange, and when multiply.bets disagrees with totalHistory.
func Decode(text string) (model.BettingState, bool) {
	if text == "" {
		return model.BettingState{}, false
	}
	raw, err := url.PathUnescape(text)
	if err != nil {
		return model.BettingState{}, false
	}
	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 || data[0] != '{' {
		return model.BettingState{}, false
	}

	var s model.BettingState
	if err := json.Unmarshal(data, &s); err != nil {
		return model.BettingState{}, false
	}
	// Size first: sign checks and rounding are unsafe on oversized values.
	if !s.InRange() {
		return model.BettingState{}, false
	}
	if s.Wins.BTC.IsNegative() || s.Multiply.Bets < 0 || !s.Consistent() {
		return model.BettingState{}, false
	}
	return normalize(s), true
}

// Cookie builds the HTTP cookie carrying s.
func Cookie(name string, s model.BettingState, now time.Time) *http.Cookie {
	if name == "" {
		name = DefaultCookieName
	}
	return &http.Cookie{
		Name:     name,
		Value:    Encode(s),
		Path:     "/",
		Expires:  now.Add(CookieMaxAge).UTC(),
		MaxAge:   int(CookieMaxAge / time.Second),
		SameSite: http.SameSiteLaxMode,
	}
}

// FromRequest decodes the named cookie off r, if present and valid.
func FromRequest(r *http.Request, name string) (model.BettingState, bool) {
	if name == "" {
		name = DefaultCookieName
	}
	c, err := r.Cookie(name)
	if err != nil {
		return model.BettingState{}, false
	}
	return Decode(c.Value)
}

// normalize rounds every decimal to model.MoneyScale and replaces nil
// histories with empty ones.
func normalize(s model.BettingState) model.BettingState {
	s.Wins.BTC = model.Round(s.Wins.BTC)
	s.Multiply.Balance = model.Round(s.Multiply.Balance)
	s.SessionHistory = roundSeries(s.SessionHistory)
	s.TotalHistory = roundSeries(s.TotalHistory)
	return s
}

func roundSeries(in []decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(in))
	for i, v := range in {
		out[i] = model.Round(v)
	}
	return out
}
