package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/betting-dashboard/internal/model"
)

// Status regions on the page.
const (
	AutoRollTarget = "script_output"
	MultiplyTarget = "multiply_status"
)

// Fixed status lines.
const (
	MsgReady           = "Ready"
	MsgAutoRollStarted = "Auto Roll Started"
	MsgAutoRollStopped = "Auto Roll Stopped"
	MsgMultiplyStarted = "Multiply Started"
	MsgMultiplyStopped = "Multiply Stopped"
	MsgStatsReset      = "Stats Reset"
	MsgResultDetected  = "Detected multiply result update"
)

// Status is one HTML line for one region.
type Status struct {
	Target string
	HTML   string
	RunID  string
}

// StatusSink receives status lines.
type StatusSink interface {
	Publish(s Status)
}

// StatusFunc adapts a function to StatusSink.
type StatusFunc func(Status)

func (f StatusFunc) Publish(s Status) { f(s) }

// timeLayout matches a browser's en-US toLocaleTimeString.
const timeLayout = "3:04:05 PM"

func outcomeClass(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func rollStatus(success bool, at time.Time) string {
	text := "FAILURE"
	if success {
		text = "SUCCESS"
	}
	return fmt.Sprintf(`Roll: <span class="%s">%s</span> at %s`,
		outcomeClass(success), text, at.Format(timeLayout))
}

func multiplyStatus(bet decimal.Decimal, won bool) string {
	text := "LOSE"
	if won {
		text = "WIN"
	}
	return fmt.Sprintf(`Bet: %s, Result: <span class="%s">%s</span>`,
		bet.StringFixed(model.MoneyScale), outcomeClass(won), text)
}
