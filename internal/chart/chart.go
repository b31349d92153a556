// Package chart turns the two history series into line-chart datasets and
// pushes them to whatever draws them. Every redraw carries the full series.
package chart

import (
	"sync"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/atmx/betting-dashboard/internal/hub"
)

// Canvas ids the page draws into.
const (
	SessionCanvas = "myChart_last_session"
	TotalCanvas   = "myChart_total"
)

// Renderer redraws both charts from the complete series.
type Renderer interface {
	Redraw(session, total []decimal.Decimal)
}

// Summary describes one series at a glance.
type Summary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Last  float64 `json:"last"`
}

// Dataset is one chart's full contents.
type Dataset struct {
	Canvas  string    `json:"canvas"`
	Label   string    `json:"label"`
	Color   string    `json:"color"`
	Labels  []int     `json:"labels"`
	Values  []float64 `json:"values"`
	Summary Summary   `json:"summary"`
}

// Charts is the pair redrawn on every update.
type Charts struct {
	Session Dataset `json:"session"`
	Total   Dataset `json:"total"`
}

// Build converts the two series into chart datasets. Values are converted
// to float64 for display only.
func Build(session, total []decimal.Decimal) Charts {
	return Charts{
		Session: build(SessionCanvas, "Session Balance", "blue", session),
		Total:   build(TotalCanvas, "Total Balance", "green", total),
	}
}

func build(canvas, label, color string, series []decimal.Decimal) Dataset {
	ds := Dataset{
		Canvas: canvas,
		Label:  label,
		Color:  color,
		Labels: make([]int, len(series)),
		Values: make([]float64, len(series)),
	}
	for i, v := range series {
		ds.Labels[i] = i + 1
		ds.Values[i] = v.InexactFloat64()
	}
	ds.Summary = summarize(ds.Values)
	return ds
}

func summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	return Summary{
		Count: len(values),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
		Mean:  stat.Mean(values, nil),
		Last:  values[len(values)-1],
	}
}

// Broadcaster is the part of the WebSocket hub a renderer needs.
type Broadcaster interface {
	Broadcast(msg hub.Message)
}

// HubRenderer pushes datasets to connected pages, which draw them.
type HubRenderer struct {
	b Broadcaster
}

// NewHubRenderer creates a renderer broadcasting through b.
func NewHubRenderer(b Broadcaster) *HubRenderer {
	return &HubRenderer{b: b}
}

func (r *HubRenderer) Redraw(session, total []decimal.Decimal) {
	if r == nil || r.b == nil {
		return
	}
	r.b.Broadcast(hub.Message{Type: hub.TypeChart, Data: Build(session, total)})
}

// Recorder keeps the latest datasets for page loads and the charts API.
type Recorder struct {
	mu   sync.RWMutex
	last Charts
}

// NewRecorder creates a Recorder holding empty charts.
func NewRecorder() *Recorder {
	return &Recorder{last: Build(nil, nil)}
}

func (r *Recorder) Redraw(session, total []decimal.Decimal) {
	c := Build(session, total)
	r.mu.Lock()
	r.last = c
	r.mu.Unlock()
}

// Last returns the most recent datasets.
func (r *Recorder) Last() Charts {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Multi fans one redraw out to several renderers. Nil entries are skipped,
// so a missing target simply isn't drawn.
type Multi []Renderer

func (m Multi) Redraw(session, total []decimal.Decimal) {
	for _, r := range m {
		if r == nil {
			continue
		}
		r.Redraw(session, total)
	}
}
