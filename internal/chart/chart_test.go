package chart

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atmx/betting-dashboard/internal/hub"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBuild_LabelsAndValues(t *testing.T) {
	c := Build(
		[]decimal.Decimal{d("0.00000001"), d("0.00000002")},
		[]decimal.Decimal{d("-1"), d("3"), d("1")},
	)

	if len(c.Session.Labels) != 2 || c.Session.Labels[0] != 1 || c.Session.Labels[1] != 2 {
		t.Errorf("session labels = %v, want [1 2]", c.Session.Labels)
	}
	if c.Session.Canvas != SessionCanvas || c.Total.Canvas != TotalCanvas {
		t.Errorf("canvases = %q/%q", c.Session.Canvas, c.Total.Canvas)
	}

	s := c.Total.Summary
	if s.Count != 3 || s.Min != -1 || s.Max != 3 || s.Mean != 1 || s.Last != 1 {
		t.Errorf("total summary = %+v", s)
	}
}

func TestBuild_Empty(t *testing.T) {
	c := Build(nil, nil)
	if len(c.Session.Values) != 0 || c.Session.Summary.Count != 0 {
		t.Errorf("empty series should produce an empty dataset: %+v", c.Session)
	}
}

type captureBroadcaster struct {
	msgs []hub.Message
}

func (c *captureBroadcaster) Broadcast(msg hub.Message) {
	c.msgs = append(c.msgs, msg)
}

func TestHubRenderer_BroadcastsChart(t *testing.T) {
	b := &captureBroadcaster{}
	NewHubRenderer(b).Redraw([]decimal.Decimal{d("1")}, nil)

	if len(b.msgs) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(b.msgs))
	}
	if b.msgs[0].Type != hub.TypeChart {
		t.Errorf("type = %q, want %q", b.msgs[0].Type, hub.TypeChart)
	}
	c, ok := b.msgs[0].Data.(Charts)
	if !ok || len(c.Session.Values) != 1 {
		t.Errorf("payload = %#v", b.msgs[0].Data)
	}
}

func TestMulti_SkipsNil(t *testing.T) {
	rec := NewRecorder()
	var nilHub *HubRenderer
	m := Multi{nil, rec, nilHub}

	m.Redraw([]decimal.Decimal{d("1"), d("2")}, []decimal.Decimal{d("5")})

	last := rec.Last()
	if len(last.Session.Values) != 2 || len(last.Total.Values) != 1 {
		t.Errorf("recorder did not capture redraw: %+v", last)
	}
}
