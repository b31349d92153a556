package scheduler

import (
	"testing"
	"time"
)

func TestFake_RunsInDueOrder(t *testing.T) {
	f := NewFake()
	var got []string

	f.AfterFunc(3*time.Second, func() { got = append(got, "c") })
	f.AfterFunc(1*time.Second, func() { got = append(got, "a") })
	f.AfterFunc(2*time.Second, func() { got = append(got, "b") })

	f.Advance(5 * time.Second)

	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("run order = %v, want [a b c]", got)
	}
	if f.Pending() != 0 {
		t.Errorf("pending = %d, want 0", f.Pending())
	}
}

func TestFake_NotDueYet(t *testing.T) {
	f := NewFake()
	ran := false
	f.AfterFunc(10*time.Second, func() { ran = true })

	f.Advance(9 * time.Second)
	if ran {
		t.Fatal("task ran before due")
	}
	f.Advance(time.Second)
	if !ran {
		t.Fatal("task did not run when due")
	}
}

func TestFake_Stop(t *testing.T) {
	f := NewFake()
	ran := false
	task := f.AfterFunc(time.Second, func() { ran = true })

	if !task.Stop() {
		t.Error("first Stop should report true")
	}
	if task.Stop() {
		t.Error("second Stop should report false")
	}
	f.Advance(time.Minute)
	if ran {
		t.Error("stopped task ran")
	}
}

func TestFake_StopAfterFireReportsFalse(t *testing.T) {
	f := NewFake()
	task := f.AfterFunc(time.Second, func() {})
	f.Advance(time.Second)
	if task.Stop() {
		t.Error("Stop after fire should report false")
	}
}

func TestFake_RescheduleFromTask(t *testing.T) {
	f := NewFake()
	count := 0
	var tick func()
	tick = func() {
		count++
		f.AfterFunc(time.Second, tick)
	}
	f.AfterFunc(time.Second, tick)

	f.Advance(5 * time.Second)

	if count != 5 {
		t.Errorf("chained ticks = %d, want 5", count)
	}
	if f.Pending() != 1 {
		t.Errorf("pending = %d, want 1", f.Pending())
	}
}

func TestReal_AfterFunc(t *testing.T) {
	done := make(chan struct{})
	Real{}.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("real scheduler did not fire")
	}
}
