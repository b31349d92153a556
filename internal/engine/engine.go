// Package engine runs the two simulated betting loops.
//
// Each loop is a chain of one-shot delayed tasks: a tick draws an outcome,
// mutates the state store, redraws the charts, persists a snapshot, emits a
// status line and schedules the next tick after a fresh random delay.
// Auto-roll ticks win with p=0.5 and credit a fixed unit; multiply ticks win
// with p=1/odds and move the balance by bet*odds or -bet.
package engine

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atmx/betting-dashboard/internal/chart"
	"github.com/atmx/betting-dashboard/internal/metrics"
	"github.com/atmx/betting-dashboard/internal/model"
	"github.com/atmx/betting-dashboard/internal/scheduler"
	"github.com/atmx/betting-dashboard/internal/store"
)

// Loop names, used in logs and metric labels.
const (
	AutoRoll = "autoroll"
	Multiply = "multiply"
)

// DelayRange is an inclusive range of tick delays, drawn at millisecond
// granularity.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

var (
	DefaultAutoRollDelay = DelayRange{Min: 5000 * time.Millisecond, Max: 10000 * time.Millisecond}
	DefaultMultiplyDelay = DelayRange{Min: 3000 * time.Millisecond, Max: 7000 * time.Millisecond}
)

// DefaultPersistTimeout bounds a single snapshot write.
const DefaultPersistTimeout = 2 * time.Second

// Rand is the randomness a loop draws from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// Options wires an Engine. Store is required; everything else has a
// usable default.
type Options struct {
	Store          *store.StateStore
	Persister      store.Persister
	Renderer       chart.Renderer
	Status         StatusSink
	Scheduler      scheduler.Scheduler
	Rand           Rand
	Now            func() time.Time
	Logger         *slog.Logger
	AutoRollDelay  DelayRange
	MultiplyDelay  DelayRange
	PersistTimeout time.Duration
}

type loop struct {
	name    string
	target  string
	started string
	stopped string
	delays  DelayRange

	running bool
	gen     uint64
	runID   string
	task    scheduler.Task
	params  Params // multiply only
}

// Engine owns both loops. A single mutex serializes ticks, commands and
// reset, so each tick's mutate, redraw, persist and status steps complete
// before any other engine work starts.
type Engine struct {
	mu sync.Mutex

	store     *store.StateStore
	persister store.Persister
	renderer  chart.Renderer
	status    StatusSink
	sched     scheduler.Scheduler
	rng       Rand
	now       func() time.Time
	logger    *slog.Logger
	timeout   time.Duration

	autoRoll *loop
	multiply *loop
}

// New creates an idle Engine.
func New(opts Options) *Engine {
	if opts.Store == nil {
		opts.Store = store.NewStateStore(model.Default())
	}
	if opts.Scheduler == nil {
		opts.Scheduler = scheduler.Real{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = DefaultPersistTimeout
	}
	if opts.AutoRollDelay == (DelayRange{}) {
		opts.AutoRollDelay = DefaultAutoRollDelay
	}
	if opts.MultiplyDelay == (DelayRange{}) {
		opts.MultiplyDelay = DefaultMultiplyDelay
	}

	return &Engine{
		store:     opts.Store,
		persister: opts.Persister,
		renderer:  opts.Renderer,
		status:    opts.Status,
		sched:     opts.Scheduler,
		rng:       opts.Rand,
		now:       opts.Now,
		logger:    opts.Logger,
		timeout:   opts.PersistTimeout,
		autoRoll: &loop{
			name:    AutoRoll,
			target:  AutoRollTarget,
			started: MsgAutoRollStarted,
			stopped: MsgAutoRollStopped,
			delays:  opts.AutoRollDelay.normalized(),
		},
		multiply: &loop{
			name:    Multiply,
			target:  MultiplyTarget,
			started: MsgMultiplyStarted,
			stopped: MsgMultiplyStopped,
			delays:  opts.MultiplyDelay.normalized(),
		},
	}
}

// Store returns the state store the engine mutates.
func (e *Engine) Store() *store.StateStore {
	return e.store
}

// Init draws the charts from the current state and resets both status
// regions. Safe to call more than once.
func (e *Engine) Init() {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.store.Get()
	e.redraw(s)
	e.observe(s)
	e.publish(Status{Target: AutoRollTarget, HTML: MsgReady})
	e.publish(Status{Target: MultiplyTarget, HTML: ""})
}

// StartAutoRoll starts the auto-roll loop. It reports false if the loop
// was already running.
func (e *Engine) StartAutoRoll() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked(e.autoRoll, e.autoRollTick)
}

// StopAutoRoll stops the auto-roll loop. It reports false if it was idle.
func (e *Engine) StopAutoRoll() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked(e.autoRoll, true)
}

// StartMultiply starts the multiply loop with p held fixed until the next
// start. It reports false if the loop was already running, in which case p
// is ignored.
func (e *Engine) StartMultiply(p Params) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.multiply.running {
		return false
	}
	e.multiply.params = p.normalized()
	return e.startLocked(e.multiply, e.multiplyTick)
}

// StopMultiply stops the multiply loop. It reports false if it was idle.
func (e *Engine) StopMultiply() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked(e.multiply, true)
}

// Reset replaces the state with the default record. Running loops keep
// running.
func (e *Engine) Reset() model.BettingState {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.store.Reset()
	e.redraw(s)
	e.persist(s)
	e.observe(s)
	e.publish(Status{Target: AutoRollTarget, HTML: MsgStatsReset})
	e.publish(Status{Target: MultiplyTarget, HTML: ""})
	e.logger.Info("stats reset")
	return s
}

// Restore replaces the state wholesale, e.g. with a record imported from
// a browser cookie.
func (e *Engine) Restore(s model.BettingState) model.BettingState {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.Replace(s)
	s = e.store.Get()
	e.redraw(s)
	e.persist(s)
	e.observe(s)
	e.logger.Info("state restored",
		"wins_btc", s.Wins.BTC.String(),
		"multiply_bets", s.Multiply.Bets,
	)
	return s
}

// OnExternalResultChanged is the hook the mutation watcher calls when the
// observed result node gains children.
func (e *Engine) OnExternalResultChanged() {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := Status{Target: MultiplyTarget, HTML: MsgResultDetected}
	if e.multiply.running {
		st.RunID = e.multiply.runID
	}
	e.publish(st)
}

// Snapshot describes the loops at a point in time.
type Snapshot struct {
	AutoRollRunning bool   `json:"autoroll_running"`
	AutoRollRunID   string `json:"autoroll_run_id,omitempty"`
	MultiplyRunning bool   `json:"multiply_running"`
	MultiplyRunID   string `json:"multiply_run_id,omitempty"`
	MultiplyParams  Params `json:"multiply_params"`
}

// Status reports whether each loop is running.
func (e *Engine) Status() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := Snapshot{
		AutoRollRunning: e.autoRoll.running,
		MultiplyRunning: e.multiply.running,
		MultiplyParams:  DefaultParams(),
	}
	if e.autoRoll.running {
		snap.AutoRollRunID = e.autoRoll.runID
	}
	if e.multiply.running {
		snap.MultiplyRunID = e.multiply.runID
		snap.MultiplyParams = e.multiply.params
	}
	return snap
}

// Shutdown cancels both loops without emitting status lines.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked(e.autoRoll, false)
	e.stopLocked(e.multiply, false)
}

// --- Loop mechanics ---

func (e *Engine) startLocked(l *loop, tick func(gen uint64)) bool {
	if l.running {
		return false
	}
	l.running = true
	l.gen++
	l.runID = uuid.NewString()
	e.scheduleLocked(l, tick)

	metrics.LoopRunning.WithLabelValues(l.name).Set(1)
	e.publish(Status{Target: l.target, HTML: l.started, RunID: l.runID})

	attrs := []any{"loop", l.name, "run_id", l.runID}
	if l == e.multiply {
		attrs = append(attrs, "base_bet", l.params.BaseBet.String(), "odds", l.params.Odds.String())
	}
	e.logger.Info("loop started", attrs...)
	return true
}

func (e *Engine) stopLocked(l *loop, announce bool) bool {
	if !l.running {
		return false
	}
	if l.task != nil {
		l.task.Stop()
		l.task = nil
	}
	l.running = false
	// Bumping the generation discards a tick that already fired and is
	// waiting on e.mu.
	l.gen++

	metrics.LoopRunning.WithLabelValues(l.name).Set(0)
	if announce {
		e.publish(Status{Target: l.target, HTML: l.stopped, RunID: l.runID})
	}
	e.logger.Info("loop stopped", "loop", l.name, "run_id", l.runID)
	return true
}

func (e *Engine) scheduleLocked(l *loop, tick func(gen uint64)) {
	gen := l.gen
	l.task = e.sched.AfterFunc(e.nextDelay(l.delays), func() { tick(gen) })
}

// nextDelay draws uniformly from [Min, Max] in whole milliseconds.
func (e *Engine) nextDelay(r DelayRange) time.Duration {
	lo := r.Min.Milliseconds()
	hi := r.Max.Milliseconds()
	return time.Duration(lo+int64(e.rng.IntN(int(hi-lo+1)))) * time.Millisecond
}

func (e *Engine) autoRollTick(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l := e.autoRoll
	if !l.running || l.gen != gen {
		return
	}

	success := e.rng.Float64() > 0.5
	s, changed := e.store.ApplyAutoRollTick(success)
	if changed {
		e.redraw(s)
		e.persist(s)
		e.observe(s)
	}
	e.publish(Status{Target: l.target, HTML: rollStatus(success, e.now()), RunID: l.runID})
	metrics.TicksTotal.WithLabelValues(l.name, outcomeClass(success)).Inc()

	e.logger.Debug("tick", "loop", l.name, "run_id", l.runID, "success", success,
		"wins_btc", s.Wins.BTC.String())

	e.scheduleLocked(l, e.autoRollTick)
}

func (e *Engine) multiplyTick(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l := e.multiply
	if !l.running || l.gen != gen {
		return
	}

	p := l.params
	won := e.rng.Float64() < p.WinProbability()
	s := e.store.ApplyMultiplyTick(p.BaseBet, p.Odds, won)
	e.redraw(s)
	e.persist(s)
	e.observe(s)
	e.publish(Status{Target: l.target, HTML: multiplyStatus(p.BaseBet, won), RunID: l.runID})
	metrics.TicksTotal.WithLabelValues(l.name, outcomeClass(won)).Inc()

	e.logger.Debug("tick", "loop", l.name, "run_id", l.runID, "won", won,
		"balance", s.Multiply.Balance.String(), "bets", s.Multiply.Bets)

	e.scheduleLocked(l, e.multiplyTick)
}

// --- Side effects ---

func (e *Engine) redraw(s model.BettingState) {
	if e.renderer == nil {
		return
	}
	e.renderer.Redraw(s.SessionHistory, s.TotalHistory)
}

func (e *Engine) persist(s model.BettingState) {
	if e.persister == nil {
		return
	}
	if err := store.SaveState(context.Background(), e.persister, s, e.timeout); err != nil {
		metrics.PersistFailures.Inc()
		e.logger.Warn("persist state failed", "err", err)
	}
}

func (e *Engine) publish(s Status) {
	if e.status == nil {
		return
	}
	e.status.Publish(s)
}

func (e *Engine) observe(s model.BettingState) {
	metrics.WinsBTC.Set(s.Wins.BTC.InexactFloat64())
	metrics.MultiplyBalance.Set(s.Multiply.Balance.InexactFloat64())
}

func (r DelayRange) normalized() DelayRange {
	if r.Min < 0 {
		r.Min = 0
	}
	if r.Max < r.Min {
		r.Min, r.Max = r.Max, r.Min
		if r.Min < 0 {
			r.Min = 0
		}
	}
	return r
}
