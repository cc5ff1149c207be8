// Package schedule decides when the margin layout pass runs.
//
// A Scheduler is a three-state machine driven by environment events. Bursts
// of events collapse into one pass through a single debounce timer that is
// replaced on every event; a generation counter makes callbacks of replaced
// timers no-ops. Passes run to completion under the scheduler lock, so two
// passes never overlap.
package schedule

import (
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

type State int

const (
	Idle State = iota
	Scheduled
	Applied
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	case Applied:
		return "applied"
	}
	return "unknown"
}

const (
	DefaultBreakpoint  = 1200.0
	DefaultDebounce    = 250 * time.Millisecond
	DefaultSafetyDelay = time.Second
)

// Target is what the scheduler drives, normally a page.
type Target interface {
	// Relayout recomputes and applies every placement.
	Relayout() error
	// Clear removes every placement.
	Clear() error
}

type Options struct {
	Breakpoint  float64       // minimum viewport width for margin notes
	Debounce    time.Duration // quiet period before a requested pass runs
	SafetyDelay time.Duration // delay of the single forced pass after Ready
	Clock       Clock
	Logger      *log.Logger
	// AfterPass, when set, is called after every pass or clear with its
	// result. It runs without the scheduler lock held.
	AfterPass func(State, error)
}

func DefaultOptions() Options {
	return Options{
		Breakpoint:  DefaultBreakpoint,
		Debounce:    DefaultDebounce,
		SafetyDelay: DefaultSafetyDelay,
	}
}

type Scheduler struct {
	mu     sync.Mutex
	target Target
	opts   Options
	logger *log.Logger

	state   State
	width   float64
	active  bool
	closed  bool
	gen     uint64
	reason  string
	pending Timer
	safety  Timer
	passes  int
}

func New(target Target, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Scheduler{target: target, opts: opts, logger: logger}
}

// Ready signals that content is available. Wide viewports get an immediate
// pass and a safety-net pass after SafetyDelay.
func (s *Scheduler) Ready(width float64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.width = width
	if width < s.opts.Breakpoint {
		s.logger.Debug("viewport below breakpoint, margin notes inactive", "width", width)
		s.active = false
		s.state = Idle
		s.mu.Unlock()
		return
	}
	s.active = true
	s.cancelPendingLocked()
	state, err := s.runLocked("ready")
	if s.safety != nil {
		s.safety.Stop()
	}
	s.safety = s.opts.Clock.AfterFunc(s.opts.SafetyDelay, s.safetyPass)
	s.mu.Unlock()
	s.notify(state, err)
}

// Resize reports a new viewport width. Dropping below the breakpoint clears
// placements at once; other widths debounce a pass.
func (s *Scheduler) Resize(width float64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.width = width
	if width >= s.opts.Breakpoint {
		s.active = true
		s.debounceLocked("resize")
		s.mu.Unlock()
		return
	}

	s.cancelPendingLocked()
	wasActive := s.active || s.state != Idle
	s.active = false
	s.state = Idle
	var err error
	if wasActive {
		if err = s.target.Clear(); err != nil {
			s.logger.Warn("clearing margin notes failed", "err", err)
		}
	}
	s.mu.Unlock()
	if wasActive {
		s.notify(Idle, err)
	}
}

func (s *Scheduler) FontsReady()     { s.request("fonts") }
func (s *Scheduler) ImageLoaded()    { s.request("image") }
func (s *Scheduler) Load()           { s.request("load") }
func (s *Scheduler) ContentChanged() { s.request("content") }

// Close stops every timer. Events after Close are ignored.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cancelPendingLocked()
	if s.safety != nil {
		s.safety.Stop()
		s.safety = nil
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active reports whether the last known width was at or above the breakpoint.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Scheduler) Width() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width
}

// Passes counts completed Relayout calls, successful or not.
func (s *Scheduler) Passes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passes
}

func (s *Scheduler) request(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.active {
		return
	}
	s.debounceLocked(reason)
}

// debounceLocked replaces the pending timer. Only the newest timer's
// generation is accepted by fire.
func (s *Scheduler) debounceLocked(reason string) {
	s.cancelPendingLocked()
	gen := s.gen
	s.reason = reason
	s.state = Scheduled
	s.pending = s.opts.Clock.AfterFunc(s.opts.Debounce, func() { s.fire(gen) })
}

func (s *Scheduler) cancelPendingLocked() {
	s.gen++
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen || !s.active {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	state, err := s.runLocked(s.reason)
	s.mu.Unlock()
	s.notify(state, err)
}

func (s *Scheduler) safetyPass() {
	s.mu.Lock()
	if s.closed || !s.active {
		s.mu.Unlock()
		return
	}
	s.safety = nil
	state, err := s.runLocked("safety")
	s.mu.Unlock()
	s.notify(state, err)
}

// runLocked performs one pass. A failed pass leaves the scheduler Idle and
// ready for the next event.
func (s *Scheduler) runLocked(reason string) (State, error) {
	start := time.Now()
	err := s.target.Relayout()
	s.passes++
	if err != nil {
		s.logger.Warn("margin layout pass failed", "reason", reason, "err", err)
		if s.pending == nil {
			s.state = Idle
		}
		return s.state, err
	}
	if s.pending == nil {
		s.state = Applied
	}
	s.logger.Debug("margin layout pass", "reason", reason, "width", s.width, "elapsed", time.Since(start))
	return s.state, nil
}

func (s *Scheduler) notify(state State, err error) {
	if s.opts.AfterPass != nil {
		s.opts.AfterPass(state, err)
	}
}
