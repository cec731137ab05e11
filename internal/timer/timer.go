// Package timer implements the preparation/speaking session timer.
package timer

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/verte-zerg/impromptu/internal/alert"
	"github.com/verte-zerg/impromptu/internal/model"
	"github.com/verte-zerg/impromptu/internal/schedule"
)

const (
	// AutoStartDelay lets entry transitions settle before the clock runs.
	AutoStartDelay = 800 * time.Millisecond
	// WarnThreshold is the remaining preparation time that flags a warning.
	WarnThreshold = 15
)

// State is a read-only snapshot of the timer.
type State struct {
	Phase     model.Phase
	Seconds   int
	Running   bool
	Initial   int
	Target    int
	Completed bool
}

// Config wires the timer's collaborators.
type Config struct {
	Scheduler schedule.Scheduler
	Alerter   alert.Alerter
	// OnComplete fires when a preparation phase expires or is skipped.
	OnComplete func()
	Logger     *slog.Logger
}

// Timer is a two-phase state machine: preparation counts down, speaking
// counts up. All methods must be called from the scheduler's event loop.
type Timer struct {
	sched      schedule.Scheduler
	alerter    alert.Alerter
	onComplete func()
	logger     *slog.Logger

	phase        model.Phase
	initial      int
	seconds      int
	target       int
	running      bool
	alertEnabled bool
	completed    bool

	activation uint64
	delay      schedule.Handle
	interval   schedule.Handle
}

// New returns an idle timer.
func New(cfg Config) *Timer {
	if cfg.Scheduler == nil {
		panic("timer: nil scheduler")
	}
	if cfg.Alerter == nil {
		cfg.Alerter = alert.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Timer{
		sched:      cfg.Scheduler,
		alerter:    cfg.Alerter,
		onComplete: cfg.OnComplete,
		logger:     cfg.Logger,
		phase:      model.PhaseIdle,
	}
}

// Start begins a new activation, tearing down any previous one.
func (t *Timer) Start(mode model.Phase, initialSeconds int, autoStart, alertEnabled bool) {
	t.Stop()
	t.phase = mode
	t.alertEnabled = alertEnabled
	t.completed = false
	t.initial = 0
	if mode == model.PhasePreparation && initialSeconds > 0 {
		t.initial = initialSeconds
	}
	t.seconds = t.initial
	if autoStart {
		act := t.activation
		t.delay = t.sched.After(AutoStartDelay, func() {
			if act != t.activation {
				return
			}
			t.delay = nil
			t.setRunning(true)
		})
	}
	t.logger.Debug("timer started", "phase", mode, "initial", t.initial, "auto_start", autoStart)
}

// SetTarget sets the speaking target used by Warning.
func (t *Timer) SetTarget(seconds int) {
	t.target = seconds
}

// Stop tears the timer down to idle and cancels pending callbacks.
func (t *Timer) Stop() {
	t.cancelDelay()
	t.cancelInterval()
	t.activation++
	t.running = false
	t.phase = model.PhaseIdle
	t.seconds = 0
	t.initial = 0
}

// Tick advances the clock by one second while running.
func (t *Timer) Tick() {
	if !t.running {
		return
	}
	switch t.phase {
	case model.PhasePreparation:
		if t.seconds <= 1 {
			t.seconds = 0
			t.setRunning(false)
			t.expire()
			return
		}
		t.seconds--
	case model.PhaseSpeaking:
		t.seconds++
	}
}

// ToggleRun flips between running and paused.
func (t *Timer) ToggleRun() {
	if t.phase == model.PhaseIdle {
		return
	}
	if t.phase == model.PhasePreparation && t.completed {
		return
	}
	t.cancelDelay()
	t.setRunning(!t.running)
}

// Reset pauses the timer and restores the phase's initial value.
func (t *Timer) Reset() {
	if t.phase == model.PhaseIdle {
		return
	}
	t.cancelDelay()
	t.setRunning(false)
	t.seconds = t.initial
}

// Skip ends preparation immediately without an alert.
func (t *Timer) Skip() {
	if t.phase != model.PhasePreparation || t.completed {
		return
	}
	t.cancelDelay()
	t.setRunning(false)
	t.complete()
}

// Snapshot returns the current state.
func (t *Timer) Snapshot() State {
	return State{
		Phase:     t.phase,
		Seconds:   t.seconds,
		Running:   t.running,
		Initial:   t.initial,
		Target:    t.target,
		Completed: t.completed,
	}
}

// Warning reports whether the clock should be highlighted.
func (t *Timer) Warning() bool {
	switch t.phase {
	case model.PhasePreparation:
		return t.initial > 0 && t.seconds < WarnThreshold
	case model.PhaseSpeaking:
		return t.target > 0 && t.seconds >= t.target
	default:
		return false
	}
}

func (t *Timer) setRunning(on bool) {
	if on == t.running {
		return
	}
	t.running = on
	if !on {
		t.cancelInterval()
		return
	}
	act := t.activation
	t.interval = t.sched.Every(time.Second, func() {
		if act != t.activation {
			return
		}
		t.Tick()
	})
}

func (t *Timer) expire() {
	if t.alertEnabled && t.initial > 0 {
		if err := t.alerter.Alert(); err != nil {
			t.logger.Debug("alert failed", "error", err)
		}
	}
	t.complete()
}

func (t *Timer) complete() {
	if t.completed {
		return
	}
	t.completed = true
	t.logger.Debug("phase complete", "phase", t.phase)
	if t.onComplete != nil {
		t.onComplete()
	}
}

func (t *Timer) cancelDelay() {
	if t.delay != nil {
		t.delay.Stop()
		t.delay = nil
	}
}

func (t *Timer) cancelInterval() {
	if t.interval != nil {
		t.interval.Stop()
		t.interval = nil
	}
}

// FormatClock renders seconds as m:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
