// Package drill runs a single practice session as plain text output.
package drill

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/impromptu/internal/alert"
	"github.com/verte-zerg/impromptu/internal/model"
	"github.com/verte-zerg/impromptu/internal/sampler"
	"github.com/verte-zerg/impromptu/internal/schedule"
	"github.com/verte-zerg/impromptu/internal/session"
	"github.com/verte-zerg/impromptu/internal/timer"
)

const (
	refreshInterval = 250 * time.Millisecond
	// plainStep is how often a status line is printed when output is not a terminal.
	plainStep = 30
)

// Loader loads datasets by key.
type Loader interface {
	Load(ctx context.Context, key string) (model.Dataset, error)
}

// Config wires a drill run.
type Config struct {
	Settings model.Settings
	Prefs    session.Persistence
	Loader   Loader
	Out      io.Writer
	// Live rewrites the status line in place.
	Live   bool
	Width  int
	Alert  alert.Alerter
	Logger *slog.Logger
}

// Run draws topics, runs preparation and speaking, and returns when the
// speaking target is reached or ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Prefs == nil || cfg.Loader == nil {
		return fmt.Errorf("drill: prefs and loader are required")
	}
	ds, err := cfg.Loader.Load(ctx, cfg.Settings.Dataset)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	loop := schedule.NewLoop(0)
	sched := schedule.NewRealtime(loop.Post)
	ctrl := session.New(ctx, session.Config{
		Sampler:   sampler.New(nil),
		Scheduler: sched,
		Alerter:   cfg.Alert,
		Prefs:     cfg.Prefs,
		Settings:  cfg.Settings,
		Logger:    cfg.Logger,
	})
	defer ctrl.Close()
	ctrl.BeginLoad(ds.Key)
	ctrl.FinishLoad(ctx, ds.Key, ds, nil)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	d := New(ctrl, cfg.Out, cfg.Live, cfg.Width, cancel)
	if err := d.Start(sched); err != nil {
		return err
	}
	if err := loop.Run(runCtx); err != nil && ctx.Err() != nil {
		d.Finish(context.WithoutCancel(ctx))
	}
	return nil
}

// Drill prints the progress of one session.
type Drill struct {
	ctrl  *session.Controller
	out   io.Writer
	live  bool
	width int
	done  func()

	refresh  schedule.Handle
	lastLine string
	started  bool
	finished bool
}

// New returns a drill over ctrl. done is called once the speaking target
// is reached.
func New(ctrl *session.Controller, out io.Writer, live bool, width int, done func()) *Drill {
	if width <= 0 {
		width = 80
	}
	return &Drill{ctrl: ctrl, out: out, live: live, width: width, done: done}
}

// Start generates topics, prints them and begins refreshing the status.
func (d *Drill) Start(sched schedule.Scheduler) error {
	if !d.ctrl.Generate() {
		return fmt.Errorf("no topics available in the enabled categories")
	}
	d.printTopics()
	if d.ctrl.Mode() == model.PhaseSpeaking {
		d.started = true
		d.ctrl.Timer().ToggleRun()
	} else if !d.ctrl.Settings().AutoStart {
		d.ctrl.Timer().ToggleRun()
	}
	d.refresh = sched.Every(refreshInterval, d.onRefresh)
	d.onRefresh()
	return nil
}

// Finish records the session and stops refreshing. Calling it twice is a
// no-op.
func (d *Drill) Finish(ctx context.Context) {
	if d.finished {
		return
	}
	d.finished = true
	if d.refresh != nil {
		d.refresh.Stop()
	}
	d.ctrl.Return(ctx)
	if d.live {
		d.printf("\n")
	}
	d.printf("Time.\n")
}

func (d *Drill) onRefresh() {
	if d.finished {
		return
	}
	st := d.ctrl.Timer().Snapshot()
	if st.Phase == model.PhaseSpeaking && !st.Running && !d.started {
		d.started = true
		d.ctrl.Timer().ToggleRun()
		st = d.ctrl.Timer().Snapshot()
	}
	d.render(st)
	if st.Phase == model.PhaseSpeaking && st.Target > 0 && st.Seconds >= st.Target {
		d.Finish(context.Background())
		if d.done != nil {
			d.done()
		}
	}
}

func (d *Drill) render(st timer.State) {
	label := "Preparation"
	clock := timer.FormatClock(st.Seconds)
	if st.Phase == model.PhaseSpeaking {
		label = "Speaking"
		clock += " / " + timer.FormatClock(st.Target)
	}
	line := fmt.Sprintf("%s %s", label, clock)
	if d.ctrl.Timer().Warning() {
		line += " !"
	}
	if line == d.lastLine {
		return
	}
	prevPhase := phaseOf(d.lastLine)
	d.lastLine = line
	if d.live {
		d.printf("\r%s\x1b[K", line)
		return
	}
	if prevPhase != label || st.Seconds%plainStep == 0 {
		d.printf("%s\n", line)
	}
}

func (d *Drill) printTopics() {
	ds, _ := d.ctrl.Dataset()
	d.printf("%s\n\n", ds.Name)
	for i, p := range d.ctrl.Picks() {
		d.printf("%d. %s\n", i+1, p.Category)
		d.printf("   %s\n", strings.ReplaceAll(runewidth.Wrap(p.Text, d.width-3), "\n", "\n   "))
	}
	d.printf("\n")
}

func (d *Drill) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(d.out, format, args...)
}

func phaseOf(line string) string {
	if i := strings.IndexByte(line, ' '); i > 0 {
		return line[:i]
	}
	return line
}
