package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/impromptu/internal/alert"
	"github.com/verte-zerg/impromptu/internal/dataset"
	"github.com/verte-zerg/impromptu/internal/model"
	"github.com/verte-zerg/impromptu/internal/prefs"
	"github.com/verte-zerg/impromptu/internal/sampler"
	"github.com/verte-zerg/impromptu/internal/schedule"
	"github.com/verte-zerg/impromptu/internal/session"
)

// RunConfig wires a practice run.
type RunConfig struct {
	Settings model.Settings
	Prefs    *prefs.Prefs
	Registry *dataset.Registry
	Logger   *slog.Logger
	// Bell receives the terminal bell on alerts.
	Bell io.Writer
}

// Run starts the practice TUI and blocks until the user quits.
func Run(ctx context.Context, cfg RunConfig) error {
	if cfg.Prefs == nil || cfg.Registry == nil {
		return fmt.Errorf("tui: prefs and registry are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var program *tea.Program
	sched := schedule.NewRealtime(func(fn func()) {
		program.Send(runMsg{fn: fn})
	})

	var ctrl *session.Controller
	bell := alert.Bell{W: cfg.Bell}
	tone := alert.Async{
		A: alert.Tone{},
		OnError: func(err error) {
			logger.Debug("alert tone failed", "error", err)
		},
	}
	alerter := alert.Func(func() error {
		if ctrl.Settings().AlertSound {
			return alert.Multi{bell, tone}.Alert()
		}
		return bell.Alert()
	})

	ctrl = session.New(ctx, session.Config{
		Sampler:   sampler.New(nil),
		Scheduler: sched,
		Alerter:   alerter,
		Prefs:     cfg.Prefs,
		Settings:  cfg.Settings,
		Logger:    logger,
	})
	defer ctrl.Close()

	infos, err := cfg.Registry.List()
	if err != nil {
		logger.Warn("failed to list datasets", "error", err)
	}
	m := NewModel(ctx, Options{
		Controller: ctrl,
		Loader:     cfg.Registry,
		Datasets:   infos,
		Consent:    cfg.Prefs,
		Logger:     logger,
	})
	program = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
