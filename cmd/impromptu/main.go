// Package main provides the CLI entrypoint for impromptu.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/verte-zerg/impromptu/internal/alert"
	"github.com/verte-zerg/impromptu/internal/config"
	"github.com/verte-zerg/impromptu/internal/dataset"
	"github.com/verte-zerg/impromptu/internal/drill"
	"github.com/verte-zerg/impromptu/internal/historyui"
	"github.com/verte-zerg/impromptu/internal/model"
	"github.com/verte-zerg/impromptu/internal/prefs"
	"github.com/verte-zerg/impromptu/internal/stats"
	"github.com/verte-zerg/impromptu/internal/store"
	"github.com/verte-zerg/impromptu/internal/tui"
)

const (
	defaultHistoryTop = 10
	defaultTermWidth  = 100
)

var (
	practiceDataset    string
	practicePrompts    int
	practicePrep       int
	practiceSpeak      int
	practiceAutoStart  bool
	practiceForceSame  bool
	practiceAlert      bool
	practiceAlertSound bool
	practicePreset     string

	verbose bool

	historyLast    int
	historyDataset string
	historyTop     int
	historyTUI     bool

	importForce bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "impromptu",
		Short:         "Impromptu speech practice timer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}
	addPracticeFlags(rootCmd.Flags())
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "write debug logs")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newConsentCmd())
	rootCmd.AddCommand(newDatasetsCmd())
	rootCmd.AddCommand(newDatasetCmd())
	rootCmd.AddCommand(newDrillCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

func addPracticeFlags(fs *pflag.FlagSet) {
	def := model.DefaultSettings()
	fs.StringVar(&practiceDataset, "dataset", def.Dataset, "dataset key")
	fs.IntVar(&practicePrompts, "prompts", def.Prompts, "topics drawn per session (1-5)")
	fs.IntVar(&practicePrep, "prep", def.PrepTime, "preparation seconds (0 skips preparation)")
	fs.IntVar(&practiceSpeak, "speak", def.SpeakTime, "speaking target in seconds")
	fs.BoolVar(&practiceAutoStart, "auto-start", def.AutoStart, "start the preparation clock automatically")
	fs.BoolVar(&practiceForceSame, "force-same", def.ForceSame, "draw all topics from one category")
	fs.BoolVar(&practiceAlert, "alert", def.Alert, "alert when preparation ends")
	fs.BoolVar(&practiceAlertSound, "alert-sound", def.AlertSound, "play a tone in addition to the terminal bell")
	fs.StringVar(&practicePreset, "preset", "", "timing preset ("+presetNames()+")")
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger, closeLog, err := openLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	purgeExpired(ctx, st, logger)

	p := prefs.New(ctx, st, logger)
	settings, err := resolveSettings(ctx, cmd, p)
	if err != nil {
		return err
	}
	logger.Info("starting practice", "dataset", settings.Dataset, "consent", p.Tier().String())

	return tui.Run(ctx, tui.RunConfig{
		Settings: settings,
		Prefs:    p,
		Registry: dataset.NewRegistry(config.DefaultDatasetDir()),
		Logger:   logger,
		Bell:     os.Stderr,
	})
}

// resolveSettings layers defaults, the config file, persisted settings and
// changed flags, in that order.
func resolveSettings(ctx context.Context, cmd *cobra.Command, p *prefs.Prefs) (model.Settings, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	settings, err := fileCfg.Practice.Apply(model.DefaultSettings())
	if err != nil {
		return model.Settings{}, fmt.Errorf("invalid config: %w", err)
	}
	settings = p.LoadSettings(ctx, settings)
	settings, err = applyFlags(cmd, settings)
	if err != nil {
		return model.Settings{}, err
	}
	if err := config.Validate(settings); err != nil {
		return model.Settings{}, err
	}
	return settings, nil
}

func applyFlags(cmd *cobra.Command, s model.Settings) (model.Settings, error) {
	if cmd.Flags().Changed("preset") {
		var err error
		if s, err = config.ApplyPreset(s, practicePreset); err != nil {
			return s, err
		}
	}
	applyStringFlag(cmd, "dataset", &s.Dataset, practiceDataset)
	applyIntFlag(cmd, "prompts", &s.Prompts, practicePrompts)
	applyIntFlag(cmd, "prep", &s.PrepTime, practicePrep)
	applyIntFlag(cmd, "speak", &s.SpeakTime, practiceSpeak)
	applyBoolFlag(cmd, "auto-start", &s.AutoStart, practiceAutoStart)
	applyBoolFlag(cmd, "force-same", &s.ForceSame, practiceForceSame)
	applyBoolFlag(cmd, "alert", &s.Alert, practiceAlert)
	applyBoolFlag(cmd, "alert-sound", &s.AlertSound, practiceAlertSound)
	return s, nil
}

func newDrillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drill",
		Short: "Run one session with plain text output",
		Args:  cobra.NoArgs,
		RunE:  runDrillCmd,
	}
	addPracticeFlags(cmd.Flags())
	return cmd
}

func runDrillCmd(cmd *cobra.Command, _ []string) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	logger, closeLog, err := openLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	purgeExpired(ctx, st, logger)

	p := prefs.New(ctx, st, logger)
	settings, err := resolveSettings(ctx, cmd, p)
	if err != nil {
		return err
	}

	var alerter alert.Alerter = alert.Bell{W: os.Stderr}
	if settings.AlertSound {
		alerter = alert.Multi{alerter, alert.Async{
			A: alert.Tone{},
			OnError: func(err error) {
				logger.Debug("alert tone failed", "error", err)
			},
		}}
	}
	fd := int(os.Stdout.Fd())
	width, _ := terminalWidth(fd)
	return drill.Run(ctx, drill.Config{
		Settings: settings,
		Prefs:    p,
		Loader:   dataset.NewRegistry(config.DefaultDatasetDir()),
		Out:      cmd.OutOrStdout(),
		Live:     term.IsTerminal(fd),
		Width:    width,
		Alert:    alerter,
		Logger:   logger,
	})
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path, err := ensureConfigFile()
	if err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func ensureConfigFile() (string, error) {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return "", fmt.Errorf("failed to write config: %w", err)
		}
	}
	return path, nil
}

func newConsentCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "consent [none|essential|all]",
		Short:     "Show or set what may be stored",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(prefs.TierNone), string(prefs.TierEssential), string(prefs.TierAll)},
		RunE:      runConsentCmd,
	}
}

func runConsentCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	p := prefs.New(ctx, st, nil)
	if len(args) == 0 {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), p.Tier().String()); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	tier, err := prefs.ParseTier(args[0])
	if err != nil {
		return err
	}
	if err := p.SetTier(ctx, tier); err != nil {
		return err
	}
	logErrf("Consent set to %s\n", tier)
	return nil
}

func newDatasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List available datasets",
		Args:  cobra.NoArgs,
		RunE:  runDatasetsCmd,
	}
}

func runDatasetsCmd(cmd *cobra.Command, _ []string) error {
	reg := dataset.NewRegistry(config.DefaultDatasetDir())
	infos, err := reg.List()
	if err != nil {
		return fmt.Errorf("failed to list datasets: %w", err)
	}
	if len(infos) == 0 {
		logErrln("No datasets found.")
		return nil
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), renderDatasets(infos)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func renderDatasets(infos []dataset.Info) string {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		source := "built-in"
		if !info.Builtin {
			source = info.Path
		}
		rows = append(rows, []string{
			info.Key,
			info.Name,
			strconv.Itoa(info.Categories),
			strconv.Itoa(info.Topics),
			source,
		})
	}
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("KEY", "NAME", "CATEGORIES", "TOPICS", "SOURCE").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	return t.Render()
}

func newDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Manage datasets",
	}
	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Validate and install a YAML dataset",
		Args:  cobra.ExactArgs(1),
		RunE:  runDatasetImportCmd,
	}
	importCmd.Flags().BoolVar(&importForce, "force", false, "overwrite an existing dataset")
	cmd.AddCommand(importCmd)
	return cmd
}

func runDatasetImportCmd(_ *cobra.Command, args []string) error {
	reg := dataset.NewRegistry(config.DefaultDatasetDir())
	info, err := reg.Import(args[0], importForce)
	if err != nil {
		return err
	}
	logErrf("Installed %s (%d categories, %d topics) to %s\n", info.Key, info.Categories, info.Topics, info.Path)
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show practice history",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N sessions")
	cmd.Flags().StringVar(&historyDataset, "dataset", "", "dataset name filter")
	cmd.Flags().IntVar(&historyTop, "top", defaultHistoryTop, "number of categories to show")
	cmd.Flags().BoolVar(&historyTUI, "tui", false, "browse history interactively")

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all stored history",
		Args:  cobra.NoArgs,
		RunE:  runHistoryClearCmd,
	})
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	p := prefs.New(ctx, st, nil)
	if !p.Tier().AllowsHistory() {
		logErrln("History is only kept with consent set to all. Run: impromptu consent all")
	}

	cfg := stats.ReportConfig{Last: historyLast, Dataset: historyDataset}
	if historyTUI {
		program := tea.NewProgram(historyui.NewModel(st, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run history TUI: %w", err)
		}
		return nil
	}

	report, err := stats.BuildReport(ctx, st, cfg)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	width, ok := terminalWidth(int(os.Stdout.Fd()))
	if !ok {
		width = defaultTermWidth
	}
	return writeHistory(cmd.OutOrStdout(), report, width, historyTop)
}

func writeHistory(w io.Writer, report stats.Report, width, top int) error {
	if err := stats.RenderSummary(w, report); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(report.Entries) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderCategoryCounts(w, report.Counts, top); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderHistory(w, report.Entries, width); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func runHistoryClearCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := prefs.New(ctx, st, nil).ClearHistory(ctx); err != nil {
		return err
	}
	logErrln("History cleared.")
	return nil
}

func openStore() (*store.Store, error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

type purger interface {
	Purge(ctx context.Context) (int64, error)
}

// purgeExpired deletes expired preference rows. Failures only warn.
func purgeExpired(ctx context.Context, st purger, logger *slog.Logger) {
	n, err := st.Purge(ctx)
	if err != nil {
		logger.Warn("failed to purge expired preferences", "error", err)
		return
	}
	if n > 0 {
		logger.Debug("purged expired preferences", "rows", n)
	}
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

// openLogger writes to the state log file because the TUI owns the terminal.
func openLogger() (*slog.Logger, func(), error) {
	path := config.DefaultLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log: %w", err)
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() {
		if cerr := f.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}, nil
}

func terminalWidth(fd int) (int, bool) {
	if !term.IsTerminal(fd) {
		return 0, false
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return 0, false
	}
	return width, true
}

func applyStringFlag(cmd *cobra.Command, name string, target *string, value string) {
	if !cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func applyIntFlag(cmd *cobra.Command, name string, target *int, value int) {
	if !cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func applyBoolFlag(cmd *cobra.Command, name string, target *bool, value bool) {
	if !cmd.Flags().Changed(name) {
		return
	}
	*target = value
}

func presetNames() string {
	presets := config.Presets()
	names := make([]string, 0, len(presets))
	for _, p := range presets {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

func defaultConfigTemplate() string {
	def := model.DefaultSettings()
	return fmt.Sprintf(`# impromptu configuration
# Uncomment a value to enable it. Saved settings and CLI flags override config values.

[practice]
# preset = "impromptu"    # Timing preset applied before the values below (%s)
# dataset = %q
# prompts = %d              # Topics drawn per session (1-5)
# prep-time = %d          # Preparation seconds (0-600, 0 skips preparation)
# speak-time = %d         # Speaking target in seconds (60-900)
# auto-start = %t        # Start the preparation clock automatically
# force-same = %t       # Draw all topics from one category
# alert = %t             # Alert when preparation ends
# alert-sound = %t      # Play a tone in addition to the terminal bell
`,
		presetNames(),
		def.Dataset,
		def.Prompts,
		def.PrepTime,
		def.SpeakTime,
		def.AutoStart,
		def.ForceSame,
		def.Alert,
		def.AlertSound,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
