// Package main provides the CLI entrypoint for nback.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verte-zerg/nback/internal/config"
	"github.com/verte-zerg/nback/internal/logging"
	"github.com/verte-zerg/nback/internal/model"
	"github.com/verte-zerg/nback/internal/nback"
	"github.com/verte-zerg/nback/internal/session"
	"github.com/verte-zerg/nback/internal/stats"
	"github.com/verte-zerg/nback/internal/statsui"
	"github.com/verte-zerg/nback/internal/store"
	"github.com/verte-zerg/nback/internal/tui"
)

const (
	defaultCurveWindow = 10
	defaultGenLength   = 20
	defaultGenSymbols  = 9
	defaultScoresWidth = 80
)

var (
	playNBack        int
	playEvents       int
	playIntervalMs   int
	playGridSize     int
	playLetters      int
	playMatchPercent int
	playMode         string
	playDebug        bool

	scoresMode        string
	scoresSince       string
	scoresLast        int
	scoresCurveWindow int
	scoresPlain       bool

	genLength       int
	genSymbols      int
	genMatchPercent int
	genNBack        int
	genSeed         int64
	genLetters      bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "nback",
		Short:         "TUI N-back memory trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	rootCmd.Flags().IntVar(&playNBack, "n", model.DefaultNBack, "how many steps back a match refers to")
	rootCmd.Flags().IntVar(&playEvents, "events", model.DefaultEvents, "stimuli per session")
	rootCmd.Flags().IntVar(&playIntervalMs, "interval-ms", model.DefaultIntervalMs, "milliseconds between stimuli")
	rootCmd.Flags().IntVar(&playGridSize, "grid-size", model.DefaultGridSize, "visual grid side length")
	rootCmd.Flags().IntVar(&playLetters, "letters", model.DefaultLetters, "number of letters in the audio alphabet")
	rootCmd.Flags().IntVar(&playMatchPercent, "match-percent", model.DefaultMatchPercent, "share of eligible positions that match (0-100)")
	rootCmd.Flags().StringVar(&playMode, "mode", model.ModeVisual.String(), "game mode: visual, audio or dual")
	rootCmd.Flags().BoolVar(&playDebug, "debug", false, "write debug entries to the log file")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newScoresCmd())
	rootCmd.AddCommand(newGenerateCmd())

	return rootCmd
}

func loadFileConfig() (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	envCfg, err := config.LoadEnv()
	if err != nil {
		return config.FileConfig{}, err
	}
	return config.Merge(fileCfg, envCfg), nil
}

// resolveSessionConfig overlays config values onto flags the user did not set.
func resolveSessionConfig(cmd *cobra.Command, fileCfg config.FileConfig) (model.SessionConfig, error) {
	applyIntConfig(cmd, "n", &playNBack, fileCfg.Game.NBack)
	applyIntConfig(cmd, "events", &playEvents, fileCfg.Game.Events)
	applyIntConfig(cmd, "interval-ms", &playIntervalMs, fileCfg.Game.IntervalMs)
	applyIntConfig(cmd, "grid-size", &playGridSize, fileCfg.Game.GridSize)
	applyIntConfig(cmd, "letters", &playLetters, fileCfg.Game.Letters)
	applyIntConfig(cmd, "match-percent", &playMatchPercent, fileCfg.Game.MatchPercent)
	applyStringConfig(cmd, "mode", &playMode, fileCfg.Game.Mode)

	settings := model.GameSettings{
		NBack:        playNBack,
		Events:       playEvents,
		IntervalMs:   playIntervalMs,
		GridSize:     playGridSize,
		Letters:      playLetters,
		MatchPercent: playMatchPercent,
	}
	if err := settings.Validate(); err != nil {
		return model.SessionConfig{}, err
	}
	mode, err := model.ParseGameMode(playMode)
	if err != nil {
		return model.SessionConfig{}, fmt.Errorf("--mode: %w", err)
	}
	return model.SessionConfig{Settings: settings, Mode: mode}, nil
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	cfg, err := resolveSessionConfig(cmd, fileCfg)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Path: fileCfg.LogPath(), Debug: playDebug})
	if err != nil {
		logErrf("failed to open log file, logging disabled: %v\n", err)
		logger = logging.Nop()
	}
	defer func() {
		// Best-effort flush.
		_ = logger.Sync()
	}()

	st, err := store.Open(fileCfg.DBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := session.New(ctx, nback.New(), session.Options{
		HighScores: st,
		Results:    st,
		Logger:     logger,
	})
	defer sess.Close()
	sess.SetGameMode(cfg.Mode)

	logger.Debug("starting ui", zap.String("db", fileCfg.DBPath()), zap.Stringer("mode", cfg.Mode))
	program := tea.NewProgram(tui.NewModel(ctx, sess, cfg.Settings), tea.WithAltScreen())
	_, runErr := program.Run()
	// Ending the parent context finishes a running session; wait for its
	// result to reach the store before the store closes.
	cancel()
	sess.Wait()
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}
	return nil
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
	path := config.DefaultConfigPath()
	if err := ensureConfigFile(path); err != nil {
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

// ensureConfigFile writes the commented template unless a file exists.
func ensureConfigFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	return nil
}

func newScoresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Show high score and session history",
		Args:  cobra.NoArgs,
		RunE:  runScoresCmd,
	}
	cmd.Flags().StringVar(&scoresMode, "mode", "", "mode filter: visual, audio or dual")
	cmd.Flags().StringVar(&scoresSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&scoresLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&scoresCurveWindow, "window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&scoresPlain, "plain", false, "print a text report instead of the browser")
	return cmd
}

func buildStatsConfig() (model.StatsConfig, error) {
	sinceTime, err := parseSince(scoresSince)
	if err != nil {
		return model.StatsConfig{}, err
	}
	mode := ""
	if scoresMode != "" {
		parsed, err := model.ParseGameMode(scoresMode)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("--mode: %w", err)
		}
		mode = parsed.String()
	}
	if scoresLast < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if scoresCurveWindow < 1 {
		return model.StatsConfig{}, fmt.Errorf("--window must be >= 1")
	}
	return model.StatsConfig{
		Mode:        mode,
		Since:       sinceTime,
		Last:        scoresLast,
		CurveWindow: scoresCurveWindow,
	}, nil
}

func parseSince(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --since value: %w", err)
	}
	return &parsed, nil
}

func runScoresCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildStatsConfig()
	if err != nil {
		return err
	}
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(fileCfg.DBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	load := func(ctx context.Context, cfg model.StatsConfig) (stats.Report, error) {
		return stats.BuildReport(ctx, st, cfg)
	}

	fd := int(os.Stdout.Fd())
	if scoresPlain || !term.IsTerminal(fd) {
		report, err := load(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to load scores: %w", err)
		}
		width := defaultScoresWidth
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			width = w
		}
		return report.Render(cmd.OutOrStdout(), width)
	}

	program := tea.NewProgram(statsui.NewModel(load, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run scores TUI: %w", err)
	}
	return nil
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print a generated N-back sequence",
		Args:  cobra.NoArgs,
		RunE:  runGenerateCmd,
	}
	cmd.Flags().IntVar(&genLength, "length", defaultGenLength, "sequence length")
	cmd.Flags().IntVar(&genSymbols, "symbols", defaultGenSymbols, "number of distinct symbols")
	cmd.Flags().IntVar(&genMatchPercent, "match-percent", model.DefaultMatchPercent, "share of eligible positions that match (0-100)")
	cmd.Flags().IntVar(&genNBack, "n", model.DefaultNBack, "how many steps back a match refers to")
	cmd.Flags().Int64Var(&genSeed, "seed", 0, "random seed (0 picks one from the clock)")
	cmd.Flags().BoolVar(&genLetters, "letters", false, "print symbols as letters")
	return cmd
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	gen := nback.New()
	if genSeed != 0 {
		gen = nback.NewWithSeed(genSeed)
	}
	seq, err := gen.Generate(genLength, genSymbols, genMatchPercent, genNBack)
	if err != nil {
		return err
	}
	return writeSequence(cmd.OutOrStdout(), seq, genNBack, genLetters)
}

var matchColor = color.New(color.FgGreen, color.Bold)

// writeSequence prints the sequence on one line, highlighting matches.
func writeSequence(w io.Writer, seq nback.Sequence, nBack int, letters bool) error {
	var names []string
	if letters {
		names = nback.Letters(seq)
	}
	parts := make([]string, len(seq))
	for i, sym := range seq {
		label := strconv.Itoa(sym)
		if names != nil {
			label = names[i]
		}
		if nback.IsMatch(seq, i, nBack) {
			label = matchColor.Sprint(label)
		}
		parts[i] = label
	}
	if _, err := fmt.Fprintln(w, strings.Join(parts, " ")); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := fmt.Fprintf(w, "matches: %d\n", nback.CountMatches(seq, nBack)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# nback configuration
# Uncomment a value to enable it. NBACK_* environment variables override
# this file and CLI flags override both.

[game]
# n = %d                  # How many steps back a match refers to (%d-%d)
# events = %d            # Stimuli per session (%d-%d)
# interval-ms = %d     # Milliseconds between stimuli (%d-%d)
# grid-size = %d          # Visual grid side length (%d-%d)
# letters = %d            # Audio alphabet size (%d-%d)
# match-percent = %d     # Share of eligible positions that match (0-100)
# mode = %q        # visual, audio or dual

[paths]
# db = %q
# log = %q
`,
		model.DefaultNBack, model.MinNBack, model.MaxNBack,
		model.DefaultEvents, model.MinEvents, model.MaxEvents,
		model.DefaultIntervalMs, model.MinIntervalMs, model.MaxIntervalMs,
		model.DefaultGridSize, model.MinGridSize, model.MaxGridSize,
		model.DefaultLetters, model.MinLetters, model.MaxLetters,
		model.DefaultMatchPercent,
		model.ModeVisual.String(),
		config.DefaultDBPath(),
		config.DefaultLogPath(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
