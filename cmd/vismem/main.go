// Package main provides the CLI entrypoint for vismem.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/vismem/internal/config"
	"github.com/verte-zerg/vismem/internal/generator"
	"github.com/verte-zerg/vismem/internal/logging"
	"github.com/verte-zerg/vismem/internal/model"
	"github.com/verte-zerg/vismem/internal/progress"
	"github.com/verte-zerg/vismem/internal/session"
	"github.com/verte-zerg/vismem/internal/stats"
	"github.com/verte-zerg/vismem/internal/statsui"
	"github.com/verte-zerg/vismem/internal/stimulus"
	"github.com/verte-zerg/vismem/internal/store"
	"github.com/verte-zerg/vismem/internal/tui"
	"github.com/verte-zerg/vismem/internal/wordlist"
)

const (
	defaultDuration       = 3.0
	defaultInitial        = 5
	defaultFinal          = 10
	defaultLetterSpacing  = 50
	defaultImageSpacing   = 150
	defaultThumbnailCells = 8
	defaultMax            = stimulus.DefaultMax
	defaultCurveWindow    = 10
	defaultLogLevel       = "info"
)

var (
	logLevel string

	historyFormat string
	historyTUI    bool

	statsModality    string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool

	pathsFormat string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vismem",
		Short:         "Terminal visual memory trainer",
		Long:          "Memorise stimuli scattered across the screen, then pick them out of a larger set.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	rootFlags := addQuizFlags(rootCmd, model.Letters)
	rootCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return runQuiz(cmd, model.Letters, rootFlags)
	}

	rootCmd.AddCommand(newQuizCmd(model.Letters, "Memorise letters A-Z"))
	rootCmd.AddCommand(newQuizCmd(model.Words, "Memorise words from the word list"))
	rootCmd.AddCommand(newQuizCmd(model.Images, "Memorise images from the image directory"))
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newPathsCmd())
	return rootCmd
}

// quizFlags holds the flag values of one quiz command. The root command and
// the letters subcommand each bind their own copy.
type quizFlags struct {
	duration   float64
	initial    int
	final      int
	spacing    int
	wordFilter string
	max        int
	thumbCells int
}

func newQuizCmd(modality model.Modality, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   modality.String(),
		Short: short,
		Args:  cobra.NoArgs,
	}
	flags := addQuizFlags(cmd, modality)
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return runQuiz(cmd, modality, flags)
	}
	return cmd
}

func addQuizFlags(cmd *cobra.Command, modality model.Modality) *quizFlags {
	f := &quizFlags{max: defaultMax, thumbCells: defaultThumbnailCells}
	cmd.Flags().Float64Var(&f.duration, "duration", defaultDuration, "seconds the stimuli stay on screen")
	cmd.Flags().IntVar(&f.initial, "initial", defaultInitial, "stimuli to memorise")
	cmd.Flags().IntVar(&f.final, "final", defaultFinal, "candidates shown at recall (>= initial)")
	spacing := defaultLetterSpacing
	if modality == model.Images {
		spacing = defaultImageSpacing
	}
	cmd.Flags().IntVar(&f.spacing, "spacing", spacing, "minimum separation between stimuli (pixels)")
	switch modality {
	case model.Words:
		cmd.Flags().StringVar(&f.wordFilter, "filter", "all", "word filter (all, ascii, short)")
		cmd.Flags().IntVar(&f.max, "max", defaultMax, "largest count a session may request")
	case model.Images:
		cmd.Flags().IntVar(&f.max, "max", defaultMax, "largest count a session may request")
		cmd.Flags().IntVar(&f.thumbCells, "thumbnail-cells", defaultThumbnailCells, "thumbnail width in terminal cells")
	}
	return f
}

func runQuiz(cmd *cobra.Command, modality model.Modality, flags *quizFlags) error {
	if !isTerminal(os.Stdout) {
		return fmt.Errorf("the quiz needs an interactive terminal")
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyQuizConfig(cmd, modality, flags, fileCfg.Quiz)
	paths := config.ResolvePaths(fileCfg)

	logFile, err := logging.OpenFile(paths.Log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := logFile.Close(); cerr != nil {
			logErrf("failed to close log file: %v\n", cerr)
		}
	}()
	logger := logging.NewLogger(resolveLogLevel(cmd, fileCfg), logFile).With("modality", modality.String())

	gen := generator.New()
	source, err := openSource(modality, flags, paths, gen)
	if err != nil {
		return sourceLoadError(modality, err)
	}

	defaults := model.SessionConfig{
		DurationSeconds: flags.duration,
		InitialCount:    flags.initial,
		FinalCount:      flags.final,
	}
	if !cmd.Flags().Changed("final") && fileCfg.Quiz.Final == nil {
		defaults = fitUniverse(defaults, source.Available())
	}
	if err := session.Validate(defaults, source.Max()); err != nil {
		return err
	}

	opts := tui.Options{
		Source:        source,
		Defaults:      defaults,
		Spacing:       flags.spacing,
		ThumbnailCols: flags.thumbCells,
		History:       progress.New(paths.Progress, logger),
		Generator:     gen,
		Logger:        logger,
	}
	st, err := store.Open(paths.DB, logger)
	if err != nil {
		logger.Warn("session archive unavailable", "path", paths.DB, "err", err)
	} else {
		opts.Archiver = st
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
	}

	logger.Info("starting quiz", "max", source.Max(), "available", source.Available())
	program := tea.NewProgram(tui.NewModel(opts), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func applyQuizConfig(cmd *cobra.Command, modality model.Modality, f *quizFlags, q config.QuizConfig) {
	applyFloatConfig(cmd, "duration", &f.duration, q.Duration)
	applyIntConfig(cmd, "initial", &f.initial, q.Initial)
	applyIntConfig(cmd, "final", &f.final, q.Final)
	switch modality {
	case model.Images:
		applyIntConfig(cmd, "spacing", &f.spacing, q.ImageSpacing)
		applyIntConfig(cmd, "thumbnail-cells", &f.thumbCells, q.ThumbnailCells)
	case model.Words:
		applyIntConfig(cmd, "spacing", &f.spacing, q.LetterSpacing)
		applyStringConfig(cmd, "filter", &f.wordFilter, q.WordFilter)
	default:
		applyIntConfig(cmd, "spacing", &f.spacing, q.LetterSpacing)
	}
}

func openSource(modality model.Modality, f *quizFlags, paths config.Paths, gen *generator.Generator) (stimulus.Source, error) {
	switch modality {
	case model.Words:
		filter, err := wordlist.FilterFor(f.wordFilter)
		if err != nil {
			return nil, err
		}
		return stimulus.LoadWords(paths.Words, f.max, filter, gen)
	case model.Images:
		return stimulus.LoadImages(paths.Images, f.max, stimulus.NewResizer(stimulus.DefaultThumbnailSize), gen)
	default:
		return stimulus.NewLetters(gen), nil
	}
}

// fitUniverse lowers the default counts to a small word list or image directory.
func fitUniverse(cfg model.SessionConfig, available int) model.SessionConfig {
	if cfg.FinalCount > available {
		cfg.FinalCount = available
	}
	if cfg.InitialCount > cfg.FinalCount {
		cfg.InitialCount = cfg.FinalCount
	}
	return cfg
}

func sourceLoadError(modality model.Modality, err error) error {
	var loadErr *model.ResourceLoadError
	if !errors.As(err, &loadErr) {
		return err
	}
	lines := []string{err.Error()}
	switch modality {
	case model.Words:
		lines = append(lines,
			fmt.Sprintf("expected a UTF-8 word list with one word per line at: %s", loadErr.Resource),
			fmt.Sprintf("Set [paths] words in %s or VISMEM_WORDS to use another file.", config.DefaultConfigPath()))
	case model.Images:
		lines = append(lines,
			fmt.Sprintf("expected .png, .jpg, .jpeg or .gif files in: %s", loadErr.Resource),
			fmt.Sprintf("Set [paths] images in %s or VISMEM_IMAGES to use another directory.", config.DefaultConfigPath()))
	}
	return fmt.Errorf("%s", strings.Join(lines, "\n"))
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past scores, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyFormat, "format", "table", "output format (table, json, yaml)")
	cmd.Flags().BoolVar(&historyTUI, "tui", false, "browse history in the stats interface")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	paths := config.ResolvePaths(fileCfg)
	logger := logging.NewLogger(resolveLogLevel(cmd, fileCfg), cmd.ErrOrStderr())
	history := progress.New(paths.Progress, logger)

	if historyTUI {
		return runStatsUI(nil, history, model.StatsConfig{CurveWindow: defaultCurveWindow})
	}
	records, err := history.Load(cmd.Context())
	if err != nil {
		return err
	}
	return stats.RenderHistory(cmd.OutOrStdout(), records, historyFormat)
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show recall statistics from the session archive",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsModality, "modality", "", "modality filter (letters, words, images)")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the interactive view")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := statsConfigFromFlags()
	if err != nil {
		return err
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	paths := config.ResolvePaths(fileCfg)
	logger := logging.NewLogger(resolveLogLevel(cmd, fileCfg), cmd.ErrOrStderr())

	st, err := store.Open(paths.DB, logger)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if statsPlain || !isTerminal(os.Stdout) {
		return writeStatsReport(cmd, st, cfg)
	}
	return runStatsUI(st, progress.New(paths.Progress, logger), cfg)
}

func statsConfigFromFlags() (model.StatsConfig, error) {
	cfg := model.StatsConfig{Last: statsLast, CurveWindow: statsCurveWindow}
	if statsModality != "" {
		modality, err := model.ParseModality(strings.ToLower(statsModality))
		if err != nil {
			return cfg, fmt.Errorf("invalid --modality value: %w", err)
		}
		cfg.Modality = modality
	}
	if statsSince != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, statsSince, time.Local)
		if err != nil {
			return cfg, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	if cfg.Last < 0 {
		return cfg, fmt.Errorf("--last must be >= 0")
	}
	if cfg.CurveWindow < 1 {
		return cfg, fmt.Errorf("--curve-window must be >= 1")
	}
	return cfg, nil
}

func writeStatsReport(cmd *cobra.Command, st *store.Store, cfg model.StatsConfig) error {
	report, err := stats.BuildReport(cmd.Context(), st, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderSummary(out, report.Sessions); err != nil {
		return err
	}
	if err := stats.RenderCurves(out, report.Sessions, cfg.CurveWindow); err != nil {
		return err
	}
	if len(report.Sessions) == 0 {
		return nil
	}
	return stats.RenderStimulusTable(out, report.StimulusAggsWindow)
}

func runStatsUI(st *store.Store, history statsui.HistoryLoader, cfg model.StatsConfig) error {
	if !isTerminal(os.Stdout) {
		return fmt.Errorf("the stats view needs an interactive terminal")
	}
	program := tea.NewProgram(statsui.NewModel(st, history, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
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
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// ensureConfigFile writes the commented template unless path already exists.
func ensureConfigFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config: %w", err)
	}
	if err := os.WriteFile(path, []byte(config.Template(templateDefaults())), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func templateDefaults() config.Defaults {
	return config.Defaults{
		Duration:       defaultDuration,
		Initial:        defaultInitial,
		Final:          defaultFinal,
		LetterSpacing:  defaultLetterSpacing,
		ImageSpacing:   defaultImageSpacing,
		ThumbnailCells: defaultThumbnailCells,
	}
}

func newPathsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the resolved file locations",
		Args:  cobra.NoArgs,
		RunE:  runPathsCmd,
	}
	cmd.Flags().StringVar(&pathsFormat, "format", "yaml", "output format (yaml, json)")
	return cmd
}

func runPathsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return writePaths(cmd.OutOrStdout(), config.ResolvePaths(fileCfg), pathsFormat)
}

func writePaths(w io.Writer, paths config.Paths, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(paths)
	case "", "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(paths); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown paths format %q (expected yaml or json)", format)
	}
}

func resolveLogLevel(cmd *cobra.Command, fileCfg config.FileConfig) string {
	if cmd.Flags().Changed("log-level") {
		return logLevel
	}
	return config.ResolveLogLevel(fileCfg, logLevel)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
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

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
