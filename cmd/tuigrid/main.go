// Package main provides the CLI entrypoint for tuigrid.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verte-zerg/tuigrid/internal/catalog"
	"github.com/verte-zerg/tuigrid/internal/config"
	"github.com/verte-zerg/tuigrid/internal/grid"
	"github.com/verte-zerg/tuigrid/internal/logclient"
	"github.com/verte-zerg/tuigrid/internal/logging"
	"github.com/verte-zerg/tuigrid/internal/model"
	"github.com/verte-zerg/tuigrid/internal/server"
	"github.com/verte-zerg/tuigrid/internal/stats"
	"github.com/verte-zerg/tuigrid/internal/statsui"
	"github.com/verte-zerg/tuigrid/internal/store"
	"github.com/verte-zerg/tuigrid/internal/trial"
	"github.com/verte-zerg/tuigrid/internal/tui"
)

const (
	defaultAction         = string(model.ModeClick)
	defaultRows           = 3
	defaultCols           = 3
	defaultServer         = "http://127.0.0.1:5008"
	defaultFadePercentage = 40
	defaultFadeDuration   = 1.0
	defaultHighlightColor = "#28a745"
	defaultTrendWindow    = 5
	defaultLogLevel       = "info"
	flushTimeout          = 3 * time.Second
)

var (
	trialAction        string
	trialTags          []string
	trialVisibleTags   []string
	trialRows          int
	trialCols          int
	trialCatalog       string
	trialServer        string
	trialDownloadDir   string
	trialLogLevel      string
	promptEnable       bool
	promptUseDelay     bool
	promptDelay        float64
	promptType         string
	promptFadePct      int
	promptFadeDuration float64
	promptHighlight    string
	promptReinforce    bool
	promptDance        bool

	statsSince  string
	statsLast   int
	statsWindow int
	statsPlain  bool

	tagsCatalog string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tuigrid",
		Short:         "Terminal matching and discrimination trials",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTrialCmd,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&trialAction, "action", defaultAction, "action mode: click, click_and_drag or manual_data_entry")
	flags.StringSliceVar(&trialTags, "tags", nil, "target tags (comma separated)")
	flags.StringSliceVar(&trialVisibleTags, "visible-tags", nil, "target tags whose drop zone label is shown")
	flags.IntVar(&trialRows, "rows", defaultRows, "grid rows")
	flags.IntVar(&trialCols, "cols", defaultCols, "grid columns")
	flags.StringVar(&trialCatalog, "catalog", config.DefaultCatalogPath(), "image tag catalog (CSV)")
	flags.StringVar(&trialServer, "server", defaultServer, "log service base URL")
	flags.StringVar(&trialDownloadDir, "download-dir", ".", "directory for downloaded session data")
	flags.StringVar(&trialLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	flags.BoolVar(&promptEnable, "enable-prompting", false, "show a prompt toward the correct answer")
	flags.BoolVar(&promptUseDelay, "use-prompt-delay", false, "delay the prompt by --prompt-delay seconds")
	flags.Float64Var(&promptDelay, "prompt-delay", 0, "prompt delay in seconds")
	flags.StringVar(&promptType, "prompt-type", model.PromptFade, "prompt type: fade, highlight or none")
	flags.IntVar(&promptFadePct, "fade-percentage", defaultFadePercentage, "how far distractors fade (0-100)")
	flags.Float64Var(&promptFadeDuration, "fade-duration", defaultFadeDuration, "fade transition in seconds")
	flags.StringVar(&promptHighlight, "highlight-color", defaultHighlightColor, "highlight color (#RRGGBB)")
	flags.BoolVar(&promptReinforce, "enable-reinforcement", true, "show correct/incorrect feedback")
	flags.BoolVar(&promptDance, "enable-dance-animation", false, "animate correct responses")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newTagsCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func runTrialCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyTrialConfig(cmd, fileCfg)

	mode := model.ActionMode(trialAction)
	prompt := promptConfig()
	if err := validateConfig(mode, prompt); err != nil {
		return err
	}

	log, err := logging.New(trialLogLevel, config.DefaultLogPath())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	cat, err := catalog.Load(trialCatalog)
	if err != nil {
		return err
	}
	layout, err := grid.New().Build(cat, grid.Spec{
		SelectedTags: trialTags,
		VisibleTags:  trialVisibleTags,
		Rows:         trialRows,
		Cols:         trialCols,
	})
	if err != nil {
		return err
	}

	client, err := logclient.New(trialServer, logclient.WithLogger(log))
	if err != nil {
		return err
	}

	session := trial.NewSession(uuid.NewString(), trialTags, time.Now())
	ctrl, err := trial.New(session, layout, mode, prompt,
		trial.WithReporter(client),
		trial.WithLogger(log.With(zap.String("session", session.ID()))))
	if err != nil {
		return err
	}
	log.Info("trial session started",
		zap.String("session", session.ID()),
		zap.String("mode", string(mode)),
		zap.Strings("tags", trialTags),
		zap.String("prompt", prompt.Label()))

	ui := tui.NewModel(ctrl, client, trialDownloadDir, log)
	program := tea.NewProgram(ui, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := client.Wait(flushCtx); err != nil {
		logErrf("some trials may not have been logged: %v\n", err)
	}
	if err := ui.Err(); err != nil {
		return err
	}
	if err := stats.RenderSummary(cmd.OutOrStdout(), stats.Summarize(session.Records())); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func applyTrialConfig(cmd *cobra.Command, fileCfg config.FileConfig) {
	t, p := fileCfg.Trial, fileCfg.Prompt
	applyStringConfig(cmd, "action", &trialAction, t.Action)
	applyStringSliceConfig(cmd, "tags", &trialTags, t.Tags)
	applyStringSliceConfig(cmd, "visible-tags", &trialVisibleTags, t.VisibleTags)
	applyIntConfig(cmd, "rows", &trialRows, t.Rows)
	applyIntConfig(cmd, "cols", &trialCols, t.Cols)
	applyStringConfig(cmd, "catalog", &trialCatalog, t.Catalog)
	applyStringConfig(cmd, "server", &trialServer, t.Server)
	applyBoolConfig(cmd, "enable-prompting", &promptEnable, p.Enable)
	applyBoolConfig(cmd, "use-prompt-delay", &promptUseDelay, p.UseDelay)
	applyFloatConfig(cmd, "prompt-delay", &promptDelay, p.Delay)
	applyStringConfig(cmd, "prompt-type", &promptType, p.Type)
	applyIntConfig(cmd, "fade-percentage", &promptFadePct, p.FadePercentage)
	applyFloatConfig(cmd, "fade-duration", &promptFadeDuration, p.FadeDuration)
	applyStringConfig(cmd, "highlight-color", &promptHighlight, p.HighlightColor)
	applyBoolConfig(cmd, "enable-reinforcement", &promptReinforce, p.Reinforcement)
	applyBoolConfig(cmd, "enable-dance-animation", &promptDance, p.DanceAnimation)
}

// promptConfig builds the prompt settings from flags. The prompt type is
// blanked when prompting is off or set to none so records carry "None".
func promptConfig() model.PromptConfig {
	cfg := model.PromptConfig{
		EnablePrompting:      promptEnable,
		UsePromptDelay:       promptUseDelay,
		PromptDelay:          promptDelay,
		PromptType:           strings.ToLower(strings.TrimSpace(promptType)),
		FadePercentage:       promptFadePct,
		FadeDuration:         promptFadeDuration,
		HighlightColor:       promptHighlight,
		EnableReinforcement:  promptReinforce,
		EnableDanceAnimation: promptDance,
	}
	if !cfg.EnablePrompting || cfg.PromptType == "none" {
		cfg.PromptType = ""
	}
	return cfg
}

func validateConfig(mode model.ActionMode, prompt model.PromptConfig) error {
	if !mode.Valid() {
		return fmt.Errorf("--action must be one of click, click_and_drag, manual_data_entry")
	}
	if len(trialTags) == 0 {
		return fmt.Errorf("--tags must not be empty (list available tags with: tuigrid tags)")
	}
	if trialRows <= 0 || trialCols <= 0 {
		return fmt.Errorf("--rows and --cols must be > 0")
	}
	switch prompt.PromptType {
	case "", model.PromptFade, model.PromptHighlight:
	default:
		return fmt.Errorf("--prompt-type must be fade, highlight or none")
	}
	if prompt.PromptDelay < 0 {
		return fmt.Errorf("--prompt-delay must be >= 0")
	}
	if prompt.FadePercentage < 0 || prompt.FadePercentage > 100 {
		return fmt.Errorf("--fade-percentage must be between 0 and 100")
	}
	if prompt.FadeDuration < 0 {
		return fmt.Errorf("--fade-duration must be >= 0")
	}
	return nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the trial log service",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
}

func runServeCmd(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadServiceConfig(".env")
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Warn("failed to close db", zap.Error(cerr))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Info("using database", zap.String("path", cfg.DBPath))
	return server.Run(ctx, cfg.Addr, server.NewHandler(st, log), log)
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show logged session stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsWindow, "window", defaultTrendWindow, "moving average window for the accuracy trend")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a plain table instead of the interactive view")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if statsWindow < 1 {
		return fmt.Errorf("--window must be >= 1")
	}
	cfg := model.StatsConfig{Since: sinceTime, Last: statsLast, TrendWindow: statsWindow}

	svcCfg, err := config.LoadServiceConfig(".env")
	if err != nil {
		return err
	}
	st, err := store.Open(svcCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if statsPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		sessions, err := st.ListSessions(cmd.Context(), cfg.Filter())
		if err != nil {
			return fmt.Errorf("failed to load sessions: %w", err)
		}
		return stats.RenderSessionTable(cmd.OutOrStdout(), sessions)
	}

	program := tea.NewProgram(statsui.NewModel(st, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newTagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List tags in the image catalog",
		Args:  cobra.NoArgs,
		RunE:  runTagsCmd,
	}
	cmd.Flags().StringVar(&tagsCatalog, "catalog", "", "image tag catalog (CSV)")
	return cmd
}

func runTagsCmd(cmd *cobra.Command, _ []string) error {
	path := tagsCatalog
	if path == "" {
		fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		path = config.DefaultCatalogPath()
		if fileCfg.Trial.Catalog != nil {
			path = *fileCfg.Trial.Catalog
		}
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return err
	}
	for _, tag := range cat.Tags() {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), tag); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
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

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyStringSliceConfig(cmd *cobra.Command, name string, target, value *[]string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = append([]string(nil), (*value)...)
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

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tuigrid configuration
# Uncomment a value to enable it. CLI flags override config values.

[trial]
# action = %q              # click, click_and_drag or manual_data_entry
# tags = ["animal"]              # Target tags
# visible-tags = ["animal"]      # Tags whose drop zone label is shown
# rows = %d                       # Grid rows
# cols = %d                       # Grid columns
# catalog = %q
# server = %q

[prompt]
# enable-prompting = false
# use-prompt-delay = false
# prompt-delay = 0.0              # Seconds before the prompt appears
# prompt-type = %q            # fade, highlight or none
# fade-percentage = %d           # How far distractors fade (0-100)
# fade-duration = %.1f            # Fade transition in seconds
# highlight-color = %q
# enable-reinforcement = true
# enable-dance-animation = false
`,
		defaultAction,
		defaultRows,
		defaultCols,
		config.DefaultCatalogPath(),
		defaultServer,
		model.PromptFade,
		defaultFadePercentage,
		defaultFadeDuration,
		defaultHighlightColor,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
