package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/vitae/internal/app"
	"github.com/zjrosen/vitae/internal/assist"
	"github.com/zjrosen/vitae/internal/autosave"
	"github.com/zjrosen/vitae/internal/config"
	"github.com/zjrosen/vitae/internal/flags"
	"github.com/zjrosen/vitae/internal/infrastructure/sqlite"
	"github.com/zjrosen/vitae/internal/log"
	"github.com/zjrosen/vitae/internal/resume"
	"github.com/zjrosen/vitae/internal/session"
	"github.com/zjrosen/vitae/internal/tracing"
	"github.com/zjrosen/vitae/internal/watcher"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

const (
	localConfigPath = ".vitae/config.yaml"
	untitledTitle   = "Untitled résumé"
)

var (
	version   = "dev"
	cfgFile   string
	debugMode bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:     "vitae",
	Short:   "A terminal résumé editor",
	Long:    `A terminal résumé editor with undo/redo, autosave and markdown export.`,
	Version: version,
	RunE:    runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/vitae/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false,
		"write a debug log to the data directory (also VITAE_DEBUG)")
	rootCmd.PersistentFlags().String("data-dir", "",
		"directory holding the résumé database")
	rootCmd.Flags().String("document", "",
		"ID of the résumé to open (default: most recently edited)")
	rootCmd.Flags().String("title", "",
		"create a new résumé with this title")

	// Bind flags to viper
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("data_dir", defaults.DataDir)
	viper.SetDefault("export_dir", defaults.ExportDir)
	viper.SetDefault("history.max_entries", defaults.History.MaxEntries)
	viper.SetDefault("autosave.debounce", defaults.Autosave.Debounce)
	viper.SetDefault("autosave.interval", defaults.Autosave.Interval)
	viper.SetDefault("autosave.exit_timeout", defaults.Autosave.ExitTimeout)
	viper.SetDefault("ui.markdown_style", defaults.UI.MarkdownStyle)
	viper.SetDefault("ui.show_preview", defaults.UI.ShowPreview)
	viper.SetDefault("assist.api_key_env", defaults.Assist.APIKeyEnv)
	viper.SetDefault("assist.model", defaults.Assist.Model)
	viper.SetDefault("assist.cache_ttl", defaults.Assist.CacheTTL)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .vitae/config.yaml (current directory)
		// 2. ~/.config/vitae/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "vitae"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create the user config
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			defaultPath := userConfigPath()
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

func userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return localConfigPath
	}
	return filepath.Join(home, ".config", "vitae", "config.yaml")
}

func debugEnabled() bool {
	return debugMode || os.Getenv("VITAE_DEBUG") != ""
}

// openRepository validates the config and opens the document store.
func openRepository() (*sqlite.DB, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	db, err := sqlite.NewDB(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// loadDocument resolves which résumé to edit. An explicit ID must exist, a
// title always creates a new résumé, and otherwise the most recently edited
// one is opened or a blank one created.
func loadDocument(ctx context.Context, repo resume.Repository, id, title string) (resume.Document, error) {
	if id != "" {
		doc, err := repo.FindByID(ctx, id)
		if err != nil {
			return resume.Document{}, fmt.Errorf("loading résumé: %w", err)
		}
		return doc, nil
	}
	if title == "" {
		summaries, err := repo.List(ctx)
		if err != nil {
			return resume.Document{}, fmt.Errorf("listing résumés: %w", err)
		}
		if len(summaries) > 0 {
			return loadDocument(ctx, repo, summaries[0].ID, "")
		}
		title = untitledTitle
	}

	doc := resume.New(title)
	if err := repo.Save(ctx, doc); err != nil {
		return resume.Document{}, fmt.Errorf("creating résumé: %w", err)
	}
	log.Info(log.CatDB, "Created résumé", "id", doc.ID, "title", title)
	return doc, nil
}

func runApp(cmd *cobra.Command, args []string) error {
	if debugEnabled() {
		if err := os.MkdirAll(cfg.DataDir, 0o750); err == nil {
			cleanup, err := log.Init(filepath.Join(cfg.DataDir, "debug.log"), "vitae")
			if err == nil {
				defer cleanup()
			}
		}
	}

	db, err := openRepository()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	repo := db.DocumentRepository()

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	id, _ := cmd.Flags().GetString("document")
	title, _ := cmd.Flags().GetString("title")
	doc, err := loadDocument(cmd.Context(), repo, id, title)
	if err != nil {
		return err
	}

	featureFlags := flags.New(cfg.Flags)
	var assistClient *assist.Client
	if featureFlags.Enabled(flags.FlagAssist) || featureFlags.Enabled(flags.FlagSalaryEstimate) {
		assistClient = assist.New(assist.Config{
			APIKey:   cfg.Assist.ResolveAPIKey(),
			BaseURL:  cfg.Assist.BaseURL,
			Model:    cfg.Assist.Model,
			CacheTTL: cfg.Assist.CacheTTL,
			Tracer:   provider.Tracer(),
		})
	}

	sess := session.New(session.Config{
		Document:   doc,
		Persister:  repo,
		MaxHistory: cfg.History.MaxEntries,
		Debounce:   cfg.Autosave.Debounce,
		Interval:   cfg.Autosave.Interval,
		Tracer:     provider.Tracer(),
	})

	// Store the config file path for saving preferences
	configFilePath := viper.ConfigFileUsed()
	var configChanges <-chan struct{}
	if configFilePath != "" {
		if w, err := watcher.New(watcher.DefaultConfig(configFilePath)); err == nil {
			if ch, err := w.Start(); err == nil {
				configChanges = ch
				defer func() { _ = w.Stop() }()
			} else {
				_ = w.Stop()
				log.Warn(log.CatConfig, "Config reload disabled", "error", err)
			}
		}
	}

	model := app.New(app.Config{
		Session:       sess,
		Assist:        assistClient,
		Flags:         featureFlags,
		ExportDir:     cfg.ExportDir,
		ConfigPath:    configFilePath,
		MarkdownStyle: cfg.UI.MarkdownStyle,
		ShowPreview:   cfg.UI.ShowPreview,
		DebugMode:     debugEnabled(),
		ConfigChanges: configChanges,
	})
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, runErr := p.Run()
	model.Close()

	if err := closeSession(sess, cfg.Autosave.ExitTimeout, cmd.ErrOrStderr()); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("running program: %w", runErr)
	}
	return nil
}

// closeSession performs the exit flush. When it cannot complete the pending
// changes are printed so they are not lost silently.
func closeSession(sess *session.Session, timeout time.Duration, stderr io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := sess.Close(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, autosave.ErrUnsavedChanges) {
		_, _ = fmt.Fprintf(stderr, "warning: changes were not saved: %v\n%s\n",
			err, session.FormatChanges(sess.PendingChanges()))
	}
	return fmt.Errorf("saving on exit: %w", err)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
