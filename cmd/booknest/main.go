package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/erwar/booknest/internal/catalog"
	"github.com/erwar/booknest/internal/config"
	"github.com/erwar/booknest/internal/logging"
	"github.com/erwar/booknest/internal/notify"
	"github.com/erwar/booknest/internal/reminder"
	"github.com/erwar/booknest/internal/storage"
	"github.com/erwar/booknest/internal/tracker"
)

var (
	configDir string
	dbPath    string
	logLevel  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "booknest",
		Short: "BookNest - track your reading progress and deadlines",
		Long: `BookNest keeps a log of your reading sessions, notes and progress per book,
works out how much of each book you have read, and reminds you of due dates.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory containing config.yaml")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to SQLite database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides config)")

	rootCmd.AddCommand(
		addCmd(),
		listCmd(),
		showCmd(),
		editCmd(),
		deleteCmd(),
		favoriteCmd(),
		rateCmd(),
		sessionCmd(),
		progressCmd(),
		noteCmd(),
		logsCmd(),
		unlogCmd(),
		dueCmd(),
		notificationsCmd(),
		reconcileCmd(),
		pendingCmd(),
		watchCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, userMessage(err))
		os.Exit(1)
	}
}

type services struct {
	cfg     *config.Config
	logger  *slog.Logger
	repo    *storage.SQLiteRepository
	queue   *notify.Queue
	tracker *tracker.Tracker
	catalog *catalog.Lookup
}

func initServices() (*services, func(), error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return nil, nil, fmt.Errorf("create db directory: %w", err)
	}

	repo, err := storage.NewSQLiteRepository(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init repository: %w", err)
	}

	queue := notify.NewQueue(repo)
	scheduler := reminder.NewScheduler(queue, reminder.Payload{
		Title: cfg.Reminder.Title,
		Body:  cfg.Reminder.Body,
	}, logger)

	t := tracker.New(repo, repo, repo, scheduler, tracker.Options{
		NotificationsDefault:  cfg.Notifications.DefaultEnabled,
		AllowStatusRegression: cfg.Progress.AllowStatusRegression,
	}, logger)

	lookup := catalog.NewLookup(logger,
		catalog.NewOpenLibraryClient(cfg.Catalog.Timeout),
		catalog.NewGoogleBooksClient(cfg.Catalog.GoogleAPIKey, cfg.Catalog.Timeout),
	)

	cleanup := func() { repo.Close() }

	return &services{cfg: cfg, logger: logger, repo: repo, queue: queue, tracker: t, catalog: lookup}, cleanup, nil
}

// withServices runs fn with initialized services and a background context.
func withServices(fn func(ctx context.Context, s *services) error) error {
	s, cleanup, err := initServices()
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(context.Background(), s)
}
