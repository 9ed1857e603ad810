package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vytor/studyflow/internal/config"
	"github.com/vytor/studyflow/internal/db"
	"github.com/vytor/studyflow/internal/logger"
	"github.com/vytor/studyflow/internal/repository/docstore"
	"github.com/vytor/studyflow/internal/scheduler"
	"github.com/vytor/studyflow/internal/services"
	"github.com/vytor/studyflow/internal/store/sqlite"
)

var (
	userID string
	now    = time.Now
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if _, fprintfErr := fmt.Fprintf(os.Stderr, "failed to execute a command: %+v\n", err); fprintfErr != nil {
			panic(fmt.Errorf("failed to output an error: %w. Reason: %w", err, fprintfErr))
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var debugMode bool
	rootCommand := &cobra.Command{
		Use:           "studyctl",
		Short:         "Inspect and adjust a StudyFlow review schedule",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(debugMode)
			if strings.TrimSpace(userID) == "" || strings.Contains(userID, "/") {
				return fmt.Errorf("invalid --user %q", userID)
			}
			return nil
		},
	}
	flags := rootCommand.PersistentFlags()
	flags.StringVar(&userID, "user", envOr("STUDY_USER", "local"), "user whose schedule is read and written")
	flags.BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCommand.AddCommand(
		newSubjectsCommand(),
		newDueCommand(),
		newSuggestCommand(),
		newSetStageCommand(),
		newResetCommand(),
		newTaskCommand(),
		newHistoryCommand(),
		newAchievementsCommand(),
	)
	return rootCommand
}

// setupLogger sends log output to stderr so command output stays clean.
func setupLogger(debugMode bool) {
	level := logger.WARN
	if debugMode {
		level = logger.DEBUG
	}
	logger.SetDefault(logger.New(
		logger.WithOutput(os.Stderr),
		logger.WithLevel(level),
		logger.WithColors(true),
	))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// app is the service graph a command works against.
type app struct {
	database *db.DB
	schedule services.ScheduleService
	logs     services.LogService
}

func openApp() (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	intervals, err := scheduler.NewIntervalTable(cfg.Intervals...)
	if err != nil {
		return nil, fmt.Errorf("scheduler.NewIntervalTable() > %w", err)
	}
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("db.Open(%s) > %w", cfg.DBPath, err)
	}

	loc := cfg.Location()
	st := sqlite.New(database.DB)
	return &app{
		database: database,
		schedule: services.NewScheduleService(
			docstore.NewSubjectRepository(st),
			docstore.NewItemRepository(st),
			scheduler.New(intervals, loc),
		),
		logs: services.NewLogService(docstore.NewHistoryRepository(st), docstore.NewAchievementRepository(st), loc),
	}, nil
}

func (a *app) Close() error {
	return a.database.Close()
}

// withApp opens the database for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}
