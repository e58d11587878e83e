// Command emotionview inspects and maintains the detection database.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"emotion-detector/internal/database"
	"emotion-detector/internal/emotion"
	"emotion-detector/internal/logger"
)

const reportHistory = 20

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	v     *viper.Viper
	out   io.Writer
	store *database.Store
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:           "emotionview",
		Short:         "Inspect the emotion detection database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.report(cmd.Context())
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.String("driver", "sqlite3", "database driver (sqlite3 or pgx)")
	flags.String("db", "emotions.db", "sqlite file or postgres DSN")
	flags.Bool("verbose", false, "log database activity")
	flags.Bool("no-color", false, "disable colored output")
	a.v.BindPFlag("db.driver", flags.Lookup("driver"))
	a.v.BindPFlag("db.path", flags.Lookup("db"))
	a.v.BindPFlag("verbose", flags.Lookup("verbose"))
	a.v.BindPFlag("no_color", flags.Lookup("no-color"))

	a.v.SetEnvPrefix("EMOTION")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		a.infoCmd(),
		a.statsCmd(),
		a.historyCmd(),
		a.searchCmd(),
		a.pruneCmd(),
		a.clearCmd(),
	)
	return root
}

func (a *app) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if a.v.GetBool("no_color") {
		color.NoColor = true
	}

	log := zap.NewNop()
	if a.v.GetBool("verbose") {
		l, err := logger.New(logger.Config{Environment: "dev", LogLevel: "debug", ServiceName: "emotionview"})
		if err != nil {
			return err
		}
		log = l
	}

	driver := a.v.GetString("db.driver")
	path := a.v.GetString("db.path")
	if driver == "sqlite3" {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("database %s: %w", path, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	store, err := database.Open(ctx, database.Options{Driver: driver, DSN: path}, log)
	if err != nil {
		return err
	}
	a.store = store
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

func (a *app) report(ctx context.Context) error {
	titleColor.Fprintln(a.out, strings.Repeat("=", 70))
	titleColor.Fprintln(a.out, "AI EMOTION DETECTION - DATABASE VIEWER")
	titleColor.Fprintln(a.out, strings.Repeat("=", 70))

	info, err := a.store.Info(ctx)
	if err != nil {
		return err
	}
	if err := writeInfo(a.out, info); err != nil {
		return err
	}

	stats, err := a.store.Statistics(ctx)
	if err != nil {
		return err
	}
	if err := writeStats(a.out, stats); err != nil {
		return err
	}

	recs, err := a.store.RecentHistory(ctx, reportHistory)
	if err != nil {
		return err
	}
	if err := writeHistory(a.out, fmt.Sprintf("RECENT HISTORY - Last %d", reportHistory), recs); err != nil {
		return err
	}
	mutedColor.Fprintf(a.out, "\nShowing %d of %d total records\n", len(recs), stats.Total)
	return nil
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show database location and size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := a.store.Info(cmd.Context())
			if err != nil {
				return err
			}
			return writeInfo(a.out, info)
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show detection statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.store.Statistics(cmd.Context())
			if err != nil {
				return err
			}
			return writeStats(a.out, stats)
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recent detections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := a.store.RecentHistory(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return writeHistory(a.out, "RECENT HISTORY", recs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", reportHistory, "number of records")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <emotion>",
		Short: "List detections with the given emotion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label, err := emotion.ParseLabel(args[0])
			if err != nil {
				return err
			}
			recs, err := a.store.SearchByEmotion(cmd.Context(), label.String(), limit)
			if err != nil {
				return err
			}
			return writeHistory(a.out, "DETECTIONS - "+strings.ToUpper(label.String()), recs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of records")
	return cmd
}

func (a *app) pruneCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete detections older than --days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days <= 0 {
				return errors.New("--days must be positive")
			}
			n, err := a.store.DeleteOlderThan(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %s records older than %d days\n", valueColor.Sprint(n), days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "age threshold in days")
	return cmd
}

func (a *app) clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every detection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear without --yes")
			}
			n, err := a.store.ClearAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %s records\n", valueColor.Sprint(n))
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
