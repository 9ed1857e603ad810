package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vytor/studyflow/internal/models"
)

func newHistoryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show completed reviews, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				entries, err := a.logs.GetHistory(ctx, userID)
				if err != nil {
					return fmt.Errorf("failed to get history: %w", err)
				}
				if limit > 0 && len(entries) > limit {
					entries = entries[:limit]
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "COMPLETED AT\tITEM\tSTAGE\tTITLE")
				for _, e := range entries {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
						e.CompletedAt.In(a.logs.Location()).Format(time.DateTime), e.ItemID, e.StageCompleted, e.TitleSnapshot)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of entries, 0 for all")
	return cmd
}

func newAchievementsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "achievements <year> <month>",
		Short: "Show a month of daily achievements",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[0])
			}
			month, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid month %q", args[1])
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				days, err := a.logs.GetMonthAchievements(ctx, userID, year, month)
				if err != nil {
					return fmt.Errorf("failed to get achievements: %w", err)
				}

				keys := make([]string, 0, len(days))
				for k := range days {
					keys = append(keys, k)
				}
				sort.Strings(keys)

				out := cmd.OutOrStdout()
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "DATE\tSTUDY\tTASKS")
				for _, k := range keys {
					var study, tasks int
					for _, e := range days[k].Items {
						if e.Type == models.AchievementTask {
							tasks++
						} else {
							study++
						}
					}
					_, _ = fmt.Fprintf(w, "%s\t%d\t%d\n", k, study, tasks)
				}
				if err := w.Flush(); err != nil {
					return err
				}

				summary := models.Summarize(year, month, days)
				color.New(color.Bold).Fprintf(out, "%d active days, %d reviews, %d tasks\n", summary.Days, summary.Study, summary.Tasks)
				return nil
			})
		},
	}
}
