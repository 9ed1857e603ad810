package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vytor/studyflow/internal/models"
	"github.com/vytor/studyflow/internal/services"
)

func newSubjectsCommand() *cobra.Command {
	subjectsCmd := &cobra.Command{
		Use:   "subjects",
		Short: "Manage configured subjects",
	}
	subjectsCmd.AddCommand(newSubjectsListCommand())
	subjectsCmd.AddCommand(newSubjectsAddCommand())
	return subjectsCmd
}

func newSubjectsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured subjects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				subjects, err := a.schedule.ListSubjects(ctx, userID)
				if err != nil {
					return fmt.Errorf("failed to list subjects: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(subjects) == 0 {
					_, _ = fmt.Fprintln(out, "No subjects yet. Use 'studyctl subjects add <code> <count>' to add one.")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "CODE\tNAME\tITEMS")
				for _, s := range subjects {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%d\n", s.Code, s.DisplayName, s.TotalItemCount)
				}
				return w.Flush()
			})
		},
	}
}

func newSubjectsAddCommand() *cobra.Command {
	var displayName string
	cmd := &cobra.Command{
		Use:   "add <code> <item count>",
		Short: "Add or update a subject",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid item count %q", args[1])
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				subject := models.Subject{Code: args[0], DisplayName: displayName, TotalItemCount: count}
				if err := a.schedule.SaveSubject(ctx, userID, subject); err != nil {
					return fmt.Errorf("failed to save subject: %w", err)
				}
				color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Saved subject %s with %d items\n", subject.Code, count)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&displayName, "name", "", "display name")
	return cmd
}

func newDueCommand() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List items due for review by the end of the day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			when := now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be an RFC 3339 timestamp: %w", err)
				}
				when = parsed
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				items, err := a.schedule.GetDueItems(ctx, userID, when)
				if err != nil {
					return fmt.Errorf("failed to get due items: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					color.New(color.FgGreen).Fprintln(out, "Nothing due.")
					return nil
				}
				return printItems(out, items)
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "evaluate at this RFC 3339 time instead of now")
	return cmd
}

func newSuggestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "Suggest the next unstarted item of each subject",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				items, err := a.schedule.GetNewSuggestions(ctx, userID)
				if err != nil {
					return fmt.Errorf("failed to get suggestions: %w", err)
				}
				if len(items) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No new items to suggest.")
					return nil
				}
				return printItems(cmd.OutOrStdout(), items)
			})
		},
	}
}

func newSetStageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-stage <subject> <ordinal> <stage>",
		Short: "Set an item's stage without recording a completion",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ordinal, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid ordinal %q", args[1])
			}
			stage, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid stage %q", args[2])
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				item, err := a.schedule.ManualSetStage(ctx, userID, args[0], ordinal, stage, now())
				if err != nil {
					return fmt.Errorf("failed to set stage: %w", err)
				}
				color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "%s is now at stage %d, next review %s\n", item.ID, item.Stage, item.NextReviewAt)
				return nil
			})
		},
	}
}

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <subject>",
		Short: "Delete every item record of a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				n, err := a.schedule.ResetSubject(ctx, userID, args[0])
				if err != nil {
					return fmt.Errorf("failed to reset subject: %w", err)
				}
				color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "Removed %d items of %s\n", n, args[0])
				return nil
			})
		},
	}
}

func newTaskCommand() *cobra.Command {
	var input services.TaskInput
	cmd := &cobra.Command{
		Use:   "task <title>",
		Short: "Create a one-off task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input.Title = args[0]
			return withApp(cmd, func(ctx context.Context, a *app) error {
				item, err := a.schedule.CreateTask(ctx, userID, input)
				if err != nil {
					return fmt.Errorf("failed to create task: %w", err)
				}
				color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Created %s\n", item.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&input.Description, "description", "", "task description")
	cmd.Flags().StringVar(&input.Difficulty, "difficulty", "", "easy, medium or hard")
	return cmd
}

func printItems(out io.Writer, items []models.Item) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTAGE\tNEXT REVIEW")
	for _, it := range items {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", it.ID, it.Stage, it.NextReviewAt)
	}
	return w.Flush()
}
