package main

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/worktrail/worktrail/client"
)

func newDiaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "diary",
		Aliases: []string{"diaries"},
		Short:   "Manage site diary entries",
	}
	cmd.AddCommand(diaryCreateCmd())
	cmd.AddCommand(diaryGetCmd())
	cmd.AddCommand(diaryListCmd())
	cmd.AddCommand(diaryStatusCmd())
	cmd.AddCommand(actionsCmd("diary entry", func(ctx context.Context, id string) ([]client.StatusAction, error) {
		return apiClient.Diaries.Actions(ctx, parseID(id))
	}))
	cmd.AddCommand(deleteCmd("diary entry", func(ctx context.Context, id string) error {
		return apiClient.Diaries.Delete(ctx, parseID(id))
	}))
	return cmd
}

func diaryCreateCmd() *cobra.Command {
	var project, date, weather, notes string
	var workforce int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Draft a diary entry",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			entryDate := time.Now().UTC().Truncate(24 * time.Hour)
			if date != "" {
				d, err := optionalTime("date", date)
				if err != nil {
					fatal("create diary", err)
				}
				entryDate = *d
			}
			d, err := apiClient.Diaries.Create(cmd.Context(), &client.CreateDiaryRequest{
				ProjectID: requireProject(project),
				EntryDate: entryDate,
				Weather:   weather,
				Workforce: workforce,
				Notes:     notes,
			})
			if err != nil {
				fatal("create diary", err)
			}
			output(d, d.ID.String())
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&date, "date", "", "Entry date (default today, UTC)")
	cmd.Flags().StringVar(&weather, "weather", "", "Weather")
	cmd.Flags().IntVar(&workforce, "workforce", 0, "Head count on site")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes")
	return cmd
}

func diaryGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a diary entry by ID",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			d, err := apiClient.Diaries.Get(cmd.Context(), parseID(args[0]))
			if err != nil {
				fatal("get diary", err)
			}
			output(d, d.ID.String())
		},
	}
}

func diaryListCmd() *cobra.Command {
	var lf workItemListFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List diary entries",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			opts, err := lf.options()
			if err != nil {
				fatal("list diaries", err)
			}
			page, err := apiClient.Diaries.List(cmd.Context(), opts)
			if err != nil {
				fatal("list diaries", err)
			}
			ids := make([]string, len(page.Data))
			rows := make([][]string, len(page.Data))
			for i, d := range page.Data {
				ids[i] = d.ID.String()
				rows[i] = []string{d.ID.String(), d.EntryDate.Format(time.DateOnly), string(d.Status), strconv.Itoa(d.Workforce), strconv.Itoa(d.Version)}
			}
			outputTable(page, ids, []string{"ID", "DATE", "STATUS", "WORKFORCE", "VER"}, rows)
		},
	}
	lf.register(cmd)
	return cmd
}

func diaryStatusCmd() *cobra.Command {
	var reason, comment string
	var expected int
	cmd := &cobra.Command{
		Use:   "status <id> <to>",
		Short: "Submit, approve, reject or reopen a diary entry",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			d, err := apiClient.Diaries.ChangeStatus(cmd.Context(), parseID(args[0]), &client.DiaryStatusRequest{
				To:              client.DiaryStatus(args[1]),
				Reason:          optionalString(reason),
				Comment:         optionalString(comment),
				ExpectedVersion: optionalInt(expected),
			})
			if err != nil {
				fatalTransition("change diary status", err)
			}
			output(d, string(d.Status))
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Rejection reason")
	cmd.Flags().StringVar(&comment, "comment", "", "Comment")
	cmd.Flags().IntVar(&expected, "expected-version", 0, "Fail unless the entry is at this version")
	return cmd
}
