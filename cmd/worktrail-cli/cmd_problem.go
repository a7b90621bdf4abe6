package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/worktrail/worktrail/client"
)

func newProblemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "problem",
		Aliases: []string{"problems"},
		Short:   "Manage site problems",
	}
	cmd.AddCommand(problemCreateCmd())
	cmd.AddCommand(problemGetCmd())
	cmd.AddCommand(problemListCmd())
	cmd.AddCommand(problemStatusCmd())
	cmd.AddCommand(actionsCmd("problem", func(ctx context.Context, id string) ([]client.StatusAction, error) {
		return apiClient.Problems.Actions(ctx, parseID(id))
	}))
	cmd.AddCommand(deleteCmd("problem", func(ctx context.Context, id string) error {
		return apiClient.Problems.Delete(ctx, parseID(id))
	}))
	return cmd
}

func problemCreateCmd() *cobra.Command {
	var project, description, location, priority, assignee string
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Open a problem",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			req := &client.CreateProblemRequest{
				ProjectID:   requireProject(project),
				Title:       args[0],
				Description: description,
				Location:    location,
				Priority:    priority,
			}
			assigneeID, err := optionalUUID("assignee", assignee)
			if err != nil {
				fatal("create problem", err)
			}
			req.AssigneeID = assigneeID

			p, err := apiClient.Problems.Create(cmd.Context(), req)
			if err != nil {
				fatal("create problem", err)
			}
			output(p, p.ID.String())
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&location, "location", "", "Location on site")
	cmd.Flags().StringVar(&priority, "priority", "", "low|medium|high|urgent")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Assignee principal ID")
	return cmd
}

func problemGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a problem by ID",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			p, err := apiClient.Problems.Get(cmd.Context(), parseID(args[0]))
			if err != nil {
				fatal("get problem", err)
			}
			output(p, p.ID.String())
		},
	}
}

func problemListCmd() *cobra.Command {
	var lf workItemListFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List problems",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			opts, err := lf.options()
			if err != nil {
				fatal("list problems", err)
			}
			page, err := apiClient.Problems.List(cmd.Context(), opts)
			if err != nil {
				fatal("list problems", err)
			}
			ids := make([]string, len(page.Data))
			rows := make([][]string, len(page.Data))
			for i, p := range page.Data {
				ids[i] = p.ID.String()
				rows[i] = []string{p.ID.String(), string(p.Status), p.Priority, truncate(p.Title, 48), strconv.Itoa(p.Version), shortTime(p.UpdatedAt)}
			}
			outputTable(page, ids, []string{"ID", "STATUS", "PRIORITY", "TITLE", "VER", "UPDATED"}, rows)
		},
	}
	lf.register(cmd)
	return cmd
}

func problemStatusCmd() *cobra.Command {
	var rootCause, resolution, prevention, comment string
	var expected int
	cmd := &cobra.Command{
		Use:   "status <id> <to>",
		Short: "Move a problem to a new status",
		Long:  "Move a problem to in_progress, resolved, closed or cancelled. Resolving accepts --root-cause, --resolution and --prevention.",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			req := &client.ProblemStatusRequest{
				To:              client.ProblemStatus(args[1]),
				RootCause:       optionalString(rootCause),
				Resolution:      optionalString(resolution),
				Prevention:      optionalString(prevention),
				Comment:         optionalString(comment),
				ExpectedVersion: optionalInt(expected),
			}
			p, err := apiClient.Problems.ChangeStatus(cmd.Context(), parseID(args[0]), req)
			if err != nil {
				fatalTransition("change problem status", err)
			}
			output(p, string(p.Status))
		},
	}
	cmd.Flags().StringVar(&rootCause, "root-cause", "", "Root cause (resolve only)")
	cmd.Flags().StringVar(&resolution, "resolution", "", "Resolution (resolve only)")
	cmd.Flags().StringVar(&prevention, "prevention", "", "Prevention (resolve only)")
	cmd.Flags().StringVar(&comment, "comment", "", "Comment")
	cmd.Flags().IntVar(&expected, "expected-version", 0, "Fail unless the problem is at this version")
	return cmd
}
