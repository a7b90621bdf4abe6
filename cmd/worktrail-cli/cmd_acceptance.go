package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/worktrail/worktrail/client"
)

func newAcceptanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "acceptance",
		Aliases: []string{"acceptances"},
		Short:   "Manage acceptance inspections",
	}
	cmd.AddCommand(acceptanceCreateCmd())
	cmd.AddCommand(acceptanceGetCmd())
	cmd.AddCommand(acceptanceListCmd())
	cmd.AddCommand(acceptanceStartCmd())
	cmd.AddCommand(acceptanceDecideCmd())
	cmd.AddCommand(acceptanceApprovalsCmd())
	cmd.AddCommand(actionsCmd("acceptance", func(ctx context.Context, id string) ([]client.StatusAction, error) {
		return apiClient.Acceptances.Actions(ctx, parseID(id))
	}))
	cmd.AddCommand(deleteCmd("acceptance", func(ctx context.Context, id string) error {
		return apiClient.Acceptances.Delete(ctx, parseID(id))
	}))
	return cmd
}

func acceptanceCreateCmd() *cobra.Command {
	var project, scope string
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Schedule an acceptance inspection",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := apiClient.Acceptances.Create(cmd.Context(), &client.CreateAcceptanceRequest{
				ProjectID: requireProject(project),
				Title:     args[0],
				Scope:     scope,
			})
			if err != nil {
				fatal("create acceptance", err)
			}
			output(a, a.ID.String())
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&scope, "scope", "", "Inspection scope")
	return cmd
}

func acceptanceGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get an acceptance by ID",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := apiClient.Acceptances.Get(cmd.Context(), parseID(args[0]))
			if err != nil {
				fatal("get acceptance", err)
			}
			output(a, a.ID.String())
		},
	}
}

func acceptanceListCmd() *cobra.Command {
	var lf workItemListFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List acceptances",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			opts, err := lf.options()
			if err != nil {
				fatal("list acceptances", err)
			}
			page, err := apiClient.Acceptances.List(cmd.Context(), opts)
			if err != nil {
				fatal("list acceptances", err)
			}
			ids := make([]string, len(page.Data))
			rows := make([][]string, len(page.Data))
			for i, a := range page.Data {
				ids[i] = a.ID.String()
				rows[i] = []string{a.ID.String(), string(a.Status), truncate(a.Title, 48), strconv.Itoa(a.Version), shortTime(a.UpdatedAt)}
			}
			outputTable(page, ids, []string{"ID", "STATUS", "TITLE", "VER", "UPDATED"}, rows)
		},
	}
	lf.register(cmd)
	return cmd
}

func acceptanceStartCmd() *cobra.Command {
	var comment string
	var expected int
	cmd := &cobra.Command{
		Use:   "start <id>",
		Short: "Begin the inspection of a pending acceptance",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			a, err := apiClient.Acceptances.Start(cmd.Context(), parseID(args[0]), optionalString(comment), optionalInt(expected))
			if err != nil {
				fatalTransition("start acceptance", err)
			}
			output(a, string(a.Status))
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "Comment")
	cmd.Flags().IntVar(&expected, "expected-version", 0, "Fail unless the acceptance is at this version")
	return cmd
}

func acceptanceDecideCmd() *cobra.Command {
	var comments, conditions string
	var expected int
	cmd := &cobra.Command{
		Use:   "decide <id> <approve|reject|conditional|defer>",
		Short: "Record a decision on an acceptance under inspection",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			a, approval, err := apiClient.Acceptances.Decide(cmd.Context(), parseID(args[0]), &client.DecisionRequest{
				Decision:        client.Decision(args[1]),
				Comments:        optionalString(comments),
				Conditions:      optionalString(conditions),
				ExpectedVersion: optionalInt(expected),
			})
			if err != nil {
				fatalTransition("decide acceptance", err)
			}
			output(map[string]any{"acceptance": a, "approval": approval}, string(a.Status))
		},
	}
	cmd.Flags().StringVar(&comments, "comments", "", "Comments")
	cmd.Flags().StringVar(&conditions, "conditions", "", "Conditions (required for conditional)")
	cmd.Flags().IntVar(&expected, "expected-version", 0, "Fail unless the acceptance is at this version")
	return cmd
}

func acceptanceApprovalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approvals <id>",
		Short: "List recorded decisions in approval order",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			records, err := apiClient.Acceptances.Approvals(cmd.Context(), parseID(args[0]))
			if err != nil {
				fatal("list approvals", err)
			}
			quiet := make([]string, len(records))
			rows := make([][]string, len(records))
			for i, r := range records {
				quiet[i] = string(r.Decision)
				rows[i] = []string{strconv.Itoa(r.ApprovalOrder), string(r.Decision), r.ApproverID.String(), shortTime(r.CreatedAt)}
			}
			outputTable(records, quiet, []string{"ORDER", "DECISION", "APPROVER", "WHEN"}, rows)
		},
	}
}
