package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/worktrail/worktrail/client"
)

// workItemListFlags extends listFlags with the work item filters.
type workItemListFlags struct {
	listFlags
	statuses       []string
	createdBy      string
	includeDeleted bool
}

func (f *workItemListFlags) register(cmd *cobra.Command) {
	f.listFlags.register(cmd)
	cmd.Flags().StringSliceVar(&f.statuses, "status", nil, "Status filter (repeatable)")
	cmd.Flags().StringVar(&f.createdBy, "created-by", "", "Creator principal ID")
	cmd.Flags().BoolVar(&f.includeDeleted, "include-deleted", false, "Include soft-deleted items")
}

func (f *workItemListFlags) options() (*client.WorkItemListOptions, error) {
	base, err := f.listFlags.options()
	if err != nil {
		return nil, err
	}
	createdBy, err := optionalUUID("created-by", f.createdBy)
	if err != nil {
		return nil, err
	}
	return &client.WorkItemListOptions{
		ListOptions:    base,
		Statuses:       f.statuses,
		CreatedBy:      createdBy,
		IncludeDeleted: f.includeDeleted,
	}, nil
}

func actionsCmd(kind string, list func(ctx context.Context, id string) ([]client.StatusAction, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "actions <id>",
		Short: "Show the status history of a " + kind,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			acts, err := list(cmd.Context(), args[0])
			if err != nil {
				fatal("list "+kind+" actions", err)
			}
			rows := make([][]string, len(acts))
			quiet := make([]string, len(acts))
			for i, a := range acts {
				quiet[i] = a.ToStatus
				comment := ""
				if a.Comment != nil {
					comment = truncate(*a.Comment, 40)
				}
				rows[i] = []string{shortTime(a.CreatedAt), a.FromStatus, a.ToStatus, a.ActorID.String(), comment}
			}
			outputTable(acts, quiet, []string{"WHEN", "FROM", "TO", "ACTOR", "COMMENT"}, rows)
		},
	}
}

func deleteCmd(kind string, del func(ctx context.Context, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete a " + kind,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := del(cmd.Context(), args[0]); err != nil {
				fatal("delete "+kind, err)
			}
			output(map[string]bool{"deleted": true}, args[0])
		},
	}
}

// fatalTransition exits, listing the allowed targets when the server
// rejected the move.
func fatalTransition(msg string, err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if d, ok := apiErr.Transition(); ok {
			allowed := "none"
			if len(d.Allowed) > 0 {
				allowed = strings.Join(d.Allowed, ", ")
			}
			fmt.Fprintf(os.Stderr, "Error: %s: cannot move from %s to %s (allowed: %s)\n", msg, d.From, d.To, allowed)
			os.Exit(1)
		}
	}
	fatal(msg, err)
}
