package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/worktrail/worktrail/client"
)

func newActivityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Record and browse project activity",
	}
	cmd.AddCommand(activityLogCmd())
	cmd.AddCommand(activityQueryCmd())
	cmd.AddCommand(activityTimelineCmd())
	cmd.AddCommand(activityEntityCmd())
	cmd.AddCommand(activityActorCmd())
	return cmd
}

func activityLogCmd() *cobra.Command {
	var project, name, description string
	var tags []string
	cmd := &cobra.Command{
		Use:   "log <entity-type> <entity-id> <activity-type>",
		Short: "Append an activity event",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			id, err := apiClient.Activity.Log(cmd.Context(), &client.ActivityLogRequest{
				ProjectID:    requireProject(project),
				EntityType:   args[0],
				EntityID:     args[1],
				ActivityType: args[2],
				Metadata: client.ActivityMetadata{
					EntityName:  name,
					Description: description,
					Tags:        tags,
				},
			})
			if err != nil {
				fatal("activity log", err)
			}
			output(map[string]int64{"id": id}, strconv.FormatInt(id, 10))
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project ID (required)")
	cmd.Flags().StringVar(&name, "name", "", "Entity display name")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	return cmd
}

// activityQueryFlags are shared by query and timeline.
type activityQueryFlags struct {
	listFlags
	entityTypes, activityTypes, tags []string
	entityID                         string
}

func (f *activityQueryFlags) register(cmd *cobra.Command) {
	f.listFlags.register(cmd)
	cmd.Flags().StringSliceVar(&f.entityTypes, "entity-type", nil, "Entity type filter (repeatable)")
	cmd.Flags().StringVar(&f.entityID, "entity-id", "", "Entity ID")
	cmd.Flags().StringSliceVar(&f.activityTypes, "type", nil, "Activity type filter (repeatable)")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "Tag filter; every tag must match (repeatable)")
}

func (f *activityQueryFlags) options() (*client.ActivityQueryOptions, error) {
	base, err := f.listFlags.options()
	if err != nil {
		return nil, err
	}
	return &client.ActivityQueryOptions{
		ListOptions:   base,
		EntityTypes:   f.entityTypes,
		EntityID:      f.entityID,
		ActivityTypes: f.activityTypes,
		Tags:          f.tags,
	}, nil
}

func printEvents(page *client.Page[client.ActivityEvent]) {
	ids := make([]string, len(page.Data))
	rows := make([][]string, len(page.Data))
	for i, e := range page.Data {
		ids[i] = strconv.FormatInt(e.ID, 10)
		actor := e.Metadata.ActorName
		if e.Actor != nil {
			actor = e.Actor.Name
		}
		rows[i] = []string{ids[i], shortTime(e.CreatedAt), e.ActivityType, e.EntityType + "/" + e.EntityID, actor}
	}
	outputTable(page, ids, []string{"ID", "WHEN", "TYPE", "ENTITY", "ACTOR"}, rows)
}

func activityQueryCmd() *cobra.Command {
	var qf activityQueryFlags
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query activity events",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			opts, err := qf.options()
			if err != nil {
				fatal("activity query", err)
			}
			page, err := apiClient.Activity.Query(cmd.Context(), opts)
			if err != nil {
				fatal("activity query", err)
			}
			printEvents(page)
		},
	}
	qf.register(cmd)
	return cmd
}

func activityTimelineCmd() *cobra.Command {
	var qf activityQueryFlags
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Show activity grouped by day",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			opts, err := qf.options()
			if err != nil {
				fatal("activity timeline", err)
			}
			groups, err := apiClient.Activity.Timeline(cmd.Context(), opts)
			if err != nil {
				fatal("activity timeline", err)
			}
			quiet := make([]string, len(groups))
			rows := make([][]string, len(groups))
			for i, g := range groups {
				quiet[i] = g.Date
				rows[i] = []string{g.Date, strconv.Itoa(len(g.Events))}
			}
			outputTable(groups, quiet, []string{"DATE", "EVENTS"}, rows)
		},
	}
	qf.register(cmd)
	return cmd
}

func activityEntityCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "entity <entity-type> <entity-id>",
		Short: "Show the history of one entity",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			page, err := apiClient.Activity.EntityHistory(cmd.Context(), args[0], args[1], limit, offset)
			if err != nil {
				fatal("entity history", err)
			}
			printEvents(page)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	return cmd
}

func activityActorCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "actor <principal-id>",
		Short: "Show what one principal has done",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			page, err := apiClient.Activity.ActorHistory(cmd.Context(), parseID(args[0]), limit, offset)
			if err != nil {
				fatal("actor history", err)
			}
			printEvents(page)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	return cmd
}
