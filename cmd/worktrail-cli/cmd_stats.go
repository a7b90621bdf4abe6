package main

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/worktrail/worktrail/client"
)

func newStatsCmd() *cobra.Command {
	var project, actor, since, until string
	var entityTypes []string
	var days int

	cmd := &cobra.Command{
		Use:       "stats <audit|activity>",
		Short:     "Aggregate the audit or activity log",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"audit", "activity"},
		Run: func(cmd *cobra.Command, args []string) {
			opts := &client.StatsOptions{EntityTypes: entityTypes, Days: days}
			var err error
			if opts.ProjectID, err = optionalUUID("project", project); err != nil {
				fatal("stats", err)
			}
			if opts.ActorID, err = optionalUUID("actor", actor); err != nil {
				fatal("stats", err)
			}
			if opts.StartDate, err = optionalTime("since", since); err != nil {
				fatal("stats", err)
			}
			if opts.EndDate, err = optionalTime("until", until); err != nil {
				fatal("stats", err)
			}

			get := apiClient.Stats.Audit
			if args[0] == "activity" {
				get = apiClient.Stats.Activity
			}
			st, err := get(cmd.Context(), opts)
			if err != nil {
				fatal("stats", err)
			}
			outputTable(st, []string{strconv.Itoa(st.Total)}, []string{"BREAKDOWN", "KEY", "COUNT"}, statsRows(st))
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project ID")
	cmd.Flags().StringVar(&actor, "actor", "", "Actor (principal) ID")
	cmd.Flags().StringSliceVar(&entityTypes, "entity-type", nil, "Entity type filter (repeatable)")
	cmd.Flags().IntVar(&days, "days", 0, "Days back from now (server default 30)")
	cmd.Flags().StringVar(&since, "since", "", "Start date; overrides --days")
	cmd.Flags().StringVar(&until, "until", "", "End date; overrides --days")
	return cmd
}

// statsRows flattens the breakdown maps into sorted table rows.
func statsRows(st *client.Stats) [][]string {
	rows := [][]string{{"total", "", strconv.Itoa(st.Total)}}
	for _, section := range []struct {
		name   string
		counts map[string]int
	}{
		{"action", st.ByAction},
		{"entity_type", st.ByEntityType},
		{"severity", st.BySeverity},
		{"date", st.ByDate},
	} {
		keys := make([]string, 0, len(section.counts))
		for k := range section.counts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rows = append(rows, []string{section.name, k, strconv.Itoa(section.counts[k])})
		}
	}
	for _, a := range st.TopActors {
		name := a.Name
		if name == "" {
			name = a.ActorID.String()
		}
		rows = append(rows, []string{"actor", name, strconv.Itoa(a.Count)})
	}
	if st.Truncated {
		rows = append(rows, []string{"truncated", "true", ""})
	}
	return rows
}
