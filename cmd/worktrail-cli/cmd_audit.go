package main

import (
	"encoding/json"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/worktrail/worktrail/client"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Write and query the audit log",
	}
	cmd.AddCommand(auditLogCmd())
	cmd.AddCommand(auditQueryCmd())
	return cmd
}

func auditLogCmd() *cobra.Command {
	var project, name, severity, metaJSON string
	cmd := &cobra.Command{
		Use:   "log <entity-type> <entity-id> <action>",
		Short: "Append an audit entry",
		Args:  cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			req := &client.AuditAppendRequest{
				EntityType: args[0],
				EntityID:   args[1],
				Action:     client.AuditAction(args[2]),
				EntityName: name,
				Severity:   client.Severity(severity),
			}
			projectID, err := optionalUUID("project", project)
			if err != nil {
				fatal("audit log", err)
			}
			req.ProjectID = projectID
			if metaJSON != "" {
				if err := json.Unmarshal([]byte(metaJSON), &req.Metadata); err != nil {
					fatal("parse metadata", err)
				}
			}
			id, err := apiClient.Audit.Append(cmd.Context(), req)
			if err != nil {
				fatal("audit log", err)
			}
			output(map[string]int64{"id": id}, strconv.FormatInt(id, 10))
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project ID")
	cmd.Flags().StringVar(&name, "name", "", "Entity display name")
	cmd.Flags().StringVar(&severity, "severity", "", "info|warning|critical")
	cmd.Flags().StringVar(&metaJSON, "metadata", "", "Metadata as JSON")
	return cmd
}

func auditQueryCmd() *cobra.Command {
	var lf listFlags
	var entityTypes, actions, severities []string
	var entityID string
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query audit entries",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			base, err := lf.options()
			if err != nil {
				fatal("audit query", err)
			}
			page, err := apiClient.Audit.Query(cmd.Context(), &client.AuditQueryOptions{
				ListOptions: base,
				EntityTypes: entityTypes,
				EntityID:    entityID,
				Actions:     actions,
				Severities:  severities,
			})
			if err != nil {
				fatal("audit query", err)
			}
			ids := make([]string, len(page.Data))
			rows := make([][]string, len(page.Data))
			for i, e := range page.Data {
				ids[i] = strconv.FormatInt(e.ID, 10)
				actor := ""
				if e.ActorName != nil {
					actor = *e.ActorName
				}
				rows[i] = []string{ids[i], shortTime(e.CreatedAt), string(e.Severity), string(e.Action), e.EntityType + "/" + e.EntityID, actor}
			}
			outputTable(page, ids, []string{"ID", "WHEN", "SEVERITY", "ACTION", "ENTITY", "ACTOR"}, rows)
		},
	}
	lf.register(cmd)
	cmd.Flags().StringSliceVar(&entityTypes, "entity-type", nil, "Entity type filter (repeatable)")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "Entity ID")
	cmd.Flags().StringSliceVar(&actions, "action", nil, "Action filter (repeatable)")
	cmd.Flags().StringSliceVar(&severities, "severity", nil, "Severity filter (repeatable)")
	return cmd
}
