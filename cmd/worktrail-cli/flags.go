package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/worktrail/worktrail/client"
)

// listFlags are the filters every list command accepts.
type listFlags struct {
	project, actor string
	since, until   string
	search         string
	orderBy, order string
	limit, offset  int
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.project, "project", "", "Project ID")
	cmd.Flags().StringVar(&f.actor, "actor", "", "Actor (principal) ID")
	cmd.Flags().StringVar(&f.since, "since", "", "Start date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&f.until, "until", "", "End date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&f.search, "search", "", "Free-text search")
	cmd.Flags().StringVar(&f.orderBy, "order-by", "", "Sort column")
	cmd.Flags().StringVar(&f.order, "order", "", "Sort direction: asc|desc")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Page size")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "Rows to skip")
}

func (f *listFlags) options() (client.ListOptions, error) {
	opts := client.ListOptions{
		Search:         f.search,
		OrderBy:        f.orderBy,
		OrderDirection: f.order,
		Limit:          f.limit,
		Offset:         f.offset,
	}

	var err error
	if opts.ProjectID, err = optionalUUID("project", f.project); err != nil {
		return opts, err
	}
	if opts.ActorID, err = optionalUUID("actor", f.actor); err != nil {
		return opts, err
	}
	if opts.StartDate, err = optionalTime("since", f.since); err != nil {
		return opts, err
	}
	if opts.EndDate, err = optionalTime("until", f.until); err != nil {
		return opts, err
	}
	return opts, nil
}

func optionalUUID(name, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &id, nil
}

func optionalTime(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("--%s: %q is not a date", name, raw)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalInt(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

// parseID parses a positional item id or exits.
func parseID(raw string) uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil {
		fatal("parse id", err)
	}
	return id
}

// requireProject parses a mandatory --project flag or exits.
func requireProject(raw string) uuid.UUID {
	if raw == "" {
		fatal("create", fmt.Errorf("--project is required"))
	}
	return parseID(raw)
}
