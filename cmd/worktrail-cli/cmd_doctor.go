package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/worktrail/worktrail/client"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration, connectivity and authentication",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context())
		},
	}
}

type checkResult struct {
	Name   string
	Passed bool
	Detail string
}

func runDoctor(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	results := doctorChecks(ctx, apiClient, flagKey != "")

	failed := 0
	for _, r := range results {
		mark := "ok  "
		if !r.Passed {
			mark = "FAIL"
			failed++
		}
		fmt.Printf("[%s] %-16s %s\n", mark, r.Name, r.Detail)
	}

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func doctorChecks(ctx context.Context, c *client.Client, haveKey bool) []checkResult {
	var results []checkResult

	health, err := c.Health(ctx)
	if err != nil {
		return append(results, checkResult{Name: "Server reachable", Detail: err.Error()})
	}
	results = append(results,
		checkResult{Name: "Server reachable", Passed: true, Detail: "version " + health.Version},
		checkResult{Name: "Database", Passed: health.Database == "connected", Detail: health.Database},
	)

	ready, err := c.Ready(ctx)
	if err != nil {
		results = append(results, checkResult{Name: "Ready", Detail: err.Error()})
	} else {
		results = append(results, checkResult{Name: "Ready", Passed: true, Detail: "schema " + ready.Checks["schema"]})
	}

	if !haveKey {
		return append(results, checkResult{Name: "Authentication", Detail: "no API key; run worktrail-cli init"})
	}

	if _, err := c.Stats.Audit(ctx, &client.StatsOptions{Days: 1}); err != nil {
		return append(results, checkResult{Name: "Authentication", Detail: err.Error()})
	}
	return append(results, checkResult{Name: "Authentication", Passed: true, Detail: "valid"})
}
