package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check ID",
		Short: "Re-run the consistency pipeline against one entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				result, err := d.Audit.HandleCheck(ctx, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(result)
				}
				if result.Blocking() {
					fmt.Printf("%s: FAIL\n", result.EntityID)
				} else {
					fmt.Printf("%s: OK\n", result.EntityID)
				}
				printCheck(result)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newAuditCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Re-check every entity and report a health score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				report, err := d.Audit.HandleAudit(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(report)
				}

				unhealthy := 0
				for i := range report.Results {
					r := &report.Results[i]
					if !r.Blocking() {
						continue
					}
					unhealthy++
					fmt.Printf("%s:\n", r.EntityID)
					printCheck(r)
				}
				fmt.Printf("Checked %d entities, %d with blocking findings.\n", len(report.Results), unhealthy)
				fmt.Printf("Health score: %.2f\n", report.HealthScore)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newRepairCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Rebuild all derived stores from the entity store",
		Long:  "Drops and rebuilds the search mirror and claim mirror. With --dry-run, only reports drift.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				health, err := d.Audit.HandleHealth(ctx)
				if err != nil {
					return err
				}

				fmt.Printf("Entities: %d, indexed: %d, last event: %d\n",
					health.Entities, health.IndexedRows, health.LastSequence)
				for _, drift := range health.Drift {
					fmt.Printf("  drift: %v\n", drift)
				}
				for _, p := range health.Problems {
					fmt.Printf("  problem: %s\n", p)
				}
				if health.Healthy() {
					fmt.Println("No drift detected.")
				}

				if dryRun {
					return nil
				}

				report, err := d.Audit.HandleRepair(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Rebuilt search mirror from %d entities.\n", report.Entities)
				if report.ClaimMirrorRebuilt {
					fmt.Println("Rebuilt claim mirror.")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report drift without rebuilding")
	return cmd
}
