package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/canon-core/internal/infrastructure/snapshots"
)

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history ID",
		Short: "List an entity's recorded revisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				revs, err := d.Audit.HandleHistory(ctx, args[0])
				if err != nil {
					return err
				}
				if len(revs) == 0 {
					fmt.Println("No revisions recorded.")
					return nil
				}
				fmt.Printf("%-30s %-8s %s\n", "TIMESTAMP", "STATUS", "NAME")
				for _, rev := range revs {
					fmt.Printf("%-30s %-8s %s\n",
						snapshots.FormatTimestamp(rev.Timestamp),
						rev.Entity.Status,
						rev.Entity.Name)
				}
				fmt.Println("Use 'canon rollback ID TIMESTAMP' to restore a revision.")
				return nil
			})
		},
	}
}

func newRollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback ID TIMESTAMP",
		Short: "Restore an entity to a recorded revision",
		Long:  "Restores the fields and claims from the revision recorded at TIMESTAMP. The restore is an ordinary mutation; history keeps growing and nothing is rewound.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				resp, err := d.Audit.HandleRollback(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				printMutation(resp)
				return nil
			})
		},
	}
}
