package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/ports"
)

func newSearchCmd() *cobra.Command {
	var (
		entityType string
		status     string
		step       int
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search TEXT...",
		Short: "Full-text search over entities",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				results, err := d.Query.HandleSearch(ctx, strings.Join(args, " "), ports.SearchFilter{
					Type:   entityType,
					Status: entities.Status(status),
					Step:   step,
					Limit:  limit,
				})
				if err != nil {
					return err
				}
				if len(results) == 0 {
					fmt.Println("No matches.")
					return nil
				}
				fmt.Printf("%-40s %-12s %-8s %s\n", "ID", "TYPE", "STATUS", "NAME")
				for _, e := range results {
					fmt.Printf("%-40s %-12s %-8s %s\n", e.ID, e.Type, e.Status, e.Name)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&entityType, "type", "t", "", "Filter by entity type")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status")
	cmd.Flags().IntVar(&step, "step", 0, "Filter by authoring step")
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of results")
	return cmd
}
