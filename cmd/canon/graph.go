package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/canon-core/internal/domain/services"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Query the derived reference graph",
	}

	cmd.AddCommand(
		newGraphNeighborsCmd(),
		newGraphPathCmd(),
		newGraphStatsCmd(),
	)
	return cmd
}

func newGraphNeighborsCmd() *cobra.Command {
	var direction string

	cmd := &cobra.Command{
		Use:   "neighbors ID",
		Short: "Show entities directly connected to one entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				dir := services.Direction(direction)
				switch dir {
				case services.DirectionIn, services.DirectionOut, services.DirectionBoth:
				default:
					return fmt.Errorf("invalid direction %q: use in, out or both", direction)
				}
				neighbors, err := d.Query.HandleNeighbors(ctx, args[0], dir)
				if err != nil {
					return err
				}
				if len(neighbors) == 0 {
					fmt.Println("No neighbors.")
					return nil
				}
				for _, id := range neighbors {
					fmt.Println(id)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&direction, "direction", "d", "both", "Edge direction: in, out or both")
	return cmd
}

func newGraphPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path FROM TO",
		Short: "Show the shortest reference path between two entities",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				path, err := d.Query.HandlePath(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Println(strings.Join(path, " -> "))
				return nil
			})
		},
	}
}

func newGraphStatsCmd() *cobra.Command {
	var (
		topN   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the reference graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				stats, err := d.Query.HandleGraphStats(ctx, topN)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(stats)
				}
				fmt.Printf("Entities: %d\n", stats.Entities)
				if len(stats.MostConnected) > 0 {
					fmt.Printf("Most connected: %s\n", strings.Join(stats.MostConnected, ", "))
				}
				if len(stats.Orphans) > 0 {
					fmt.Printf("Orphans: %s\n", strings.Join(stats.Orphans, ", "))
				}
				for _, dangling := range stats.Dangling {
					fmt.Printf("Dangling: %v\n", dangling)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&topN, "top", "n", 5, "Number of most-connected entities to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
