package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

func newEventsCmd() *cobra.Command {
	var (
		from  int64
		limit int
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the append-only event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				events, err := d.Chronicle.Events(ctx, from, limit)
				if err != nil {
					return err
				}
				if len(events) == 0 {
					fmt.Println("No events.")
					return nil
				}
				for _, ev := range events {
					fmt.Printf("%6d  %s  %-26s %s\n",
						ev.Sequence,
						ev.Timestamp.Format("2006-01-02 15:04:05"),
						ev.Kind,
						ev.EntityID)
				}
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&from, "from", 1, "First sequence to show")
	cmd.Flags().IntVarP(&limit, "limit", "l", 50, "Maximum number of events")

	cmd.AddCommand(
		newEventsSummaryCmd(),
		newEventsTimelineCmd(),
		newEventsContradictionsCmd(),
		newEventsResolveCmd(),
	)
	return cmd
}

func newEventsSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Count events by kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				summary, err := d.Chronicle.Summarize(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Total events: %d (last sequence %d)\n", summary.Total, summary.LastSequence)

				kinds := make([]string, 0, len(summary.ByKind))
				for k := range summary.ByKind {
					kinds = append(kinds, string(k))
				}
				sort.Strings(kinds)
				for _, k := range kinds {
					fmt.Printf("  %-26s %d\n", k, summary.ByKind[entities.EventKind(k)])
				}
				return nil
			})
		},
	}
}

func newEventsTimelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeline ID",
		Short: "Show all events touching one entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				events, err := d.Chronicle.Timeline(ctx, args[0])
				if err != nil {
					return err
				}
				if len(events) == 0 {
					fmt.Println("No events for this entity.")
					return nil
				}
				for _, ev := range events {
					fmt.Printf("%6d  %s  %s\n",
						ev.Sequence,
						ev.Timestamp.Format("2006-01-02 15:04:05"),
						ev.Kind)
				}
				return nil
			})
		},
	}
}

func newEventsContradictionsCmd() *cobra.Command {
	var includeResolved bool

	cmd := &cobra.Command{
		Use:   "contradictions",
		Short: "List recorded semantic contradictions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				records, err := d.Chronicle.Contradictions(ctx, includeResolved)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Println("No open contradictions.")
					return nil
				}
				for _, rec := range records {
					state := "open"
					if rec.Resolved {
						state = "resolved"
					}
					fmt.Printf("#%d [%s, %s] %s: %s\n",
						rec.Sequence, rec.Severity, state, rec.EntityID, rec.Description)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&includeResolved, "all", "a", false, "Include resolved contradictions")
	return cmd
}

func newEventsResolveCmd() *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "resolve SEQUENCE",
		Short: "Mark a recorded contradiction as resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid sequence %q", args[0])
			}
			return withDeps(func(ctx context.Context, d *Deps) error {
				if err := d.Chronicle.Resolve(ctx, seq, note); err != nil {
					return err
				}
				fmt.Printf("Resolved contradiction #%d\n", seq)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&note, "note", "m", "", "Resolution note")
	return cmd
}
