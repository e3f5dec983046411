package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage authoring sessions",
		RunE:  runSessionStatus,
	}

	cmd.AddCommand(
		newSessionStartCmd(),
		newSessionEndCmd(),
		newSessionStatusCmd(),
	)
	return cmd
}

func newSessionStartCmd() *cobra.Command {
	var (
		note string
		step int
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start an authoring session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				state, err := d.Sessions.Start(ctx, note, step)
				if err != nil {
					return err
				}
				fmt.Printf("Started session %s (step %d)\n", state.ID, state.Step)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&note, "note", "m", "", "Session note")
	cmd.Flags().IntVar(&step, "step", 0, "Authoring step for this session")
	return cmd
}

func newSessionEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "End the active session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				state, err := d.Sessions.End(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Ended session %s after %d checkpoints.\n", state.ID, state.Checkpoints)
				return nil
			})
		},
	}
}

func newSessionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active session",
		RunE:  runSessionStatus,
	}
}

func runSessionStatus(cmd *cobra.Command, args []string) error {
	return withDeps(func(ctx context.Context, d *Deps) error {
		state, err := d.Sessions.Current(ctx)
		if err != nil {
			return err
		}
		if state == nil {
			fmt.Println("No active session.")
			return nil
		}
		fmt.Printf("Session:     %s\n", state.ID)
		fmt.Printf("Step:        %d\n", state.Step)
		if state.Note != "" {
			fmt.Printf("Note:        %s\n", state.Note)
		}
		fmt.Printf("Started:     %s\n", state.StartedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Checkpoints: %d\n", state.Checkpoints)
		return nil
	})
}

func newCheckpointCmd() *cobra.Command {
	var (
		note string
		step int
	)

	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Record a checkpoint in the active session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				state, err := d.Sessions.Checkpoint(ctx, note, step)
				if err != nil {
					return err
				}
				fmt.Printf("Checkpoint %d saved in session %s (step %d)\n",
					state.Checkpoints, state.ID, state.Step)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&note, "note", "m", "", "Checkpoint note")
	cmd.Flags().IntVar(&step, "step", 0, "Advance to this authoring step")
	return cmd
}
