package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/canon-core/internal/application/handlers"
	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/services"
)

func newCreateCmd() *cobra.Command {
	var (
		fieldArgs []string
		claimArgs []string
	)

	cmd := &cobra.Command{
		Use:   "create TYPE",
		Short: "Create a new entity",
		Long:  "Creates a draft entity of the given type. Fields are key=value pairs; claims are plain text or JSON objects.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				fields, err := handlers.ParseFields(fieldArgs)
				if err != nil {
					return err
				}
				claims, err := handlers.ParseClaims(claimArgs)
				if err != nil {
					return err
				}
				resp, err := d.Mutation.HandleCreate(ctx, args[0], fields, claims)
				if err != nil {
					return err
				}
				printMutation(resp)
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVarP(&fieldArgs, "field", "f", nil, "Field as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&claimArgs, "claim", "c", nil, "Claim text or JSON object (repeatable)")
	return cmd
}

func newUpdateCmd() *cobra.Command {
	var (
		fieldArgs []string
		claimArgs []string
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update an entity's fields and claims",
		Long:  "Replaces the entity's field set. Claims are replaced only when --claim is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				fields, err := handlers.ParseFields(fieldArgs)
				if err != nil {
					return err
				}
				claims, err := handlers.ParseClaims(claimArgs)
				if err != nil {
					return err
				}
				resp, err := d.Mutation.HandleUpdate(ctx, args[0], fields, claims)
				if err != nil {
					return err
				}
				printMutation(resp)
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVarP(&fieldArgs, "field", "f", nil, "Field as key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&claimArgs, "claim", "c", nil, "Claim text or JSON object (repeatable)")
	return cmd
}

func newGetCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get ID",
		Short: "Show one entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				entity, err := d.Query.HandleGet(ctx, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(entity)
				}
				printEntity(entity)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newListCmd() *cobra.Command {
	var (
		entityType string
		status     string
		step       int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				all, err := d.Query.HandleList(ctx, services.ListFilter{
					Type:   entityType,
					Status: entities.Status(status),
					Step:   step,
				})
				if err != nil {
					return err
				}
				if len(all) == 0 {
					fmt.Println("No entities found.")
					return nil
				}
				fmt.Printf("%-40s %-12s %-8s %s\n", "ID", "TYPE", "STATUS", "NAME")
				for _, e := range all {
					fmt.Printf("%-40s %-12s %-8s %s\n", e.ID, e.Type, e.Status, e.Name)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&entityType, "type", "t", "", "Filter by entity type")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status ("+strings.Join(entityStatuses, "/")+")")
	cmd.Flags().IntVar(&step, "step", 0, "Filter by authoring step")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status ID STATUS",
		Short: "Change an entity's lifecycle status",
		Long:  "Moves an entity through its lifecycle (draft -> canon). Promotion re-checks consistency first.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				resp, err := d.Mutation.HandleSetStatus(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				printMutation(resp)
				return nil
			})
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an entity",
		Long:  "Removes an entity. Refused while other entities still reference it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				if err := d.Mutation.HandleDelete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func printEntity(e *entities.Entity) {
	fmt.Printf("ID:      %s\n", e.ID)
	fmt.Printf("Type:    %s\n", e.Type)
	fmt.Printf("Name:    %s\n", e.Name)
	fmt.Printf("Status:  %s\n", e.Status)
	if e.Step != 0 {
		fmt.Printf("Step:    %d\n", e.Step)
	}
	fmt.Printf("Updated: %s\n", e.UpdatedAt.Format("2006-01-02 15:04:05"))

	if len(e.Fields) > 0 {
		fmt.Println("Fields:")
		data, _ := json.MarshalIndent(e.Fields, "  ", "  ")
		fmt.Printf("  %s\n", data)
	}
	if len(e.Claims) > 0 {
		fmt.Println("Claims:")
		for _, c := range e.Claims {
			fmt.Printf("  - %s\n", c.Text)
			if len(c.References) > 0 {
				fmt.Printf("    refs: %s\n", strings.Join(c.References, ", "))
			}
		}
	}
}

func printMutation(resp *handlers.MutationResponse) {
	switch resp.Outcome {
	case handlers.OutcomeBlocked:
		fmt.Println("BLOCKED: nothing was written.")
	case handlers.OutcomeAdvisory:
		fmt.Printf("Committed %s with advisories.\n", resp.Entity.ID)
	default:
		fmt.Printf("Committed %s.\n", resp.Entity.ID)
	}
	printCheck(resp.Check)
	for _, w := range resp.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}

func printCheck(check *entities.CheckResult) {
	if check == nil {
		return
	}
	for _, v := range check.StructuralErrors {
		fmt.Printf("  structural: %v\n", v)
	}
	for _, v := range check.ReferenceErrors {
		fmt.Printf("  reference: %v\n", v)
	}
	for _, v := range check.NumericConflicts {
		fmt.Printf("  conflict: %v\n", v)
	}
	for _, c := range check.Contradictions {
		fmt.Printf("  contradiction [%s]: %s\n", c.Severity, c.Description)
		fmt.Printf("    new:      %s\n", c.NewClaim)
		fmt.Printf("    existing: %s (%s)\n", c.ExistingClaim, c.SourceEntityID)
	}
	if check.SemanticSkipped && check.SemanticNote != "" {
		fmt.Printf("  semantic stage skipped: %s\n", check.SemanticNote)
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
