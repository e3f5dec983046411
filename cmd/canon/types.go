package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newTypesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List registered entity types and their schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, d *Deps) error {
				schemas, err := d.Query.HandleTypes(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(schemas)
				}

				for _, s := range schemas {
					fmt.Printf("%s", s.Type)
					if s.Description != "" {
						fmt.Printf(" - %s", s.Description)
					}
					fmt.Println()

					names := make([]string, 0, len(s.Fields))
					for name := range s.Fields {
						names = append(names, name)
					}
					sort.Strings(names)
					for _, name := range names {
						spec := s.Fields[name]
						var notes []string
						if spec.Required {
							notes = append(notes, "required")
						}
						if len(spec.Enum) > 0 {
							notes = append(notes, "enum: "+strings.Join(spec.Enum, "|"))
						}
						if len(spec.ConflictsWith) > 0 {
							notes = append(notes, "conflicts with: "+strings.Join(spec.ConflictsWith, ", "))
						}
						if spec.Asserts != nil {
							notes = append(notes, "asserts: "+spec.Asserts.Property)
						}
						suffix := ""
						if len(notes) > 0 {
							suffix = "  (" + strings.Join(notes, "; ") + ")"
						}
						fmt.Printf("  %-16s %s%s\n", name, spec.Type, suffix)
					}
					fmt.Println()
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
