package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/canon-core/internal/infrastructure/config"
	"github.com/ersonp/canon-core/internal/infrastructure/schema"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new canon workspace",
		Long:  "Creates a .canon directory with default configuration and editable schema documents.",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	if config.Exists(cwd) {
		return fmt.Errorf("canon already initialized in %s", cwd)
	}

	if err := config.WriteDefault(cwd); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	fmt.Printf("Created %s\n", config.ConfigDir(cwd))

	if err := schema.WriteDefaults(config.SchemasDir(cwd)); err != nil {
		return fmt.Errorf("writing default schemas: %w", err)
	}
	fmt.Printf("Created default schemas in %s\n", config.SchemasDir(cwd))

	fmt.Println("Canon initialized. Create a world with 'canon worlds create NAME'.")
	return nil
}
