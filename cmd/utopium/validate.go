package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/utopium/chatflow/internal/runtime"
	"github.com/utopium/chatflow/internal/validator"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [catalog.yaml]",
		Short: "Check a catalog and the post flow for consistency",
		Long: `Loads the catalog (the argument, UTOPIUM_CATALOG, or the built-in one) and
reports empty or duplicated options. The post flow is crawled from idle to report
unreachable steps and dead ends.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			} else {
				a, err := newApp(cmd, cmd.ErrOrStderr(), "text")
				if err != nil {
					return err
				}
				path = a.cfg.Catalog
			}

			catalog, err := runtime.LoadCatalog(path)
			if err != nil {
				return err
			}
			if err := validator.ValidateCatalog(catalog); err != nil {
				return fmt.Errorf("catalog is invalid: %w", err)
			}
			if err := validator.ValidateFlow(runtime.Transitions()); err != nil {
				return fmt.Errorf("flow is invalid: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Catalog and flow are valid! ✅")
			return nil
		},
	}
}
