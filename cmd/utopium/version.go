package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/utopium/chatflow"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of utopium",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "utopium version %s\n", strings.TrimSpace(chatflow.Version))
		},
	}
}
