package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/utopium/chatflow/internal/presentation/graph"
	"github.com/utopium/chatflow/internal/runtime"
)

func newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Export the post flow visualization",
		Long:  `Outputs a Mermaid diagram (graph TD) of the post-creation flow, skips included.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(runtime.Transitions(), nil))
		},
	}
}

