package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "utopium",
		Short: "Utopium is the conversation engine behind the Utopium chat widget",
		Long: `Utopium runs the assistant that creates social posts, captions and images.
Chat with it in the terminal, serve it to the widget over HTTP, or expose it to agents over MCP.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringSlice("env-file", []string{".env"}, "Env files to load before reading UTOPIUM_* variables")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides UTOPIUM_LOG_LEVEL")

	chat := newChatCmd()
	root.AddCommand(
		chat,
		newServeCmd(),
		newMCPCmd(),
		newSessionCmd(),
		newGraphCmd(),
		newValidateCmd(),
		newVersionCmd(),
	)

	// Chat is the default if no command is provided.
	root.RunE = chat.RunE
	root.Flags().AddFlagSet(chat.Flags())

	return root
}
