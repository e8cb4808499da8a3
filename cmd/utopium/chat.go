package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/utopium/chatflow"
	"github.com/utopium/chatflow/internal/logging"
	"github.com/utopium/chatflow/internal/presentation/tui"
	"github.com/utopium/chatflow/pkg/runner"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		Long: `Starts an interactive session. Quick replies can be picked by number,
"/reset" clears the conversation and "exit" leaves it. The session is persisted
and resumed on the next run.`,
		Args: cobra.NoArgs,
		RunE: runChat,
	}

	cmd.Flags().StringP("session", "s", runner.DefaultSessionID, "Session to open or resume")
	cmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	cmd.Flags().Bool("confirm", false, "Ask before calling the API (caption, image, publish)")
	cmd.Flags().Bool("no-banner", false, "Do not print the banner")
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	sessionID, _ := cmd.Flags().GetString("session")
	jsonMode, _ := cmd.Flags().GetBool("json")
	confirm, _ := cmd.Flags().GetBool("confirm")
	noBanner, _ := cmd.Flags().GetBool("no-banner")

	a, err := newApp(cmd, os.Stderr, logging.FormatText)
	if err != nil {
		return err
	}
	defer a.Close()

	in, out := cmd.InOrStdin(), cmd.OutOrStdout()

	var handler runner.IOHandler
	if jsonMode {
		handler = runner.NewJSONHandler(in, out)
	} else {
		var handlerOpts []runner.TextHandlerOption
		if tui.IsInteractive(os.Stdout) {
			if render, err := tui.NewRenderer(); err == nil {
				handlerOpts = append(handlerOpts, runner.WithTextHandlerRenderer(render))
			} else {
				a.logger.Warn("markdown rendering disabled", "err", err)
			}
			if !noBanner {
				tui.PrintBanner(out, chatflow.Version)
			}
		}
		handler = runner.NewTextHandler(in, out, handlerOpts...)
	}

	var opts []chatflow.Option
	if confirm {
		opts = append(opts, chatflow.WithToolGuard(runner.Guard(runner.ConfirmationMiddleware(handler))))
	}

	engine, err := a.engine(opts...)
	if err != nil {
		return err
	}

	r := runner.NewRunner(
		runner.WithEngine(engine),
		runner.WithInputHandler(handler),
		runner.WithSessionID(sessionID),
		runner.WithMaxInputSize(a.cfg.MaxInputSize),
		runner.WithLogger(a.logger),
	)
	return r.Run(cmd.Context())
}
