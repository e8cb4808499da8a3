/*
Package runner drives a chat session from a terminal or a pipe.

It is the bridge between the conversation engine and the outside world: it opens
the session, shows the bot bubbles through an IOHandler, reads the user's answers,
and hands over files when a step waits for one. State is persisted by the engine
after every interaction, so an interrupted run resumes where it stopped.

# Key Components

  - Runner: the read-submit-render loop.
  - IOHandler: decouples how the runner talks to the user (text, JSON lines).
  - TextHandler: interactive terminal usage with numbered quick replies.
  - JSONHandler: NDJSON frames for scripted hosts.
  - Interceptor: policy gate in front of the backend calls (e.g. confirm before publishing).

# Usage

	r := runner.NewRunner(
		runner.WithEngine(engine),
		runner.WithSessionID("user-1"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
