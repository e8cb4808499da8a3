/*
Package chatflow is the conversation engine behind the Utopium chat widget.

It walks a user through one of three flows: creating a post for one of the Utopium
accounts, writing an Instagram title and description, or generating an image. The
state machine itself lives in internal/runtime and is pure; this package is its host.
It restores and persists sessions, serializes access to them, asks the user for files,
and calls the widget REST API when a flow completes.

# Usage

	eng := chatflow.New(
		chatflow.WithStore(memory.NewStore()),
		chatflow.WithBackend(api.New("https://api.example.com")),
	)

	reply, err := eng.Open(ctx, "session-1")   // greeting and menu
	reply, err = eng.Submit(ctx, "session-1", "create post")

Every bot bubble produced by an interaction is returned in Reply.Messages and appended
to the persisted transcript. When a step waits for a file that the configured
FilePicker could not supply, Reply.Pending describes it and the host delivers the file
later with AttachFile.
*/
package chatflow
