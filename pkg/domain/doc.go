/*
Package domain contains the core models of the chatflow conversation engine.

It defines the conversation state, the transcript and the structural requests the
runtime hands to its host. This package is kept pure and free of I/O or persistence,
following Hexagonal Architecture principles.

# Key Entities

  - State: the single mutable session record (active flow, step, collected answers).
  - Step: the tagged position inside the post-creation flow.
  - Message: an immutable transcript entry produced by the bot or the user.
  - Snapshot: the State plus its transcript, the unit of persistence.
  - ActionRequest: what the host should render, ask for, or execute.
*/
package domain
