/*
Package ports defines the driven ports (interfaces) of the conversation engine.

These interfaces decouple the state machine and its host from external implementations,
allowing sessions to live in memory, on disk or in Redis, and side-effects to reach any
backend that speaks the widget REST API.

# Key Interfaces

  - StateStore: persists the state and transcript of a session.
  - Backend: performs the network side-effects (caption, upload, image, publish).
  - FilePicker: asks the user for a file.
  - DistributedLocker: serializes access to a session across replicas.
*/
package ports
