package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrCorruptState is returned when a persisted state cannot be decoded.
var ErrCorruptState = errors.New("persisted state is corrupt")

// ErrNoFileSelected is returned by a file picker when no file is available yet.
var ErrNoFileSelected = errors.New("no file selected")

// ErrUnexpectedFile is returned when a file arrives while no step is waiting for one.
var ErrUnexpectedFile = errors.New("no step is waiting for a file")

// ErrUnknownTool is returned when the host has no handler for a tool call.
var ErrUnknownTool = errors.New("unknown tool")
