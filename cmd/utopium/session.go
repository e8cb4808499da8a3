package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/utopium/chatflow/internal/logging"
	"github.com/utopium/chatflow/internal/presentation/graph"
	"github.com/utopium/chatflow/internal/runtime"
	"github.com/utopium/chatflow/pkg/domain"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage persistent sessions",
		Long:  `List, inspect, and remove the sessions kept by the configured store.`,
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List all active sessions",
		Args:  cobra.NoArgs,
		RunE:  runSessionList,
	}

	inspect := &cobra.Command{
		Use:   "inspect <session-id>",
		Short: "Inspect the state and transcript of a session",
		Args:  cobra.ExactArgs(1),
		RunE:  runSessionInspect,
	}
	inspect.Flags().Bool("graph", false, "Print the post flow with the session position highlighted")

	rm := &cobra.Command{
		Use:   "rm <session-id>...",
		Short: "Remove one or more sessions",
		Args: func(cmd *cobra.Command, args []string) error {
			if all, _ := cmd.Flags().GetBool("all"); all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: runSessionRemove,
	}
	rm.Flags().Bool("all", false, "Remove every session")

	cmd.AddCommand(ls, inspect, rm)
	return cmd
}

func runSessionList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, io.Discard, logging.FormatText)
	if err != nil {
		return err
	}
	defer a.Close()

	engine, err := a.engine()
	if err != nil {
		return err
	}
	sessions, err := engine.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No active sessions found.")
		return nil
	}
	fmt.Fprintln(out, "Active Sessions:")
	for _, s := range sessions {
		fmt.Fprintln(out, "- "+s)
	}
	return nil
}

func runSessionInspect(cmd *cobra.Command, args []string) error {
	sessionID := args[0]
	withGraph, _ := cmd.Flags().GetBool("graph")

	a, err := newApp(cmd, os.Stderr, logging.FormatText)
	if err != nil {
		return err
	}
	defer a.Close()

	store, _, err := a.store()
	if err != nil {
		return err
	}

	snap, err := store.Load(cmd.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("session '%s' not found", sessionID)
		}
		return fmt.Errorf("failed to load session '%s': %w", sessionID, err)
	}

	if withGraph {
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(runtime.Transitions(), graph.OverlayFor(snap.State)))
		return nil
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runSessionRemove(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")

	a, err := newApp(cmd, io.Discard, logging.FormatText)
	if err != nil {
		return err
	}
	defer a.Close()

	engine, err := a.engine()
	if err != nil {
		return err
	}

	if all {
		if args, err = engine.List(cmd.Context()); err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
	}

	var errs []error
	for _, sessionID := range args {
		if err := engine.Delete(cmd.Context(), sessionID); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove '%s': %w", sessionID, err))
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", sessionID)
	}
	return errors.Join(errs...)
}
