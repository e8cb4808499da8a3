/*
Package session serializes access to conversations.

Every operation on a session runs under a per-session mutex, optionally backed by a
distributed lock so several server replicas can share one Redis store. Locks are
reference counted and dropped as soon as no caller holds them.
*/
package session
