// Package finalize implements the post-merge reconciliation engine.
//
// Given the active session and a gateway to the issue tracker, it
// verifies the session's PR is merged, closes the tracked issue (or
// phase issue plus parent checklist for speckit features), marks the
// session's tasks done in the ledger, best-effort syncs the project
// board, and assembles a structured Result.
//
// Every mutation is idempotent; re-running finalize after a partial
// failure is the recovery mechanism.
package finalize
