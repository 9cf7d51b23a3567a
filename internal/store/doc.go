// Package store provides SQLite-backed durable storage for the local
// event log.
//
// Every domain event lands here exactly once, keyed by its event ID and
// tagged with a sync status:
//
//   - pending: created locally, not yet pushed to the remote log
//   - synced: confirmed on the remote log, or ingested from it
//   - failed: reserved for a push the caller chose to park
//
// # Critical Patterns
//
// Idempotent writes: Append upserts by event_id so a retried dispatch
// never errors; IngestRemote inserts only if absent (first-writer-wins),
// so an overlapping remote read can never downgrade a pending local
// event.
//
// Pending work is sacred: PurgeSynced deletes only synced rows. A hard
// resync discards the remote cache but never unpushed local events.
//
// Deterministic reads: ListAll orders by timestamp, then event_id with
// binary collation, so full rehydration replays in a stable order.
//
// # Context Scoping
//
// Each remote-log identity ("context") gets its own database file.
// Switching accounts or shared logs opens an isolated store; events
// appended under the prior context are untouched.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
package store
