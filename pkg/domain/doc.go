/*
Package domain contains the core types of the sync engine.

It is kept pure: no I/O, no transport, no editor. The engine in internal/runtime drives
these types; adapters in pkg/adapters move them across process boundaries.

# Key Entities

  - State: the client's sum type. Exactly one of Synchronized, AwaitingConfirm or
    AwaitingWithBuffer is live per client.
  - Selection: a cursor or highlighted range, shifted across edits.
  - Snapshot: the catch-up payload (revision + contents) used for a full resync.
  - LifecycleHooks: synchronous callbacks observing sends, acks, remote operations,
    rollbacks, resets and apply failures.
*/
package domain
