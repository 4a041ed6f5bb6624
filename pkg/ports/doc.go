/*
Package ports defines the driven ports (interfaces) of the sync engine.

These interfaces decouple the client state machine from the editing surface, the
transport and the catch-up storage, so the engine can run against a browser bridge, a
terminal editor or the in-memory adapters used in tests.

# Key Interfaces

  - ServerAdapter: sends operations and cursors to the authoritative server and
    delivers its operation/ack/rollback events through Callbacks.
  - EditorAdapter: reads and mutates the visible document and reports user edits.
  - SnapshotStore / SnapshotSource: persist and fetch catch-up snapshots.
  - StatusStore: the UI-side banner and permission state toggled on connectivity changes.
*/
package ports
