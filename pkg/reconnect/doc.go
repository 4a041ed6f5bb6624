/*
Package reconnect owns connectivity state for one document.

When the transport drops, the Coordinator shows an offline banner and makes the
document read-only. When it comes back, the Coordinator fetches a snapshot, loads it
into the editor and resets the client to the snapshot revision, a hard barrier after
which any late answer for the dropped submission is ignored.

The Coordinator implements memory.ConnectionObserver, so it can be attached to a
memory.Conn directly; other transports call Disconnected and Connected themselves.
*/
package reconnect
