/*
Package otsync is the client side of an Operational Transformation (OT) engine for
collaborative rich-text editing.

A Client sits between an editor surface and a connection to a single authoritative
server. It turns the user's edits into operations, keeps at most one of them in flight,
buffers the rest, and rebases everything over the operations other people commit, so
that every participant converges on the same document.

# Concept

Documents and edits are rich-text deltas (package delta): runs of retain, insert and
delete carrying optional formatting attributes. The client is a three-state machine:

  - Synchronized: the local document equals the server's at the client revision.
  - AwaitingConfirm: one submission is in flight.
  - AwaitingWithBuffer: one submission is in flight and later edits are buffered.

The server acknowledges (ack) or rejects (rollback) the in-flight submission and
streams other users' operations, which are transformed against the local pending
edits before they reach the editor.

# Architecture

The client depends on two ports (package ports): a ServerAdapter for the transport and
an EditorAdapter for the editing surface. The memory adapters ship a reference hub and
editor for tests and simulations; the redis and http adapters serve snapshots used by
the reconnect coordinator to resync after a dropped connection.

The client is single-threaded: deliver editor and transport events from one goroutine.

# Usage

	hub := memory.NewHub()
	_ = hub.CreateDocument("doc", delta.FromText("Untitled\n", nil), 1)

	conn, _ := hub.Connect("doc", "alice")
	editor := memory.NewEditor(delta.FromText("Untitled\n", nil))

	client, err := otsync.New(1, conn, editor,
		otsync.WithModifiers(modifiers.StripEmptyAttributes),
	)
	if err != nil {
		log.Fatal(err)
	}

	_ = editor.UserEdit(delta.Delta{}.Retain(8, nil).Insert("!", nil))
	_, _ = hub.Process(ctx)
	_, _ = conn.Deliver() // ack: client.IsSynchronized() == true
*/
package otsync
