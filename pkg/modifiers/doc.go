// Package modifiers holds the built-in outgoing operation modifiers.
//
// A modifier rewrites the attributes of the operation a client is about to send. It
// never changes retain, insert or delete lengths, so the server receives an operation
// with the same shape as the one already applied locally.
package modifiers
