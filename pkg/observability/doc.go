/*
Package observability binds client lifecycle hooks to Prometheus metrics.

Metrics counts sends, acks, remote operations, rollbacks, resets and apply errors,
and tracks the current state and buffered length of every client labeled by name.
Combine its hooks with your own through domain.ChainHooks.
*/
package observability
