package ports

import "github.com/aretw0/otsync/pkg/delta"

// Modifier rewrites an outgoing operation right before it is sent. Modifiers must be
// pure and must not change the op's base length.
type Modifier func(op delta.Delta) delta.Delta
