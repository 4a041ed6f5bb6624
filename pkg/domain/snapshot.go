package domain

import (
	"time"

	"github.com/aretw0/otsync/pkg/delta"
)

// Snapshot is a document as the server holds it at a revision. It is what a client
// loads when it resynchronizes from scratch.
type Snapshot struct {
	DocumentID string      `json:"document_id"`
	Revision   int         `json:"revision"`
	Contents   delta.Delta `json:"contents"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
