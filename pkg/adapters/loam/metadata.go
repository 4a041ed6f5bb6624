package loam

// SnapshotMetadata is the frontmatter of a stored snapshot. The document contents
// live in the body as delta JSON.
type SnapshotMetadata struct {
	DocumentID string `json:"document_id" mapstructure:"document_id"`
	Revision   int    `json:"revision" mapstructure:"revision"`

	// UpdatedAt is RFC 3339 text so every serializer reads it back the same way.
	UpdatedAt string `json:"updated_at,omitempty" mapstructure:"updated_at"`
}
