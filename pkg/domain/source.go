package domain

import "github.com/google/uuid"

// ChangeSource tells who produced an editor change.
type ChangeSource string

const (
	SourceUser   ChangeSource = "user"   // Typed by the local user; drives local transitions
	SourceAPI    ChangeSource = "api"    // Applied programmatically, e.g. a remote operation
	SourceSilent ChangeSource = "silent" // Applied programmatically without notification
)

// NewSubmissionID mints the correlation token for one dispatch to the server.
func NewSubmissionID() string {
	return uuid.NewString()
}
