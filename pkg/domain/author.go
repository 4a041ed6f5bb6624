package domain

import (
	"github.com/aretw0/otsync/pkg/delta"
	"github.com/mitchellh/mapstructure"
)

// KeyAuthor is the attribute the editor stamps on inserted runs to record who wrote them.
const KeyAuthor = "author"

// Authorship is the attribution carried in an op's attributes.
type Authorship struct {
	Author string `mapstructure:"author"`
}

// AuthorResolver maps an author id to a display name. It returns "" when unknown.
type AuthorResolver func(authorID string) string

// ResolveAuthor returns the author of the first attributed run in op, mapped through
// resolve when it is set. It returns "" when op carries no attribution.
func ResolveAuthor(op delta.Delta, resolve AuthorResolver) string {
	for _, o := range op.Ops() {
		if len(o.Attributes) == 0 {
			continue
		}
		var a Authorship
		if err := mapstructure.WeakDecode(map[string]any(o.Attributes), &a); err != nil || a.Author == "" {
			continue
		}
		if resolve != nil {
			if name := resolve(a.Author); name != "" {
				return name
			}
		}
		return a.Author
	}
	return ""
}
