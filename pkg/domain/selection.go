package domain

import "github.com/aretw0/otsync/pkg/delta"

// Selection is a cursor (Length 0) or a highlighted range in document positions.
type Selection struct {
	Index  int `json:"index"`
	Length int `json:"length"`
}

// Transform shifts the selection across an edit. With priority, inserts made exactly
// at a boundary land after the selection boundary.
func (s Selection) Transform(d delta.Delta, priority bool) Selection {
	start := d.TransformPosition(s.Index, priority)
	end := d.TransformPosition(s.Index+s.Length, priority)
	return Selection{Index: start, Length: max(end-start, 0)}
}
