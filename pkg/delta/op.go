package delta

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// infinity stands in for the implicit retain past the end of a delta.
const infinity = math.MaxInt

// ObjectReplacement is the rune an embed contributes to Delta.Text.
const ObjectReplacement = '\uFFFC'

// Embed is a non-text insert such as an image or a mention. Its single key names the
// embed type.
type Embed map[string]any

// Type returns the embed's type key, or "" for malformed embeds.
func (e Embed) Type() string {
	for k := range e {
		return k
	}
	return ""
}

// Kind tells which of the three op forms an Op takes.
type Kind int

const (
	KindRetain Kind = iota
	KindInsert
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindDelete:
		return "delete"
	default:
		return "retain"
	}
}

// Op is one component of a Delta. Exactly one of Insert/Embed, Retain or Delete is set.
type Op struct {
	Insert     string
	Embed      Embed
	Retain     int
	Delete     int
	Attributes Attributes
}

// Kind reports the op form.
func (o Op) Kind() Kind {
	switch {
	case o.Delete > 0:
		return KindDelete
	case o.Retain > 0:
		return KindRetain
	case o.Insert != "" || o.Embed != nil:
		return KindInsert
	default:
		return KindRetain
	}
}

// Len is the number of document positions the op covers.
func (o Op) Len() int {
	switch o.Kind() {
	case KindDelete:
		return o.Delete
	case KindInsert:
		if o.Embed != nil {
			return 1
		}
		return utf8.RuneCountInString(o.Insert)
	default:
		return o.Retain
	}
}

// IsEmbed reports whether the op inserts an embed.
func (o Op) IsEmbed() bool {
	return o.Embed != nil && o.Delete == 0 && o.Retain == 0
}

func (o Op) isTextInsert() bool {
	return o.Insert != "" && o.Embed == nil && o.Delete == 0 && o.Retain == 0
}

// Equal compares two ops by value.
func (o Op) Equal(other Op) bool {
	if o.Kind() != other.Kind() || o.Len() != other.Len() {
		return false
	}
	if o.Insert != other.Insert || !Attributes(o.Embed).Equal(Attributes(other.Embed)) {
		return false
	}
	return o.Attributes.Equal(other.Attributes)
}

func (o Op) String() string {
	switch o.Kind() {
	case KindDelete:
		return fmt.Sprintf("delete(%d)", o.Delete)
	case KindInsert:
		if o.Embed != nil {
			return fmt.Sprintf("insert(%v%s)", map[string]any(o.Embed), attrString(o.Attributes))
		}
		return fmt.Sprintf("insert(%q%s)", o.Insert, attrString(o.Attributes))
	default:
		return fmt.Sprintf("retain(%d%s)", o.Retain, attrString(o.Attributes))
	}
}

func attrString(a Attributes) string {
	if len(a) == 0 {
		return ""
	}
	return fmt.Sprintf(", %v", map[string]any(a))
}

// runeSlice returns the runes of s in [start, end).
func runeSlice(s string, start, end int) string {
	if start == 0 && end >= utf8.RuneCountInString(s) {
		return s
	}
	r := []rune(s)
	if end > len(r) {
		end = len(r)
	}
	return string(r[start:end])
}

// iterator walks the ops of a delta in arbitrary-length steps, splitting ops as needed.
type iterator struct {
	ops    []Op
	index  int
	offset int
}

func newIterator(ops []Op) *iterator {
	return &iterator{ops: ops}
}

func (it *iterator) hasNext() bool {
	return it.peekLength() < infinity
}

func (it *iterator) peekLength() int {
	if it.index < len(it.ops) {
		return it.ops[it.index].Len() - it.offset
	}
	return infinity
}

func (it *iterator) peekKind() Kind {
	if it.index < len(it.ops) {
		return it.ops[it.index].Kind()
	}
	return KindRetain
}

// next consumes up to length positions. Past the end it yields an unbounded retain.
func (it *iterator) next(length int) Op {
	if length <= 0 {
		length = infinity
	}
	if it.index >= len(it.ops) {
		return Op{Retain: infinity}
	}
	op := it.ops[it.index]
	offset := it.offset
	opLen := op.Len()
	if length >= opLen-offset {
		length = opLen - offset
		it.index++
		it.offset = 0
	} else {
		it.offset += length
	}
	switch op.Kind() {
	case KindDelete:
		return Op{Delete: length}
	case KindInsert:
		if op.Embed != nil {
			return Op{Embed: op.Embed, Attributes: op.Attributes}
		}
		return Op{Insert: runeSlice(op.Insert, offset, offset+length), Attributes: op.Attributes}
	default:
		return Op{Retain: length, Attributes: op.Attributes}
	}
}
