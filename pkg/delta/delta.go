package delta

import (
	"fmt"
	"slices"
	"strings"
)

// Delta is an immutable sequence of ops describing either an edit or a document.
// The zero value is the empty delta, which is both the empty document and the no-op edit.
type Delta struct {
	ops []Op
}

// New builds a delta from ops, merging adjacent runs the way the builder methods do.
func New(ops ...Op) Delta {
	var b builder
	for _, op := range ops {
		b.push(op)
	}
	return b.delta()
}

// FromText returns the document holding text with the given attributes.
func FromText(text string, attrs Attributes) Delta {
	return Delta{}.Insert(text, attrs)
}

// Ops returns a copy of the delta's ops.
func (d Delta) Ops() []Op {
	out := make([]Op, len(d.ops))
	for i, op := range d.ops {
		op.Attributes = op.Attributes.Clone()
		out[i] = op
	}
	return out
}

// Insert appends a text insert.
func (d Delta) Insert(text string, attrs Attributes) Delta {
	return d.with(Op{Insert: text, Attributes: attrs.Clone()})
}

// InsertEmbed appends an embed insert.
func (d Delta) InsertEmbed(embed Embed, attrs Attributes) Delta {
	return d.with(Op{Embed: embed, Attributes: attrs.Clone()})
}

// Retain appends a retain of n positions, optionally formatting them.
func (d Delta) Retain(n int, attrs Attributes) Delta {
	return d.with(Op{Retain: n, Attributes: attrs.Clone()})
}

// Delete appends a delete of n positions.
func (d Delta) Delete(n int) Delta {
	return d.with(Op{Delete: n})
}

func (d Delta) with(op Op) Delta {
	b := builder{ops: slices.Clone(d.ops)}
	b.push(op)
	return b.delta()
}

// Chop drops a trailing unformatted retain, which is implied anyway.
func (d Delta) Chop() Delta {
	n := len(d.ops)
	if n == 0 {
		return d
	}
	last := d.ops[n-1]
	if last.Kind() == KindRetain && len(last.Attributes) == 0 {
		return Delta{ops: slices.Clip(d.ops[:n-1])}
	}
	return d
}

// Length is the total length of every op.
func (d Delta) Length() int {
	n := 0
	for _, op := range d.ops {
		n += op.Len()
	}
	return n
}

// BaseLength is the number of document positions the edit consumes (retains plus deletes).
func (d Delta) BaseLength() int {
	n := 0
	for _, op := range d.ops {
		if op.Kind() != KindInsert {
			n += op.Len()
		}
	}
	return n
}

// ChangeLength is how much the edit grows (or shrinks) the document.
func (d Delta) ChangeLength() int {
	n := 0
	for _, op := range d.ops {
		switch op.Kind() {
		case KindInsert:
			n += op.Len()
		case KindDelete:
			n -= op.Delete
		}
	}
	return n
}

// IsNoop reports whether applying the edit leaves any document unchanged.
func (d Delta) IsNoop() bool {
	for _, op := range d.ops {
		if op.Kind() != KindRetain || len(op.Attributes) > 0 {
			return false
		}
	}
	return true
}

// IsDocument reports whether the delta contains only inserts.
func (d Delta) IsDocument() bool {
	for _, op := range d.ops {
		if op.Kind() != KindInsert {
			return false
		}
	}
	return true
}

// Equal compares two deltas op by op.
func (d Delta) Equal(other Delta) bool {
	return slices.EqualFunc(d.ops, other.ops, Op.Equal)
}

// Text returns the plain text of the inserts, with embeds as ObjectReplacement.
func (d Delta) Text() string {
	var sb strings.Builder
	for _, op := range d.ops {
		if op.Kind() != KindInsert {
			continue
		}
		if op.Embed != nil {
			sb.WriteRune(ObjectReplacement)
			continue
		}
		sb.WriteString(op.Insert)
	}
	return sb.String()
}

func (d Delta) String() string {
	parts := make([]string, len(d.ops))
	for i, op := range d.ops {
		parts[i] = op.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Slice returns the ops covering positions [start, end). Pass end < 0 for "to the end".
func (d Delta) Slice(start, end int) Delta {
	if end < 0 {
		end = infinity
	}
	var b builder
	it := newIterator(d.ops)
	index := 0
	for index < end && it.hasNext() {
		var op Op
		if index < start {
			op = it.next(start - index)
		} else {
			op = it.next(end - index)
			b.push(op)
		}
		index += op.Len()
	}
	return b.delta()
}

// Concat appends other's ops after d's.
func (d Delta) Concat(other Delta) Delta {
	b := builder{ops: slices.Clone(d.ops)}
	for _, op := range other.ops {
		b.push(op)
	}
	return b.delta()
}

// Compose returns the single edit equivalent to d followed by other.
func (d Delta) Compose(other Delta) Delta {
	this := newIterator(d.ops)
	that := newIterator(other.ops)
	var b builder

	// A leading plain retain in other keeps d's leading inserts verbatim.
	if len(other.ops) > 0 {
		first := other.ops[0]
		if first.Kind() == KindRetain && len(first.Attributes) == 0 {
			left := first.Retain
			for this.peekKind() == KindInsert && this.peekLength() <= left {
				left -= this.peekLength()
				b.push(this.next(0))
			}
			if first.Retain-left > 0 {
				that.next(first.Retain - left)
			}
		}
	}

	for this.hasNext() || that.hasNext() {
		switch {
		case that.peekKind() == KindInsert:
			b.push(that.next(0))
		case this.peekKind() == KindDelete:
			b.push(this.next(0))
		default:
			length := min(this.peekLength(), that.peekLength())
			thisOp := this.next(length)
			thatOp := that.next(length)
			switch thatOp.Kind() {
			case KindRetain:
				var op Op
				if thisOp.Kind() == KindRetain {
					op.Retain = length
				} else {
					op.Insert, op.Embed = thisOp.Insert, thisOp.Embed
				}
				op.Attributes = ComposeAttributes(thisOp.Attributes, thatOp.Attributes, thisOp.Kind() == KindRetain)
				b.push(op)
			case KindDelete:
				// Deleting something d inserted cancels both.
				if thisOp.Kind() == KindRetain {
					b.push(thatOp)
				}
			}
		}
	}
	return b.delta().Chop()
}

// Transform rewrites other so that it applies after d. Both must share the same base
// document. With priority, d's inserts win ties and land before other's.
func (d Delta) Transform(other Delta, priority bool) Delta {
	this := newIterator(d.ops)
	that := newIterator(other.ops)
	var b builder

	for this.hasNext() || that.hasNext() {
		switch {
		case this.peekKind() == KindInsert && (priority || that.peekKind() != KindInsert):
			b.push(Op{Retain: this.next(0).Len()})
		case that.peekKind() == KindInsert:
			b.push(that.next(0))
		default:
			length := min(this.peekLength(), that.peekLength())
			thisOp := this.next(length)
			thatOp := that.next(length)
			switch {
			case thisOp.Kind() == KindDelete:
				// Already gone: their delete is redundant and their retain shrinks.
			case thatOp.Kind() == KindDelete:
				b.push(thatOp)
			default:
				b.push(Op{Retain: length, Attributes: TransformAttributes(thisOp.Attributes, thatOp.Attributes, priority)})
			}
		}
	}
	return b.delta().Chop()
}

// TransformPosition maps a cursor index across d. With priority an insert exactly at
// index leaves the cursor before it.
func (d Delta) TransformPosition(index int, priority bool) int {
	it := newIterator(d.ops)
	offset := 0
	for it.hasNext() && offset <= index {
		length := it.peekLength()
		kind := it.peekKind()
		it.next(0)
		if kind == KindDelete {
			index -= min(length, index-offset)
			continue
		}
		if kind == KindInsert && (offset < index || !priority) {
			index += length
		}
		offset += length
	}
	return index
}

// Invert returns the edit that undoes d when applied to the result of base∘d.
func (d Delta) Invert(base Delta) Delta {
	var b builder
	baseIndex := 0
	for _, op := range d.ops {
		switch {
		case op.Kind() == KindInsert:
			b.push(Op{Delete: op.Len()})
		case op.Kind() == KindRetain && len(op.Attributes) == 0:
			b.push(Op{Retain: op.Retain})
			baseIndex += op.Retain
		default:
			length := op.Len()
			for _, baseOp := range base.Slice(baseIndex, baseIndex+length).ops {
				if op.Kind() == KindDelete {
					b.push(baseOp)
					continue
				}
				b.push(Op{Retain: baseOp.Len(), Attributes: InvertAttributes(op.Attributes, baseOp.Attributes)})
			}
			baseIndex += length
		}
	}
	return b.delta().Chop()
}

// Apply composes op onto the document doc after checking that op fits it.
func Apply(doc, op Delta) (Delta, error) {
	if !doc.IsDocument() {
		return Delta{}, ErrNotDocument
	}
	if need, have := op.BaseLength(), doc.Length(); need > have {
		return Delta{}, fmt.Errorf("%w: edit needs %d positions, document has %d", ErrLengthMismatch, need, have)
	}
	return doc.Compose(op), nil
}

// builder accumulates ops, coalescing neighbours and keeping inserts ahead of deletes.
type builder struct {
	ops []Op
}

func normalize(op Op) Op {
	switch op.Kind() {
	case KindDelete:
		return Op{Delete: op.Delete}
	case KindInsert:
		if op.Embed != nil {
			return Op{Embed: op.Embed, Attributes: op.Attributes}
		}
		return Op{Insert: op.Insert, Attributes: op.Attributes}
	default:
		return Op{Retain: op.Retain, Attributes: op.Attributes}
	}
}

func (b *builder) push(op Op) {
	op = normalize(op)
	if op.Len() <= 0 {
		return
	}
	if len(op.Attributes) == 0 {
		op.Attributes = nil
	}
	idx := len(b.ops)
	if idx > 0 {
		last := b.ops[idx-1]
		if op.Kind() == KindDelete && last.Kind() == KindDelete {
			b.ops[idx-1] = Op{Delete: last.Delete + op.Delete}
			return
		}
		if last.Kind() == KindDelete && op.Kind() == KindInsert {
			idx--
			if idx == 0 {
				b.ops = slices.Insert(b.ops, 0, op)
				return
			}
			last = b.ops[idx-1]
		}
		if op.Attributes.Equal(last.Attributes) {
			if op.isTextInsert() && last.isTextInsert() {
				b.ops[idx-1] = Op{Insert: last.Insert + op.Insert, Attributes: op.Attributes}
				return
			}
			if op.Kind() == KindRetain && last.Kind() == KindRetain {
				b.ops[idx-1] = Op{Retain: last.Retain + op.Retain, Attributes: op.Attributes}
				return
			}
		}
	}
	b.ops = slices.Insert(b.ops, idx, op)
}

func (b *builder) delta() Delta {
	return Delta{ops: slices.Clip(b.ops)}
}
