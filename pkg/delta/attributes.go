package delta

import (
	"maps"
	"reflect"
)

// Attributes holds the formatting of a run. A key mapped to nil on a retain removes
// that format.
type Attributes map[string]any

// Clone returns a shallow copy, or nil when a is empty.
func (a Attributes) Clone() Attributes {
	if len(a) == 0 {
		return nil
	}
	return maps.Clone(a)
}

// Equal reports whether both maps carry the same keys and values. Nil and empty are equal.
func (a Attributes) Equal(b Attributes) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(map[string]any(a), map[string]any(b))
}

// ComposeAttributes merges b over a. Nil values in b are kept only when keepNull is set,
// which is the case when composing onto a retain.
func ComposeAttributes(a, b Attributes, keepNull bool) Attributes {
	out := make(Attributes, len(a)+len(b))
	for k, v := range b {
		if v == nil && !keepNull {
			continue
		}
		out[k] = v
	}
	for k, v := range a {
		if _, ok := b[k]; !ok {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// DiffAttributes returns the attributes that turn a into b.
func DiffAttributes(a, b Attributes) Attributes {
	out := make(Attributes)
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			out[k] = nil
			continue
		}
		if !reflect.DeepEqual(av, bv) {
			out[k] = bv
		}
	}
	for k, bv := range b {
		if _, ok := a[k]; !ok {
			out[k] = bv
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// InvertAttributes returns the attributes that undo attr applied over base.
func InvertAttributes(attr, base Attributes) Attributes {
	out := make(Attributes)
	for k, bv := range base {
		av, ok := attr[k]
		if ok && !reflect.DeepEqual(av, bv) {
			out[k] = bv
		}
	}
	for k, av := range attr {
		if _, ok := base[k]; !ok && av != nil {
			out[k] = nil
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// TransformAttributes rewrites b against a concurrent a. Without priority b wins
// outright; with priority only the keys a left untouched survive.
func TransformAttributes(a, b Attributes, priority bool) Attributes {
	if len(a) == 0 {
		return b.Clone()
	}
	if len(b) == 0 {
		return nil
	}
	if !priority {
		return b.Clone()
	}
	out := make(Attributes)
	for k, v := range b {
		if _, ok := a[k]; !ok {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
