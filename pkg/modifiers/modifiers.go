package modifiers

import (
	"reflect"

	"github.com/aretw0/otsync/pkg/delta"
	"github.com/aretw0/otsync/pkg/domain"
	"github.com/aretw0/otsync/pkg/ports"
)

// StripEmptyAttributes drops attributes whose value is "" or an empty map or slice.
// A nil value is kept on retains, where it means "remove this format", and dropped
// on inserts, where it means nothing.
func StripEmptyAttributes(op delta.Delta) delta.Delta {
	return mapAttributes(op, func(o delta.Op, attrs delta.Attributes) {
		for k, v := range attrs {
			switch {
			case v == nil:
				if o.Kind() == delta.KindInsert {
					delete(attrs, k)
				}
			case isEmpty(v):
				delete(attrs, k)
			}
		}
	})
}

func isEmpty(v any) bool {
	if s, ok := v.(string); ok {
		return s == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return rv.Len() == 0
	}
	return false
}

// DropAttributes removes the given attribute keys from every op, typically
// client-only formats the server must not persist.
func DropAttributes(keys ...string) ports.Modifier {
	return func(op delta.Delta) delta.Delta {
		return mapAttributes(op, func(_ delta.Op, attrs delta.Attributes) {
			for _, k := range keys {
				delete(attrs, k)
			}
		})
	}
}

// StampAuthor attributes every insert that has no author to authorID.
func StampAuthor(authorID string) ports.Modifier {
	return func(op delta.Delta) delta.Delta {
		return mapAttributes(op, func(o delta.Op, attrs delta.Attributes) {
			if o.Kind() != delta.KindInsert {
				return
			}
			if _, ok := attrs[domain.KeyAuthor]; !ok {
				attrs[domain.KeyAuthor] = authorID
			}
		})
	}
}

// Chain composes modifiers into one, applied left to right.
func Chain(mods ...ports.Modifier) ports.Modifier {
	return func(op delta.Delta) delta.Delta {
		for _, m := range mods {
			op = m(op)
		}
		return op
	}
}

// mapAttributes rebuilds op with fn applied to a private copy of each op's attributes.
func mapAttributes(op delta.Delta, fn func(delta.Op, delta.Attributes)) delta.Delta {
	ops := op.Ops()
	for i := range ops {
		attrs := ops[i].Attributes
		if attrs == nil {
			attrs = delta.Attributes{}
		}
		fn(ops[i], attrs)
		if len(attrs) == 0 {
			attrs = nil
		}
		ops[i].Attributes = attrs
	}
	return delta.New(ops...)
}
