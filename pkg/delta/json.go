package delta

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type wireOp struct {
	Insert     json.RawMessage `json:"insert,omitempty"`
	Retain     int             `json:"retain,omitempty"`
	Delete     int             `json:"delete,omitempty"`
	Attributes Attributes      `json:"attributes,omitempty"`
}

type wireDelta struct {
	Ops []Op `json:"ops"`
}

// MarshalJSON encodes the op in the rich-text delta wire form.
func (o Op) MarshalJSON() ([]byte, error) {
	w := wireOp{Attributes: o.Attributes}
	switch o.Kind() {
	case KindDelete:
		w.Delete = o.Delete
		w.Attributes = nil
	case KindRetain:
		w.Retain = o.Retain
	case KindInsert:
		var err error
		if o.Embed != nil {
			w.Insert, err = json.Marshal(map[string]any(o.Embed))
		} else {
			w.Insert, err = json.Marshal(o.Insert)
		}
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a wire op, rejecting ops that are not exactly one form.
func (o *Op) UnmarshalJSON(data []byte) error {
	var w wireOp
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	forms := 0
	*o = Op{Attributes: w.Attributes}
	if len(w.Insert) > 0 && !bytes.Equal(w.Insert, []byte("null")) {
		forms++
		switch w.Insert[0] {
		case '"':
			if err := json.Unmarshal(w.Insert, &o.Insert); err != nil {
				return err
			}
		case '{':
			if err := json.Unmarshal(w.Insert, &o.Embed); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: insert must be a string or an object", ErrInvalidOp)
		}
	}
	if w.Retain != 0 {
		forms++
		o.Retain = w.Retain
	}
	if w.Delete != 0 {
		forms++
		o.Delete = w.Delete
	}
	if forms != 1 || o.Retain < 0 || o.Delete < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidOp, data)
	}
	return nil
}

// MarshalJSON encodes the delta as {"ops": [...]}.
func (d Delta) MarshalJSON() ([]byte, error) {
	ops := d.ops
	if ops == nil {
		ops = []Op{}
	}
	return json.Marshal(wireDelta{Ops: ops})
}

// UnmarshalJSON decodes {"ops": [...]} and normalizes the result.
func (d *Delta) UnmarshalJSON(data []byte) error {
	var w wireDelta
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*d = New(w.Ops...)
	return nil
}
