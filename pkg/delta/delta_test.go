package delta_test

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/aretw0/otsync/pkg/delta"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_MergesAndReorders(t *testing.T) {
	d := delta.Delta{}.
		Insert("ab", nil).
		Insert("c", nil).
		Retain(2, nil).
		Retain(3, nil).
		Delete(1).
		Delete(2).
		Insert("x", nil)

	assert.Equal(t, []delta.Op{
		{Insert: "abc"},
		{Retain: 5},
		{Insert: "x"},
		{Delete: 3},
	}, d.Ops())
}

func TestBuilder_DoesNotShareBacking(t *testing.T) {
	base := delta.Delta{}.Insert("a", nil).Retain(1, delta.Attributes{"bold": true})
	left := base.Insert("L", nil)
	right := base.Insert("R", nil)

	assert.Equal(t, "aL", left.Text())
	assert.Equal(t, "aR", right.Text())
	assert.Len(t, base.Ops(), 2)
}

func TestBuilder_DropsEmptyOps(t *testing.T) {
	d := delta.New(delta.Op{Insert: ""}, delta.Op{Retain: 0}, delta.Op{Delete: 0})
	assert.Empty(t, d.Ops())
	assert.True(t, d.IsNoop())
}

func TestLengths(t *testing.T) {
	d := delta.Delta{}.Retain(3, nil).Insert("héllo", nil).InsertEmbed(delta.Embed{"image": "a.png"}, nil).Delete(2)

	assert.Equal(t, 11, d.Length())
	assert.Equal(t, 5, d.BaseLength())
	assert.Equal(t, 4, d.ChangeLength())
}

func TestChop(t *testing.T) {
	d := delta.Delta{}.Insert("a", nil).Retain(4, nil)
	assert.Equal(t, []delta.Op{{Insert: "a"}}, d.Chop().Ops())

	formatted := delta.Delta{}.Retain(4, delta.Attributes{"bold": true})
	assert.True(t, formatted.Equal(formatted.Chop()))
}

func TestCompose(t *testing.T) {
	t.Run("insert then delete cancels", func(t *testing.T) {
		a := delta.Delta{}.Insert("A", nil)
		b := delta.Delta{}.Delete(1)
		assert.True(t, a.Compose(b).IsNoop())
	})

	t.Run("insert then retain with format", func(t *testing.T) {
		a := delta.Delta{}.Insert("A", nil)
		b := delta.Delta{}.Retain(1, delta.Attributes{"bold": true, "color": "red"})
		expected := delta.Delta{}.Insert("A", delta.Attributes{"bold": true, "color": "red"})
		assert.True(t, expected.Equal(a.Compose(b)), "got %s", a.Compose(b))
	})

	t.Run("retain with null removes format", func(t *testing.T) {
		doc := delta.FromText("Hello", delta.Attributes{"bold": true})
		unbold := delta.Delta{}.Retain(5, delta.Attributes{"bold": nil})
		assert.True(t, delta.FromText("Hello", nil).Equal(doc.Compose(unbold)))
	})

	t.Run("delete then insert at same place", func(t *testing.T) {
		doc := delta.FromText("Hello", nil)
		edit := delta.Delta{}.Retain(1, nil).Delete(4).Insert("i", nil)
		assert.Equal(t, "Hi", doc.Compose(edit).Text())
	})

	t.Run("leading inserts survive plain retain", func(t *testing.T) {
		a := delta.Delta{}.Insert("Hello", nil).Retain(3, nil)
		b := delta.Delta{}.Retain(6, nil).Delete(1)
		expected := delta.Delta{}.Insert("Hello", nil).Retain(1, nil).Delete(1)
		assert.True(t, expected.Equal(a.Compose(b)), "got %s", a.Compose(b))
	})
}

func TestTransform(t *testing.T) {
	a := delta.Delta{}.Insert("A", nil)
	b := delta.Delta{}.Insert("B", nil)

	assert.True(t, delta.Delta{}.Retain(1, nil).Insert("B", nil).Equal(a.Transform(b, true)))
	assert.True(t, delta.Delta{}.Insert("B", nil).Equal(a.Transform(b, false)))

	del := delta.Delta{}.Retain(1, nil).Delete(2)
	sameDel := delta.Delta{}.Delete(3)
	assert.True(t, delta.Delta{}.Delete(1).Equal(del.Transform(sameDel, true)))
}

func TestTransform_Attributes(t *testing.T) {
	a := delta.Delta{}.Retain(3, delta.Attributes{"bold": true, "italic": true})
	b := delta.Delta{}.Retain(3, delta.Attributes{"bold": false, "color": "red"})

	assert.True(t, delta.Delta{}.Retain(3, delta.Attributes{"color": "red"}).Equal(a.Transform(b, true)))
	assert.True(t, b.Equal(a.Transform(b, false)))
}

func TestTransformPosition(t *testing.T) {
	ins := delta.Delta{}.Retain(2, nil).Insert("abc", nil)
	assert.Equal(t, 1, ins.TransformPosition(1, false))
	assert.Equal(t, 5, ins.TransformPosition(2, false))
	assert.Equal(t, 2, ins.TransformPosition(2, true))
	assert.Equal(t, 7, ins.TransformPosition(4, false))

	del := delta.Delta{}.Retain(2, nil).Delete(3)
	assert.Equal(t, 2, del.TransformPosition(4, false))
	assert.Equal(t, 3, del.TransformPosition(6, false))
}

func TestInvert(t *testing.T) {
	base := delta.Delta{}.Insert("Hello", delta.Attributes{"bold": true}).Insert(" world", nil)
	edit := delta.Delta{}.
		Retain(2, nil).
		Delete(3).
		Insert("y", nil).
		Retain(3, delta.Attributes{"bold": true, "italic": nil})

	inverted := edit.Invert(base)
	expected := delta.Delta{}.
		Retain(2, nil).
		Insert("llo", delta.Attributes{"bold": true}).
		Delete(1).
		Retain(3, delta.Attributes{"bold": nil})

	assert.True(t, expected.Equal(inverted), "got %s", inverted)
	assert.True(t, base.Equal(base.Compose(edit).Compose(inverted)))
}

func TestSliceAndConcat(t *testing.T) {
	d := delta.Delta{}.Insert("Hello", nil).InsertEmbed(delta.Embed{"image": "x"}, nil).Insert("World", delta.Attributes{"bold": true})

	s := d.Slice(3, 8)
	assert.Equal(t, "lo\uFFFCWo", s.Text())
	assert.Equal(t, "World", d.Slice(6, -1).Text())

	joined := d.Slice(0, 3).Concat(d.Slice(3, -1))
	assert.True(t, d.Equal(joined))
}

func TestDiffAttributes(t *testing.T) {
	a := delta.Attributes{"bold": true, "color": "red"}
	b := delta.Attributes{"bold": true, "italic": true}

	diff := delta.DiffAttributes(a, b)
	assert.Equal(t, delta.Attributes{"color": nil, "italic": true}, diff)
	assert.True(t, b.Equal(delta.ComposeAttributes(a, diff, false)))

	assert.Nil(t, delta.DiffAttributes(a, a.Clone()))
	assert.Equal(t, delta.Attributes{"color": "blue"}, delta.DiffAttributes(a, delta.Attributes{"bold": true, "color": "blue"}))
	assert.Equal(t, delta.Attributes{"bold": nil, "color": nil}, delta.DiffAttributes(a, nil))
}

func TestApply(t *testing.T) {
	doc := delta.FromText("Untitled\n", nil)

	out, err := delta.Apply(doc, delta.Delta{}.Retain(8, nil).Insert("!", nil))
	require.NoError(t, err)
	assert.Equal(t, "Untitled!\n", out.Text())

	_, err = delta.Apply(doc, delta.Delta{}.Retain(20, nil).Delete(1))
	assert.ErrorIs(t, err, delta.ErrLengthMismatch)

	_, err = delta.Apply(delta.Delta{}.Retain(1, nil), doc)
	assert.ErrorIs(t, err, delta.ErrNotDocument)
}

func TestJSON(t *testing.T) {
	raw := `{"ops":[{"retain":3,"attributes":{"bold":true}},{"insert":"hi"},{"insert":{"image":"a.png"}},{"delete":2}]}`

	var d delta.Delta
	require.NoError(t, json.Unmarshal([]byte(raw), &d))
	assert.Equal(t, 4, len(d.Ops()))
	assert.Equal(t, "a.png", d.Ops()[2].Embed["image"])

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))

	empty, err := json.Marshal(delta.Delta{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ops":[]}`, string(empty))

	var bad delta.Delta
	err = json.Unmarshal([]byte(`{"ops":[{"retain":1,"delete":1}]}`), &bad)
	assert.ErrorIs(t, err, delta.ErrInvalidOp)
}

// Property checks over random documents and concurrent edits.

var (
	alphabet = []rune("abcdeé\n")
	formats  = []delta.Attributes{nil, {"bold": true}, {"italic": true}, {"color": "red"}, {"bold": true, "color": "blue"}}
)

func randomText(r *rand.Rand, n int) string {
	out := make([]rune, n)
	for i := range out {
		out[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(out)
}

func randomDocument(r *rand.Rand) delta.Delta {
	var d delta.Delta
	for i := 0; i < 1+r.Intn(5); i++ {
		if r.Intn(6) == 0 {
			d = d.InsertEmbed(delta.Embed{"image": "img"}, formats[r.Intn(len(formats))])
			continue
		}
		d = d.Insert(randomText(r, 1+r.Intn(6)), formats[r.Intn(len(formats))])
	}
	return d
}

func randomEdit(r *rand.Rand, docLen int) delta.Delta {
	var d delta.Delta
	pos := 0
	for pos < docLen {
		n := 1 + r.Intn(docLen-pos)
		switch r.Intn(5) {
		case 0:
			d = d.Insert(randomText(r, 1+r.Intn(3)), formats[r.Intn(len(formats))])
		case 1:
			d = d.Delete(n)
			pos += n
		case 2:
			attrs := delta.Attributes{"bold": nil}
			if r.Intn(2) == 0 {
				attrs = formats[r.Intn(len(formats))]
			}
			d = d.Retain(n, attrs)
			pos += n
		default:
			d = d.Retain(n, nil)
			pos += n
		}
	}
	if r.Intn(3) == 0 {
		d = d.Insert(randomText(r, 2), nil)
	}
	return d
}

func TestProperty_Convergence(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		doc := randomDocument(r)
		a := randomEdit(r, doc.Length())
		b := randomEdit(r, doc.Length())

		left := doc.Compose(a).Compose(a.Transform(b, true))
		right := doc.Compose(b).Compose(b.Transform(a, false))

		require.True(t, left.Equal(right), "doc=%s a=%s b=%s\nleft=%s\nright=%s", doc, a, b, left, right)
	}
}

func TestProperty_InvertRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 500; i++ {
		doc := randomDocument(r)
		edit := randomEdit(r, doc.Length())

		restored := doc.Compose(edit.Compose(edit.Invert(doc)))
		require.True(t, doc.Equal(restored), "doc=%s edit=%s restored=%s", doc, edit, restored)
	}
}

func TestProperty_ComposeAssociative(t *testing.T) {
	r := rand.New(rand.NewSource(13))
	for i := 0; i < 300; i++ {
		doc := randomDocument(r)
		a := randomEdit(r, doc.Length())
		afterA := doc.Compose(a)
		b := randomEdit(r, afterA.Length())
		c := randomEdit(r, afterA.Compose(b).Length())

		left := doc.Compose(a.Compose(b).Compose(c))
		right := doc.Compose(a.Compose(b.Compose(c)))
		require.True(t, left.Equal(right), "a=%s b=%s c=%s", a, b, c)
	}
}
