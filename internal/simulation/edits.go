package simulation

import (
	"math/rand/v2"

	"github.com/aretw0/otsync/pkg/delta"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz "

var formats = []delta.Attributes{
	{"bold": true},
	{"italic": true},
	{"bold": nil},
	{"header": 2},
}

// randomEdit builds a user edit valid against doc. The trailing newline is never
// touched so the document stays well formed.
func randomEdit(rng *rand.Rand, doc delta.Delta) delta.Delta {
	body := doc.Length() - 1
	pos := rng.IntN(body + 1)

	switch roll := rng.IntN(10); {
	case roll < 5 || body == pos:
		var attrs delta.Attributes
		if rng.IntN(4) == 0 {
			attrs = delta.Attributes{"bold": true}
		}
		if rng.IntN(20) == 0 {
			return delta.Delta{}.Retain(pos, nil).InsertEmbed(delta.Embed{"image": "https://example.com/cat.png"}, attrs)
		}
		return delta.Delta{}.Retain(pos, nil).Insert(randomText(rng), attrs)
	case roll < 8:
		n := 1 + rng.IntN(min(3, body-pos))
		return delta.Delta{}.Retain(pos, nil).Delete(n)
	default:
		n := 1 + rng.IntN(body-pos)
		return delta.Delta{}.Retain(pos, nil).Retain(n, formats[rng.IntN(len(formats))])
	}
}

func randomText(rng *rand.Rand) string {
	b := make([]byte, 1+rng.IntN(3))
	for i := range b {
		b[i] = alphabet[rng.IntN(len(alphabet))]
	}
	return string(b)
}
