package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "spaces and tabs", in: "Artículo \t  1.\tObjeto", want: "Artículo 1. Objeto"},
		{name: "blank lines", in: "uno\n\n\n\ndos\n\ntres", want: "uno\n\ndos\n\ntres"},
		{name: "trim", in: "  \n texto \n\n", want: "texto"},
		{name: "no-break spaces", in: "art.\u00a01\u00a0\u00a0de la Ley\u202f3/2024", want: "art. 1 de la Ley 3/2024"},
		{name: "no-break space at edges", in: "\u00a0texto\u00a0", want: "texto"},
		{name: "decomposed accents", in: "Administracio\u0301n", want: "Administraci\u00f3n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"   ",
		"a \n \n \n b",
		"línea\t\t\n\n\n\n\tsiguiente  ",
		"e\u0301\u0301 \u00a0 x",
		"\n\n\n",
		"Real Decreto 123/2024,\tde 5 de marzo.\n\n\n\nArtículo único.",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestCollapseFields(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "uno dos tres", CollapseFields("  uno\n dos\t\ttres "))
	assert.Equal(t, "", CollapseFields(" \n "))
}
