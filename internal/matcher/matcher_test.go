package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCorrect(t *testing.T) {
	tests := []struct {
		name      string
		guess     string
		canonical string
		variants  []string
		want      bool
	}{
		{name: "case and whitespace insensitive", guess: " Answer ", canonical: "answer", want: true},
		{name: "canonical stored mixed case", guess: "hulk hogan", canonical: "Hulk Hogan", want: true},
		{name: "variant match", guess: "HOGAN", canonical: "Hulk Hogan", variants: []string{"hogan"}, want: true},
		{name: "variant with padding", guess: "feline", canonical: "cat", variants: []string{"  Feline  "}, want: true},
		{name: "blank variants never match", guess: "", canonical: "cat", variants: []string{"", "feline"}, want: false},
		{name: "whitespace variant never matches", guess: "   ", canonical: "cat", variants: []string{"   "}, want: false},
		{name: "no fuzzy matching", guess: "hulk hgan", canonical: "Hulk Hogan", variants: []string{"hogan"}, want: false},
		{name: "substring is not a match", guess: "hulk", canonical: "Hulk Hogan", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCorrect(tt.guess, tt.canonical, tt.variants))
		})
	}
}

func TestSplitVariants(t *testing.T) {
	assert.Equal(t, []string{"hogan", "hollywood hogan"}, SplitVariants("hogan, ,hollywood hogan,"))
	assert.Nil(t, SplitVariants(""))
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		want   string
	}{
		{name: "paragraph", markup: "<p>Hulk Hogan</p>", want: "Hulk Hogan"},
		{name: "nested formatting", markup: "<p><strong>Hulk</strong> <em>Hogan</em></p>\n", want: "Hulk Hogan"},
		{name: "entities decoded", markup: "<p>Tom &amp; Jerry&nbsp;</p>", want: "Tom & Jerry"},
		{name: "style dropped", markup: "<style>p{color:red}</style><p>Sting</p>", want: "Sting"},
		{name: "line breaks separate words", markup: "The<br>Rock", want: "The Rock"},
		{name: "plain text passthrough", markup: "  Undertaker ", want: "Undertaker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.markup))
		})
	}
}
