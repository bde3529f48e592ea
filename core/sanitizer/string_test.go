package sanitizer_test

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/chatrelay/core/sanitizer"
)

func TestNormalizeUnicode(t *testing.T) {
	t.Parallel()

	decomposed := "e\u0301"
	composed := sanitizer.NormalizeUnicode(decomposed)

	assert.Equal(t, "\u00e9", composed)
	assert.Equal(t, 1, utf8.RuneCountInString(composed))
}

func TestStringSanitizers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{name: "trim", fn: sanitizer.Trim, in: "  hi  ", want: "hi"},
		{name: "extra_whitespace", fn: sanitizer.RemoveExtraWhitespace, in: " a \t\n b ", want: "a b"},
		{name: "control_chars", fn: sanitizer.RemoveControlChars, in: "a\x00b\x1bc\nd", want: "abc\nd"},
		{name: "control_chars_crlf", fn: sanitizer.RemoveControlChars, in: "one\r\ntwo\tthree\r", want: "one\ntwo\tthree"},
		{name: "null_bytes", fn: sanitizer.RemoveNullBytes, in: "a\x00b", want: "ab"},
		{name: "single_line", fn: sanitizer.SingleLine, in: "one\ntwo\r\nthree", want: "one two three"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.fn(tt.in))
		})
	}
}

func TestMaxLength(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hé", sanitizer.MaxLength("héllo", 2))
	assert.Equal(t, "short", sanitizer.MaxLength("short", 10))
	assert.Equal(t, "", sanitizer.MaxLength("any", 0))
}
