package sanitizer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/chatrelay/core/sanitizer"
)

func TestSanitizeStruct_BasicFields(t *testing.T) {
	t.Parallel()

	type payload struct {
		Name  string `sanitize:"display_name"`
		Body  string `sanitize:"text"`
		Short string `sanitize:"trim,max:3"`
		NoTag string
		Skip  string `sanitize:"-"`
	}

	input := payload{
		Name:  "  Alice\n  Smith \x07 ",
		Body:  " \x00 hi\tthere \n",
		Short: "  abcdef ",
		NoTag: "  untouched  ",
		Skip:  "  skipped  ",
	}
	require.NoError(t, sanitizer.SanitizeStruct(&input))

	assert.Equal(t, "Alice Smith", input.Name)
	assert.Equal(t, "hi\tthere", input.Body)
	assert.Equal(t, "abc", input.Short)
	assert.Equal(t, "  untouched  ", input.NoTag)
	assert.Equal(t, "  skipped  ", input.Skip)
}

func TestSanitizeStruct_Nested(t *testing.T) {
	t.Parallel()

	type inner struct {
		Value string `sanitize:"trim,no_spaces"`
	}
	type outer struct {
		Inner   inner
		Ptr     *inner
		StrPtr  *string  `sanitize:"trim"`
		Tags    []string `sanitize:"trim"`
		private string   `sanitize:"trim"`
	}

	raw := "  padded  "
	v := outer{
		Inner:   inner{Value: "  two   words "},
		Ptr:     &inner{Value: " ptr "},
		StrPtr:  &raw,
		Tags:    []string{" a ", "b  "},
		private: "  kept  ",
	}
	require.NoError(t, sanitizer.SanitizeStruct(&v))

	assert.Equal(t, "two words", v.Inner.Value)
	assert.Equal(t, "ptr", v.Ptr.Value)
	assert.Equal(t, "padded", *v.StrPtr)
	assert.Equal(t, []string{"a", "b"}, v.Tags)
	assert.Equal(t, "  kept  ", v.private)
}

func TestSanitizeStruct_InvalidInput(t *testing.T) {
	t.Parallel()

	type s struct{ V string }

	assert.ErrorIs(t, sanitizer.SanitizeStruct(s{}), sanitizer.ErrNotStructPointer)
	str := "x"
	assert.ErrorIs(t, sanitizer.SanitizeStruct(&str), sanitizer.ErrNotStructPointer)
}

func TestRegisterSanitizer(t *testing.T) {
	t.Parallel()

	sanitizer.RegisterSanitizer("shout_test", strings.ToUpper)

	type s struct {
		V string `sanitize:"trim,shout_test,unknown_name"`
	}
	v := s{V: " quiet "}
	require.NoError(t, sanitizer.SanitizeStruct(&v))
	assert.Equal(t, "QUIET", v.V)
}
