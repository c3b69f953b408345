package tooldoc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FullComment(t *testing.T) {
	comment := `
Get the current weather in a given location.

Args:
    location: The city and state, e.g. San Francisco, CA
    unit: The temperature unit to use. Infer this from the
        user's location.

Returns:
    The current temperature.

Raises:
    ValueError: when the location is unknown.
`
	doc, err := Parse(comment)
	require.NoError(t, err)

	assert.Equal(t, "Get the current weather in a given location.", doc.Description)
	assert.Equal(t, []string{"location", "unit"}, doc.ArgOrder)
	assert.Equal(t, "The city and state, e.g. San Francisco, CA", doc.Args["location"])
	assert.Equal(t, "The temperature unit to use. Infer this from the user's location.", doc.Args["unit"])
	assert.True(t, doc.HasReturns)
	assert.Equal(t, "The current temperature.", doc.Returns)
}

func TestParse_DescriptionOnly(t *testing.T) {
	doc, err := Parse("  Adds two numbers.\n\n  ")
	require.NoError(t, err)

	assert.Equal(t, "Adds two numbers.", doc.Description)
	assert.Empty(t, doc.Args)
	assert.False(t, doc.HasReturns)
}

func TestParse_MultiLineDescription(t *testing.T) {
	doc, err := Parse("First line.\nSecond line.\n\nArgs:\n    x: the x")
	require.NoError(t, err)

	assert.Equal(t, "First line.\nSecond line.", doc.Description)
	desc, ok := doc.Arg("x")
	assert.True(t, ok)
	assert.Equal(t, "the x", desc)
}

func TestParse_BlankLinesBetweenArgs(t *testing.T) {
	doc, err := Parse("Does things.\n\nArgs:\n    a: first\n\n    b: second\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, doc.ArgOrder)
	assert.Equal(t, "first", doc.Args["a"])
	assert.Equal(t, "second", doc.Args["b"])
}

func TestParse_ReturnsWithoutArgs(t *testing.T) {
	doc, err := Parse("Returns the answer.\n\nReturns:\n    Forty two.")
	require.NoError(t, err)

	assert.Equal(t, "Returns the answer.", doc.Description)
	assert.Empty(t, doc.ArgOrder)
	assert.Equal(t, "Forty two.", doc.Returns)
}

func TestParse_NoDescription(t *testing.T) {
	tests := []string{
		"",
		"   \n  ",
		"Args:\n    x: the x",
	}

	for _, comment := range tests {
		_, err := Parse(comment)
		assert.True(t, errors.Is(err, ErrNoDescription), "comment %q", comment)
	}
}

func TestSplitChoices(t *testing.T) {
	choices, rest, ok, err := SplitChoices("count (choices: [1, 2])")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "count", rest)
	assert.Equal(t, []any{float64(1), float64(2)}, choices)
}

func TestSplitChoices_StringsAreTrimmed(t *testing.T) {
	choices, rest, ok, err := SplitChoices(`The unit (CHOICES: [" celsius", "fahrenheit "])  `)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "The unit", rest)
	assert.Equal(t, []any{"celsius", "fahrenheit"}, choices)
}

func TestSplitChoices_NonASCIIPrefix(t *testing.T) {
	choices, rest, ok, err := SplitChoices(`Température (choices: ["°C"])`)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "Température", rest)
	assert.Equal(t, []any{"°C"}, choices)
}

func TestSplitChoices_Absent(t *testing.T) {
	choices, rest, ok, err := SplitChoices("plain description")
	require.NoError(t, err)

	assert.False(t, ok)
	assert.Nil(t, choices)
	assert.Equal(t, "plain description", rest)
}

func TestSplitChoices_Invalid(t *testing.T) {
	tests := []string{
		"bad (choices: [1, 2)",
		`not a list (choices: {"a": 1})`,
	}

	for _, desc := range tests {
		_, _, _, err := SplitChoices(desc)
		assert.True(t, errors.Is(err, ErrInvalidChoices), "desc %q", desc)
	}
}
