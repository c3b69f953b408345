package jsonvalue

import (
	"testing"

	"github.com/iancoleman/orderedmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshal_KeepsKeyOrder(t *testing.T) {
	v, err := Unmarshal([]byte(`{"zeta": 1, "alpha": {"y": 2.5, "b": [{"k": null}]}, "mid": "x"}`))
	require.NoError(t, err)

	om, ok := v.(*orderedmap.OrderedMap)
	require.True(t, ok)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, om.Keys())

	zeta, _ := om.Get("zeta")
	assert.Equal(t, int64(1), zeta)

	alphaRaw, _ := om.Get("alpha")
	alpha, ok := alphaRaw.(*orderedmap.OrderedMap)
	require.True(t, ok)
	assert.Equal(t, []string{"y", "b"}, alpha.Keys())
	y, _ := alpha.Get("y")
	assert.Equal(t, 2.5, y)

	list, _ := alpha.Get("b")
	require.Len(t, list, 1)
	inner, ok := list.([]any)[0].(*orderedmap.OrderedMap)
	require.True(t, ok)
	k, found := inner.Get("k")
	assert.True(t, found)
	assert.Nil(t, k)
}

func TestUnmarshal_DuplicateKey(t *testing.T) {
	om, err := UnmarshalObject([]byte(`{"a": 1, "b": 2, "a": 3}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, om.Keys())
	a, _ := om.Get("a")
	assert.Equal(t, int64(3), a)
}

func TestUnmarshal_Errors(t *testing.T) {
	for name, in := range map[string]string{
		"truncated": `{"a": `,
		"trailing":  `{} {}`,
		"empty":     ``,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal([]byte(in))
			assert.Error(t, err)
		})
	}

	_, err := UnmarshalObject([]byte(`[1]`))
	assert.Error(t, err)
}

func TestPlain(t *testing.T) {
	om, err := UnmarshalObject([]byte(`{"params": [{"name": "x", "type": "int"}], "doc": "d"}`))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"params": []any{map[string]any{"name": "x", "type": "int"}},
		"doc":    "d",
	}, Plain(om))
	assert.Equal(t, "s", Plain("s"))
}

func TestObject(t *testing.T) {
	om := NewObject()
	got, ok := Object(om)
	assert.True(t, ok)
	assert.Same(t, om, got)

	_, ok = Object(*om)
	assert.True(t, ok)

	_, ok = Object(map[string]any{})
	assert.False(t, ok)
}

func TestEntries(t *testing.T) {
	om, err := UnmarshalObject([]byte(`{"name": "f", "parameters": {"b": 1, "a": 2}}`))
	require.NoError(t, err)

	got := Entries(om)
	assert.Equal(t, "f", got["name"])
	nested, ok := got["parameters"].(*orderedmap.OrderedMap)
	require.True(t, ok, "nested objects stay ordered")
	assert.Equal(t, []string{"b", "a"}, nested.Keys())
}
