package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObject_SetKeepsPosition(t *testing.T) {
	o := NewObject()
	o.Set("b", String("1"))
	o.Set("a", String("2"))
	o.Set("b", String("3"))

	assert.Equal(t, []string{"b", "a"}, o.Keys())
	v, ok := o.Get("b")
	require.True(t, ok)
	assert.Equal(t, "3", v.(Scalar).Interface())
}

func TestObject_DeleteReindexes(t *testing.T) {
	o := NewObject()
	for _, k := range []string{"a", "b", "c", "d"} {
		o.Set(k, Bool(true))
	}
	o.Delete("b")
	o.Delete("missing")
	assert.Equal(t, []string{"a", "c", "d"}, o.Keys())

	o.Set("c", Null())
	assert.Equal(t, []string{"a", "c", "d"}, o.Keys())
	assert.False(t, o.Has("b"))
	assert.Equal(t, 3, o.Len())
}

func TestMarshalIndent_InsertionOrder(t *testing.T) {
	o := NewObject()
	o.Set("z", Number("1"))
	o.Set("a", NewArray(String("x"), Null()))
	out, err := MarshalIndent(o, "", "    ")
	require.NoError(t, err)
	want := "{\n    \"z\": 1,\n    \"a\": [\n        \"x\",\n        null\n    ]\n}"
	assert.Equal(t, want, string(out))
}

func TestMarshal_EmptyContainers(t *testing.T) {
	out, err := Marshal(NewArray(NewObject(), NewArray()))
	require.NoError(t, err)
	assert.Equal(t, `[{},[]]`, string(out))
}

func TestMatch_NilIsNull(t *testing.T) {
	var got Scalar
	Match(nil,
		func(*Object) { t.Fatal("unexpected object") },
		func(*Array) { t.Fatal("unexpected array") },
		func(s Scalar) { got = s },
	)
	assert.True(t, got.IsNull())
}

func TestEqual_IgnoresKeyOrder(t *testing.T) {
	a := NewObject()
	a.Set("x", Number("1"))
	a.Set("y", NewArray(String("p"), String("q")))
	b := NewObject()
	b.Set("y", NewArray(String("p"), String("q")))
	b.Set("x", Number("1"))
	assert.True(t, Equal(a, b))

	c := b.Clone()
	c.Set("y", NewArray(String("q"), String("p")))
	assert.False(t, Equal(a, c))
	assert.True(t, Equal(a, b), "clone must not alias the original")
}

func TestClone_IsDeep(t *testing.T) {
	inner := NewObject()
	inner.Set("k", String("v"))
	outer := NewObject()
	outer.Set("inner", inner)

	c := outer.Clone()
	got, _ := c.Get("inner")
	got.(*Object).Set("k", String("changed"))

	orig, _ := inner.Get("k")
	assert.Equal(t, "v", orig.(Scalar).Interface())
}
