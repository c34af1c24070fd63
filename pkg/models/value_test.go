package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_ZeroValueIsUndefined(t *testing.T) {
	var v Value
	assert.Equal(t, ValueTypeUndefined, v.Type())
	assert.True(t, v.IsUndefined())
	assert.False(t, v.IsNull())
}

func TestValue_Accessors(t *testing.T) {
	b, ok := Bool(true).AsBool()
	require.True(t, ok)
	assert.True(t, b)

	n, ok := Number(3.5).AsNumber()
	require.True(t, ok)
	assert.Equal(t, 3.5, n)

	s, ok := String("hi").AsString()
	require.True(t, ok)
	assert.Equal(t, "hi", s)

	// Wrong-type access fails cleanly.
	_, ok = String("hi").AsNumber()
	assert.False(t, ok)
	_, ok = Number(1).AsString()
	assert.False(t, ok)
}

func TestValue_FieldAndItems(t *testing.T) {
	obj := Object(map[string]Value{"a": Number(1)})
	assert.False(t, obj.Field("a").IsUndefined())
	assert.True(t, obj.Field("missing").IsUndefined())
	assert.True(t, Number(1).Field("a").IsUndefined())

	arr := Array(Number(1), Number(2))
	assert.Len(t, arr.Items(), 2)
	assert.Equal(t, 2, arr.Len())
	assert.Nil(t, Number(1).Items())
}

func TestValue_CloneIsDeep(t *testing.T) {
	inner := map[string]Value{"n": Number(1)}
	original := Object(map[string]Value{"rec": Object(inner)})

	clone := original.Clone()
	clone.Fields()["rec"].Fields()["n"] = Number(99)

	n, ok := original.Field("rec").Field("n").AsNumber()
	require.True(t, ok)
	assert.Equal(t, 1.0, n)
}

func TestValue_Equal(t *testing.T) {
	a := Object(map[string]Value{
		"id":   Number(1),
		"tags": Array(String("x"), Null()),
	})
	b := a.Clone()
	assert.True(t, a.Equal(b))

	b.Fields()["id"] = Number(2)
	assert.False(t, a.Equal(b))

	assert.True(t, Null().Equal(Null()))
	assert.False(t, Null().Equal(Value{}))
}

func TestValue_JSONRoundTrip(t *testing.T) {
	raw := `{"id":1,"name":"ada","active":true,"score":null,"tags":["a","b"]}`

	var v Value
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	assert.Equal(t, ValueTypeObject, v.Type())
	assert.True(t, v.Field("score").IsNull())
	assert.Equal(t, 2, v.Field("tags").Len())

	out, err := json.Marshal(v)
	require.NoError(t, err)

	var back Value
	require.NoError(t, json.Unmarshal(out, &back))
	assert.True(t, v.Equal(back))
}

func TestValue_StringIsDeterministic(t *testing.T) {
	v := Object(map[string]Value{
		"b": Number(2),
		"a": Number(1.5),
		"c": Array(String("x"), Bool(false)),
	})
	want := "{a:1.5,b:2,c:[x,false]}"
	for i := 0; i < 10; i++ {
		assert.Equal(t, want, v.String())
	}
}

func TestFromInterface_UnsupportedTypeIsUndefined(t *testing.T) {
	assert.True(t, FromInterface(struct{}{}).IsUndefined())
	assert.True(t, FromInterface(nil).IsNull())
}
