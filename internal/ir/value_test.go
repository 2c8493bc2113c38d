package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = String("s")
	var _ Value = Int(1)
	var _ Value = Bool(true)
	var _ Value = Array{Int(1)}
	var _ Value = Object{"k": String("v")}
}

func TestObjectSortedKeys(t *testing.T) {
	obj := Object{"zebra": Int(1), "A": Int(2), "apple": Int(3), "AA": Int(4)}
	assert.Equal(t, []string{"A", "AA", "apple", "zebra"}, obj.SortedKeys())
	assert.Empty(t, Object{}.SortedKeys())
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{Null{}, false},
		{String(""), false},
		{String("x"), true},
		{Int(0), false},
		{Int(-1), true},
		{Bool(false), false},
		{Bool(true), true},
		{Array{}, false},
		{Array{Null{}}, true},
		{Object{}, false},
		{Object{"k": Null{}}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truthy(tt.v), "%#v", tt.v)
	}
}

func TestTextOf(t *testing.T) {
	assert.Equal(t, "plain", TextOf(String("plain")))
	assert.Equal(t, "42", TextOf(Int(42)))
	assert.Equal(t, `{"a":true}`, TextOf(Object{"a": Bool(true)}))
	assert.Equal(t, "null", TextOf(nil))
}

func TestJSONMarshalUsesCanonicalForm(t *testing.T) {
	v := Object{"b": Array{Int(1), Bool(false), Null{}}, "a": String("<x>")}

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"\u003cx\u003e","b":[1,false,null]}`, string(data))
}
