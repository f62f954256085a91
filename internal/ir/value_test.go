package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalIRValue_TagsNumbers(t *testing.T) {
	v, err := UnmarshalIRValue([]byte(`{"a":1,"b":1.5,"c":null,"d":[true,"x"],"e":2e3}`))
	require.NoError(t, err)

	want := IRObject{
		"a": IRInt(1),
		"b": IRReal(1.5),
		"c": IRNull{},
		"d": IRArray{IRBool(true), IRString("x")},
		"e": IRReal(2000),
	}
	assert.Equal(t, want, v)
}

func TestUnmarshalIRValue_Invalid(t *testing.T) {
	_, err := UnmarshalIRValue([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestFromGo_Unsupported(t *testing.T) {
	_, err := FromGo(struct{}{})
	assert.Error(t, err)

	_, err = FromGo(map[string]any{"nested": []any{complex(1, 2)}})
	assert.ErrorContains(t, err, "object[\"nested\"]")
}

func TestEqual(t *testing.T) {
	a := IRObject{"x": IRArray{IRInt(1), IRReal(2.5)}, "y": IRNull{}}
	b := IRObject{"y": IRNull{}, "x": IRArray{IRInt(1), IRReal(2.5)}}

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(IRInt(1), IRReal(1)), "tag is part of the value")
	assert.False(t, Equal(IRArray{IRInt(1)}, IRArray{IRInt(1), IRInt(2)}))
	assert.False(t, Equal(IRObject{"x": IRInt(1)}, IRObject{"z": IRInt(1)}))
}

func TestAsReal_WidensIntegers(t *testing.T) {
	f, ok := AsReal(IRInt(3))
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)

	_, ok = AsReal(IRString("3"))
	assert.False(t, ok)
}

func TestAsInt_RejectsFractions(t *testing.T) {
	n, ok := AsInt(IRReal(4))
	assert.True(t, ok)
	assert.Equal(t, int64(4), n)

	_, ok = AsInt(IRReal(4.5))
	assert.False(t, ok)
}

func TestSortedKeys_UTF16Order(t *testing.T) {
	obj := IRObject{"\uFB33": IRInt(1), "\U0001F600": IRInt(2), "a": IRInt(3)}
	assert.Equal(t, []string{"a", "\U0001F600", "\uFB33"}, obj.SortedKeys())
}

func TestIRObject_MarshalJSON_Sorted(t *testing.T) {
	data, err := IRObject{"b": IRReal(0.5), "a": IRString("x")}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":0.5}`, string(data))
}
