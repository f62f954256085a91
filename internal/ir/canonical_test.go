package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_Object(t *testing.T) {
	got, err := MarshalCanonical(IRObject{
		"b": IRInt(1),
		"a": IRString("<a&b>"),
		"c": IRArray{IRReal(1), IRReal(0.25), IRNull{}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"<a&b>","b":1,"c":[1,0.25,null]}`, string(got))
}

func TestMarshalCanonical_Reals(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-2.5, "-2.5"},
		{1e21, "1e+21"},
		{1.5e-7, "1.5e-7"},
		{123456.789, "123456.789"},
	}

	for _, tt := range tests {
		got, err := MarshalCanonical(IRReal(tt.in))
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got), "input %v", tt.in)
	}
}

func TestMarshalCanonical_RejectsNonFinite(t *testing.T) {
	_, err := MarshalCanonical(IRArray{IRReal(math.NaN())})
	assert.ErrorContains(t, err, "array[0]")

	_, err = MarshalCanonical(IRReal(math.Inf(1)))
	assert.Error(t, err)
}

func TestMarshalCanonical_StringEscapes(t *testing.T) {
	got, err := MarshalCanonical("line\nbreak\x01\"q\"\\")
	require.NoError(t, err)
	assert.Equal(t, `"line\nbreak\u0001\"q\"\\"`, string(got))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed := "e\u0301"
	got, err := MarshalCanonical(IRString(decomposed))
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonical_GoMaps(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"z": []any{int64(1), true},
		"a": map[string]any{"k": "v"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"k":"v"},"z":[1,true]}`, string(got))
}

func TestMarshalCanonical_Unsupported(t *testing.T) {
	_, err := MarshalCanonical(struct{}{})
	assert.Error(t, err)
}
