package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityHash_Stable(t *testing.T) {
	act := SerializedActivity{Type: "BiteBanana", Arguments: IRObject{"biteSize": IRReal(1)}}

	h1, err := ActivityHash(5*Second, act)
	require.NoError(t, err)
	h2, err := ActivityHash(5*Second, SerializedActivity{Type: "BiteBanana", Arguments: IRObject{"biteSize": IRReal(1)}})
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestActivityHash_DependsOnStart(t *testing.T) {
	act := SerializedActivity{Type: "PeelBanana"}

	h1, err := ActivityHash(0, act)
	require.NoError(t, err)
	h2, err := ActivityHash(Second, act)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{}`)
	assert.NotEqual(t, PlanRevisionHash(data), ResultsHash(data))
}
