package ir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("1h30m")
	require.NoError(t, err)
	assert.Equal(t, 90*Minute, d)

	d, err = ParseDuration("250ms")
	require.NoError(t, err)
	assert.Equal(t, 250*Millisecond, d)

	_, err = ParseDuration("")
	assert.Error(t, err)

	_, err = ParseDuration("soon")
	assert.Error(t, err)
}

func TestDuration_Conversions(t *testing.T) {
	assert.Equal(t, 1.5, (1500 * Millisecond).Seconds())
	assert.Equal(t, 2*time.Second, (2 * Second).Std())
	assert.Equal(t, 3*Millisecond, FromStd(3*time.Millisecond))
	assert.Equal(t, 250*Millisecond, FromSeconds(0.25))
	assert.Equal(t, "1.5s", (1500 * Millisecond).String())
	assert.Equal(t, "max", MaxDuration.String())
}

func TestDuration_FromSecondsRoundsUp(t *testing.T) {
	assert.Equal(t, Duration(1), FromSeconds(0.0000001))
}

func TestDuration_TextRoundTrip(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("2m")))
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2m0s", string(text))
}
