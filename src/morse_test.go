package cwtone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCharacter(t *testing.T) {
	var cases = []struct {
		ch  rune
		enc string
		ok  bool
	}{
		{'A', ".-", true},
		{'a', ".-", true},
		{'E', ".", true},
		{'0', "-----", true},
		{'?', "..--..", true},
		{'@', ".--.-.", true},
		{' ', "", false},
		{'%', "", false},
		{'ü', "", false},
	}

	for _, tc := range cases {
		var enc, ok = LookupCharacter(tc.ch)
		assert.Equal(t, tc.ok, ok, "%q", tc.ch)
		assert.Equal(t, tc.enc, enc, "%q", tc.ch)
	}
}

func TestCharacterIsValid(t *testing.T) {
	assert.True(t, CharacterIsValid('k'))
	assert.True(t, CharacterIsValid(' '), "space is sendable as a word gap")
	assert.False(t, CharacterIsValid('%'))
}

// drainDurations pops every queued tone so the emitted rhythm can be
// checked.
func drainDurations(t *testing.T, tq *ToneQueue) []Tone {
	t.Helper()

	var tones []Tone
	for {
		var tone, outcome = tq.Dequeue()
		if outcome != ToneDequeued {
			return tones
		}
		tones = append(tones, tone)
	}
}

func TestEnqueueCharacter_E(t *testing.T) {
	var gen = NewGenerator(NewNullSink(false))
	require.NoError(t, gen.EnqueueCharacter('E'))

	var tones = drainDurations(t, gen.Queue())
	require.Len(t, tones, 3)

	// Dot, end-of-mark space, end-of-character space.  At the default
	// 12 WPM a unit is 100000 microseconds.
	assert.Positive(t, tones[0].Frequency)
	assert.Equal(t, 100_000, tones[0].Duration)

	assert.Zero(t, tones[1].Frequency)
	assert.Equal(t, 100_000, tones[1].Duration)

	assert.Zero(t, tones[2].Frequency)
	assert.Equal(t, 200_000, tones[2].Duration)
}

func TestEnqueueCharacter_Rhythm(t *testing.T) {
	var gen = NewGenerator(NewNullSink(false))
	require.NoError(t, gen.EnqueueCharacter('A'))

	var tones = drainDurations(t, gen.Queue())
	require.Len(t, tones, 5)

	// .- is dot, space, dash, space, character space.
	assert.Equal(t, 100_000, tones[0].Duration)
	assert.Positive(t, tones[0].Frequency)
	assert.Equal(t, 300_000, tones[2].Duration)
	assert.Positive(t, tones[2].Frequency)
}

func TestEnqueueCharacter_SpaceIsWordGap(t *testing.T) {
	var gen = NewGenerator(NewNullSink(false))
	require.NoError(t, gen.EnqueueCharacter(' '))

	var tones = drainDurations(t, gen.Queue())
	require.Len(t, tones, 1)
	assert.Zero(t, tones[0].Frequency)
	assert.Equal(t, 500_000, tones[0].Duration, "7 units minus the preceding character space")
}

func TestEnqueueString_EE(t *testing.T) {
	var gen = NewGenerator(NewNullSink(false))
	require.NoError(t, gen.EnqueueString("EE"))

	assert.Equal(t, 6, gen.Queue().Len())
}

func TestEnqueueString_PacingFailsWithoutGenerator(t *testing.T) {
	var gen = NewGenerator(NewNullSink(false))

	// Shrink the queue so the high water mark is reachable.
	var tq, newErr = NewToneQueue(10)
	require.NoError(t, newErr)
	gen.tq = tq

	var sendErr = gen.EnqueueString("EEEE")
	assert.ErrorIs(t, sendErr, ErrWouldDeadlock,
		"pacing against the high water mark cannot succeed with no consumer")
}

func TestEnqueueString_UnknownCharacter(t *testing.T) {
	var gen = NewGenerator(NewNullSink(false))
	require.NoError(t, gen.EnqueueString("E%E"))

	// The unknown character degrades to a word gap instead of failing.
	assert.Equal(t, 7, gen.Queue().Len())
}
