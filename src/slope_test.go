package cwtone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSlopeTable_Shapes(t *testing.T) {
	const volumeAbs = 20_000

	var shapes = []struct {
		name  string
		shape SlopeShape
	}{
		{"raised cosine", SlopeShapeRaisedCosine},
		{"linear", SlopeShapeLinear},
		{"sine", SlopeShapeSine},
	}

	for _, tc := range shapes {
		t.Run(tc.name, func(t *testing.T) {
			var st = slopeTable{shape: tc.shape, lengthUsec: SlopeLengthDefault}
			st.rebuild(SampleRateDefault, volumeAbs)

			require.Len(t, st.amplitudes, usecToSamples(SlopeLengthDefault, SampleRateDefault))

			assert.Equal(t, 0, st.amplitudes[0], "a ramp starts from silence")

			for i, amp := range st.amplitudes {
				assert.GreaterOrEqual(t, amp, 0)
				assert.LessOrEqual(t, amp, volumeAbs)
				if i > 0 {
					assert.GreaterOrEqual(t, amp, st.amplitudes[i-1], "ramp must be monotone at index %d", i)
				}
			}

			// The ramp should get close to full volume by the end.
			var last = st.amplitudes[len(st.amplitudes)-1]
			assert.Greater(t, last, volumeAbs*9/10)
		})
	}
}

func TestSlopeTable_Rectangular(t *testing.T) {
	var st = slopeTable{shape: SlopeShapeRectangular, lengthUsec: SlopeLengthDefault}
	st.rebuild(SampleRateDefault, 20_000)

	assert.Empty(t, st.amplitudes)
}

func TestSlopeTable_ZeroLength(t *testing.T) {
	var st = slopeTable{shape: SlopeShapeRaisedCosine, lengthUsec: 0}
	st.rebuild(SampleRateDefault, 20_000)

	assert.Empty(t, st.amplitudes)
}

func TestSlopeTable_Invariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var st = slopeTable{
			shape: rapid.SampledFrom([]SlopeShape{
				SlopeShapeRaisedCosine, SlopeShapeLinear, SlopeShapeSine, SlopeShapeRectangular,
			}).Draw(t, "shape"),
			lengthUsec: rapid.IntRange(0, 50_000).Draw(t, "length"),
		}
		var volumeAbs = rapid.IntRange(0, 32_767).Draw(t, "volumeAbs")

		st.rebuild(SampleRateDefault, volumeAbs)

		for i, amp := range st.amplitudes {
			assert.GreaterOrEqual(t, amp, 0)
			assert.LessOrEqual(t, amp, volumeAbs)
			if i > 0 {
				assert.GreaterOrEqual(t, amp, st.amplitudes[i-1])
			}
		}
	})
}
