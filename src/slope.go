package cwtone

/*------------------------------------------------------------------
 *
 * Purpose:   	Precomputed amplitude ramps for tone edges.
 *
 * Description:	An abrupt start or end of a sine wave is audible as a
 *		click.  Each audible tone therefore ramps its amplitude up
 *		and/or down over a configurable number of samples.  The
 *		ramp is precomputed here, once per shape / length / sample
 *		rate / volume combination, and the synthesizer just indexes
 *		into it.
 *
 *---------------------------------------------------------------*/

import "math"

// SlopeShape selects the curve of the amplitude ramp.
type SlopeShape int

const (
	// SlopeShapeRaisedCosine is the default: smooth at both ends.
	SlopeShapeRaisedCosine SlopeShape = iota

	// SlopeShapeLinear ramps at a constant rate.
	SlopeShapeLinear

	// SlopeShapeSine follows a quarter sine period.
	SlopeShapeSine

	// SlopeShapeRectangular has no ramp at all.
	SlopeShapeRectangular
)

// SlopeLengthDefault is the initial ramp length in microseconds.
const SlopeLengthDefault = 5_000

// slopeTable holds one precomputed ramp, in rising order.  The same table
// is used for falling slopes by indexing from the end.  Owned exclusively
// by the generator thread.
type slopeTable struct {
	shape      SlopeShape
	lengthUsec int
	amplitudes []int /* non-negative, non-decreasing, <= volumeAbs */
}

// rebuild recomputes the ramp for the current shape and length at the given
// sample rate and absolute volume.  Rectangular always yields an empty
// table regardless of the requested length.
func (st *slopeTable) rebuild(sampleRate int, volumeAbs int) {
	if st.shape == SlopeShapeRectangular {
		st.amplitudes = nil

		return
	}

	var n = usecToSamples(st.lengthUsec, sampleRate)
	if n <= 0 {
		st.amplitudes = nil

		return
	}

	var amps = make([]int, n)
	for i := range amps {
		switch st.shape {
		case SlopeShapeLinear:
			amps[i] = volumeAbs * i / n
		case SlopeShapeSine:
			amps[i] = int(float64(volumeAbs) * math.Sin(float64(i)/float64(n)*math.Pi/2))
		case SlopeShapeRaisedCosine:
			amps[i] = int(float64(volumeAbs) * (1.0 - math.Cos(math.Pi*float64(i)/float64(n))) / 2.0)
		default:
			Assert(false, "slope shape %d", st.shape)
		}
		Assert(amps[i] >= 0 && amps[i] <= volumeAbs, "slope amplitude %d outside 0..%d", amps[i], volumeAbs)
	}

	st.amplitudes = amps
}

func usecToSamples(usec int, sampleRate int) int {
	return int((int64(usec)*int64(sampleRate) + 500_000) / 1_000_000)
}
