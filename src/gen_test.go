package cwtone

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureSink records everything the generator writes, running as fast as
// the generator can produce.
type captureSink struct {
	mu      sync.Mutex
	samples []int16
}

func (s *captureSink) Open(device string) error { return nil }
func (s *captureSink) Close() error             { return nil }
func (s *captureSink) SampleRate() int          { return SampleRateDefault }

func (s *captureSink) Write(samples []int16) error {
	s.mu.Lock()
	s.samples = append(s.samples, samples...)
	s.mu.Unlock()

	return nil
}

func (s *captureSink) recorded() []int16 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]int16(nil), s.samples...)
}

func TestGenerator_ParameterRanges(t *testing.T) {
	var gen = NewGenerator(NewNullSink(false))

	var cases = []struct {
		name string
		set  func(int) error
		min  int
		max  int
	}{
		{"speed", gen.SetSpeed, SpeedMin, SpeedMax},
		{"frequency", gen.SetFrequency, FrequencyMin, FrequencyMax},
		{"volume", gen.SetVolume, VolumeMin, VolumeMax},
		{"gap", gen.SetGap, GapMin, GapMax},
		{"weighting", gen.SetWeighting, WeightingMin, WeightingMax},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.set(tc.min-1), ErrInvalidArgument)
			assert.ErrorIs(t, tc.set(tc.max+1), ErrInvalidArgument)
			assert.NoError(t, tc.set(tc.min))
			assert.NoError(t, tc.set(tc.max))
		})
	}
}

func TestGenerator_ParameterRoundTrip(t *testing.T) {
	var gen = NewGenerator(NewNullSink(false))

	require.NoError(t, gen.SetSpeed(25))
	require.NoError(t, gen.SetFrequency(650))
	require.NoError(t, gen.SetGap(3))
	require.NoError(t, gen.SetWeighting(60))

	assert.Equal(t, 25, gen.Speed())
	assert.Equal(t, 650, gen.Frequency())
	assert.Equal(t, 3, gen.Gap())
	assert.Equal(t, 60, gen.Weighting())

	for v := VolumeMin; v <= VolumeMax; v++ {
		require.NoError(t, gen.SetVolume(v))
		assert.Equal(t, v, gen.Volume())
	}
}

// 20 WPM with balanced weighting: one unit is 60000 microseconds and
// everything else follows from it.
func TestGenerator_ElementLengths(t *testing.T) {
	var gen = NewGenerator(NewNullSink(false))
	require.NoError(t, gen.SetSpeed(20))

	gen.mu.Lock()
	gen.syncParameters()
	var dot, dash = gen.dotLen, gen.dashLen
	var eom, eoc, eow = gen.eomSpaceLen, gen.eocSpaceLen, gen.eowSpaceLen
	gen.mu.Unlock()

	assert.Equal(t, 60_000, dot)
	assert.Equal(t, 180_000, dash)
	assert.Equal(t, 60_000, eom)
	assert.Equal(t, 120_000, eoc)
	assert.Equal(t, 300_000, eow)

	// The spaces compose the classic ratios: a character boundary totals
	// 3 units after the last mark, a word boundary 7 units after the
	// character space.
	assert.Equal(t, 3*60_000, eom+eoc)
	assert.Equal(t, 7*60_000, eoc+eow)
}

func TestGenerator_WeightingSkewsElements(t *testing.T) {
	var gen = NewGenerator(NewNullSink(false))
	require.NoError(t, gen.SetSpeed(12))
	require.NoError(t, gen.SetWeighting(80))

	gen.mu.Lock()
	gen.syncParameters()
	var dot, dash, eom = gen.dotLen, gen.dashLen, gen.eomSpaceLen
	gen.mu.Unlock()

	// unit 100000, w = (2 * 30 * 100000) / 100.
	assert.Equal(t, 160_000, dot)
	assert.Equal(t, 480_000, dash)
	assert.Equal(t, 100_000-(28*60_000)/22, eom)
	assert.Less(t, eom, dot, "heavy weighting lengthens marks at the expense of spaces")
}

func TestGenerator_GapStretchesSpaces(t *testing.T) {
	var gen = NewGenerator(NewNullSink(false))
	require.NoError(t, gen.SetSpeed(12))
	require.NoError(t, gen.SetGap(2))

	gen.mu.Lock()
	gen.syncParameters()
	var additional, adjustment = gen.additionalSpaceLen, gen.adjustmentSpaceLen
	gen.mu.Unlock()

	assert.Equal(t, 200_000, additional)
	assert.Equal(t, (7*200_000)/3, adjustment)
}

func TestGenerator_SetToneSlope(t *testing.T) {
	var gen = NewGenerator(NewNullSink(false))

	assert.ErrorIs(t, gen.SetToneSlope(SlopeShapeRectangular, 5000), ErrConflict)
	assert.NoError(t, gen.SetToneSlope(SlopeShapeRectangular, 0))

	// -1 keeps the current value for that half.
	require.NoError(t, gen.SetToneSlope(SlopeShapeLinear, 2000))
	require.NoError(t, gen.SetToneSlope(-1, 3000))

	gen.mu.Lock()
	var shape, length = gen.slopeShape, gen.slopeLengthUsec
	gen.mu.Unlock()

	assert.Equal(t, SlopeShapeLinear, shape)
	assert.Equal(t, 3000, length)

	require.NoError(t, gen.SetToneSlope(SlopeShapeSine, -1))
	gen.mu.Lock()
	assert.Equal(t, 3000, gen.slopeLengthUsec)
	gen.mu.Unlock()
}

func TestGenerator_WaitsFailWithoutThread(t *testing.T) {
	var gen = NewGenerator(NewNullSink(false))

	assert.ErrorIs(t, gen.WaitForQueueDrain(), ErrWouldDeadlock)

	require.NoError(t, gen.EnqueueTone(800, 60_000, SlopeModeStandard))
	assert.ErrorIs(t, gen.WaitForTone(), ErrWouldDeadlock)
}

func TestGenerator_StartStop(t *testing.T) {
	var sink = &captureSink{}
	var gen = NewGenerator(sink)

	require.NoError(t, gen.Start(""))
	assert.ErrorIs(t, gen.Start(""), ErrBusy)

	require.NoError(t, gen.Stop())
	assert.NoError(t, gen.Stop(), "stopping twice is harmless")

	// A stopped generator can be started again.
	require.NoError(t, gen.Start(""))
	require.NoError(t, gen.Stop())
}

func TestGenerator_SynthesizesTone(t *testing.T) {
	var sink = &captureSink{}
	var gen = NewGenerator(sink)

	require.NoError(t, gen.SetSpeed(20))
	require.NoError(t, gen.Start(""))
	require.NoError(t, gen.EnqueueTone(700, 60_000, SlopeModeStandard))
	require.NoError(t, gen.WaitForTone())
	assert.Equal(t, 0, gen.Queue().Len(), "the only queued tone has been taken")
	require.NoError(t, gen.WaitForQueueDrain())
	require.NoError(t, gen.Stop())

	var samples = sink.recorded()
	var toneSamples = usecToSamples(60_000, SampleRateDefault)
	require.GreaterOrEqual(t, len(samples), toneSamples)

	// Whole buffers only.
	assert.Zero(t, len(samples)%calcBufNSamples(SampleRateDefault))

	// Peak reaches the configured volume, give or take rounding.
	var peak int
	for _, s := range samples {
		if int(math.Abs(float64(s))) > peak {
			peak = int(math.Abs(float64(s)))
		}
	}
	var volumeAbs = 32767 * VolumeDefault / 100
	assert.InDelta(t, volumeAbs, peak, float64(volumeAbs)/50)

	// Raised cosine attack: the tone must not start anywhere near full
	// amplitude.
	assert.Less(t, int(math.Abs(float64(samples[0]))), volumeAbs/10)
}

func TestGenerator_PhaseContinuity(t *testing.T) {
	var sink = &captureSink{}
	var gen = NewGenerator(sink)

	require.NoError(t, gen.Start(""))
	require.NoError(t, gen.EnqueueTone(700, 40_000, SlopeModeStandard))
	require.NoError(t, gen.EnqueueTone(700, 40_000, SlopeModeStandard))
	require.NoError(t, gen.WaitForQueueDrain())
	require.NoError(t, gen.Stop())

	var samples = sink.recorded()
	require.NotEmpty(t, samples)

	// For a 700 Hz sine at 44100 Hz the largest legitimate step between
	// adjacent samples is amplitude * 2*pi*700/44100, with a little slack
	// for the amplitude ramps.  A phase reset between the two tones would
	// show up as a near-full-scale jump.
	var volumeAbs = 32767.0 * VolumeDefault / 100
	var maxStep = volumeAbs * 2 * math.Pi * 700 / SampleRateDefault * 1.5

	for i := 1; i < len(samples); i++ {
		var step = math.Abs(float64(samples[i]) - float64(samples[i-1]))
		require.LessOrEqual(t, step, maxStep, "discontinuity at sample %d", i)
	}
}

func TestGenerator_SilenceDiscardsBacklog(t *testing.T) {
	var sink = &captureSink{}
	var gen = NewGenerator(sink)

	require.NoError(t, gen.Start(""))
	for range 50 {
		require.NoError(t, gen.EnqueueTone(700, 100_000, SlopeModeStandard))
	}

	require.NoError(t, gen.Silence())
	require.NoError(t, gen.WaitForQueueDrain())
	assert.Equal(t, 0, gen.Queue().Len())
	require.NoError(t, gen.Stop())
}

func TestGenerator_LowWaterCallbackViaGenerator(t *testing.T) {
	var sink = &captureSink{}
	var gen = NewGenerator(sink)

	var fired = make(chan int, 1)
	require.NoError(t, gen.RegisterLowWaterCallback(2, func(level int) {
		select {
		case fired <- level:
		default:
		}
	}))

	require.NoError(t, gen.Start(""))
	for range 10 {
		require.NoError(t, gen.EnqueueTone(700, 20_000, SlopeModeStandard))
	}
	require.NoError(t, gen.WaitForQueueDrain())
	require.NoError(t, gen.Stop())

	assert.Equal(t, 2, <-fired)
}

func TestCalcBufNSamples(t *testing.T) {
	// 10 ms at 44100 is 441 samples, rounded up to a multiple of 256.
	assert.Equal(t, 512, calcBufNSamples(44100))
	assert.Equal(t, 512, calcBufNSamples(48000))
	assert.Equal(t, 256, calcBufNSamples(8000))
}

func TestUsecToSamples(t *testing.T) {
	assert.Equal(t, 44100, usecToSamples(1_000_000, 44100))
	assert.Equal(t, 2646, usecToSamples(60_000, 44100))
	assert.Equal(t, 0, usecToSamples(0, 44100))

	// Rounds to nearest, not down.
	assert.Equal(t, 1, usecToSamples(12, 44100))
}
