package cwtone

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfile(t *testing.T) {
	var p = DefaultProfile()

	assert.Equal(t, SpeedDefault, p.Speed)
	assert.Equal(t, FrequencyDefault, p.Frequency)
	assert.Equal(t, VolumeDefault, p.Volume)
	assert.Equal(t, GapDefault, p.Gap)
	assert.Equal(t, WeightingDefault, p.Weighting)
	assert.Equal(t, SinkOto, p.Sink)
	assert.False(t, p.CurtisModeB)
}

func TestLoadProfile(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "profile.yaml")
	var body = `
speed: 25
frequency: 600
sink: "null"
curtis_mode_b: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	var p, loadErr = LoadProfile(path)
	require.NoError(t, loadErr)

	assert.Equal(t, 25, p.Speed)
	assert.Equal(t, 600, p.Frequency)
	assert.Equal(t, SinkNull, p.Sink)
	assert.True(t, p.CurtisModeB)

	// Unmentioned fields keep their defaults.
	assert.Equal(t, VolumeDefault, p.Volume)
	assert.Equal(t, WeightingDefault, p.Weighting)
}

func TestProfile_SaveLoadRoundTrip(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "saved.yaml")

	var p = DefaultProfile()
	p.Speed = 18
	p.Sink = SinkOSS
	p.Device = "/dev/dsp1"
	require.NoError(t, p.Save(path))

	var got, loadErr = LoadProfile(path)
	require.NoError(t, loadErr)
	assert.Equal(t, p, got)
}

func TestLoadProfile_Missing(t *testing.T) {
	var _, loadErr = LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, loadErr)
}

func TestLoadProfile_Garbage(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "garbage.yaml")
	require.NoError(t, os.WriteFile(path, []byte("speed: [not a number"), 0o600))

	var _, loadErr = LoadProfile(path)
	assert.Error(t, loadErr)
}

func TestProfile_Apply(t *testing.T) {
	var p = DefaultProfile()
	p.Speed = 30
	p.Frequency = 550
	p.Volume = 40
	p.SlopeShape = "linear"
	p.SlopeLengthUsec = 2_000

	var gen = NewGenerator(NewNullSink(false))
	require.NoError(t, p.Apply(gen))

	assert.Equal(t, 30, gen.Speed())
	assert.Equal(t, 550, gen.Frequency())
	assert.Equal(t, 40, gen.Volume())

	gen.mu.Lock()
	assert.Equal(t, SlopeShapeLinear, gen.slopeShape)
	assert.Equal(t, 2_000, gen.slopeLengthUsec)
	gen.mu.Unlock()
}

func TestProfile_ApplyRejectsBadValues(t *testing.T) {
	var p = DefaultProfile()
	p.Speed = SpeedMax + 1

	var gen = NewGenerator(NewNullSink(false))
	assert.ErrorIs(t, p.Apply(gen), ErrInvalidArgument)

	p = DefaultProfile()
	p.SlopeShape = "triangular"
	assert.ErrorIs(t, p.Apply(gen), ErrInvalidArgument)
}

func TestNewSink(t *testing.T) {
	var null, nullErr = NewSink(SinkNull)
	require.NoError(t, nullErr)
	assert.IsType(t, &NullSink{}, null)

	var dflt, dfltErr = NewSink("")
	require.NoError(t, dfltErr)
	assert.IsType(t, &OtoSink{}, dflt)

	var _, bogusErr = NewSink("pulseaudio")
	assert.ErrorIs(t, bogusErr, ErrInvalidArgument)
}

func TestParseSlopeShape(t *testing.T) {
	var cases = []struct {
		name  string
		shape SlopeShape
	}{
		{"", SlopeShapeRaisedCosine},
		{"raised_cosine", SlopeShapeRaisedCosine},
		{"linear", SlopeShapeLinear},
		{"sine", SlopeShapeSine},
		{"rectangular", SlopeShapeRectangular},
	}

	for _, tc := range cases {
		var shape, parseErr = parseSlopeShape(tc.name)
		require.NoError(t, parseErr)
		assert.Equal(t, tc.shape, shape)
	}
}
