package cwtone

/*------------------------------------------------------------------
 *
 * Purpose:   	Read sending profiles from a YAML file and apply them.
 *
 * Description:	A profile carries everything needed to reproduce a
 *		particular "fist" and audio setup: timing parameters,
 *		sidetone frequency and volume, the audio backend and
 *		device, slope settings and the keyer mode.  Zero values
 *		mean "not set" and fall back to the defaults, so a profile
 *		file only needs the fields it wants to change.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Sink backend names accepted by NewSink and the "sink" profile field.
const (
	SinkNull      = "null"
	SinkOto       = "oto"
	SinkPortAudio = "portaudio"
	SinkOSS       = "oss"
)

// Profile is one named sending configuration.
type Profile struct {
	Speed     int `yaml:"speed"`     /* WPM */
	Frequency int `yaml:"frequency"` /* Hz */
	Volume    int `yaml:"volume"`    /* percent */
	Gap       int `yaml:"gap"`       /* extra dots between characters */
	Weighting int `yaml:"weighting"` /* percent */

	Sink   string `yaml:"sink"`
	Device string `yaml:"device"`

	SlopeShape      string `yaml:"slope_shape"` /* raised_cosine, linear, sine, rectangular */
	SlopeLengthUsec int    `yaml:"slope_length_usec"`

	CurtisModeB bool `yaml:"curtis_mode_b"`
}

// DefaultProfile returns a profile with every field explicitly set to its
// default.
func DefaultProfile() Profile {
	return Profile{
		Speed:           SpeedDefault,
		Frequency:       FrequencyDefault,
		Volume:          VolumeDefault,
		Gap:             GapDefault,
		Weighting:       WeightingDefault,
		Sink:            SinkOto,
		Device:          "",
		SlopeShape:      "raised_cosine",
		SlopeLengthUsec: SlopeLengthDefault,
	}
}

// LoadProfile reads a YAML profile from path, layered over the defaults.
func LoadProfile(path string) (Profile, error) {
	var p = DefaultProfile()

	var raw, readErr = os.ReadFile(path)
	if readErr != nil {
		return p, fmt.Errorf("read profile: %w", readErr)
	}

	if yamlErr := yaml.Unmarshal(raw, &p); yamlErr != nil {
		return p, fmt.Errorf("parse profile %s: %w", path, yamlErr)
	}

	logger.Debug("profile loaded", "path", path, "sink", p.Sink)

	return p, nil
}

// Save writes the profile as YAML, readable back with LoadProfile.
func (p Profile) Save(path string) error {
	var raw, yamlErr = yaml.Marshal(p)
	if yamlErr != nil {
		return fmt.Errorf("marshal profile: %w", yamlErr)
	}

	if writeErr := os.WriteFile(path, raw, 0o644); writeErr != nil {
		return fmt.Errorf("write profile: %w", writeErr)
	}

	return nil
}

// Apply pushes the profile's parameters into the generator.  Call before
// Start; the sink and device fields are not applied here, they feed
// NewSink and Start.
func (p Profile) Apply(gen *Generator) error {
	if setErr := gen.SetSpeed(p.Speed); setErr != nil {
		return setErr
	}
	if setErr := gen.SetFrequency(p.Frequency); setErr != nil {
		return setErr
	}
	if setErr := gen.SetVolume(p.Volume); setErr != nil {
		return setErr
	}
	if setErr := gen.SetGap(p.Gap); setErr != nil {
		return setErr
	}
	if setErr := gen.SetWeighting(p.Weighting); setErr != nil {
		return setErr
	}

	var shape, shapeErr = parseSlopeShape(p.SlopeShape)
	if shapeErr != nil {
		return shapeErr
	}

	return gen.SetToneSlope(shape, p.SlopeLengthUsec)
}

func parseSlopeShape(name string) (SlopeShape, error) {
	switch name {
	case "", "raised_cosine":
		return SlopeShapeRaisedCosine, nil
	case "linear":
		return SlopeShapeLinear, nil
	case "sine":
		return SlopeShapeSine, nil
	case "rectangular":
		return SlopeShapeRectangular, nil
	default:
		return 0, fmt.Errorf("%w: unknown slope shape %q", ErrInvalidArgument, name)
	}
}

// NewSink constructs the named audio backend.  An empty name selects oto,
// which needs no system audio configuration.
func NewSink(name string) (AudioSink, error) {
	switch name {
	case SinkNull:
		return NewNullSink(true), nil
	case "", SinkOto:
		return NewOtoSink(), nil
	case SinkPortAudio:
		return NewPortAudioSink(), nil
	case SinkOSS:
		return NewOSSSink(), nil
	default:
		return nil, fmt.Errorf("%w: unknown audio sink %q", ErrInvalidArgument, name)
	}
}
