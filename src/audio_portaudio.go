package cwtone

/*------------------------------------------------------------------
 *
 * Purpose:   	Audio output via PortAudio.
 *
 * Description:	Blocking-write stream, mono int16.  PortAudio's own
 *		double buffering paces the writes.  Device selection is by
 *		substring match against the PortAudio device names, the
 *		same names "pa_devs" prints.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSink plays samples through a PortAudio blocking stream.
type PortAudioSink struct {
	rate   int
	stream *portaudio.Stream
	buf    []int16
}

// NewPortAudioSink returns an unopened PortAudio backend.
func NewPortAudioSink() *PortAudioSink {
	return &PortAudioSink{}
}

func (s *PortAudioSink) Open(device string) error {
	if initErr := portaudio.Initialize(); initErr != nil {
		return fmt.Errorf("portaudio initialize: %w", initErr)
	}

	s.rate = SampleRateDefault

	var stream *portaudio.Stream
	var openErr error

	if device == "" {
		stream, openErr = portaudio.OpenDefaultStream(
			0, 1, float64(s.rate), portaudio.FramesPerBufferUnspecified, &s.buf)
	} else {
		var dev, lookupErr = findOutputDevice(device)
		if lookupErr != nil {
			_ = portaudio.Terminate()

			return lookupErr
		}

		var params = portaudio.LowLatencyParameters(nil, dev)
		params.Output.Channels = 1
		params.SampleRate = float64(s.rate)
		params.FramesPerBuffer = portaudio.FramesPerBufferUnspecified

		stream, openErr = portaudio.OpenStream(params, &s.buf)
	}

	if openErr != nil {
		_ = portaudio.Terminate()

		return fmt.Errorf("portaudio open %q: %w", device, openErr)
	}

	if startErr := stream.Start(); startErr != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()

		return fmt.Errorf("portaudio start: %w", startErr)
	}

	s.stream = stream

	return nil
}

func (s *PortAudioSink) Close() error {
	if s.stream == nil {
		return nil
	}

	var stopErr = s.stream.Stop()
	var closeErr = s.stream.Close()
	s.stream = nil
	_ = portaudio.Terminate()

	if stopErr != nil {
		return stopErr
	}

	return closeErr
}

func (s *PortAudioSink) Write(samples []int16) error {
	s.buf = samples

	return s.stream.Write()
}

func (s *PortAudioSink) SampleRate() int {
	return s.rate
}

// findOutputDevice picks the first output-capable device whose name
// contains the given substring, case-insensitively.
func findOutputDevice(name string) (*portaudio.DeviceInfo, error) {
	var devices, listErr = portaudio.Devices()
	if listErr != nil {
		return nil, fmt.Errorf("portaudio devices: %w", listErr)
	}

	for _, dev := range devices {
		if dev.MaxOutputChannels < 1 {
			continue
		}
		if strings.Contains(strings.ToLower(dev.Name), strings.ToLower(name)) {
			return dev, nil
		}
	}

	return nil, fmt.Errorf("%w: no output device matching %q", ErrInvalidArgument, name)
}
