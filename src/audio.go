package cwtone

/*------------------------------------------------------------------
 *
 * Purpose:   	Interface to the audio device commonly called a "sound
 *		card" for historical reasons.
 *
 * Description:	The generator only ever sees this small capability; the
 *		backends (PortAudio, oto, OSS, null) implement it and the
 *		core never inspects backend-specific types.  Backend
 *		selection is a constructor parameter - see NewSink in
 *		config.go.
 *
 *---------------------------------------------------------------*/

import "time"

// AudioSink is the abstract audio output consumed by a Generator.
//
// Samples are mono, signed 16 bit.  SampleRate is negotiated at Open time
// and is only meaningful afterwards.
type AudioSink interface {
	Open(device string) error
	Close() error
	Write(samples []int16) error
	SampleRate() int
}

// NullSink discards everything written to it.  With pacing enabled it
// sleeps for the real-time duration of each buffer, so a generator driving
// it behaves like one driving a sound card; without pacing it runs flat
// out, which is what the tests want.
type NullSink struct {
	rate   int
	pacing bool
}

// NewNullSink returns a sink that swallows samples, pacing writes at the
// sample rate if asked to.
func NewNullSink(pacing bool) *NullSink {
	return &NullSink{pacing: pacing}
}

func (s *NullSink) Open(device string) error {
	s.rate = SampleRateDefault

	return nil
}

func (s *NullSink) Close() error {
	return nil
}

func (s *NullSink) Write(samples []int16) error {
	if s.pacing {
		time.Sleep(time.Duration(len(samples)) * time.Second / time.Duration(s.rate))
	}

	return nil
}

func (s *NullSink) SampleRate() int {
	return s.rate
}
