package cwtone

/*------------------------------------------------------------------
 *
 * Purpose:   	Audio output via the oto library.
 *
 * Description:	This is the default backend: oto talks to ALSA on Linux
 *		and to the native audio systems elsewhere, with no setup
 *		required.  oto pulls audio from an io.Reader, so a pipe
 *		sits between the generator's push-style writes and the
 *		player's pull.  oto also does its own buffering, which
 *		provides the pacing; a Write only blocks once the pipe
 *		backs up.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
)

// OtoSink plays samples through an oto player.
type OtoSink struct {
	rate   int
	ctx    *oto.Context
	player *oto.Player
	pw     *io.PipeWriter
	raw    []byte
}

// NewOtoSink returns an unopened oto backend.
func NewOtoSink() *OtoSink {
	return &OtoSink{}
}

// Open creates the oto context and starts the player.  The device name is
// ignored; oto always uses the system default output.
func (s *OtoSink) Open(device string) error {
	if device != "" {
		logger.Warn("oto backend cannot select a device, using system default", "device", device)
	}

	s.rate = SampleRateDefault

	var ctx, ready, ctxErr = oto.NewContext(&oto.NewContextOptions{
		SampleRate:   s.rate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if ctxErr != nil {
		return fmt.Errorf("oto context: %w", ctxErr)
	}

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		return fmt.Errorf("oto context not ready after 5s")
	}

	var pr *io.PipeReader
	pr, s.pw = io.Pipe()

	s.ctx = ctx
	s.player = ctx.NewPlayer(pr)
	s.player.Play()

	return nil
}

func (s *OtoSink) Close() error {
	if s.player == nil {
		return nil
	}

	_ = s.pw.Close()

	// Let the player drain its internal buffer before tearing it down.
	for s.player.IsPlaying() && s.player.BufferedSize() > 0 {
		time.Sleep(10 * time.Millisecond)
	}

	var closeErr = s.player.Close()
	s.player = nil

	return closeErr
}

func (s *OtoSink) Write(samples []int16) error {
	if need := len(samples) * 2; cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	s.raw = s.raw[:len(samples)*2]

	for i, sample := range samples {
		binary.LittleEndian.PutUint16(s.raw[i*2:], uint16(sample))
	}

	var _, writeErr = s.pw.Write(s.raw)

	return writeErr
}

func (s *OtoSink) SampleRate() int {
	return s.rate
}
