// Package cwtone generates Morse code as audio.
//
// A bounded ToneQueue buffers upcoming tones, a Generator runs a background
// goroutine that synthesizes a phase-continuous sine wave from dequeued tones
// and streams fixed-size PCM buffers to an AudioSink, and an IambicKeyer turns
// raw paddle contacts into a legal dot/dash stream by enqueueing tones and
// being re-driven every time a tone completes.
package cwtone

import (
	"errors"
	"fmt"
)

/*
 * Ranges for the essential sending parameters.  A value outside its range is
 * rejected with ErrInvalidArgument by the corresponding setter.
 */

const (
	SpeedMin     = 4 /* WPM */
	SpeedMax     = 60
	SpeedDefault = 12

	FrequencyMin     = 0 /* Hz.  0 is silence. */
	FrequencyMax     = 4000
	FrequencyDefault = 800

	VolumeMin     = 0 /* percent */
	VolumeMax     = 100
	VolumeDefault = 70

	GapMin     = 0 /* extra inter-character dots, Farnsworth style */
	GapMax     = 60
	GapDefault = 0

	WeightingMin     = 20 /* percent */
	WeightingMax     = 80
	WeightingDefault = 50
)

// One dot at 1 WPM lasts this many microseconds (PARIS calibration).
const dotCalibration = 1_200_000

// A "forever" tone is redelivered in quanta of this length until a
// successor tone is enqueued behind it.
const foreverQuantumUsec = 100_000

// Length of the forced silence tail written when a generator is stopped.
const silenceTailUsec = 5_000

var (
	// ErrInvalidArgument reports an out-of-range frequency, duration,
	// speed, volume, gap, weighting or queue level.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrQueueFull reports an enqueue against a saturated tone queue.
	// Transient: tones keep draining in the background, try again shortly.
	ErrQueueFull = errors.New("tone queue full")

	// ErrWouldDeadlock reports a blocking wait that could never be woken
	// because no generator thread is running to deliver the wakeup.
	ErrWouldDeadlock = errors.New("wait would deadlock: generator is not running")

	// ErrBusy reports an operation that needs exclusive use of the audio
	// sink while another subsystem is already using it.
	ErrBusy = errors.New("audio sink busy")

	// ErrReentrancy reports a keyer transition step invoked while another
	// step was still in progress.  Non-fatal: retry once after a short
	// delay.
	ErrReentrancy = errors.New("keyer transition already in progress")

	// ErrConflict reports a tone slope shape/length combination that does
	// not make sense, e.g. a rectangular shape with a non-zero length.
	ErrConflict = errors.New("slope shape conflicts with slope length")
)

// Assert enforces an internal consistency contract.  A failure here means an
// invariant has been broken by a bug, not by bad input, so it panics rather
// than returning an error.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic("cwtone: internal error: " + fmt.Sprintf(format, args...))
	}
}
