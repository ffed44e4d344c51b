package cwtone

/*------------------------------------------------------------------
 *
 * Purpose:   	Straight key - tone follows the key contact directly.
 *
 * Description:	No timing intelligence at all.  Key down enqueues a
 *		"forever" tone, which the generator replays in short quanta
 *		until something else lands in the queue; key up enqueues the
 *		falling edge that supersedes it.  The operator's fist does
 *		the rest.
 *
 *---------------------------------------------------------------*/

import "sync"

// straightKeyTailUsec is the silence appended after key up when the
// configured slope length is zero and there is no falling ramp to play.
const straightKeyTailUsec = 1_000

// StraightKey turns raw key contact changes into tones on a generator's
// queue.
type StraightKey struct {
	gen *Generator

	mu       sync.Mutex
	keyValue KeyValue
}

// NewStraightKey returns a straight key bound to the generator, with the
// key initially open.
func NewStraightKey(gen *Generator) *StraightKey {
	return &StraightKey{gen: gen}
}

// Value reports the last notified key state.
func (sk *StraightKey) Value() KeyValue {
	sk.mu.Lock()
	defer sk.mu.Unlock()

	return sk.keyValue
}

/*-------------------------------------------------------------------
 *
 * Name:        Notify
 *
 * Purpose:     Report a key contact change.
 *
 * Inputs:	v	- KeyValueClosed on press, KeyValueOpen on release.
 *
 * Description:	Closing the key starts an unbounded tone with only a
 *		rising ramp; the generator replays it quantum by quantum,
 *		flat after the first delivery.  Opening the key queues the
 *		matching falling ramp, which also bumps the queue past
 *		length one so the unbounded tone stops being redelivered.
 *
 *		Repeated notifications of the same value are ignored, as a
 *		bouncing contact produces plenty of those.
 *
 *--------------------------------------------------------------------*/

func (sk *StraightKey) Notify(v KeyValue) error {
	sk.mu.Lock()
	if v == sk.keyValue {
		sk.mu.Unlock()

		return nil
	}
	sk.keyValue = v
	sk.mu.Unlock()

	sk.gen.mu.Lock()
	var frequency = sk.gen.frequency
	var tailUsec = sk.gen.slopeLengthUsec
	sk.gen.mu.Unlock()

	if v == KeyValueClosed {
		return sk.gen.tq.Enqueue(Tone{
			Frequency: frequency,
			Slope:     SlopeModeRising,
			Forever:   true,
		})
	}

	if tailUsec <= 0 {
		return sk.gen.tq.Enqueue(Tone{
			Frequency: 0,
			Duration:  straightKeyTailUsec,
			Slope:     SlopeModeNoSlopes,
		})
	}

	return sk.gen.tq.Enqueue(Tone{
		Frequency: frequency,
		Duration:  tailUsec,
		Slope:     SlopeModeFalling,
	})
}
