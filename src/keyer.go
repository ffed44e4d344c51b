package cwtone

/*------------------------------------------------------------------
 *
 * Purpose:   	Iambic keyer - turn raw paddle contact state into a legal
 *		sequence of dots and dashes.
 *
 * Description:	The keyer is a nine-state machine.  It does not own the
 *		tone queue or the generator thread; it only enqueues one
 *		element at a time and is re-entered by the generator every
 *		time a tone completes, so tone completion is its clock.
 *
 *		Paddle presses set sticky latches which are only ever
 *		cleared inside the state machine, never by paddle release
 *		directly - that is what makes squeeze keying work.  Curtis
 *		mode B adds one extra trailing element when both paddles
 *		are released mid-element.
 *
 *---------------------------------------------------------------*/

import (
	"errors"
	"sync"
	"time"
)

// KeyValue is the logical state of the transmit key line.
type KeyValue int

const (
	KeyValueOpen KeyValue = iota
	KeyValueClosed
)

func (v KeyValue) String() string {
	if v == KeyValueClosed {
		return "closed"
	}

	return "open"
}

// KeyerState enumerates the keyer state graph.
type KeyerState int

const (
	KeyerIdle KeyerState = iota
	KeyerInDotA
	KeyerInDashA
	KeyerAfterDotA
	KeyerAfterDashA
	KeyerInDotB
	KeyerInDashB
	KeyerAfterDotB
	KeyerAfterDashB
)

var keyerStateNames = map[KeyerState]string{
	KeyerIdle:       "Idle",
	KeyerInDotA:     "InDotA",
	KeyerInDashA:    "InDashA",
	KeyerAfterDotA:  "AfterDotA",
	KeyerAfterDashA: "AfterDashA",
	KeyerInDotB:     "InDotB",
	KeyerInDashB:    "InDashB",
	KeyerAfterDotB:  "AfterDotB",
	KeyerAfterDashB: "AfterDashB",
}

func (s KeyerState) String() string {
	return keyerStateNames[s]
}

// ReceiveTimer is the only coupling point with a receiver/decoder: the
// keyer increments it by each completed tone's microsecond length while
// the keyer is not idle.  The receiver owns and reads it independently.
type ReceiveTimer interface {
	Increment(usec int)
}

// IambicKeyer drives a Generator's tone queue from paddle events.
type IambicKeyer struct {
	gen *Generator

	// stepGuard is the re-entrancy protection for the transition step,
	// which may be attempted concurrently from the generator thread and
	// from a paddle-event call.  TryLock, never Lock: a blocked step
	// would stall the generator.
	stepGuard sync.Mutex

	mu           sync.Mutex
	state        KeyerState
	keyValue     KeyValue
	dotPaddle    bool
	dashPaddle   bool
	dotLatch     bool
	dashLatch    bool
	curtisModeB  bool
	curtisBLatch bool

	keyCallback func(KeyValue)
	timer       ReceiveTimer
}

// NewIambicKeyer creates a keyer bound to the generator and registers it
// for the generator's per-tone re-entry hook.
func NewIambicKeyer(gen *Generator) *IambicKeyer {
	var k = &IambicKeyer{gen: gen}
	gen.keyer.Store(k)

	return k
}

// SetCurtisModeB selects between Curtis mode A (false) and B (true).
func (k *IambicKeyer) SetCurtisModeB(enabled bool) {
	k.mu.Lock()
	k.curtisModeB = enabled
	k.mu.Unlock()
}

// CurtisModeB reports the configured mode.
func (k *IambicKeyer) CurtisModeB() bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.curtisModeB
}

// SetKeyCallback registers a function invoked with the new value every
// time the logical key value actually changes.  The callback runs with
// the keyer's internal lock held and must not call back into the keyer.
func (k *IambicKeyer) SetKeyCallback(cb func(KeyValue)) {
	k.mu.Lock()
	k.keyCallback = cb
	k.mu.Unlock()
}

// SetReceiveTimer attaches the externally owned timer.
func (k *IambicKeyer) SetReceiveTimer(t ReceiveTimer) {
	k.mu.Lock()
	k.timer = t
	k.mu.Unlock()
}

// State reports the current graph state.
func (k *IambicKeyer) State() KeyerState {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.state
}

// Reset returns every latch and paddle to false, the graph state to Idle
// and the key to open.
func (k *IambicKeyer) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.dotPaddle = false
	k.dashPaddle = false
	k.dotLatch = false
	k.dashLatch = false
	k.curtisBLatch = false
	k.state = KeyerIdle
	k.setKeyValue(KeyValueOpen)
}

/*-------------------------------------------------------------------
 *
 * Name:        NotifyPaddleEvent
 *
 * Purpose:     Feed the instantaneous paddle contact state into the keyer.
 *
 * Inputs:	dot, dash - True while the respective paddle is pressed.
 *
 * Description:	A false-to-true paddle transition sets the corresponding
 *		sticky latch.  In Curtis mode B, both paddles held at once
 *		set the mode B latch.
 *
 *		If the keyer was idle, this call performs the initial
 *		kick: it pretends to be in the "after" state of the
 *		opposite element and immediately runs one transition step,
 *		which starts the first mark.
 *
 *--------------------------------------------------------------------*/

func (k *IambicKeyer) NotifyPaddleEvent(dot bool, dash bool) error {
	k.mu.Lock()

	if dot && !k.dotPaddle {
		k.dotLatch = true
	}
	if dash && !k.dashPaddle {
		k.dashLatch = true
	}
	k.dotPaddle = dot
	k.dashPaddle = dash

	if k.curtisModeB && dot && dash {
		k.curtisBLatch = true
	}

	var kick = false
	if k.state == KeyerIdle && (dot || dash) {
		kick = true
		switch {
		case dot && k.curtisBLatch:
			k.state = KeyerAfterDashB
		case dot:
			k.state = KeyerAfterDashA
		case k.curtisBLatch:
			k.state = KeyerAfterDotB
		default:
			k.state = KeyerAfterDotA
		}
	}

	k.mu.Unlock()

	if kick {
		return k.stepWithRetry()
	}

	return nil
}

// onToneComplete is the generator's re-entry hook, invoked once per
// dequeued tone with the tone's duration.
func (k *IambicKeyer) onToneComplete(usec int) {
	k.mu.Lock()
	var idle = k.state == KeyerIdle
	var t = k.timer
	k.mu.Unlock()

	if idle {
		return
	}
	if t != nil {
		t.Increment(usec)
	}

	_ = k.stepWithRetry()
}

// stepWithRetry runs one transition step, retrying once after a short
// delay if another step was in progress.  A second failure is logged and
// the step dropped - non-fatal, the next tone completion drives the
// machine again.
func (k *IambicKeyer) stepWithRetry() error {
	var stepErr = k.Step()
	if !errors.Is(stepErr, ErrReentrancy) {
		return stepErr
	}

	time.Sleep(time.Millisecond)

	stepErr = k.Step()
	if errors.Is(stepErr, ErrReentrancy) {
		logger.Warn("keyer transition step dropped after retry")

		return nil
	}

	return stepErr
}

/*-------------------------------------------------------------------
 *
 * Name:        Step
 *
 * Purpose:     Run one transition of the keyer state graph.
 *
 * Returns:	ErrReentrancy if a step is already in progress (the caller
 *		should retry once after a short delay); otherwise the error
 *		of the tone enqueue, if any.
 *
 * Description:	Invoked by the generator after every tone completes, and
 *		once synchronously on the initial kick.  From Idle this is
 *		a no-op.  A mark state ends its mark by enqueueing the
 *		end-of-mark space; an "after" state decides the next
 *		element from the latches, with the mode B variants
 *		committed to one extra opposite element.
 *
 *--------------------------------------------------------------------*/

func (k *IambicKeyer) Step() error {
	if !k.stepGuard.TryLock() {
		return ErrReentrancy
	}
	defer k.stepGuard.Unlock()

	k.mu.Lock()
	defer k.mu.Unlock()

	switch k.state {
	case KeyerIdle:
		return nil

	case KeyerInDotA:
		return k.endMark(KeyerAfterDotA)
	case KeyerInDotB:
		return k.endMark(KeyerAfterDotB)
	case KeyerInDashA:
		return k.endMark(KeyerAfterDashA)
	case KeyerInDashB:
		return k.endMark(KeyerAfterDashB)

	case KeyerAfterDotA, KeyerAfterDotB:
		if !k.dotPaddle {
			k.dotLatch = false
		}
		switch {
		case k.state == KeyerAfterDotB:
			return k.startDash(KeyerInDashA)
		case k.dashLatch:
			if k.curtisBLatch {
				k.curtisBLatch = false

				return k.startDash(KeyerInDashB)
			}

			return k.startDash(KeyerInDashA)
		case k.dotLatch:
			return k.startDot(KeyerInDotA)
		default:
			k.state = KeyerIdle

			return nil
		}

	case KeyerAfterDashA, KeyerAfterDashB:
		if !k.dashPaddle {
			k.dashLatch = false
		}
		switch {
		case k.state == KeyerAfterDashB:
			return k.startDot(KeyerInDotA)
		case k.dotLatch:
			if k.curtisBLatch {
				k.curtisBLatch = false

				return k.startDot(KeyerInDotB)
			}

			return k.startDot(KeyerInDotA)
		case k.dashLatch:
			return k.startDash(KeyerInDashA)
		default:
			k.state = KeyerIdle

			return nil
		}
	}

	Assert(false, "keyer state %v", k.state)

	return nil
}

/* Helpers below run with k.mu held. */

func (k *IambicKeyer) endMark(next KeyerState) error {
	k.setKeyValue(KeyValueOpen)
	k.state = next

	return k.gen.enqueueEOMSpace()
}

func (k *IambicKeyer) startDot(next KeyerState) error {
	k.setKeyValue(KeyValueClosed)
	k.state = next

	return k.gen.enqueueDot()
}

func (k *IambicKeyer) startDash(next KeyerState) error {
	k.setKeyValue(KeyValueClosed)
	k.state = next

	return k.gen.enqueueDash()
}

// setKeyValue records a key line change and notifies the external
// callback - only on an actual change, before the corresponding tone is
// enqueued.
func (k *IambicKeyer) setKeyValue(v KeyValue) {
	if v == k.keyValue {
		return
	}
	k.keyValue = v
	if k.keyCallback != nil {
		k.keyCallback(v)
	}
}
