package cwtone

/*------------------------------------------------------------------
 *
 * Purpose:   	Tone queue - hold tones for synthesis until the generator
 *		thread gets to them.
 *
 * Description:	Producers of tones (keyer, straight key, character sender,
 *		client code) call Enqueue and then go merrily on their way,
 *		unconcerned about when the tone might actually reach the
 *		sound card.
 *
 *		The generator thread removes tones from the queue one at a
 *		time and turns them into PCM samples.  It sleeps on a
 *		condition variable while the queue is idle and is woken
 *		exactly once, on the idle-to-busy edge, by the producer
 *		that makes the queue non-empty.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"sync"
)

const (
	// QueueCapacityDefault is the number of tone slots in a queue
	// created by NewGenerator.
	QueueCapacityDefault = 3000

	// QueueCapacityMax bounds the capacity accepted by NewToneQueue.
	QueueCapacityMax = 1_000_000
)

// SlopeMode selects which amplitude ramps a tone gets.
type SlopeMode int

const (
	// SlopeModeStandard ramps up at the start and down at the end.
	SlopeModeStandard SlopeMode = iota

	// SlopeModeNoSlopes plays the tone at full amplitude throughout.
	SlopeModeNoSlopes

	// SlopeModeRising ramps up at the start only.
	SlopeModeRising

	// SlopeModeFalling ramps down at the end only.
	SlopeModeFalling
)

// Tone is a single synthesis request.
//
// The exported fields are immutable once enqueued.  The unexported fields
// are synthesis progress computed by the generator at dequeue time from
// Duration and the current sample rate; they are generator-owned scratch
// state, not part of the logical request.
type Tone struct {
	Frequency int  /* Hz.  0 means silence. */
	Duration  int  /* microseconds */
	Slope     SlopeMode
	Forever   bool /* no fixed end; retained at the queue head until superseded */

	nSamples      int
	cursor        int
	risingSlopeN  int
	fallingSlopeN int
}

// DequeueOutcome is the three-valued result of ToneQueue.Dequeue.  The
// distinction between QueueNowEmpty and QueueStillIdle matters: the consumer
// must write one more silence buffer on QueueNowEmpty but must not spin on
// QueueStillIdle.
type DequeueOutcome int

const (
	// ToneDequeued means a tone was returned.
	ToneDequeued DequeueOutcome = iota

	// QueueNowEmpty means the queue just ran dry.  Returned exactly once
	// per drain.
	QueueNowEmpty

	// QueueStillIdle means there was nothing to do before and there still
	// isn't.
	QueueStillIdle
)

type queueState int

const (
	queueIdle queueState = iota
	queueBusy
)

// ToneQueue is a bounded FIFO of tones shared between any number of
// producers and a single generator thread.  All mutation happens under its
// own mutex.
type ToneQueue struct {
	mu     sync.Mutex
	tones  []Tone
	head   int /* index of next tone to dequeue */
	tail   int /* index of next free slot */
	length int
	state  queueState

	highWater        int
	lowWater         int
	lowWaterCallback func(level int)

	// armed is true while a generator thread is running and can deliver
	// wakeups.  Blocking waits fail fast with ErrWouldDeadlock when it
	// is false; see wait.go.
	armed bool

	// dequeueSeq counts dequeue events (including QueueNowEmpty) so
	// waiters can detect "one more tone has completed".
	dequeueSeq uint64

	consumerWake *sync.Cond /* signalled on the idle-to-busy edge */
	waiters      *sync.Cond /* broadcast after every dequeue event */
}

/*-------------------------------------------------------------------
 *
 * Name:        NewToneQueue
 *
 * Purpose:     Create an empty tone queue with the given capacity.
 *
 * Inputs:	capacity - Number of tone slots, 1 .. QueueCapacityMax.
 *
 * Description:	The high water mark is set a little below capacity; the
 *		character sender blocks below it rather than running the
 *		queue all the way to Full.  The low water mark starts at 0
 *		and only matters once a callback is registered.
 *
 *--------------------------------------------------------------------*/

func NewToneQueue(capacity int) (*ToneQueue, error) {
	if capacity < 1 || capacity > QueueCapacityMax {
		return nil, fmt.Errorf("%w: queue capacity %d outside 1..%d", ErrInvalidArgument, capacity, QueueCapacityMax)
	}

	var tq = &ToneQueue{
		tones:     make([]Tone, capacity),
		highWater: capacity - capacity/30,
	}
	if tq.highWater >= capacity {
		tq.highWater = capacity - 1
	}
	tq.consumerWake = sync.NewCond(&tq.mu)
	tq.waiters = sync.NewCond(&tq.mu)

	return tq, nil
}

// Len reports the number of queued tones.
func (tq *ToneQueue) Len() int {
	tq.mu.Lock()
	defer tq.mu.Unlock()

	return tq.length
}

// Capacity reports the number of tone slots.
func (tq *ToneQueue) Capacity() int {
	return len(tq.tones)
}

// HighWater reports the backpressure threshold used by the character
// sender.
func (tq *ToneQueue) HighWater() int {
	return tq.highWater
}

/*-------------------------------------------------------------------
 *
 * Name:        Enqueue
 *
 * Purpose:     Add a tone to the tail of the queue.
 *
 * Inputs:	tone	- The synthesis request.
 *
 * Returns:	nil on success.
 *		ErrInvalidArgument for a frequency outside
 *			FrequencyMin..FrequencyMax or a negative duration.
 *		ErrQueueFull when every slot is occupied.  The queue is
 *			not mutated in that case.
 *
 * Description:	A zero-duration tone is silently dropped as a no-op
 *		success (a "forever" tone is given the redelivery quantum
 *		instead, since its duration is not meaningful).
 *
 *		If the queue was idle, this flips it to busy and signals
 *		the generator thread - once, on the edge, not on every
 *		enqueue.
 *
 *--------------------------------------------------------------------*/

func (tq *ToneQueue) Enqueue(tone Tone) error {
	if tone.Frequency < FrequencyMin || tone.Frequency > FrequencyMax {
		return fmt.Errorf("%w: frequency %d outside %d..%d", ErrInvalidArgument, tone.Frequency, FrequencyMin, FrequencyMax)
	}
	if tone.Duration < 0 {
		return fmt.Errorf("%w: negative duration %d", ErrInvalidArgument, tone.Duration)
	}
	if tone.Forever && tone.Duration == 0 {
		tone.Duration = foreverQuantumUsec
	}
	if tone.Duration == 0 {
		return nil
	}

	tq.mu.Lock()
	defer tq.mu.Unlock()

	if tq.length == len(tq.tones) {
		return ErrQueueFull
	}

	tq.tones[tq.tail] = tone
	tq.tail = (tq.tail + 1) % len(tq.tones)
	tq.length++

	if tq.state == queueIdle {
		tq.state = queueBusy
		tq.consumerWake.Signal()
	}

	return nil
}

/*-------------------------------------------------------------------
 *
 * Name:        Dequeue
 *
 * Purpose:     Remove the tone at the head of the queue.
 *
 * Returns:	(tone, ToneDequeued)	- a tone to synthesize.
 *		(_, QueueNowEmpty)	- the queue just drained; emit one
 *					  silence tail then stop emitting.
 *		(_, QueueStillIdle)	- nothing to do; block, don't spin.
 *
 * Description:	A "forever" tone that is the only queued tone is returned
 *		but retained: head and length are untouched and the same
 *		tone is redelivered on every subsequent call until a new
 *		tone is enqueued behind it.  Its slope mode is downgraded
 *		to NoSlopes after the first delivery so the rising edge
 *		plays exactly once.
 *
 *		The low water callback fires after a real pop when the
 *		length strictly crosses the mark from above, and is invoked
 *		after the queue mutex has been released so the callback may
 *		call back into the queue.
 *
 *--------------------------------------------------------------------*/

func (tq *ToneQueue) Dequeue() (Tone, DequeueOutcome) {
	tq.mu.Lock()

	if tq.state == queueIdle {
		tq.mu.Unlock()

		return Tone{}, QueueStillIdle
	}

	if tq.length == 0 {
		Assert(tq.head == tq.tail, "empty queue with head %d != tail %d", tq.head, tq.tail)
		tq.state = queueIdle
		tq.dequeueSeq++
		tq.waiters.Broadcast()
		tq.mu.Unlock()

		return Tone{}, QueueNowEmpty
	}

	var tone = tq.tones[tq.head]

	if tone.Forever && tq.length == 1 {
		// Retain.  The rising slope has been handed out now, so the
		// redeliveries are pure continuation.
		if tq.tones[tq.head].Slope != SlopeModeNoSlopes {
			tq.tones[tq.head].Slope = SlopeModeNoSlopes
		}
		tq.dequeueSeq++
		tq.waiters.Broadcast()
		tq.mu.Unlock()

		return tone, ToneDequeued
	}

	var lengthBefore = tq.length

	tq.head = (tq.head + 1) % len(tq.tones)
	tq.length--
	tq.dequeueSeq++
	tq.waiters.Broadcast()

	var fire func(level int)
	if tq.lowWaterCallback != nil && lengthBefore > tq.lowWater && tq.length <= tq.lowWater {
		fire = tq.lowWaterCallback
	}
	var level = tq.lowWater

	tq.mu.Unlock()

	if fire != nil {
		fire(level)
	}

	return tone, ToneDequeued
}

/*-------------------------------------------------------------------
 *
 * Name:        RegisterLowWaterCallback
 *
 * Purpose:     Arrange for cb to be invoked when the queue drains to the
 *		given level.
 *
 * Inputs:	level	- Watermark, 0 .. capacity-1.
 *		cb	- Callback, or nil to deregister.
 *
 * Description:	The callback fires exactly once per strict downward
 *		crossing (length was above the mark, now at or below it),
 *		not on every dequeue below the mark.  Registration alone
 *		never fires it, even if the queue is already at or under
 *		the mark.
 *
 *--------------------------------------------------------------------*/

func (tq *ToneQueue) RegisterLowWaterCallback(level int, cb func(level int)) error {
	if level < 0 || level >= len(tq.tones) {
		return fmt.Errorf("%w: low water level %d outside 0..%d", ErrInvalidArgument, level, len(tq.tones)-1)
	}

	tq.mu.Lock()
	defer tq.mu.Unlock()

	tq.lowWater = level
	tq.lowWaterCallback = cb

	return nil
}

/*-------------------------------------------------------------------
 *
 * Name:        Flush
 *
 * Purpose:     Discard all queued tones.
 *
 * Description:	The queue is emptied under lock; the tone the generator is
 *		currently synthesizing is not interrupted.  If a generator
 *		thread is running, the caller then blocks until the
 *		consumer acknowledges the drain (the QueueNowEmpty /
 *		idle transition).  With no generator running there is
 *		nothing to wait for and Flush returns immediately.
 *
 *--------------------------------------------------------------------*/

func (tq *ToneQueue) Flush() error {
	tq.mu.Lock()
	tq.head = tq.tail
	tq.length = 0
	var wait = tq.armed && tq.state == queueBusy
	tq.mu.Unlock()

	if wait {
		return tq.WaitForDrain()
	}

	return nil
}

// waitForEnqueue blocks the generator thread until the queue leaves the
// idle state or the queue is disarmed.
func (tq *ToneQueue) waitForEnqueue() {
	tq.mu.Lock()
	for tq.state == queueIdle && tq.armed {
		tq.consumerWake.Wait()
	}
	tq.mu.Unlock()
}
