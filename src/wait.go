package cwtone

/*------------------------------------------------------------------
 *
 * Purpose:   	Blocking waits on tone queue progress.
 *
 * Description:	The original design for this kind of library parked waiting
 *		threads in sigsuspend and woke them with SIGALRM.  Here the
 *		waiters condition variable plays that role: the generator
 *		thread broadcasts after every dequeue event, and producers
 *		block on whatever predicate they care about.
 *
 *		All waits fail fast with ErrWouldDeadlock instead of
 *		hanging forever when no generator thread is running -
 *		nothing would ever deliver the wakeup.  The queue is
 *		"armed" for the lifetime of the generator thread; a waiter
 *		parked at disarm time is woken and gets the same error.
 *
 *---------------------------------------------------------------*/

// arm marks the queue as having a running consumer.  Called by the
// generator just before its thread starts.
func (tq *ToneQueue) arm() {
	tq.mu.Lock()
	tq.armed = true
	tq.mu.Unlock()
}

// disarm wakes the consumer and every parked waiter.  Called by the
// generator when stopping.
func (tq *ToneQueue) disarm() {
	tq.mu.Lock()
	tq.armed = false
	tq.consumerWake.Signal()
	tq.waiters.Broadcast()
	tq.mu.Unlock()
}

// waitFor blocks until pred (evaluated under the queue mutex) holds.
func (tq *ToneQueue) waitFor(pred func() bool) error {
	tq.mu.Lock()
	defer tq.mu.Unlock()

	if !tq.armed {
		return ErrWouldDeadlock
	}
	for !pred() {
		tq.waiters.Wait()
		if !tq.armed {
			return ErrWouldDeadlock
		}
	}

	return nil
}

// WaitForTone blocks until the tone currently at the head of the queue has
// been dequeued (i.e. one more dequeue event occurs).  Returns immediately
// when the queue is idle.
func (tq *ToneQueue) WaitForTone() error {
	tq.mu.Lock()
	if tq.state == queueIdle {
		tq.mu.Unlock()

		return nil
	}
	var start = tq.dequeueSeq
	tq.mu.Unlock()

	return tq.waitFor(func() bool { return tq.dequeueSeq != start })
}

// WaitForDrain blocks until the queue is empty and idle.
func (tq *ToneQueue) WaitForDrain() error {
	return tq.waitFor(func() bool { return tq.length == 0 && tq.state == queueIdle })
}

// WaitForLevel blocks until the queue length has fallen to the given level
// or below.
func (tq *ToneQueue) WaitForLevel(level int) error {
	if level < 0 {
		return ErrInvalidArgument
	}

	return tq.waitFor(func() bool { return tq.length <= level })
}
