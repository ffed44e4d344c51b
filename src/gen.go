package cwtone

/*------------------------------------------------------------------
 *
 * Purpose:   	Convert queued tones to PCM for writing to a sound device.
 *
 * Description:	One background goroutine per Generator.  It dequeues tones,
 *		synthesizes a phase-continuous sine wave with the configured
 *		attack/decay slopes, and streams fixed-size buffers to the
 *		audio sink.  A tone shorter than one buffer just leaves the
 *		buffer partially filled for the next tone; when the queue
 *		drains, the remainder is padded with silence and flushed.
 *
 *		The essential timing parameters (speed, gap, weighting) are
 *		turned into microsecond element lengths lazily, gated by a
 *		parameters-in-sync flag, using the PARIS calibration of
 *		1,200,000 / WPM microseconds per dot.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// SampleRateDefault is used by sinks that do not negotiate a rate of
// their own.
const SampleRateDefault = 44100

// Generator owns the tone queue, the synthesis state and the background
// thread that feeds the audio sink.
type Generator struct {
	tq   *ToneQueue
	sink AudioSink

	// Sending parameters.  Guarded by mu; the derived microsecond
	// lengths are recomputed under mu whenever parametersInSync has
	// been invalidated by a setter.
	mu               sync.Mutex
	speed            int /* WPM */
	frequency        int /* Hz */
	volume           int /* percent */
	gap              int /* dots */
	weighting        int /* percent */
	parametersInSync bool

	dotLen             int /* microseconds, all of these */
	dashLen            int
	eomSpaceLen        int
	eocSpaceLen        int
	eowSpaceLen        int
	additionalSpaceLen int
	adjustmentSpaceLen int

	slopeShape      SlopeShape
	slopeLengthUsec int
	slopeDirty      atomic.Bool

	// Consumer-thread-owned synthesis state.  Never touched from a
	// producer thread.
	sampleRate   int
	buffer       []int16
	bufferCursor int
	phase        float64
	slope        slopeTable
	volumeAbs    int

	keyer atomic.Pointer[IambicKeyer]

	running atomic.Bool
	done    chan struct{}
}

// NewGenerator creates a stopped generator writing to the given sink, with
// default parameters and a default-capacity tone queue.
func NewGenerator(sink AudioSink) *Generator {
	var tq, newErr = NewToneQueue(QueueCapacityDefault)
	Assert(newErr == nil, "default tone queue: %v", newErr)

	return &Generator{
		tq:              tq,
		sink:            sink,
		speed:           SpeedDefault,
		frequency:       FrequencyDefault,
		volume:          VolumeDefault,
		gap:             GapDefault,
		weighting:       WeightingDefault,
		slopeShape:      SlopeShapeRaisedCosine,
		slopeLengthUsec: SlopeLengthDefault,
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        Start
 *
 * Purpose:     Open the audio sink and launch the generator thread.
 *
 * Inputs:	device	- Backend-specific device name.  Empty string
 *			  selects the backend's default.
 *
 * Returns:	nil on success.
 *		ErrBusy if this generator is already running.
 *		The sink's error if the audio system cannot be opened.
 *
 *--------------------------------------------------------------------*/

func (gen *Generator) Start(device string) error {
	if !gen.running.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: generator already running", ErrBusy)
	}

	if openErr := gen.sink.Open(device); openErr != nil {
		gen.running.Store(false)

		return fmt.Errorf("open audio sink: %w", openErr)
	}

	gen.sampleRate = gen.sink.SampleRate()
	Assert(gen.sampleRate > 0, "sink negotiated sample rate %d", gen.sampleRate)

	gen.buffer = make([]int16, calcBufNSamples(gen.sampleRate))
	gen.bufferCursor = 0
	gen.phase = 0
	gen.slopeDirty.Store(true)

	gen.done = make(chan struct{})
	gen.tq.arm()
	go gen.run()

	logger.Debug("generator started", "rate", gen.sampleRate, "buffer", len(gen.buffer))

	return nil
}

/*-------------------------------------------------------------------
 *
 * Name:        Stop
 *
 * Purpose:     Drain, silence and join the generator thread.
 *
 * Description:	Pending tones are flushed, one final silence tone is
 *		played so the sink does not cut off mid-sample, then the
 *		run flag is cleared, the thread woken and joined.  There is
 *		no hard-kill path: if the sink's Write is stuck, Stop
 *		blocks until it returns.
 *
 *		Stopping a generator that is not running is a no-op
 *		success.
 *
 *--------------------------------------------------------------------*/

func (gen *Generator) Stop() error {
	if !gen.running.Load() {
		return nil
	}

	_ = gen.Silence()
	_ = gen.tq.WaitForDrain()

	gen.running.Store(false)
	gen.tq.disarm()
	<-gen.done

	logger.Debug("generator stopped")

	return gen.sink.Close()
}

// Silence discards all pending tones and forces a short silence tone so
// the waveform falls to zero cleanly.  A no-op success when the generator
// thread is not running.
func (gen *Generator) Silence() error {
	if !gen.running.Load() {
		return nil
	}

	if flushErr := gen.tq.Flush(); flushErr != nil {
		return flushErr
	}

	return gen.tq.Enqueue(Tone{Frequency: 0, Duration: silenceTailUsec, Slope: SlopeModeNoSlopes})
}

// Queue exposes the generator's tone queue for direct enqueueing, waits
// and watermark registration.
func (gen *Generator) Queue() *ToneQueue {
	return gen.tq
}

// EnqueueTone queues a single raw tone.
func (gen *Generator) EnqueueTone(frequency int, usec int, slope SlopeMode) error {
	return gen.tq.Enqueue(Tone{Frequency: frequency, Duration: usec, Slope: slope})
}

// RegisterLowWaterCallback forwards to the tone queue.
func (gen *Generator) RegisterLowWaterCallback(level int, cb func(level int)) error {
	return gen.tq.RegisterLowWaterCallback(level, cb)
}

// WaitForTone blocks until the tone at the queue head has been dequeued.
func (gen *Generator) WaitForTone() error { return gen.tq.WaitForTone() }

// WaitForQueueDrain blocks until the queue is empty and idle.
func (gen *Generator) WaitForQueueDrain() error { return gen.tq.WaitForDrain() }

// WaitForQueueLevel blocks until the queue length falls to level or below.
func (gen *Generator) WaitForQueueLevel(level int) error { return gen.tq.WaitForLevel(level) }

// Flush discards pending tones and waits for the drain acknowledgement.
func (gen *Generator) Flush() error { return gen.tq.Flush() }

/*
 * Parameter setters.  Each is independently range checked.  Changing
 * speed, gap or weighting invalidates the derived element lengths;
 * changing frequency or volume does not.
 */

func (gen *Generator) SetSpeed(wpm int) error {
	if wpm < SpeedMin || wpm > SpeedMax {
		return fmt.Errorf("%w: speed %d WPM outside %d..%d", ErrInvalidArgument, wpm, SpeedMin, SpeedMax)
	}

	gen.mu.Lock()
	defer gen.mu.Unlock()
	if wpm != gen.speed {
		gen.speed = wpm
		gen.parametersInSync = false
	}

	return nil
}

func (gen *Generator) SetFrequency(hz int) error {
	if hz < FrequencyMin || hz > FrequencyMax {
		return fmt.Errorf("%w: frequency %d Hz outside %d..%d", ErrInvalidArgument, hz, FrequencyMin, FrequencyMax)
	}

	gen.mu.Lock()
	defer gen.mu.Unlock()
	gen.frequency = hz

	return nil
}

func (gen *Generator) SetVolume(percent int) error {
	if percent < VolumeMin || percent > VolumeMax {
		return fmt.Errorf("%w: volume %d%% outside %d..%d", ErrInvalidArgument, percent, VolumeMin, VolumeMax)
	}

	gen.mu.Lock()
	gen.volume = percent
	gen.mu.Unlock()

	// The slope table embeds the absolute volume; the generator thread
	// rebuilds it before the next tone.  Timing parameters are not
	// touched.
	gen.slopeDirty.Store(true)

	return nil
}

func (gen *Generator) SetGap(dots int) error {
	if dots < GapMin || dots > GapMax {
		return fmt.Errorf("%w: gap %d dots outside %d..%d", ErrInvalidArgument, dots, GapMin, GapMax)
	}

	gen.mu.Lock()
	defer gen.mu.Unlock()
	if dots != gen.gap {
		gen.gap = dots
		gen.parametersInSync = false
	}

	return nil
}

func (gen *Generator) SetWeighting(percent int) error {
	if percent < WeightingMin || percent > WeightingMax {
		return fmt.Errorf("%w: weighting %d%% outside %d..%d", ErrInvalidArgument, percent, WeightingMin, WeightingMax)
	}

	gen.mu.Lock()
	defer gen.mu.Unlock()
	if percent != gen.weighting {
		gen.weighting = percent
		gen.parametersInSync = false
	}

	return nil
}

func (gen *Generator) Speed() int     { gen.mu.Lock(); defer gen.mu.Unlock(); return gen.speed }
func (gen *Generator) Frequency() int { gen.mu.Lock(); defer gen.mu.Unlock(); return gen.frequency }
func (gen *Generator) Volume() int    { gen.mu.Lock(); defer gen.mu.Unlock(); return gen.volume }
func (gen *Generator) Gap() int       { gen.mu.Lock(); defer gen.mu.Unlock(); return gen.gap }
func (gen *Generator) Weighting() int { gen.mu.Lock(); defer gen.mu.Unlock(); return gen.weighting }

/*-------------------------------------------------------------------
 *
 * Name:        SetToneSlope
 *
 * Purpose:     Select the slope shape and/or length.
 *
 * Inputs:	shape		- One of the SlopeShape values, or -1 to
 *				  keep the current shape.
 *		lengthUsec	- Ramp length in microseconds, or -1 to
 *				  keep the current length.
 *
 * Returns:	ErrConflict for a rectangular shape with a non-zero
 *		length - a rectangular tone has no ramp by definition.
 *
 *--------------------------------------------------------------------*/

func (gen *Generator) SetToneSlope(shape SlopeShape, lengthUsec int) error {
	gen.mu.Lock()
	defer gen.mu.Unlock()

	var newShape = gen.slopeShape
	var newLength = gen.slopeLengthUsec
	if shape >= 0 {
		newShape = shape
	}
	if lengthUsec >= 0 {
		newLength = lengthUsec
	}

	if newShape == SlopeShapeRectangular && newLength != 0 {
		return fmt.Errorf("%w: rectangular slope with length %d", ErrConflict, newLength)
	}

	gen.slopeShape = newShape
	gen.slopeLengthUsec = newLength
	gen.slopeDirty.Store(true)

	return nil
}

/*
 * Derived element lengths.  Weighting skews the mark/space ratio around
 * the nominal 1:1; the end-of-mark space shrinks as the dot grows so a
 * character keeps its overall length.  Farnsworth gaps stretch the
 * inter-character and inter-word spaces without touching element speed.
 */

func (gen *Generator) syncParameters() {
	if gen.parametersInSync {
		return
	}

	var unit = dotCalibration / gen.speed
	var w = (2 * (gen.weighting - 50) * unit) / 100

	gen.dotLen = unit + w
	gen.dashLen = 3 * gen.dotLen
	gen.eomSpaceLen = unit - (28*w)/22
	gen.eocSpaceLen = 3*unit - gen.eomSpaceLen
	gen.eowSpaceLen = 7*unit - gen.eocSpaceLen
	gen.additionalSpaceLen = gen.gap * unit
	gen.adjustmentSpaceLen = (7 * gen.additionalSpaceLen) / 3

	gen.parametersInSync = true

	logger.Debug("parameters synced",
		"wpm", gen.speed, "dot", gen.dotLen, "dash", gen.dashLen,
		"eom", gen.eomSpaceLen, "eoc", gen.eocSpaceLen, "eow", gen.eowSpaceLen)
}

/* Element enqueue helpers used by the keyer and the character sender. */

func (gen *Generator) enqueueDot() error {
	gen.mu.Lock()
	gen.syncParameters()
	var t = Tone{Frequency: gen.frequency, Duration: gen.dotLen, Slope: SlopeModeStandard}
	gen.mu.Unlock()

	return gen.tq.Enqueue(t)
}

func (gen *Generator) enqueueDash() error {
	gen.mu.Lock()
	gen.syncParameters()
	var t = Tone{Frequency: gen.frequency, Duration: gen.dashLen, Slope: SlopeModeStandard}
	gen.mu.Unlock()

	return gen.tq.Enqueue(t)
}

func (gen *Generator) enqueueEOMSpace() error {
	gen.mu.Lock()
	gen.syncParameters()
	var t = Tone{Frequency: 0, Duration: gen.eomSpaceLen, Slope: SlopeModeNoSlopes}
	gen.mu.Unlock()

	return gen.tq.Enqueue(t)
}

func (gen *Generator) enqueueEOCSpace() error {
	gen.mu.Lock()
	gen.syncParameters()
	var t = Tone{Frequency: 0, Duration: gen.eocSpaceLen + gen.additionalSpaceLen, Slope: SlopeModeNoSlopes}
	gen.mu.Unlock()

	return gen.tq.Enqueue(t)
}

func (gen *Generator) enqueueEOWSpace() error {
	gen.mu.Lock()
	gen.syncParameters()
	var t = Tone{Frequency: 0, Duration: gen.eowSpaceLen + gen.adjustmentSpaceLen, Slope: SlopeModeNoSlopes}
	gen.mu.Unlock()

	return gen.tq.Enqueue(t)
}

/*-------------------------------------------------------------------
 *
 * Name:        run
 *
 * Purpose:     Generator thread.  Dequeue tones and synthesize until
 *		stopped.
 *
 * Description:	After every dequeued tone - including a redelivered
 *		"forever" tone - the keyer's re-entry hook is invoked with
 *		the tone's duration, because tone completion is the keyer's
 *		only clock tick.
 *
 *--------------------------------------------------------------------*/

func (gen *Generator) run() {
	defer close(gen.done)

	for {
		var tone, outcome = gen.tq.Dequeue()

		switch outcome {
		case QueueStillIdle:
			if !gen.running.Load() {
				return
			}
			gen.tq.waitForEnqueue()
			if !gen.running.Load() {
				return
			}

		case QueueNowEmpty:
			gen.flushSilenceTail()

		case ToneDequeued:
			gen.synthesize(&tone)
			if k := gen.keyer.Load(); k != nil {
				k.onToneComplete(tone.Duration)
			}
		}
	}
}

/*-------------------------------------------------------------------
 *
 * Name:        synthesize
 *
 * Purpose:     Turn one tone into samples in the output buffer, flushing
 *		the buffer to the sink each time it fills.
 *
 * Description:	The phase accumulator is carried across tones and across
 *		buffer flushes so the waveform is continuous even though a
 *		single Write may span parts of several tones.  Amplitude
 *		comes from the slope table inside a ramp region and is the
 *		flat absolute volume otherwise.
 *
 *--------------------------------------------------------------------*/

func (gen *Generator) synthesize(tone *Tone) {
	if gen.slopeDirty.Swap(false) {
		gen.rebuildSlopeTable()
	}

	tone.nSamples = usecToSamples(tone.Duration, gen.sampleRate)

	var slopeN = len(gen.slope.amplitudes)
	tone.risingSlopeN = 0
	tone.fallingSlopeN = 0
	switch tone.Slope {
	case SlopeModeStandard:
		tone.risingSlopeN = slopeN
		tone.fallingSlopeN = slopeN
	case SlopeModeRising:
		tone.risingSlopeN = slopeN
	case SlopeModeFalling:
		tone.fallingSlopeN = slopeN
	case SlopeModeNoSlopes:
		// flat
	}

	// A tone shorter than its ramps becomes all ramp: truncate both
	// sides and stretch the table lookup accordingly.
	if tone.risingSlopeN+tone.fallingSlopeN > tone.nSamples {
		if tone.risingSlopeN > tone.nSamples/2 {
			tone.risingSlopeN = tone.nSamples / 2
		}
		if tone.fallingSlopeN > tone.nSamples-tone.risingSlopeN {
			tone.fallingSlopeN = tone.nSamples - tone.risingSlopeN
		}
	}

	var delta = 2 * math.Pi * float64(tone.Frequency) / float64(gen.sampleRate)

	for tone.cursor = 0; tone.cursor < tone.nSamples; tone.cursor++ {
		var sample int16
		if tone.Frequency > 0 {
			gen.phase += delta
			sample = int16(float64(gen.sampleAmplitude(tone)) * math.Sin(gen.phase))
		}

		gen.buffer[gen.bufferCursor] = sample
		gen.bufferCursor++
		if gen.bufferCursor == len(gen.buffer) {
			gen.writeBuffer()
		}
	}

	if tone.Frequency > 0 {
		gen.phase = math.Mod(gen.phase, 2*math.Pi)
	}
}

// sampleAmplitude looks up the amplitude for the tone's current sample:
// rising ramp, flat top, or falling ramp.
func (gen *Generator) sampleAmplitude(tone *Tone) int {
	var slopeN = len(gen.slope.amplitudes)

	switch {
	case tone.cursor < tone.risingSlopeN:
		return gen.slope.amplitudes[tone.cursor*slopeN/tone.risingSlopeN]
	case tone.cursor >= tone.nSamples-tone.fallingSlopeN:
		var j = tone.nSamples - 1 - tone.cursor
		return gen.slope.amplitudes[j*slopeN/tone.fallingSlopeN]
	default:
		return gen.volumeAbs
	}
}

// flushSilenceTail pads a partially filled buffer with silence and writes
// it.  Called on the QueueNowEmpty edge; the preceding tone has already
// fallen to zero amplitude so no extra slope is needed.
func (gen *Generator) flushSilenceTail() {
	if gen.bufferCursor == 0 {
		return
	}
	for i := gen.bufferCursor; i < len(gen.buffer); i++ {
		gen.buffer[i] = 0
	}
	gen.bufferCursor = len(gen.buffer)
	gen.writeBuffer()
}

func (gen *Generator) writeBuffer() {
	if writeErr := gen.sink.Write(gen.buffer); writeErr != nil {
		logger.Error("audio sink write failed", "err", writeErr)
	}
	gen.bufferCursor = 0
}

// rebuildSlopeTable refreshes the consumer-owned slope table and absolute
// volume from the current configuration.  Runs only on the generator
// thread.
func (gen *Generator) rebuildSlopeTable() {
	gen.mu.Lock()
	var shape = gen.slopeShape
	var length = gen.slopeLengthUsec
	var volume = gen.volume
	gen.mu.Unlock()

	gen.volumeAbs = 32767 * volume / 100
	gen.slope.shape = shape
	gen.slope.lengthUsec = length
	gen.slope.rebuild(gen.sampleRate, gen.volumeAbs)
}

// Originally a whole buffer was 40 ms of audio.  10 ms keeps keying
// latency acceptable; round up so buffer sizes stay friendly.
const oneBufTimeMs = 10

func calcBufNSamples(rate int) int {
	var n = rate * oneBufTimeMs / 1000

	return (n + 0xff) &^ 0xff
}
