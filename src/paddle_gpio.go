package cwtone

/*------------------------------------------------------------------
 *
 * Purpose:   	Paddle input from GPIO lines via the Linux gpiochip
 *		character device.
 *
 * Description:	Two lines, dot and dash, wired active low: the paddle
 *		contact shorts the pin to ground and the internal pull-up
 *		holds it high otherwise.  Edge events from the kernel are
 *		debounced in hardware where the chip supports it and fed to
 *		the keyer as paddle state changes.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// gpioDebouncePeriod absorbs contact bounce from mechanical paddles.
const gpioDebouncePeriod = 5 * time.Millisecond

// GPIOPaddle feeds a keyer from two GPIO lines.
type GPIOPaddle struct {
	keyer *IambicKeyer

	mu       sync.Mutex
	dot      bool
	dash     bool
	dotLine  *gpiocdev.Line
	dashLine *gpiocdev.Line
}

// NewGPIOPaddle returns an unopened paddle bound to the keyer.
func NewGPIOPaddle(keyer *IambicKeyer) *GPIOPaddle {
	return &GPIOPaddle{keyer: keyer}
}

/*-------------------------------------------------------------------
 *
 * Name:        Open
 *
 * Purpose:     Request the two paddle lines and start delivering events.
 *
 * Inputs:	chip		- gpiochip device name, e.g. "gpiochip0".
 *		dotOffset	- Line offset of the dot paddle contact.
 *		dashOffset	- Line offset of the dash paddle contact.
 *
 *--------------------------------------------------------------------*/

func (p *GPIOPaddle) Open(chip string, dotOffset int, dashOffset int) error {
	if dotOffset == dashOffset {
		return fmt.Errorf("%w: dot and dash on the same line %d", ErrInvalidArgument, dotOffset)
	}

	var dotLine, dotErr = gpiocdev.RequestLine(chip, dotOffset,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(gpioDebouncePeriod),
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			p.handleEvent(true, evt)
		}))
	if dotErr != nil {
		return fmt.Errorf("request %s line %d: %w", chip, dotOffset, dotErr)
	}

	var dashLine, dashErr = gpiocdev.RequestLine(chip, dashOffset,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithDebounce(gpioDebouncePeriod),
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			p.handleEvent(false, evt)
		}))
	if dashErr != nil {
		_ = dotLine.Close()

		return fmt.Errorf("request %s line %d: %w", chip, dashOffset, dashErr)
	}

	p.mu.Lock()
	p.dotLine = dotLine
	p.dashLine = dashLine
	p.mu.Unlock()

	logger.Debug("paddle lines requested", "chip", chip, "dot", dotOffset, "dash", dashOffset)

	return nil
}

// Close releases both lines.
func (p *GPIOPaddle) Close() error {
	p.mu.Lock()
	var dotLine, dashLine = p.dotLine, p.dashLine
	p.dotLine, p.dashLine = nil, nil
	p.mu.Unlock()

	var closeErr error
	if dotLine != nil {
		closeErr = dotLine.Close()
	}
	if dashLine != nil {
		if dashErr := dashLine.Close(); closeErr == nil {
			closeErr = dashErr
		}
	}

	return closeErr
}

// handleEvent runs on gpiocdev's event goroutine.  Falling edge means the
// contact closed.
func (p *GPIOPaddle) handleEvent(isDot bool, evt gpiocdev.LineEvent) {
	var pressed = evt.Type == gpiocdev.LineEventFallingEdge

	p.mu.Lock()
	if isDot {
		p.dot = pressed
	} else {
		p.dash = pressed
	}
	var dot, dash = p.dot, p.dash
	p.mu.Unlock()

	if notifyErr := p.keyer.NotifyPaddleEvent(dot, dash); notifyErr != nil {
		logger.Warn("paddle event not delivered", "err", notifyErr)
	}
}
