package cwtone

/*------------------------------------------------------------------
 *
 * Name: 	cwkeyer
 *
 * Purpose:   	Interactive keyer practice from a terminal, or a real
 *		keyer with paddles on GPIO lines.
 *
 * Usage:	cwkeyer [options]
 *
 *		With no GPIO options the terminal is the paddle:
 *
 *			.	tap the dot paddle
 *			-	tap the dash paddle
 *			space	toggle the straight key
 *			q	quit
 *
 *		With --gpio-chip, --gpio-dot and --gpio-dash, real paddle
 *		contacts on those lines drive the keyer and the terminal
 *		only provides q to quit.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pkg/term"
	"github.com/spf13/pflag"
)

func CwKeyerMain() {
	var configPath = pflag.StringP("config", "c", "", "Profile file (YAML).  Flags override its values.")
	var speed = pflag.IntP("speed", "s", 0, "Keying speed in words per minute.")
	var frequency = pflag.IntP("frequency", "f", 0, "Sidetone frequency in Hz.")
	var volume = pflag.IntP("volume", "v", -1, "Sidetone volume in percent.")
	var sinkName = pflag.StringP("sink", "S", "", "Audio backend: oto, portaudio, oss, null.")
	var device = pflag.StringP("device", "d", "", "Audio device for the chosen backend.")
	var curtisB = pflag.BoolP("curtis-b", "B", false, "Curtis mode B keying instead of mode A.")
	var gpioChip = pflag.String("gpio-chip", "", "gpiochip device for paddle input, e.g. gpiochip0.")
	var gpioDot = pflag.Int("gpio-dot", -1, "GPIO line offset of the dot paddle contact.")
	var gpioDash = pflag.Int("gpio-dash", -1, "GPIO line offset of the dash paddle contact.")
	var debug = pflag.Bool("debug", false, "Verbose logging to stderr.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Iambic keyer with audio sidetone.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Paddles come from GPIO lines, or from the terminal for practice.\n")
		fmt.Fprintf(os.Stderr, "\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	if *debug {
		SetLogLevel(log.DebugLevel)
	}

	var profile = DefaultProfile()
	if *configPath != "" {
		var loadErr error
		profile, loadErr = LoadProfile(*configPath)
		if loadErr != nil {
			fmt.Fprintf(os.Stderr, "%s\n", loadErr)
			os.Exit(1)
		}
	}

	if *speed != 0 {
		profile.Speed = *speed
	}
	if *frequency != 0 {
		profile.Frequency = *frequency
	}
	if *volume >= 0 {
		profile.Volume = *volume
	}
	if *sinkName != "" {
		profile.Sink = *sinkName
	}
	if *device != "" {
		profile.Device = *device
	}
	if *curtisB {
		profile.CurtisModeB = true
	}

	var sink, sinkErr = NewSink(profile.Sink)
	if sinkErr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", sinkErr)
		os.Exit(1)
	}

	var gen = NewGenerator(sink)
	if applyErr := profile.Apply(gen); applyErr != nil {
		fmt.Fprintf(os.Stderr, "%s\n", applyErr)
		os.Exit(1)
	}

	var keyer = NewIambicKeyer(gen)
	keyer.SetCurtisModeB(profile.CurtisModeB)

	var straight = NewStraightKey(gen)

	if startErr := gen.Start(profile.Device); startErr != nil {
		fmt.Fprintf(os.Stderr, "Cannot start audio: %s\n", startErr)
		os.Exit(1)
	}

	var paddle *GPIOPaddle
	if *gpioChip != "" {
		if *gpioDot < 0 || *gpioDash < 0 {
			fmt.Fprintf(os.Stderr, "--gpio-chip needs --gpio-dot and --gpio-dash.\n")
			os.Exit(1)
		}
		paddle = NewGPIOPaddle(keyer)
		if openErr := paddle.Open(*gpioChip, *gpioDot, *gpioDash); openErr != nil {
			fmt.Fprintf(os.Stderr, "%s\n", openErr)
			os.Exit(1)
		}
		fmt.Printf("Paddles on %s lines %d (dot) and %d (dash).  q to quit.\n", *gpioChip, *gpioDot, *gpioDash)
	} else {
		fmt.Printf(". = dot   - = dash   space = straight key   q = quit\n")
	}

	var tty, ttyErr = term.Open("/dev/tty", term.RawMode)
	if ttyErr != nil {
		fmt.Fprintf(os.Stderr, "Cannot open terminal: %s\n", ttyErr)
		os.Exit(1)
	}

	keyLoop(tty, keyer, straight, paddle != nil)

	_ = tty.Restore()
	_ = tty.Close()
	if paddle != nil {
		_ = paddle.Close()
	}

	if stopErr := gen.Stop(); stopErr != nil {
		fmt.Fprintf(os.Stderr, "Stopping audio: %s\n", stopErr)
		os.Exit(1)
	}
}

// keyLoop reads single characters until q or EOF.  A "tap" is a press
// immediately followed by a release; the latch inside the keyer makes
// sure the element still plays in full.
func keyLoop(tty *term.Term, keyer *IambicKeyer, straight *StraightKey, gpioOnly bool) {
	var buf [1]byte
	var straightDown = false

	for {
		var n, readErr = tty.Read(buf[:])
		if readErr != nil || n == 0 {
			return
		}

		switch buf[0] {
		case 'q', 'Q', 0x03: /* ^C */
			return
		}
		if gpioOnly {
			continue
		}

		switch buf[0] {
		case '.':
			_ = keyer.NotifyPaddleEvent(true, false)
			_ = keyer.NotifyPaddleEvent(false, false)
		case '-', '_':
			_ = keyer.NotifyPaddleEvent(false, true)
			_ = keyer.NotifyPaddleEvent(false, false)
		case ' ':
			straightDown = !straightDown
			if straightDown {
				_ = straight.Notify(KeyValueClosed)
			} else {
				_ = straight.Notify(KeyValueOpen)
			}
		}
	}
}
