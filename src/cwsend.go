package cwtone

/*------------------------------------------------------------------
 *
 * Name: 	cwsend
 *
 * Purpose:   	Send text as Morse code audio from the command line.
 *
 * Usage:	cwsend [options] [text ...]
 *
 *		Text comes from the arguments, or from stdin one line at a
 *		time when no arguments are given.  Each character is echoed
 *		as it finishes playing, optionally preceded by a time stamp.
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
	"github.com/spf13/pflag"
)

func CwSendMain() {
	var configPath = pflag.StringP("config", "c", "", "Profile file (YAML).  Flags override its values.")
	var speed = pflag.IntP("speed", "s", 0, "Sending speed in words per minute.")
	var frequency = pflag.IntP("frequency", "f", 0, "Tone frequency in Hz.")
	var volume = pflag.IntP("volume", "v", -1, "Volume in percent.")
	var gap = pflag.IntP("gap", "g", -1, "Extra inter-character spacing in dot lengths (Farnsworth).")
	var weighting = pflag.IntP("weighting", "w", 0, "Dot/space weighting in percent, 50 is balanced.")
	var sinkName = pflag.StringP("sink", "S", "", "Audio backend: oto, portaudio, oss, null.")
	var device = pflag.StringP("device", "d", "", "Audio device for the chosen backend.")
	var timestampFormat = pflag.StringP("timestamp-format", "T", "", "Precede echoed characters with 'strftime' format time stamp.")
	var debug = pflag.Bool("debug", false, "Verbose logging to stderr.")
	var help = pflag.Bool("help", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - Send text as Morse code audio.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Text is taken from the arguments, or read from stdin line by line.\n")
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

	/* Flags override the profile. */
	if *speed != 0 {
		profile.Speed = *speed
	}
	if *frequency != 0 {
		profile.Frequency = *frequency
	}
	if *volume >= 0 {
		profile.Volume = *volume
	}
	if *gap >= 0 {
		profile.Gap = *gap
	}
	if *weighting != 0 {
		profile.Weighting = *weighting
	}
	if *sinkName != "" {
		profile.Sink = *sinkName
	}
	if *device != "" {
		profile.Device = *device
	}

	var stamper *strftime.Strftime
	if *timestampFormat != "" {
		var stampErr error
		stamper, stampErr = strftime.New(*timestampFormat)
		if stampErr != nil {
			fmt.Fprintf(os.Stderr, "Invalid timestamp format %q: %s\n", *timestampFormat, stampErr)
			os.Exit(1)
		}
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

	if startErr := gen.Start(profile.Device); startErr != nil {
		fmt.Fprintf(os.Stderr, "Cannot start audio: %s\n", startErr)
		os.Exit(1)
	}

	if len(pflag.Args()) > 0 {
		for i, word := range pflag.Args() {
			if i > 0 {
				if sendErr := sendString(gen, " ", stamper); sendErr != nil {
					fmt.Fprintf(os.Stderr, "\n%s\n", sendErr)
					os.Exit(1)
				}
			}
			if sendErr := sendString(gen, word, stamper); sendErr != nil {
				fmt.Fprintf(os.Stderr, "\n%s\n", sendErr)
				os.Exit(1)
			}
		}
		fmt.Printf("\n")
	} else {
		var scanner = bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if sendErr := sendString(gen, scanner.Text(), stamper); sendErr != nil {
				fmt.Fprintf(os.Stderr, "\n%s\n", sendErr)
				os.Exit(1)
			}
			fmt.Printf("\n")
		}
	}

	if stopErr := gen.Stop(); stopErr != nil {
		fmt.Fprintf(os.Stderr, "Stopping audio: %s\n", stopErr)
		os.Exit(1)
	}
}

// sendString plays str character by character, echoing each one after its
// audio has drained so the echo tracks the sidetone.  A drain failure means
// the generator thread is gone, so the character never played and the send
// is abandoned rather than echoed as if it had.
func sendString(gen *Generator, str string, stamper *strftime.Strftime) error {
	for _, ch := range str {
		if chErr := gen.EnqueueCharacter(ch); chErr != nil {
			return fmt.Errorf("enqueue %q: %w", ch, chErr)
		}
		if drainErr := gen.WaitForQueueDrain(); drainErr != nil {
			return fmt.Errorf("after %q: %w", ch, drainErr)
		}

		if stamper != nil {
			fmt.Printf("[%s] %c\n", stamper.FormatString(time.Now()), ch)
		} else {
			fmt.Printf("%c", ch)
		}
	}

	return nil
}
