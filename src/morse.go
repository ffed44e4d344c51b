package cwtone

/*------------------------------------------------------------------
 *
 * Purpose:   	Turn text into dots, dashes and spaces on the tone queue.
 *
 * Description:	Each mark is followed by an end-of-mark space, each
 *		character by an end-of-character space and each word
 *		separator by an end-of-word space, all using the element
 *		lengths derived from the current speed, gap and weighting.
 *		So "EE" comes out as six queued tones: dot, eom, eoc, dot,
 *		eom, eoc.
 *
 *		An unusual character that is not in the table is treated
 *		like a word separator.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"unicode"
)

type morseEncoding struct {
	ch  rune
	enc string
}

var morseTable = []morseEncoding{
	{'A', ".-"},
	{'B', "-..."},
	{'C', "-.-."},
	{'D', "-.."},
	{'E', "."},
	{'F', "..-."},
	{'G', "--."},
	{'H', "...."},
	{'I', ".."},
	{'J', ".---"},
	{'K', "-.-"},
	{'L', ".-.."},
	{'M', "--"},
	{'N', "-."},
	{'O', "---"},
	{'P', ".--."},
	{'Q', "--.-"},
	{'R', ".-."},
	{'S', "..."},
	{'T', "-"},
	{'U', "..-"},
	{'V', "...-"},
	{'W', ".--"},
	{'X', "-..-"},
	{'Y', "-.--"},
	{'Z', "--.."},
	{'1', ".----"},
	{'2', "..---"},
	{'3', "...--"},
	{'4', "....-"},
	{'5', "....."},
	{'6', "-...."},
	{'7', "--..."},
	{'8', "---.."},
	{'9', "----."},
	{'0', "-----"},
	{'.', ".-.-.-"},
	{',', "--..--"},
	{'?', "..--.."},
	{'/', "-..-."},

	{'=', "-...-"}, /* from ARRL */
	{'-', "-....-"},
	{')', "-.--.-"}, /* does not distinguish open/close */
	{':', "---..."},
	{';', "-.-.-."},
	{'"', ".-..-."},
	{'\'', ".----."},
	{'$', "...-..-"},

	{'!', "-.-.--"}, /* more from wikipedia */
	{'(', "-.--."},
	{'&', ".-..."},
	{'+', ".-.-."},
	{'_', "..--.-"},
	{'@', ".--.-."},
}

// LookupCharacter returns the dot/dash encoding for a character, folding
// lower case to upper.  The second result is false for space and anything
// else not in the table.
func LookupCharacter(ch rune) (string, bool) {
	if unicode.IsLower(ch) {
		ch = unicode.ToUpper(ch)
	}

	for _, m := range morseTable {
		if ch == m.ch {
			return m.enc, true
		}
	}

	return "", false
}

// CharacterIsValid reports whether EnqueueCharacter would accept ch.
func CharacterIsValid(ch rune) bool {
	if ch == ' ' {
		return true
	}
	var _, ok = LookupCharacter(ch)

	return ok
}

/*-------------------------------------------------------------------
 *
 * Name:        EnqueueCharacter
 *
 * Purpose:    	Queue the tones and spaces for one character.
 *
 * Inputs:	ch	- The character.  Space (or anything unknown)
 *			  queues an end-of-word space.
 *
 * Returns:	ErrQueueFull if the queue cannot take the whole character.
 *
 * Description:	The character is queued atomically from the caller's point
 *		of view only in the sense that the enqueues happen
 *		back-to-back; a full queue partway through leaves the
 *		already-queued marks in place.  Use EnqueueString for
 *		high-water-mark pacing.
 *
 *--------------------------------------------------------------------*/

func (gen *Generator) EnqueueCharacter(ch rune) error {
	var enc, ok = LookupCharacter(ch)
	if !ok {
		return gen.enqueueEOWSpace()
	}

	for _, e := range enc {
		var markErr error
		if e == '.' {
			markErr = gen.enqueueDot()
		} else {
			markErr = gen.enqueueDash()
		}
		if markErr != nil {
			return markErr
		}

		if spaceErr := gen.enqueueEOMSpace(); spaceErr != nil {
			return spaceErr
		}
	}

	return gen.enqueueEOCSpace()
}

/*-------------------------------------------------------------------
 *
 * Name:        EnqueueString
 *
 * Purpose:    	Queue the tones for a whole string, pacing against the
 *		queue's high water mark.
 *
 * Inputs:	str	- Text to send.
 *
 * Description:	Before each character, if the queue has reached its high
 *		water mark, block until it falls below.  With no generator
 *		running the wait cannot succeed, so a full queue is then
 *		reported as such instead.
 *
 *--------------------------------------------------------------------*/

func (gen *Generator) EnqueueString(str string) error {
	for _, ch := range str {
		if gen.tq.Len() >= gen.tq.HighWater() {
			if waitErr := gen.tq.WaitForLevel(gen.tq.HighWater() - 1); waitErr != nil {
				return fmt.Errorf("pacing %q: %w", ch, waitErr)
			}
		}

		if chErr := gen.EnqueueCharacter(ch); chErr != nil {
			return fmt.Errorf("enqueue %q: %w", ch, chErr)
		}
	}

	return nil
}
