/* Send text as Morse code audio */
package main

import (
	cwtone "github.com/cwtone/cwtone/src"
)

func main() {
	cwtone.CwSendMain()
}
