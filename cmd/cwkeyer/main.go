/* Iambic keyer with audio sidetone */
package main

import (
	cwtone "github.com/cwtone/cwtone/src"
)

func main() {
	cwtone.CwKeyerMain()
}
