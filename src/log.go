package cwtone

import (
	"os"

	"github.com/charmbracelet/log"
)

// Package logger.  Quiet by default; applications that want to see what the
// generator thread is doing can raise the level with SetLogLevel.
var logger = log.NewWithOptions(os.Stderr, log.Options{
	Prefix: "cwtone",
	Level:  log.WarnLevel,
})

// SetLogLevel adjusts the verbosity of the package logger.
func SetLogLevel(level log.Level) {
	logger.SetLevel(level)
}
