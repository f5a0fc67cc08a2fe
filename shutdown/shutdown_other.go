//go:build !windows

// Package shutdown subscribes a channel to the signals that should end a
// dictation session cleanly.
package shutdown

import (
	"os"
	"os/signal"
	"syscall"
)

func Notify(ch chan os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
}
