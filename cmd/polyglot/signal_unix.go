//go:build !windows

package main

import (
	"os"
	"syscall"
)

// terminationSignals flush session memory before the process exits.
var terminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
