//go:build windows

package main

import (
	"os"
)

// terminationSignals flush session memory before the process exits.
var terminationSignals = []os.Signal{os.Interrupt}
