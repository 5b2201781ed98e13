//go:build windows

package main

import (
	"os"
)

// terminationSignals stop `automl serve`. Windows only delivers os.Interrupt (Ctrl+C).
var terminationSignals = []os.Signal{os.Interrupt}
