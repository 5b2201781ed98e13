//go:build !windows

package main

import (
	"os"
	"syscall"
)

// terminationSignals stop `automl serve`: in-flight pipeline runs get the shutdown grace
// period to finish. Process managers (systemd, kubernetes) send SIGTERM.
var terminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
