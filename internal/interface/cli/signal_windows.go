//go:build windows

package cli

import "os"

// interruptSignals returns the signals that interrupt a streaming completion
func interruptSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
