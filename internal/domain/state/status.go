package state

// Status names one phase of a Machine
type Status string

// End is the terminal status. It never dispatches a handler and a machine
// that reaches it cannot leave it.
const End Status = "end"

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the status is the terminal marker
func (s Status) IsTerminal() bool {
	return s == End
}
