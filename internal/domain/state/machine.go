// Package state provides a small status machine that dispatches one handler
// per status and keeps an audit trail of status transitions and of every
// write to its working state.
package state

import (
	"context"
	"fmt"
	"iter"
	"reflect"
	"time"
)

// Handler performs the work of one status. It is expected to call
// m.UpdateStatus before returning; a handler that never does so makes Run
// invoke it again on every step.
type Handler func(ctx context.Context, m *Machine) error

// Unreachable always fails. Map a status to it to mark a branch that must
// never be dispatched.
func Unreachable(ctx context.Context, m *Machine) error {
	return fmt.Errorf("%w (status: %s)", ErrUnreachable, m.Status())
}

// Logger receives step progress from Run
type Logger interface {
	Info(format string, args ...interface{})
}

// Option configures a Machine
type Option func(*Machine)

// WithLogger reports each step and its execution time to logger
func WithLogger(logger Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// Machine sequences handlers by status until End is reached
type Machine struct {
	status        Status
	handlers      map[Status]Handler
	statusHistory []Status
	state         *AuditedMap
	logger        Logger
}

// NewMachine creates a machine positioned at initial.
//
// initialState may be nil or any map with string keys; any other type is rejected
// with a ConfigurationError.
func NewMachine(initial Status, handlers map[Status]Handler, initialState any, opts ...Option) (*Machine, error) {
	seed, err := seedValues(initialState)
	if err != nil {
		return nil, err
	}

	for status, h := range handlers {
		if h == nil {
			return nil, &ConfigurationError{
				Field:   "handlers",
				Message: fmt.Sprintf("nil handler for status %q", status),
			}
		}
	}

	if _, ok := handlers[initial]; !ok && !initial.IsTerminal() {
		return nil, &ConfigurationError{
			Field:   "initial_status",
			Message: fmt.Sprintf("no handler for status %q", initial),
		}
	}

	table := make(map[Status]Handler, len(handlers))
	for status, h := range handlers {
		table[status] = h
	}

	m := &Machine{
		status:   initial,
		handlers: table,
		state:    NewAuditedMap(seed),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// seedValues converts initialState to Values. Any map keyed by a string type
// is accepted; values are copied as they are.
func seedValues(initialState any) (Values, error) {
	switch v := initialState.(type) {
	case nil:
		return nil, nil
	case Values:
		return v, nil
	}

	rv := reflect.ValueOf(initialState)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, &ConfigurationError{
			Field:   "initial_state",
			Message: fmt.Sprintf("must be a map with string keys, got %T", initialState),
		}
	}
	seed := make(Values, rv.Len())
	entries := rv.MapRange()
	for entries.Next() {
		seed[entries.Key().String()] = entries.Value().Interface()
	}
	return seed, nil
}

// Status returns the current status
func (m *Machine) Status() Status {
	return m.status
}

// StatusHistory returns the statuses left so far, oldest first
func (m *Machine) StatusHistory() []Status {
	out := make([]Status, len(m.statusHistory))
	copy(out, m.statusHistory)
	return out
}

// State returns the working state shared by handlers
func (m *Machine) State() *AuditedMap {
	return m.state
}

// StateHistory returns the working-state timeline, see AuditedMap.History
func (m *Machine) StateHistory() []Values {
	return m.state.History()
}

// UpdateStatus moves the machine to next. next must have a handler or be End;
// otherwise an UnknownStatusError is returned and nothing changes.
func (m *Machine) UpdateStatus(next Status) error {
	if _, ok := m.handlers[next]; !ok && !next.IsTerminal() {
		return &UnknownStatusError{Status: next}
	}
	m.statusHistory = append(m.statusHistory, m.status)
	m.status = next
	return nil
}

// Run returns a single-pass sequence that invokes the current handler on each
// pull and yields the live working state after it returns. The sequence ends
// at End. A handler error is yielded once with a nil state and ends the
// sequence; the error is passed through untouched.
func (m *Machine) Run(ctx context.Context) iter.Seq2[*AuditedMap, error] {
	return func(yield func(*AuditedMap, error) bool) {
		for !m.status.IsTerminal() {
			current := m.status
			handler, ok := m.handlers[current]
			if !ok {
				yield(nil, &UnknownStatusError{Status: current})
				return
			}

			m.logf("Current status: %s", current)
			start := time.Now()
			err := handler(ctx, m)
			m.logf("State execution time: %.2f seconds", time.Since(start).Seconds())

			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(m.state, nil) {
				return
			}
		}
	}
}

// RunToEnd drains Run and returns the number of completed steps together
// with the first handler error.
func (m *Machine) RunToEnd(ctx context.Context) (int, error) {
	steps := 0
	for _, err := range m.Run(ctx) {
		if err != nil {
			return steps, err
		}
		steps++
	}
	return steps, nil
}

func (m *Machine) logf(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Info(format, args...)
	}
}
