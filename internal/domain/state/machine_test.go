package state

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	statusStart  Status = "start"
	statusMiddle Status = "middle"
)

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Info(format string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func twoStepHandlers() map[Status]Handler {
	return map[Status]Handler{
		statusStart: func(ctx context.Context, m *Machine) error {
			m.State().Set("x", 1)
			return m.UpdateStatus(statusMiddle)
		},
		statusMiddle: func(ctx context.Context, m *Machine) error {
			m.State().Set("y", 2)
			return m.UpdateStatus(End)
		},
		End: Unreachable,
	}
}

func TestNewMachine(t *testing.T) {
	noop := func(ctx context.Context, m *Machine) error { return nil }

	tests := []struct {
		name         string
		initial      Status
		handlers     map[Status]Handler
		initialState any
		wantErr      bool
		wantState    Values
	}{
		{
			name:      "nil initial state",
			initial:   statusStart,
			handlers:  map[Status]Handler{statusStart: noop},
			wantState: Values{},
		},
		{
			name:         "map initial state",
			initial:      statusStart,
			handlers:     map[Status]Handler{statusStart: noop},
			initialState: map[string]any{"seed": "value"},
			wantState:    Values{"seed": "value"},
		},
		{
			name:         "string initial state",
			initial:      statusStart,
			handlers:     map[Status]Handler{statusStart: noop},
			initialState: "not a mapping",
			wantErr:      true,
		},
		{
			name:         "typed map with string keys",
			initial:      statusStart,
			handlers:     map[Status]Handler{statusStart: noop},
			initialState: map[string]string{"a": "b"},
			wantState:    Values{"a": "b"},
		},
		{
			name:         "map keyed by a named string type",
			initial:      statusStart,
			handlers:     map[Status]Handler{statusStart: noop},
			initialState: map[Status]int{statusStart: 1},
			wantState:    Values{string(statusStart): 1},
		},
		{
			name:         "map with non-string keys",
			initial:      statusStart,
			handlers:     map[Status]Handler{statusStart: noop},
			initialState: map[int]string{1: "a"},
			wantErr:      true,
		},
		{
			name:         "slice initial state",
			initial:      statusStart,
			handlers:     map[Status]Handler{statusStart: noop},
			initialState: []string{"a"},
			wantErr:      true,
		},
		{
			name:     "initial status without handler",
			initial:  "nowhere",
			handlers: map[Status]Handler{statusStart: noop},
			wantErr:  true,
		},
		{
			name:     "nil handler",
			initial:  statusStart,
			handlers: map[Status]Handler{statusStart: nil},
			wantErr:  true,
		},
		{
			name:      "starting at end needs no handler",
			initial:   End,
			handlers:  map[Status]Handler{},
			wantState: Values{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMachine(tt.initial, tt.handlers, tt.initialState)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsConfigurationError(err))
				var cfgErr *ConfigurationError
				assert.True(t, errors.As(err, &cfgErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.initial, m.Status())
			assert.Empty(t, m.StatusHistory())
			assert.Equal(t, tt.wantState, m.State().Snapshot())
		})
	}
}

func TestMachine_UpdateStatus(t *testing.T) {
	m, err := NewMachine(statusStart, twoStepHandlers(), nil)
	require.NoError(t, err)

	require.NoError(t, m.UpdateStatus(statusMiddle))
	require.NoError(t, m.UpdateStatus(statusStart))
	require.NoError(t, m.UpdateStatus(statusMiddle))

	assert.Equal(t, statusMiddle, m.Status())
	assert.Equal(t, []Status{statusStart, statusMiddle, statusStart}, m.StatusHistory())
}

func TestMachine_UpdateStatus_Unknown(t *testing.T) {
	m, err := NewMachine(statusStart, twoStepHandlers(), nil)
	require.NoError(t, err)
	require.NoError(t, m.UpdateStatus(statusMiddle))

	err = m.UpdateStatus("bogus")
	require.Error(t, err)
	assert.True(t, IsUnknownStatus(err))

	var unknown *UnknownStatusError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, Status("bogus"), unknown.Status)

	assert.Equal(t, statusMiddle, m.Status())
	assert.Equal(t, []Status{statusStart}, m.StatusHistory())
}

func TestMachine_UpdateStatus_EndWithoutHandler(t *testing.T) {
	noop := func(ctx context.Context, m *Machine) error { return nil }
	m, err := NewMachine(statusStart, map[Status]Handler{statusStart: noop}, nil)
	require.NoError(t, err)

	require.NoError(t, m.UpdateStatus(End))
	assert.True(t, m.Status().IsTerminal())
}

func TestMachine_Run_TwoSteps(t *testing.T) {
	m, err := NewMachine(statusStart, twoStepHandlers(), nil)
	require.NoError(t, err)

	var yielded []Values
	for st, err := range m.Run(context.Background()) {
		require.NoError(t, err)
		yielded = append(yielded, st.Snapshot())
	}

	require.Len(t, yielded, 2)
	assert.Equal(t, Values{"x": 1}, yielded[0])
	assert.Equal(t, Values{"x": 1, "y": 2}, yielded[1])
	assert.Equal(t, Values{"x": 1, "y": 2}, m.State().Snapshot())
	assert.Equal(t, []Status{statusStart, statusMiddle}, m.StatusHistory())
	assert.Equal(t, End, m.Status())

	assert.Equal(t, []Values{{}, {"x": 1}, {"x": 1, "y": 2}}, m.StateHistory())
}

func TestMachine_Run_AtEndYieldsNothing(t *testing.T) {
	m, err := NewMachine(statusStart, twoStepHandlers(), nil)
	require.NoError(t, err)

	steps, err := m.RunToEnd(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, steps)

	again, err := m.RunToEnd(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, again)
}

func TestMachine_Run_IsLazy(t *testing.T) {
	calls := 0
	handlers := map[Status]Handler{
		statusStart: func(ctx context.Context, m *Machine) error {
			calls++
			return m.UpdateStatus(statusMiddle)
		},
		statusMiddle: func(ctx context.Context, m *Machine) error {
			calls++
			return m.UpdateStatus(End)
		},
	}
	m, err := NewMachine(statusStart, handlers, nil)
	require.NoError(t, err)

	seq := m.Run(context.Background())
	assert.Equal(t, 0, calls)

	for range seq {
		break
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, statusMiddle, m.Status())
}

func TestMachine_Run_HandlerThatNeverTransitions(t *testing.T) {
	handlers := map[Status]Handler{
		statusStart: func(ctx context.Context, m *Machine) error {
			m.State().Set("count", m.State().GetInt("count")+1)
			return nil
		},
	}
	m, err := NewMachine(statusStart, handlers, nil)
	require.NoError(t, err)

	const pulls = 5
	n := 0
	for st, err := range m.Run(context.Background()) {
		require.NoError(t, err)
		assert.Equal(t, statusStart, m.Status())
		n++
		assert.Equal(t, n, st.GetInt("count"))
		if n == pulls {
			break
		}
	}

	assert.Equal(t, pulls, n)
	assert.Empty(t, m.StatusHistory())
}

func TestMachine_Run_HandlerErrorStopsSequence(t *testing.T) {
	boom := errors.New("boom")
	handlers := map[Status]Handler{
		statusStart: func(ctx context.Context, m *Machine) error {
			m.State().Set("x", 1)
			return m.UpdateStatus(statusMiddle)
		},
		statusMiddle: func(ctx context.Context, m *Machine) error {
			m.State().Set("y", 2)
			return boom
		},
	}
	m, err := NewMachine(statusStart, handlers, nil)
	require.NoError(t, err)

	var errs []error
	steps := 0
	for st, err := range m.Run(context.Background()) {
		if err != nil {
			assert.Nil(t, st)
			errs = append(errs, err)
			continue
		}
		steps++
	}

	require.Len(t, errs, 1)
	assert.Same(t, boom, errs[0])
	assert.Equal(t, 1, steps)

	assert.Equal(t, []Status{statusStart}, m.StatusHistory())
	assert.Equal(t, Values{"x": 1, "y": 2}, m.State().Snapshot())
	assert.Len(t, m.StateHistory(), 3)
}

func TestMachine_Run_UnreachableHandlerFailsLoudly(t *testing.T) {
	handlers := map[Status]Handler{
		statusStart: func(ctx context.Context, m *Machine) error {
			return m.UpdateStatus(statusMiddle)
		},
		statusMiddle: Unreachable,
	}
	m, err := NewMachine(statusStart, handlers, nil)
	require.NoError(t, err)

	steps, err := m.RunToEnd(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.Equal(t, 1, steps)
}

func TestMachine_Run_HandlerTransitionToUnknownStatus(t *testing.T) {
	handlers := map[Status]Handler{
		statusStart: func(ctx context.Context, m *Machine) error {
			return m.UpdateStatus("bogus")
		},
	}
	m, err := NewMachine(statusStart, handlers, nil)
	require.NoError(t, err)

	_, err = m.RunToEnd(context.Background())
	assert.True(t, IsUnknownStatus(err))
	assert.Equal(t, statusStart, m.Status())
}

func TestMachine_Run_PassesContextToHandlers(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "marker")

	var seen any
	handlers := map[Status]Handler{
		statusStart: func(ctx context.Context, m *Machine) error {
			seen = ctx.Value(ctxKey{})
			return m.UpdateStatus(End)
		},
	}
	m, err := NewMachine(statusStart, handlers, nil)
	require.NoError(t, err)

	_, err = m.RunToEnd(ctx)
	require.NoError(t, err)
	assert.Equal(t, "marker", seen)
}

func TestMachine_WithLogger(t *testing.T) {
	logger := &recordingLogger{}
	m, err := NewMachine(statusStart, twoStepHandlers(), nil, WithLogger(logger))
	require.NoError(t, err)

	_, err = m.RunToEnd(context.Background())
	require.NoError(t, err)

	require.Len(t, logger.lines, 4)
	assert.Equal(t, "Current status: start", logger.lines[0])
	assert.Contains(t, logger.lines[1], "State execution time:")
	assert.Equal(t, "Current status: middle", logger.lines[2])
}
