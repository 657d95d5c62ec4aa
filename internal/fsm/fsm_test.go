package fsm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type state string
type event string

const (
	stateOff state = "off"
	stateOn  state = "on"

	eventFlip event = "flip"
)

func TestFireAppliesValidTransition(t *testing.T) {
	m, err := New(stateOff, []Transition[state, event]{
		{From: stateOff, Event: eventFlip, To: stateOn},
		{From: stateOn, Event: eventFlip, To: stateOff},
	})
	require.NoError(t, err)

	got, err := m.Fire(context.Background(), eventFlip)
	require.NoError(t, err)
	require.Equal(t, stateOn, got)
	require.Equal(t, stateOn, m.State())
}

func TestFireRejectsUnknownTransition(t *testing.T) {
	m, err := New(stateOff, []Transition[state, event]{
		{From: stateOff, Event: eventFlip, To: stateOn},
	})
	require.NoError(t, err)

	_, err = m.Fire(context.Background(), event("bogus"))
	require.Error(t, err)
	require.Equal(t, stateOff, m.State())
}

func TestGuardRejectionLeavesStateUnchanged(t *testing.T) {
	m, err := New(stateOff, []Transition[state, event]{
		{From: stateOff, Event: eventFlip, To: stateOn, Guard: func(ctx context.Context, from state, e event) error {
			return errGuardFailed
		}},
	})
	require.NoError(t, err)

	_, err = m.Fire(context.Background(), eventFlip)
	require.ErrorIs(t, err, errGuardFailed)
	require.Equal(t, stateOff, m.State())
}

func TestNewRejectsDuplicateTransitions(t *testing.T) {
	_, err := New(stateOff, []Transition[state, event]{
		{From: stateOff, Event: eventFlip, To: stateOn},
		{From: stateOff, Event: eventFlip, To: stateOff},
	})
	require.Error(t, err)
}

var errGuardFailed = errGuard{}

type errGuard struct{}

func (errGuard) Error() string { return "guard failed" }
