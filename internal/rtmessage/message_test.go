package rtmessage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmrealm/agentrt/internal/variant"
)

type fakeMessenger struct{ id string }

func (f fakeMessenger) MessengerID() string { return f.id }

type fakeReceiver struct{ initializing bool }

func (f fakeReceiver) Initializing() bool { return f.initializing }

func TestMessageIDsAreMonotonicAndNeverRecycle(t *testing.T) {
	a := NextMessageID()
	b := NextMessageID()
	assert.Greater(t, b, a)
}

func TestBuildOkProducesScheduledLifecycle(t *testing.T) {
	from := fakeMessenger{id: "agent-a"}
	to := fakeMessenger{id: "agent-b"}
	msg, result, err := Build("greet", from, to, Synchronous, 5, []variant.Variant{variant.String("hi")}, fakeReceiver{})
	require.NoError(t, err)
	assert.Equal(t, BuildOk, result)
	require.NotNil(t, msg)
	assert.Equal(t, StateBuild, msg.State)

	msg.MarkScheduled(10.0)
	assert.Equal(t, StateScheduled, msg.State)
	msg.MarkReady()
	assert.Equal(t, StateReady, msg.State)
	msg.MarkDispatched(10.0)
	assert.Equal(t, StateDispatched, msg.State)
	assert.Equal(t, 10.0, msg.ReceivedTime)

	msg.MarkCompleted(10.0, []variant.Variant{variant.Bool(true)})
	assert.Equal(t, StateCompleted, msg.State)
	assert.True(t, msg.IsTerminal())
}

func TestBuildReceiverNotReadyIsNotAnError(t *testing.T) {
	from := fakeMessenger{id: "agent-a"}
	to := fakeMessenger{id: "agent-b"}
	msg, result, err := Build("greet", from, to, Asynchronous, 0, nil, fakeReceiver{initializing: true})
	require.NoError(t, err)
	assert.Equal(t, BuildReceiverNotReady, result)
	assert.Nil(t, msg)
}

func TestBuildBadArgsOnEmptyFunctionName(t *testing.T) {
	to := fakeMessenger{id: "agent-b"}
	msg, result, err := Build("", nil, to, Decoupled, 0, nil, nil)
	require.Error(t, err)
	assert.Equal(t, BuildBadArgs, result)
	assert.Nil(t, msg)
}

func TestBuildBadArgsOnNilReceiver(t *testing.T) {
	msg, result, err := Build("greet", nil, nil, Decoupled, 0, nil, nil)
	require.Error(t, err)
	assert.Equal(t, BuildBadArgs, result)
	assert.Nil(t, msg)
}

func TestMessageCancellationMarksDead(t *testing.T) {
	to := fakeMessenger{id: "agent-b"}
	msg, _, err := Build("tick", nil, to, TimerMsg, 0, nil, nil)
	require.NoError(t, err)
	assert.False(t, msg.Dead())
	msg.MarkDead()
	assert.True(t, msg.Dead())
}
