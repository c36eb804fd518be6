package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/rtmessage"
	"github.com/vmrealm/agentrt/internal/variant"
)

type fakeMessenger struct{ id string }

func (f fakeMessenger) MessengerID() string { return f.id }

// fakeReceiver is a scripted Receiver: Dispatch pops its canned result
// queue, defaulting to Completed.
type fakeReceiver struct {
	id           string
	ready        bool
	finalizing   bool
	canFinalize  bool
	results      []process.ExecutionState
	dispatched   []*rtmessage.Message
	callbacksGot []*rtmessage.Message
}

func (f *fakeReceiver) MessengerID() string { return f.id }
func (f *fakeReceiver) Ready() bool         { return f.ready }
func (f *fakeReceiver) BusyOnMessage(msg *rtmessage.Message) bool { return false }
func (f *fakeReceiver) Finalizing() bool    { return f.finalizing }
func (f *fakeReceiver) CanFinalize() bool   { return f.canFinalize }

func (f *fakeReceiver) Dispatch(msg *rtmessage.Message, now float64) (process.ExecutionState, []variant.Variant) {
	f.dispatched = append(f.dispatched, msg)
	state := process.ExecCompleted
	if len(f.results) > 0 {
		state = f.results[0]
		f.results = f.results[1:]
	}
	return state, nil
}

func (f *fakeReceiver) DeliverCallback(msg *rtmessage.Message) {
	f.callbacksGot = append(f.callbacksGot, msg)
}

func buildMsg(t *testing.T, name string, from, to rtmessage.Messenger, callType rtmessage.CallType, priority int, scheduledTime float64) *rtmessage.Message {
	t.Helper()
	msg := rtmessage.New(name, from, to, callType, priority)
	msg.ScheduledTime = scheduledTime
	return msg
}

func TestSchedulerDrainsPendingAndDispatches(t *testing.T) {
	s := New(time.Second)
	to := &fakeReceiver{id: "agent-b", ready: true}
	s.RegisterReceiver(to)

	msg := buildMsg(t, "greet", fakeMessenger{id: "agent-a"}, fakeMessenger{id: "agent-b"}, rtmessage.Decoupled, 0, 0)
	s.Enqueue(msg)

	s.Update(1.0, PhaseUpdate)

	require.Len(t, to.dispatched, 1)
	assert.Equal(t, rtmessage.StateCompleted, msg.State)
	assert.Equal(t, 1.0, s.CurrentUpdateTime())
}

func TestSchedulerHonorsPriorityOrdering(t *testing.T) {
	s := New(time.Second)
	to := &fakeReceiver{id: "agent-b", ready: true}
	s.RegisterReceiver(to)

	low := buildMsg(t, "low", nil, fakeMessenger{id: "agent-b"}, rtmessage.Decoupled, 1, 0)
	high := buildMsg(t, "high", nil, fakeMessenger{id: "agent-b"}, rtmessage.Decoupled, 10, 0)
	s.Enqueue(low)
	s.Enqueue(high)

	s.Update(0, PhaseUpdate)

	require.Len(t, to.dispatched, 2)
	assert.Equal(t, "high", to.dispatched[0].FunctionName)
	assert.Equal(t, "low", to.dispatched[1].FunctionName)
}

func TestSchedulerFIFOAmongEqualTimeAndPriority(t *testing.T) {
	s := New(time.Second)
	to := &fakeReceiver{id: "agent-b", ready: true}
	s.RegisterReceiver(to)

	first := buildMsg(t, "first", nil, fakeMessenger{id: "agent-b"}, rtmessage.Decoupled, 5, 0)
	second := buildMsg(t, "second", nil, fakeMessenger{id: "agent-b"}, rtmessage.Decoupled, 5, 0)
	s.Enqueue(first)
	s.Enqueue(second)

	s.Update(0, PhaseUpdate)

	require.Len(t, to.dispatched, 2)
	assert.Equal(t, "first", to.dispatched[0].FunctionName)
	assert.Equal(t, "second", to.dispatched[1].FunctionName)
}

func TestSchedulerYieldedMessageRetriesNextUpdate(t *testing.T) {
	s := New(time.Second)
	to := &fakeReceiver{id: "agent-b", ready: true, results: []process.ExecutionState{process.ExecYielded, process.ExecCompleted}}
	s.RegisterReceiver(to)

	msg := buildMsg(t, "slow", nil, fakeMessenger{id: "agent-b"}, rtmessage.Decoupled, 0, 0)
	s.Enqueue(msg)

	s.Update(0, PhaseUpdate)
	assert.Equal(t, rtmessage.StateYielded, msg.State)
	require.Len(t, to.dispatched, 1)

	s.Update(1, PhaseUpdate)
	assert.Equal(t, rtmessage.StateCompleted, msg.State)
	require.Len(t, to.dispatched, 2)
}

func TestSchedulerPausedIsNoOp(t *testing.T) {
	s := New(time.Second)
	to := &fakeReceiver{id: "agent-b", ready: true}
	s.RegisterReceiver(to)

	msg := buildMsg(t, "greet", nil, fakeMessenger{id: "agent-b"}, rtmessage.Decoupled, 0, 0)
	s.Enqueue(msg)
	s.Pause(true)

	s.Update(5, PhaseUpdate)
	assert.Empty(t, to.dispatched)
	assert.Equal(t, 0.0, s.CurrentUpdateTime())
}

func TestSchedulerTimerRequeuesWithRepeatInterval(t *testing.T) {
	s := New(time.Second)
	to := &fakeReceiver{id: "agent-b", ready: true}
	s.RegisterReceiver(to)

	msg := buildMsg(t, "tick", nil, fakeMessenger{id: "agent-b"}, rtmessage.TimerMsg, 0, 0)
	msg.RepeatTimer = 5
	s.Enqueue(msg)

	s.Update(0, PhaseUpdate)
	require.Len(t, to.dispatched, 1)
	assert.Equal(t, 1, s.PendingLen())

	s.Update(5, PhaseUpdate)
	require.Len(t, to.dispatched, 2)
}

func TestSchedulerStopTimerPreventsFurtherFiring(t *testing.T) {
	s := New(time.Second)
	to := &fakeReceiver{id: "agent-b", ready: true}
	s.RegisterReceiver(to)

	msg := buildMsg(t, "tick", nil, fakeMessenger{id: "agent-b"}, rtmessage.TimerMsg, 0, 0)
	msg.RepeatTimer = 5
	s.Enqueue(msg)
	s.StopTimer(msg.ID)

	s.Update(0, PhaseUpdate)
	assert.Empty(t, to.dispatched)
}

func TestSchedulerSynchronousCompletionDeliversCallback(t *testing.T) {
	s := New(time.Second)
	sender := &fakeReceiver{id: "agent-a", ready: true}
	receiver := &fakeReceiver{id: "agent-b", ready: true}
	s.RegisterReceiver(sender)
	s.RegisterReceiver(receiver)

	msg := buildMsg(t, "ask", fakeMessenger{id: "agent-a"}, fakeMessenger{id: "agent-b"}, rtmessage.Synchronous, 0, 0)
	s.Enqueue(msg)

	s.Update(0, PhaseUpdate)
	require.Len(t, sender.callbacksGot, 1)
	assert.Same(t, msg, sender.callbacksGot[0])
}

func TestSchedulerNotReadyReceiverIsSkipped(t *testing.T) {
	s := New(time.Second)
	to := &fakeReceiver{id: "agent-b", ready: false}
	s.RegisterReceiver(to)

	msg := buildMsg(t, "greet", nil, fakeMessenger{id: "agent-b"}, rtmessage.Decoupled, 0, 0)
	s.Enqueue(msg)

	s.Update(0, PhaseUpdate)
	assert.Empty(t, to.dispatched)
	assert.Equal(t, 1, s.ActiveLen())
}

func TestSchedulerUpdaterRoundRobinAdvancesOncePerCall(t *testing.T) {
	s := New(time.Second)
	var calls []string
	s.RegisterUpdater(&Updater{Name: "a", Update: func(until float64) error {
		calls = append(calls, "a")
		return nil
	}})
	s.RegisterUpdater(&Updater{Name: "b", Update: func(until float64) error {
		calls = append(calls, "b")
		return nil
	}})

	s.Update(0, PhaseUpdate)
	s.Update(0, PhaseUpdate)
	s.Update(0, PhaseUpdate)

	assert.Equal(t, []string{"a", "b", "a"}, calls)
}
