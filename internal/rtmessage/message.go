// Package rtmessage implements the reified RPC/event unit described in
// Message, its call types, and its lifecycle state machine.
// It is grounded on the host event layer's dispatch/filter/handler split
// (system/events/dispatcher.go, system/events/router.go), generalized
// from "blockchain contract events routed to handlers" to "typed
// messages routed between Messengers through a per-realm scheduler".
package rtmessage

import (
	"sync/atomic"

	"github.com/vmrealm/agentrt/internal/variant"
)

// Messenger is the common interface of anything that can send/receive
// messages: a VM (forwards to its master Process), a Process, or a
// script-level Object.
type Messenger interface {
	// MessengerID returns a stable identity string used for logging and
	// for matching callback targets.
	MessengerID() string
}

// CallType distinguishes the five message delivery semantics .
type CallType uint8

const (
	Synchronous CallType = iota
	Asynchronous
	Decoupled
	TimerMsg
	UpdateMsg
)

func (c CallType) String() string {
	switch c {
	case Synchronous:
		return "synchronous"
	case Asynchronous:
		return "asynchronous"
	case Decoupled:
		return "decoupled"
	case TimerMsg:
		return "timer"
	case UpdateMsg:
		return "update"
	default:
		return "unknown"
	}
}

// State is the message lifecycle FSM state of the diagram.
type State uint8

const (
	StateBuild State = iota
	StateScheduled
	StateReady
	StateDispatched
	StateYielded
	StateTimedOut
	StateCompleted
	StateFailed
	StateError
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateBuild:
		return "build"
	case StateScheduled:
		return "scheduled"
	case StateReady:
		return "ready"
	case StateDispatched:
		return "dispatched"
	case StateYielded:
		return "yielded"
	case StateTimedOut:
		return "timed_out"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateError:
		return "error"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// BuildResult is the outcome of assembling a Message from the sending
// script engine's live stack construction contract.
type BuildResult uint8

const (
	BuildOk BuildResult = iota
	BuildBadArgs
	BuildReceiverNotReady
)

var nextMessageID uint64

// NextMessageID hands out a process-wide, monotonically increasing
// message id. It never recycles, matching the "id (monotonic)".
func NextMessageID() uint64 {
	return atomic.AddUint64(&nextMessageID, 1)
}

// Message is the reified RPC/event unit .
type Message struct {
	ID                   uint64
	FunctionName         string
	From                 Messenger
	To                   Messenger
	Arguments            []variant.Variant
	ReturnValues         []variant.Variant
	CallType             CallType
	Priority             int
	ScheduledTime        float64
	ReceivedTime         float64
	CompletedTime        float64
	RepeatTimer          float64
	DestroyOnCompletion  bool
	CallbackFunction     string
	CallbackMessage      *Message
	Deletable            bool

	State State
	dead  bool
}

// New builds a Message in the Build state. Build wraps New with the
// construction checks; callers then call MarkScheduled to move the
// message to Scheduled.
func New(functionName string, from, to Messenger, callType CallType, priority int) *Message {
	return &Message{
		ID:           NextMessageID(),
		FunctionName: functionName,
		From:         from,
		To:           to,
		CallType:     callType,
		Priority:     priority,
		State:        StateBuild,
		Deletable:    true,
	}
}

// MarkScheduled transitions Build -> Scheduled with the effective
// scheduled time already computed by the caller (the
// max(requested, now+min_delay) rule lives in the scheduler, not here,
// since it needs the realm's current time).
func (m *Message) MarkScheduled(scheduledTime float64) {
	m.ScheduledTime = scheduledTime
	m.State = StateScheduled
}

// MarkReady transitions Scheduled -> Ready once the delay has elapsed.
func (m *Message) MarkReady() {
	m.State = StateReady
}

// MarkDispatched transitions Ready -> Dispatched and records the
// dispatch time invariant that receivedTime equals the
// scheduler's current_update_time at dispatch.
func (m *Message) MarkDispatched(receivedTime float64) {
	m.ReceivedTime = receivedTime
	m.State = StateDispatched
}

// MarkYielded transitions Dispatched -> Yielded (receiver suspended
// mid-call, to be retried next update).
func (m *Message) MarkYielded() {
	m.State = StateYielded
}

// MarkTimedOut transitions Dispatched -> TimedOut (engine instruction
// counter exceeded its ceiling mid-call).
func (m *Message) MarkTimedOut() {
	m.State = StateTimedOut
}

// MarkCompleted transitions Dispatched -> Completed and records the
// completion time.
func (m *Message) MarkCompleted(completedTime float64, returnValues []variant.Variant) {
	m.CompletedTime = completedTime
	m.ReturnValues = returnValues
	m.State = StateCompleted
}

// MarkFailed transitions Dispatched -> Failed.
func (m *Message) MarkFailed(completedTime float64) {
	m.CompletedTime = completedTime
	m.State = StateFailed
}

// MarkError transitions Dispatched -> Error (an unrecoverable engine
// fault, distinct from a script-level Failed result).
func (m *Message) MarkError(completedTime float64) {
	m.CompletedTime = completedTime
	m.State = StateError
}

// Destroy transitions any terminal state to Destroyed. By ownership
// convention, a message is destroyed when its lifecycle completes
// and DestroyOnCompletion is set; otherwise the sender is responsible.
func (m *Message) Destroy() {
	m.State = StateDestroyed
}

// IsTerminal reports whether m has reached a state from which it can
// only be destroyed or requeued, never dispatched again in place.
func (m *Message) IsTerminal() bool {
	switch m.State {
	case StateCompleted, StateFailed, StateError, StateDestroyed:
		return true
	default:
		return false
	}
}

// MarkDead flags the message as cancelled ( cancellation: "mark
// its message dead; the scheduler drops dead messages when it pops
// them").
func (m *Message) MarkDead() {
	m.dead = true
}

// Dead reports whether the message has been cancelled.
func (m *Message) Dead() bool {
	return m.dead
}
