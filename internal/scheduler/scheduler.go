package scheduler

import (
	"container/heap"
	"sync"
	"time"

	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/rtmessage"
	"github.com/vmrealm/agentrt/internal/variant"
)

// Receiver is the narrow surface the scheduler needs from a message's
// destination Messenger in order to decide dispatchability and to
// actually run the message step 5/7. No type in this runtime implements
// it outside the scheduler tests' test double.
type Receiver interface {
	MessengerID() string
	// Ready reports whether the receiver may accept a new message.
	Ready() bool
	// BusyOnMessage reports whether the receiver is Busy or
	// ReceivingCallback on exactly this message (a continuation).
	BusyOnMessage(msg *rtmessage.Message) bool
	// Finalizing reports whether the receiver is tearing down.
	Finalizing() bool
	// CanFinalize reports whether a Finalizing receiver's subprocesses
	// have drained enough to let it actually terminate.
	CanFinalize() bool
	// Dispatch runs msg against the receiver and returns the resulting
	// execution state plus any return values for a Completed result.
	Dispatch(msg *rtmessage.Message, now float64) (process.ExecutionState, []variant.Variant)
	// DeliverCallback is invoked on msg's sender once msg reaches a
	// terminal state, for Synchronous/Asynchronous call types. The
	// receiver implementation owns waking a suspended sender (setting
	// the sender's current_message.callback_message and waking its
	// scheduler) or enqueuing the async callback message on the
	// sender's own scheduler; this package only knows to call it at
	// the right point in the dispatch sequence, since cross-realm/
	// cross-scheduler addressing is internal/realm's concern.
	DeliverCallback(msg *rtmessage.Message)
}

// Updater is a Module-with-an-Update-contract entry in the updater
// multimap, ordered by Priority then SubPriority.
type Updater struct {
	Priority    int
	VMID        string
	SubPriority int
	Name        string
	Update      func(until float64) error
}

// Phase distinguishes the scheduler phase an Update call is running
// under (boot/update/finalize), mirrored onto realm lifecycle calls.
type Phase uint8

const (
	PhaseBoot Phase = iota
	PhaseUpdate
	PhaseFinalize
)

// Scheduler drives one Realm's simulated clock forward.
type Scheduler struct {
	mu sync.Mutex

	pending pendingQueue
	nextSeq uint64

	activeA []*rtmessage.Message
	activeB []*rtmessage.Message

	timers map[uint64]*rtmessage.Message

	updaters       []*Updater
	updaterCursor  int

	currentUpdateTime float64
	paused            bool

	// PreserveActiveMessagePriority names the B->A rollover re-queue
	// policy. Update does not consult it: whatever its value, yielded
	// messages are appended to A in FIFO order of their B position, the
	// default-off policy described in DESIGN.md.
	PreserveActiveMessagePriority bool

	timeOut time.Duration

	receivers map[string]Receiver
}

// New creates an empty Scheduler. timeOut bounds how long a single
// Update call may run its dispatch loop before yielding control back to
// the host ( step 2's wall-clock deadline).
func New(timeOut time.Duration) *Scheduler {
	return &Scheduler{
		timers:    make(map[uint64]*rtmessage.Message),
		receivers: make(map[string]Receiver),
		timeOut:   timeOut,
	}
}

// RegisterReceiver makes a Messenger addressable as a dispatch target.
func (s *Scheduler) RegisterReceiver(r Receiver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receivers[r.MessengerID()] = r
}

// UnregisterReceiver removes a previously registered receiver.
func (s *Scheduler) UnregisterReceiver(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.receivers, id)
}

// RegisterUpdater adds an Updater to the round-robin multimap.
func (s *Scheduler) RegisterUpdater(u *Updater) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updaters = append(s.updaters, u)
}

// Pause sets the scheduler's pause flag; while paused, Update is a
// no-op.
func (s *Scheduler) Pause(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
}

// Paused reports the current pause flag.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// CurrentUpdateTime returns the scheduler's monotonic simulated clock.
func (s *Scheduler) CurrentUpdateTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentUpdateTime
}

// Enqueue places msg in the pending priority queue at its effective
// scheduled time, which the caller must already have computed as
// max(requested, now+min_delay) send rule.
func (s *Scheduler) Enqueue(msg *rtmessage.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.MarkScheduled(msg.ScheduledTime)
	item := &pendingItem{msg: msg, seq: s.nextSeq}
	s.nextSeq++
	heap.Push(&s.pending, item)

	if msg.CallType == rtmessage.TimerMsg {
		s.timers[msg.ID] = msg
	}
}

// StopTimer cancels a timer message by id cancellation:
// removing it from the timer table and marking its message dead so the
// scheduler drops it when popped.
func (s *Scheduler) StopTimer(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := s.timers[id]; ok {
		msg.MarkDead()
		delete(s.timers, id)
	}
}

// PendingLen reports how many messages remain in the pending queue
// (test/introspection helper).
func (s *Scheduler) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// ActiveLen reports the current tick's active queue length.
func (s *Scheduler) ActiveLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeA)
}
