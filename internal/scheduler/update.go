package scheduler

import (
	"container/heap"
	"time"

	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/rtmessage"
	"github.com/vmrealm/agentrt/internal/variant"
)

// Update drives the realm's simulated clock forward to until, running
// the eight-step main loop . A paused scheduler short-
// circuits to a no-op.
func (s *Scheduler) Update(until float64, phase Phase) {
	s.mu.Lock()
	if s.paused {
		s.mu.Unlock()
		return
	}
	deadline := time.Now().Add(s.timeOut)

	// Step 1: drain pending queue into A for t <= until.
	for s.pending.Len() > 0 && s.pending[0].msg.ScheduledTime <= until {
		item := heap.Pop(&s.pending).(*pendingItem)
		if item.msg.Dead() {
			continue
		}
		item.msg.MarkReady()
		s.activeA = append(s.activeA, item.msg)
	}
	s.currentUpdateTime = until
	s.mu.Unlock()

	// Step 4 (run once, before the A loop below): advance one updater
	// per call via the round-robin cursor, resuming where the previous
	// Update call stopped.
	s.runUpdaters(until)

	for {
		if s.timeOut > 0 && time.Now().After(deadline) {
			// Step 8: wall-clock deadline reached; leave the remainder
			// of A for the next Update call.
			break
		}

		s.mu.Lock()
		idx := s.nextDispatchableLocked()
		if idx < 0 {
			s.mu.Unlock()
			break
		}
		msg := s.activeA[idx]
		s.activeA = append(s.activeA[:idx], s.activeA[idx+1:]...)
		receiver := s.receivers[msg.To.MessengerID()]
		s.mu.Unlock()

		if receiver == nil {
			continue
		}

		msg.MarkDispatched(until)
		state, returnValues := receiver.Dispatch(msg, until)
		s.handleDispatchResult(msg, state, returnValues, until)
	}

	s.mu.Lock()
	// Step 8 rollover: what remains in B becomes the next tick's A.
	s.activeA = append(s.activeA, s.activeB...)
	s.activeB = nil
	s.mu.Unlock()
}

// nextDispatchableLocked finds the index of the next dispatchable
// message in A step 5/6. Must be called with s.mu held.
func (s *Scheduler) nextDispatchableLocked() int {
	for i, msg := range s.activeA {
		if msg.Dead() {
			return i
		}
		receiver, ok := s.receivers[msg.To.MessengerID()]
		if !ok {
			continue
		}
		if receiver.Finalizing() {
			if receiver.CanFinalize() {
				return i
			}
			continue
		}
		if receiver.Ready() || receiver.BusyOnMessage(msg) {
			return i
		}
	}
	return -1
}

func (s *Scheduler) runUpdaters(until float64) {
	s.mu.Lock()
	if len(s.updaters) == 0 {
		s.mu.Unlock()
		return
	}
	idx := s.updaterCursor % len(s.updaters)
	u := s.updaters[idx]
	s.updaterCursor = (idx + 1) % len(s.updaters)
	s.mu.Unlock()

	if u.Update != nil {
		_ = u.Update(until)
	}
}

// handleDispatchResult interprets a receiver's returned execution state
// step 7 and drives the message's next transition.
func (s *Scheduler) handleDispatchResult(msg *rtmessage.Message, state process.ExecutionState, returnValues []variant.Variant, until float64) {
	switch state {
	case process.ExecYielded, process.ExecTimedOut:
		if state == process.ExecYielded {
			msg.MarkYielded()
		} else {
			msg.MarkTimedOut()
		}
		if msg.CallType != rtmessage.UpdateMsg {
			s.mu.Lock()
			s.activeB = append(s.activeB, msg)
			s.mu.Unlock()
		}
		return

	case process.ExecCompleted:
		msg.MarkCompleted(until, returnValues)
	case process.ExecFailed:
		msg.MarkFailed(until)
	case process.ExecError:
		msg.MarkError(until)
	default:
		return
	}

	switch msg.CallType {
	case rtmessage.TimerMsg:
		s.requeueTimer(msg, until)
	case rtmessage.Synchronous, rtmessage.Asynchronous:
		if msg.From != nil {
			s.mu.Lock()
			sender, ok := s.receivers[msg.From.MessengerID()]
			s.mu.Unlock()
			if ok {
				sender.DeliverCallback(msg)
			}
		}
	}

	if msg.DestroyOnCompletion {
		msg.Destroy()
	}
}

func (s *Scheduler) requeueTimer(msg *rtmessage.Message, until float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, stillArmed := s.timers[msg.ID]; !stillArmed {
		return
	}
	next := until
	if msg.RepeatTimer > 0 {
		next = until + msg.RepeatTimer
	}
	msg.ScheduledTime = next
	msg.State = rtmessage.StateScheduled
	item := &pendingItem{msg: msg, seq: s.nextSeq}
	s.nextSeq++
	heap.Push(&s.pending, item)
}
