package adminhttp

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vmrealm/agentrt/internal/classifier"
)

// TraceHub fans a Logger's trace lines out to any number of websocket
// subscribers, each with its own Classifier filter. It attaches to an
// rtlog.Logger as a logrus.Hook, wiring cross-cutting observers in as
// logrus hooks rather than threading a broadcast channel through every
// log call site.
type TraceHub struct {
	mu   sync.Mutex
	subs map[int]*subscriber
	next int
}

type subscriber struct {
	filter *classifier.Set
	ch     chan string
}

// NewTraceHub builds an empty hub with no subscribers.
func NewTraceHub() *TraceHub {
	return &TraceHub{subs: make(map[int]*subscriber)}
}

// Levels implements logrus.Hook: the hub only cares about Debug (the
// level rtlog.Logger.Trace logs at) and Trace-level entries.
func (h *TraceHub) Levels() []logrus.Level {
	return []logrus.Level{logrus.DebugLevel, logrus.TraceLevel}
}

// Fire implements logrus.Hook, broadcasting the formatted entry to every
// subscriber whose filter intersects the entry's "labels" field, or to
// every subscriber when the entry carries no labels field at all.
func (h *TraceHub) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}

	var labels *classifier.Set
	if raw, ok := entry.Data["labels"]; ok {
		if s, ok := raw.(*classifier.Set); ok {
			labels = s
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if sub.filter != nil && labels != nil && !sub.filter.Intersects(labels) {
			continue
		}
		select {
		case sub.ch <- line:
		default:
			// slow subscriber drops the line rather than blocking the
			// logger; the websocket loop reads as fast as it writes.
		}
	}
	return nil
}

// Subscribe registers a new subscriber filtered by filter (nil matches
// everything) and returns its channel plus an unsubscribe func.
func (h *TraceHub) Subscribe(filter *classifier.Set) (<-chan string, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	sub := &subscriber{filter: filter, ch: make(chan string, 64)}
	h.subs[id] = sub

	unsub := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
		close(sub.ch)
	}
	return sub.ch, unsub
}
