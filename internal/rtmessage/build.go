package rtmessage

import (
	"github.com/vmrealm/agentrt/internal/rterrors"
	"github.com/vmrealm/agentrt/internal/variant"
)

// ReceiverState is the minimal state a Build check needs from the
// receiving Messenger, kept narrow to avoid rtmessage depending on
// internal/process for the full Process type.
type ReceiverState interface {
	// Initializing reports whether the receiver is still inside its
	// init barrier ("Sending to a receiver in Initializing
	// returns false (not error)").
	Initializing() bool
}

// Build assembles a Message from the caller-supplied arguments and
// evaluates the construction contract , returning the
// outcome alongside the (possibly nil) message. A BuildReceiverNotReady
// outcome is not an error: the caller should simply not enqueue.
func Build(functionName string, from, to Messenger, callType CallType, priority int, args []variant.Variant, receiver ReceiverState) (*Message, BuildResult, error) {
	if functionName == "" {
		return nil, BuildBadArgs, rterrors.MessageBadArgs(functionName, "empty function name")
	}
	if to == nil {
		return nil, BuildBadArgs, rterrors.MessageBadArgs(functionName, "nil receiver")
	}
	if receiver != nil && receiver.Initializing() {
		return nil, BuildReceiverNotReady, nil
	}

	m := New(functionName, from, to, callType, priority)
	m.Arguments = make([]variant.Variant, len(args))
	copy(m.Arguments, args)
	return m, BuildOk, nil
}
