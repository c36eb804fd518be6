package process

import (
	"sync"

	"github.com/vmrealm/agentrt/internal/rtmessage"
)

// Implementation identifies which embedded script engine backs a
// Process "Implementation tag (Engine, Lua, Python, …)".
type Implementation string

const (
	ImplEngine Implementation = "engine"
	ImplLua    Implementation = "lua"
	ImplPython Implementation = "python"
)

// State is the Process FSM state .
type State uint8

const (
	StateReady State = iota
	StateBusy
	StateAwaitingCallback
	StateReceivingCallback
	StateCompleted
	StateFailed
	StateError
	StateTerminate
	StateInitializing
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateAwaitingCallback:
		return "awaiting_callback"
	case StateReceivingCallback:
		return "receiving_callback"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateError:
		return "error"
	case StateTerminate:
		return "terminate"
	case StateInitializing:
		return "initializing"
	default:
		return "unknown"
	}
}

// ExecutionState is what a message handler returns to the scheduler,
// execution-state enum, a superset of the process FSM
// states that also includes transient scheduler-facing outcomes.
type ExecutionState uint8

const (
	ExecOk ExecutionState = iota
	ExecScheduled
	ExecCompleted
	ExecYielded
	ExecTimedOut
	ExecBusy
	ExecAwaitingCallback
	ExecReceivingCallback
	ExecFailed
	ExecError
	ExecTerminate
	ExecContinue
)

// Environment is the narrow view of an Environment a Process needs: its
// own identity, for scope-resolution and logging. The full Environment
// (Scheduler + VM + ClassManagers + config Dictionary) lives in
// internal/realm; process depends only on this interface to avoid an
// import cycle (realm depends on process, not the reverse).
type Environment interface {
	EnvironmentName() string
}

// VMHandle is the narrow view of a VM a Process needs: enough to look
// itself up as master or slave without process importing internal/vm.
type VMHandle interface {
	VMID() string
}

// Process is the scripting/execution context: one Privileges bitmask,
// Implementation tag, and FSM state per running script instance.
type Process struct {
	mu sync.Mutex

	ID             string
	Privileges     Privileges
	Implementation Implementation

	VM VMHandle

	CurrentEnvironment Environment
	HomeEnvironment    Environment

	state State

	CurrentMessage *rtmessage.Message

	InstructionCounter uint64
	InstructionLimit   uint64
	TimeoutCounter     uint32

	ScriptPaths []string

	modules []string
}

// New creates a Process in Initializing state; the VM clears it to Ready
// once its init message completes (the uninitialized_count
// barrier, tracked at the VM level).
func New(id string, privileges Privileges, impl Implementation, vm VMHandle) *Process {
	return &Process{
		ID:             id,
		Privileges:     privileges,
		Implementation: impl,
		VM:             vm,
		state:          StateInitializing,
	}
}

// MessengerID implements rtmessage.Messenger.
func (p *Process) MessengerID() string { return p.ID }

// Initializing implements rtmessage.ReceiverState: the "sending
// to a receiver in Initializing returns false (not error)".
func (p *Process) Initializing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state == StateInitializing
}

// State returns the current FSM state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SetState sets the FSM state directly; used by the VM/Scheduler which
// own the transition rules (a Process never drives its own state machine
// in isolation: "driven by Messages and by the scheduler").
func (p *Process) SetState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

// RegisterModule records that name has been bound into this process via
// Registry.RegisterModuleInProcess.
func (p *Process) RegisterModule(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range p.modules {
		if m == name {
			return
		}
	}
	p.modules = append(p.modules, name)
}

// Modules lists the modules registered in this process.
func (p *Process) Modules() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.modules))
	copy(out, p.modules)
	return out
}

// GetPrivileges returns the privilege bitmask by value; see DESIGN.md's
// Open Question decision — Privileges is read-only after construction,
// so a by-value return cannot be used to mutate it from script code.
func (p *Process) GetPrivileges() Privileges {
	return p.Privileges
}

// TerminateProcess requests an orderly stop; the engine
// finalises on its next quantum rather than being stopped immediately.
func (p *Process) TerminateProcess() {
	p.SetState(StateTerminate)
}

// CheckInstructionLimit increments the instruction counter and reports
// whether the Process has exceeded InstructionLimit (0 = unlimited),
// the only true preemption point.
func (p *Process) CheckInstructionLimit() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.InstructionCounter++
	if p.InstructionLimit == 0 {
		return false
	}
	return p.InstructionCounter > p.InstructionLimit
}
