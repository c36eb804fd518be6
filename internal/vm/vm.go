// Package vm implements the VM aggregate: one master
// Process plus a keyed collection of slave Processes, a process-
// activation stack, and the uninitialized-count initialization barrier.
// It is grounded on the host sandbox manager (system/sandbox/manager.go,
// system/sandbox/ipc.go), which owns a keyed collection of sandboxed
// service contexts and routes calls between them; generalized here from
// "services in a sandbox" to "processes in a VM".
package vm

import (
	"fmt"
	"sync"

	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/rterrors"
	"github.com/vmrealm/agentrt/internal/rtmetrics"
)

// VM is the aggregate owning one master Process and a keyed collection
// of slave Processes.
type VM struct {
	mu sync.Mutex

	id     string
	master *process.Process
	slaves map[string]*process.Process

	uninitializedCount int

	activationStack []*process.Process
}

// New creates a VM with master already attached (the master is always
// present at construction: a VM is spawned with at least
// its master Process).
func New(id string, master *process.Process) *VM {
	v := &VM{
		id:     id,
		master: master,
		slaves: make(map[string]*process.Process),
	}
	v.uninitializedCount++
	return v
}

// VMID implements process.VMHandle.
func (v *VM) VMID() string { return v.id }

// Master returns the VM's master Process.
func (v *VM) Master() *process.Process {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.master
}

// SpawnSlave registers a new slave Process, incrementing the
// initialization barrier ("incremented when a new Process
// is spawned").
func (v *VM) SpawnSlave(p *process.Process) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists := v.slaves[p.ID]; exists {
		return fmt.Errorf("slave process %q already exists in vm %q", p.ID, v.id)
	}
	v.slaves[p.ID] = p
	v.uninitializedCount++
	return nil
}

// Slave returns the slave Process registered under id, or nil.
func (v *VM) Slave(id string) *process.Process {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.slaves[id]
}

// Slaves returns every slave Process, in no particular order.
func (v *VM) Slaves() []*process.Process {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]*process.Process, 0, len(v.slaves))
	for _, p := range v.slaves {
		out = append(out, p)
	}
	return out
}

// CompleteInit decrements the initialization barrier; called when a
// spawned process's init message completes ("decremented
// when its init message completes").
func (v *VM) CompleteInit() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.uninitializedCount > 0 {
		v.uninitializedCount--
	}
}

// IsInitialized reports whether every spawned process has completed
// its init message.
func (v *VM) IsInitialized() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.uninitializedCount == 0
}

// AssureIntegrity verifies no dangling slave references exist once the
// VM is initialized; a no-op while still initializing. When
// maxMemPercent is greater than zero, it also reads live host memory
// usage via rtmetrics.ReadHostStats and refuses the VM if usage exceeds
// the threshold, the resource-pressure half of the integrity check; a
// zero threshold disables that half and only checks dangling
// references.
func (v *VM) AssureIntegrity(maxMemPercent float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.uninitializedCount > 0 {
		return nil
	}
	if v.master == nil {
		return rterrors.IntegrityDangling("vm has no master process")
	}
	for id, p := range v.slaves {
		if p == nil {
			return rterrors.IntegrityDangling(fmt.Sprintf("slave %q is nil", id))
		}
	}
	if maxMemPercent > 0 {
		stats, err := rtmetrics.ReadHostStats()
		if err != nil {
			return rterrors.Wrap(rterrors.ErrCodeIntegrityResourcePressure, "reading host stats for integrity check", err)
		}
		if stats.MemUsedPct > maxMemPercent {
			return rterrors.IntegrityResourcePressure(fmt.Sprintf("vm %q refused: host memory at %.1f%% exceeds %.1f%% threshold", v.id, stats.MemUsedPct, maxMemPercent))
		}
	}
	return nil
}

// CanFinalize reports whether the VM may be destroyed: every slave
// process must have terminated.
func (v *VM) CanFinalize() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range v.slaves {
		if p.State() != process.StateTerminate && p.State() != process.StateCompleted {
			return false
		}
	}
	return true
}

// RemoveSlave drops a terminated slave from the VM's collection.
func (v *VM) RemoveSlave(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.slaves, id)
}

// PushActive pushes p onto the process-activation stack, restoring the
// correct "active process" when a script callback invoked while p runs
// itself sends a message VM description.
func (v *VM) PushActive(p *process.Process) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.activationStack = append(v.activationStack, p)
}

// PopActive pops the most recently pushed active process.
func (v *VM) PopActive() *process.Process {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := len(v.activationStack)
	if n == 0 {
		return nil
	}
	p := v.activationStack[n-1]
	v.activationStack = v.activationStack[:n-1]
	return p
}

// ActiveProcess returns the top of the process-activation stack, or the
// master Process if the stack is empty.
func (v *VM) ActiveProcess() *process.Process {
	v.mu.Lock()
	defer v.mu.Unlock()
	if n := len(v.activationStack); n > 0 {
		return v.activationStack[n-1]
	}
	return v.master
}
