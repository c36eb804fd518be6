package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmrealm/agentrt/internal/process"
)

func newTestVM(id string) (*VM, *process.Process) {
	v := &VM{id: id, slaves: make(map[string]*process.Process)}
	master := process.New("master", process.PrivMaster, process.ImplEngine, v)
	v.master = master
	v.uninitializedCount = 1
	return v, master
}

func TestVMStartsUninitializedUntilBarrierClears(t *testing.T) {
	v, _ := newTestVM("vm-1")
	assert.False(t, v.IsInitialized())
	v.CompleteInit()
	assert.True(t, v.IsInitialized())
}

func TestVMSpawnSlaveIncrementsBarrier(t *testing.T) {
	v, _ := newTestVM("vm-1")
	v.CompleteInit()
	require.True(t, v.IsInitialized())

	slave := process.New("slave-1", process.PrivSlave, process.ImplEngine, v)
	require.NoError(t, v.SpawnSlave(slave))
	assert.False(t, v.IsInitialized())

	v.CompleteInit()
	assert.True(t, v.IsInitialized())
	assert.Same(t, slave, v.Slave("slave-1"))
}

func TestVMSpawnSlaveRejectsDuplicateID(t *testing.T) {
	v, _ := newTestVM("vm-1")
	slave := process.New("slave-1", process.PrivSlave, process.ImplEngine, v)
	require.NoError(t, v.SpawnSlave(slave))
	assert.Error(t, v.SpawnSlave(slave))
}

func TestVMAssureIntegrityNoOpWhileUninitialized(t *testing.T) {
	v, _ := newTestVM("vm-1")
	assert.NoError(t, v.AssureIntegrity(0))
}

func TestVMAssureIntegrityAfterInit(t *testing.T) {
	v, _ := newTestVM("vm-1")
	v.CompleteInit()
	assert.NoError(t, v.AssureIntegrity(0))
}

func TestVMCanFinalizeRequiresAllSlavesTerminated(t *testing.T) {
	v, _ := newTestVM("vm-1")
	slave := process.New("slave-1", process.PrivSlave, process.ImplEngine, v)
	require.NoError(t, v.SpawnSlave(slave))
	slave.SetState(process.StateReady)
	assert.False(t, v.CanFinalize())

	slave.TerminateProcess()
	assert.True(t, v.CanFinalize())
}

func TestVMActivationStack(t *testing.T) {
	v, master := newTestVM("vm-1")
	assert.Same(t, master, v.ActiveProcess())

	slave := process.New("slave-1", process.PrivSlave, process.ImplEngine, v)
	v.PushActive(slave)
	assert.Same(t, slave, v.ActiveProcess())

	popped := v.PopActive()
	assert.Same(t, slave, popped)
	assert.Same(t, master, v.ActiveProcess())
}
