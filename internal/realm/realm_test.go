package realm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/scheduler"
	"github.com/vmrealm/agentrt/internal/variant"
	"github.com/vmrealm/agentrt/internal/vm"
)

func newTestVM(id string) *vm.VM {
	master := process.New(id+"-master", process.PrivMaster, process.ImplEngine, nil)
	v := vm.New(id, master)
	master.VM = v
	v.CompleteInit()
	return v
}

func newTestEnvironment(name string, global *Environment) *Environment {
	return NewEnvironment(name, scheduler.New(time.Second), newTestVM(name), global)
}

func TestEnvironmentScopeResolutionPrecedence(t *testing.T) {
	global := newTestEnvironment("global", nil)
	local := newTestEnvironment("local", global)

	SetMeta("color", variant.String("meta-color"))
	assert.Equal(t, "meta-color", local.Resolve("color", variant.Nil()).AsString())

	global.SetGlobal("color", variant.String("global-color"))
	assert.Equal(t, "global-color", local.Resolve("color", variant.Nil()).AsString())

	local.SetLocal("color", variant.String("local-color"))
	assert.Equal(t, "local-color", local.Resolve("color", variant.Nil()).AsString())
}

func TestRealmReadsBootAndUpdateScriptConfig(t *testing.T) {
	env := newTestEnvironment("r1", nil)
	config := variant.NewDictionary()
	config.Set(variant.StringKey(ConfigBootScript), variant.String("boot.js"))
	config.Set(variant.StringKey(ConfigUpdateScript), variant.String("update.js"))

	r := NewRealm(env, process.PrivWorld, config)
	assert.Equal(t, "boot.js", r.BootScriptPath)
	assert.Equal(t, "update.js", r.UpdateScriptPath)
}

func TestRealmPauseMirrorsToScheduler(t *testing.T) {
	env := newTestEnvironment("r2", nil)
	r := NewRealm(env, process.PrivWorld, nil)

	r.Pause(true)
	assert.True(t, r.Scheduler.Paused())
	r.Pause(false)
	assert.False(t, r.Scheduler.Paused())
}

func TestRealmBootInvokesEntryPointOnlyWhenConfigured(t *testing.T) {
	env := newTestEnvironment("r3", nil)
	r := NewRealm(env, process.PrivWorld, nil)

	called := false
	require.NoError(t, r.Boot(func(string, *variant.Dictionary) error {
		called = true
		return nil
	}))
	assert.False(t, called)

	config := variant.NewDictionary()
	config.Set(variant.StringKey(ConfigBootScript), variant.String("boot.js"))
	r2 := NewRealm(newTestEnvironment("r4", nil), process.PrivWorld, config)
	require.NoError(t, r2.Boot(func(path string, _ *variant.Dictionary) error {
		called = true
		assert.Equal(t, "boot.js", path)
		return nil
	}))
	assert.True(t, called)
}

func TestGodCreateWorldMergesTemplateConfig(t *testing.T) {
	templateEnv := newTestEnvironment("template", nil)
	config := variant.NewDictionary()
	config.Set(variant.StringKey(ConfigBootScript), variant.String("boot.js"))
	template := NewRealm(templateEnv, process.PrivWorld, config)

	god := NewGod("god", newTestEnvironment("god", nil), nil, nil)

	overrides := variant.NewDictionary()
	overrides.Set(variant.StringKey("extra"), variant.Int(7))

	w, err := god.CreateWorld("world-1", template, scheduler.New(time.Second),
		func(t *vm.VM, newID string) (*vm.VM, error) {
			return newTestVM(newID), nil
		}, overrides)
	require.NoError(t, err)
	assert.Equal(t, "template", w.TemplateName)
	assert.Equal(t, "boot.js", w.BootScriptPath)
	assert.Equal(t, int64(7), w.GetLocal("extra", variant.Nil()).AsInt64())

	_, err = god.CreateWorld("world-1", template, scheduler.New(time.Second),
		func(t *vm.VM, newID string) (*vm.VM, error) { return newTestVM(newID), nil }, nil)
	assert.Error(t, err)
}
