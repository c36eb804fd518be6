package hostapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmrealm/agentrt/internal/classmgr"
	"github.com/vmrealm/agentrt/internal/engine"
	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/realm"
	"github.com/vmrealm/agentrt/internal/registry"
	"github.com/vmrealm/agentrt/internal/rterrors"
	"github.com/vmrealm/agentrt/internal/schema"
	"github.com/vmrealm/agentrt/internal/scheduler"
	"github.com/vmrealm/agentrt/internal/variant"
	"github.com/vmrealm/agentrt/internal/vm"
)

func newTestEnvironment(t *testing.T, privileges process.Privileges) (*realm.Environment, *process.Process) {
	t.Helper()
	master := process.New("master", privileges, process.ImplEngine, nil)
	v := vm.New("test-vm", master)
	master.VM = v
	v.CompleteInit()
	sched := scheduler.New(0)
	env := realm.NewEnvironment("test", sched, v, nil)
	master.CurrentEnvironment = env
	master.HomeEnvironment = env
	return env, master
}

func TestShhExecuteStringDeniesBasicPrivileges(t *testing.T) {
	reg := registry.New()
	require.NoError(t, RegisterAll(reg, Hooks{Engines: engine.NewRegistry()}))

	_, p := newTestEnvironment(t, process.PrivBasic)
	unbind := p.BindCurrent()
	defer unbind()

	mod := reg.GetModule("shh")
	require.NotNil(t, mod)
	fn, err := mod.Function("ExecuteString").Resolve([]registry.TypeID{tidString}, nil, nil)
	require.NoError(t, err)

	_, callErr := fn([]registry.Value{variant.String("1+1")})
	require.Error(t, callErr)
	rtErr, ok := callErr.(*rterrors.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, rterrors.ErrCodePrivilegeDenied, rtErr.Code)
}

func TestShhExecuteStringAllowsMasterPrivileges(t *testing.T) {
	reg := registry.New()
	engines := engine.NewRegistry()
	fake := &fakeEngine{result: []variant.Variant{variant.Long(2)}}
	engines.Register(process.ImplEngine, fake)
	require.NoError(t, RegisterAll(reg, Hooks{Engines: engines}))

	_, p := newTestEnvironment(t, process.PrivMaster)
	unbind := p.BindCurrent()
	defer unbind()

	mod := reg.GetModule("shh")
	fn, err := mod.Function("ExecuteString").Resolve([]registry.TypeID{tidString}, nil, nil)
	require.NoError(t, err)

	results, callErr := fn([]registry.Value{variant.String("1+1")})
	require.NoError(t, callErr)
	require.Len(t, results, 1)
	assert.Equal(t, int64(2), asVariant(results[0]).AsInt64())
}

func TestObjectCreateBuildsNodeBackingAndEnforcesPrivilege(t *testing.T) {
	reg := registry.New()
	engines := engine.NewRegistry()
	require.NoError(t, RegisterAll(reg, Hooks{Engines: engines}))

	env, p := newTestEnvironment(t, process.PrivAgent)
	cm := classmgr.NewClassManager("Node", process.PrivAgent, p)
	cm.InstallHierarchy(map[string]*classmgr.Class{
		"Widget": {Name: "Widget", TypeName: "Node"},
	})
	env.AddClassManager(cm)

	unbind := p.BindCurrent()
	defer unbind()

	mod := reg.GetModule("Object")
	fn, err := mod.Function("Create").Resolve([]registry.TypeID{tidString, tidString, tidString}, nil, nil)
	require.NoError(t, err)

	results, callErr := fn([]registry.Value{variant.String("Node"), variant.String("Widget"), variant.String("n1")})
	require.NoError(t, callErr)
	require.Len(t, results, 1)
	assert.Equal(t, "n1", asVariant(results[0]).AsString())

	obj := cm.GetObject("n1")
	require.NotNil(t, obj)
	require.True(t, obj.IsValid())
	_, isNode := obj.Backing.(*schema.Node)
	assert.True(t, isNode)
}

func TestObjectCreateDeniedForInsufficientPrivilege(t *testing.T) {
	reg := registry.New()
	require.NoError(t, RegisterAll(reg, Hooks{Engines: engine.NewRegistry()}))

	env, p := newTestEnvironment(t, process.PrivBasic)
	cm := classmgr.NewClassManager("Node", process.PrivAgent, p)
	cm.InstallHierarchy(map[string]*classmgr.Class{
		"Widget": {Name: "Widget", TypeName: "Node"},
	})
	env.AddClassManager(cm)

	unbind := p.BindCurrent()
	defer unbind()

	mod := reg.GetModule("Object")
	fn, err := mod.Function("Create").Resolve([]registry.TypeID{tidString, tidString, tidString}, nil, nil)
	require.NoError(t, err)

	_, callErr := fn([]registry.Value{variant.String("Node"), variant.String("Widget"), variant.String("n1")})
	require.Error(t, callErr)
	assert.Nil(t, cm.GetObject("n1"))
}

func TestNodeInterfacesCreateEdgeWithoutChildErrors(t *testing.T) {
	reg := registry.New()
	require.NoError(t, RegisterAll(reg, Hooks{Engines: engine.NewRegistry()}))

	env, p := newTestEnvironment(t, process.PrivAgent)
	cm := classmgr.NewClassManager("Node", process.PrivAgent, p)
	cm.InstallHierarchy(map[string]*classmgr.Class{
		"Widget": {Name: "Widget", TypeName: "Node"},
	})
	env.AddClassManager(cm)

	unbind := p.BindCurrent()
	defer unbind()

	_, _, err := cm.CreateObject("Widget", p.GetPrivileges(), "n1", p, nil, func(obj *classmgr.Object, _ []variant.Variant) error {
		obj.Backing = schema.NewNode("n1")
		return nil
	})
	require.NoError(t, err)

	outMod := reg.GetModule("Node")
	createOut, err := outMod.Function("CreateOutputInterface").Resolve([]registry.TypeID{tidString, tidString, tidLong}, nil, nil)
	require.NoError(t, err)
	_, callErr := createOut([]registry.Value{variant.String("n1"), variant.String("out"), variant.Long(2)})
	require.NoError(t, callErr)

	writeOut, err := outMod.Function("WriteOutput").Resolve([]registry.TypeID{tidString, tidString, tidDict}, nil, nil)
	require.NoError(t, err)
	vals := variant.NewDictionary()
	vals.Append(variant.Double(1.5))
	vals.Append(variant.Double(2.5))
	_, callErr = writeOut([]registry.Value{variant.String("n1"), variant.String("out"), variant.FromDictionary(vals)})
	require.NoError(t, callErr)

	createIn, err := outMod.Function("CreateInputInterface").Resolve([]registry.TypeID{tidString, tidString, tidLong}, nil, nil)
	require.NoError(t, err)
	_, callErr = createIn([]registry.Value{variant.String("n1"), variant.String("in"), variant.Long(2)})
	require.NoError(t, callErr)

	createEdge, err := outMod.Function("CreateEdge").Resolve([]registry.TypeID{tidString, tidLong, tidString, tidString}, nil, nil)
	require.NoError(t, err)
	_, callErr = createEdge([]registry.Value{variant.String("n1"), variant.Long(0), variant.String("out"), variant.String("in")})
	assert.Error(t, callErr)
}

func TestClassifierSetRoundTrips(t *testing.T) {
	reg := registry.New()
	require.NoError(t, RegisterAll(reg, Hooks{Engines: engine.NewRegistry()}))

	_, p := newTestEnvironment(t, process.PrivBasic)
	unbind := p.BindCurrent()
	defer unbind()

	mod := reg.GetModule("Classifier")
	newFn, err := mod.Function("New").Resolve(nil, nil, nil)
	require.NoError(t, err)
	results, callErr := newFn(nil)
	require.NoError(t, callErr)
	handle := asVariant(results[0]).AsString()

	addFn, err := mod.Function("Add").Resolve([]registry.TypeID{tidString, tidString}, nil, nil)
	require.NoError(t, err)
	_, callErr = addFn([]registry.Value{variant.String(handle), variant.String("combat")})
	require.NoError(t, callErr)

	hasFn, err := mod.Function("Has").Resolve([]registry.TypeID{tidString, tidString}, nil, nil)
	require.NoError(t, err)
	results, callErr = hasFn([]registry.Value{variant.String(handle), variant.String("combat")})
	require.NoError(t, callErr)
	assert.True(t, asVariant(results[0]).AsBool())
}

// fakeEngine is a minimal ScriptEngine stub for testing shh functions
// that need to reach an engine without depending on goja.
type fakeEngine struct {
	result []variant.Variant
}

func (f *fakeEngine) Load(_ context.Context, _ *process.Process, _ string) error {
	return nil
}

func (f *fakeEngine) Call(_ context.Context, _ *process.Process, _ string, _ []variant.Variant) ([]variant.Variant, error) {
	return f.result, nil
}

func (f *fakeEngine) HasFunction(_ *process.Process, _ string) bool { return false }

func (f *fakeEngine) Eval(_ context.Context, _ *process.Process, _ string) ([]variant.Variant, error) {
	return f.result, nil
}

func (f *fakeEngine) Unload(_ *process.Process) {}
