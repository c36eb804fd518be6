package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/registry"
	"github.com/vmrealm/agentrt/internal/variant"
)

type fakeVM struct{ id string }

func (v *fakeVM) VMID() string { return v.id }

func TestRegistryDispatchesByImplementation(t *testing.T) {
	r := NewRegistry()
	goja := NewGojaEngine(registry.New())
	r.Register(process.ImplEngine, goja)
	r.Register(process.ImplLua, &UnsupportedEngine{Language: "Lua"})

	got, err := r.For(process.ImplEngine)
	require.NoError(t, err)
	assert.Same(t, goja, got)

	_, err = r.For(process.ImplPython)
	assert.Error(t, err)
}

func TestGojaEngineLoadCallAndLog(t *testing.T) {
	e := NewGojaEngine(registry.New())
	p := process.New("p1", process.PrivBasic, process.ImplEngine, &fakeVM{id: "vm1"})

	script := `
		function shhMain(x) {
			console.log("booted");
			return x + 1;
		}
	`
	require.NoError(t, e.Load(context.Background(), p, script))
	assert.True(t, e.HasFunction(p, EntryMain))
	assert.False(t, e.HasFunction(p, "missing"))

	results, err := e.Call(context.Background(), p, EntryMain, []variant.Variant{variant.Long(41)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(42), results[0].AsInt64())
	assert.Equal(t, []string{"booted"}, e.Logs(p))

	e.Unload(p)
	_, err = e.Call(context.Background(), p, EntryMain, nil)
	assert.Error(t, err)
}

func TestGojaEngineMissingFunctionErrors(t *testing.T) {
	e := NewGojaEngine(registry.New())
	p := process.New("p2", process.PrivBasic, process.ImplEngine, &fakeVM{id: "vm1"})
	require.NoError(t, e.Load(context.Background(), p, `var x = 1;`))

	_, err := e.Call(context.Background(), p, EntryInitialize, nil)
	assert.Error(t, err)
}

func TestGojaEngineBindsRegisteredModuleFunctions(t *testing.T) {
	reg := registry.New()
	mod, err := reg.RegisterModule("shh")
	require.NoError(t, err)
	require.NoError(t, mod.AddFunction("Double", []registry.TypeID{variant.Long(0).TypeID()}, func(args []registry.Value) ([]registry.Value, error) {
		n := args[0].(variant.Variant).AsInt64()
		return []registry.Value{variant.Long(n * 2)}, nil
	}))

	e := NewGojaEngine(reg)
	p := process.New("p4", process.PrivBasic, process.ImplEngine, &fakeVM{id: "vm1"})
	p.RegisterModule("shh")

	require.NoError(t, e.Load(context.Background(), p, `function shhMain(x) { return shh.Double(x); }`))
	results, err := e.Call(context.Background(), p, EntryMain, []variant.Variant{variant.Long(21)})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(42), results[0].AsInt64())
}

func TestUnsupportedEngineAlwaysErrors(t *testing.T) {
	e := &UnsupportedEngine{Language: "Python"}
	p := process.New("p3", process.PrivBasic, process.ImplPython, &fakeVM{id: "vm1"})

	assert.Error(t, e.Load(context.Background(), p, "print(1)"))
	_, err := e.Call(context.Background(), p, "main", nil)
	assert.Error(t, err)
	assert.False(t, e.HasFunction(p, "main"))
}
