package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dop251/goja"

	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/registry"
	"github.com/vmrealm/agentrt/internal/variant"
)

// GojaEngine runs Process.Implementation == process.ImplEngine scripts
// on a pure-Go JavaScript runtime, one goja.Runtime per Process for
// isolation, mirroring the host TEE layer's gojaScriptEngine
// (system/tee/script_engine.go) creating a fresh goja.Runtime per
// Execute call for the same reason.
type GojaEngine struct {
	mu       sync.Mutex
	runtimes map[string]*goja.Runtime
	logs     map[string][]string
	reg      *registry.Registry
}

// NewGojaEngine builds a GojaEngine that binds script-facing module
// functions (shh, Environment, System, ...) out of reg. reg may be nil
// for tests that never call a process with registered modules.
func NewGojaEngine(reg *registry.Registry) *GojaEngine {
	return &GojaEngine{
		runtimes: make(map[string]*goja.Runtime),
		logs:     make(map[string][]string),
		reg:      reg,
	}
}

// numericTypeIDs collects the TypeID every numeric Variant kind reports,
// used by numericResolver to let goja's single untyped JS number stand
// in for whichever numeric overload a native module registered.
var numericTypeIDs = map[registry.TypeID]bool{
	variant.Byte(0).TypeID():   true,
	variant.Short(0).TypeID():  true,
	variant.UShort(0).TypeID(): true,
	variant.Int(0).TypeID():    true,
	variant.UInt(0).TypeID():   true,
	variant.Long(0).TypeID():   true,
	variant.ULong(0).TypeID():  true,
	variant.Int64(0).TypeID():  true,
	variant.Float(0).TypeID():  true,
	variant.Double(0).TypeID(): true,
	variant.Char(0).TypeID():   true,
}

// numericResolver implements registry.SharedTypeResolver, treating any
// two numeric Variant kinds as mutually acceptable: goja's Export()
// returns int64 for integral JS numbers and float64 otherwise, and a
// script author has no way to pick which Go numeric kind a native
// module registered its overload under.
type numericResolver struct{}

func (numericResolver) Acceptable(declared, actual registry.TypeID) bool {
	return numericTypeIDs[declared] && numericTypeIDs[actual]
}

// Load compiles scriptSource into a fresh runtime bound to p's process
// id, wiring a console.log that appends to that process's log buffer
// the same way a script-engine adapter captures logs per execution.
func (e *GojaEngine) Load(ctx context.Context, p *process.Process, scriptSource string) error {
	rt := goja.New()

	console := rt.NewObject()
	_ = console.Set("log", func(call goja.FunctionCall) goja.Value {
		e.mu.Lock()
		for _, arg := range call.Arguments {
			e.logs[p.ID] = append(e.logs[p.ID], arg.String())
		}
		e.mu.Unlock()
		return goja.Undefined()
	})
	if err := rt.Set("console", console); err != nil {
		return fmt.Errorf("binding console for process %q: %w", p.ID, err)
	}

	for _, name := range p.Modules() {
		if err := e.bindModuleFunctions(rt, p, name); err != nil {
			return err
		}
	}

	if _, err := rt.RunString(scriptSource); err != nil {
		return fmt.Errorf("loading script for process %q: %w", p.ID, err)
	}

	e.mu.Lock()
	e.runtimes[p.ID] = rt
	e.mu.Unlock()
	return nil
}

// bindModuleFunctions installs moduleName's registered functions as a
// global JS object (e.g. `shh.SendMsg(...)`), each one resolving its
// overload against the converted argument types and running with p
// bound as the current process so the native side can reach it via
// process.Current().
func (e *GojaEngine) bindModuleFunctions(rt *goja.Runtime, p *process.Process, moduleName string) error {
	if e.reg == nil {
		return fmt.Errorf("goja engine has no registry bound, cannot bind module %q", moduleName)
	}
	mod := e.reg.GetModule(moduleName)
	if mod == nil {
		return fmt.Errorf("module %q is not registered", moduleName)
	}

	ns := rt.NewObject()
	for _, fnName := range mod.FunctionNames() {
		boundName := fnName
		boundTable := mod.Function(fnName)
		jsFn := func(call goja.FunctionCall) goja.Value {
			args := make([]variant.Variant, len(call.Arguments))
			argTypes := make([]registry.TypeID, len(call.Arguments))
			for i, a := range call.Arguments {
				v, err := nativeToVariant(a.Export())
				if err != nil {
					panic(rt.NewGoError(fmt.Errorf("converting argument %d of %s.%s: %w", i, moduleName, boundName, err)))
				}
				args[i] = v
				argTypes[i] = v.TypeID()
			}

			callable, err := boundTable.Resolve(argTypes, numericResolver{}, e.reg.GetTypeName)
			if err != nil {
				panic(rt.NewGoError(err))
			}

			values := make([]registry.Value, len(args))
			for i := range args {
				values[i] = args[i]
			}

			unbind := p.BindCurrent()
			results, callErr := callable(values)
			unbind()
			if callErr != nil {
				panic(rt.NewGoError(callErr))
			}
			if len(results) == 0 {
				return goja.Undefined()
			}
			rv, ok := results[0].(variant.Variant)
			if !ok {
				return goja.Undefined()
			}
			return rt.ToValue(variantToNative(rv))
		}
		if err := ns.Set(boundName, jsFn); err != nil {
			return fmt.Errorf("binding %s.%s: %w", moduleName, boundName, err)
		}
	}
	return rt.Set(moduleName, ns)
}

// Eval compiles and immediately runs source inside p's already-loaded
// runtime.
func (e *GojaEngine) Eval(ctx context.Context, p *process.Process, source string) ([]variant.Variant, error) {
	e.mu.Lock()
	rt, ok := e.runtimes[p.ID]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("process %q has no loaded runtime", p.ID)
	}

	result, err := rt.RunString(source)
	if err != nil {
		return nil, fmt.Errorf("evaluating script in process %q: %w", p.ID, err)
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, nil
	}
	v, err := nativeToVariant(result.Export())
	if err != nil {
		return nil, fmt.Errorf("converting eval result in process %q: %w", p.ID, err)
	}
	return []variant.Variant{v}, nil
}

// Call invokes functionName inside p's loaded runtime, converting args
// to goja values and the JS return value back to Variants via the
// Dictionary JSON bridge, the same round-trip strategy a script-engine
// adapter commonly falls back to for complex objects.
func (e *GojaEngine) Call(ctx context.Context, p *process.Process, functionName string, args []variant.Variant) ([]variant.Variant, error) {
	e.mu.Lock()
	rt, ok := e.runtimes[p.ID]
	e.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("process %q has no loaded runtime", p.ID)
	}

	fn, ok := goja.AssertFunction(rt.Get(functionName))
	if !ok {
		return nil, fmt.Errorf("%q is not a function in process %q's runtime", functionName, p.ID)
	}

	jsArgs := make([]goja.Value, len(args))
	for i, a := range args {
		jsArgs[i] = rt.ToValue(variantToNative(a))
	}

	result, err := fn(goja.Undefined(), jsArgs...)
	if err != nil {
		return nil, fmt.Errorf("calling %q in process %q: %w", functionName, p.ID, err)
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, nil
	}

	v, err := nativeToVariant(result.Export())
	if err != nil {
		return nil, fmt.Errorf("converting result of %q in process %q: %w", functionName, p.ID, err)
	}
	return []variant.Variant{v}, nil
}

// HasFunction reports whether functionName resolves to a callable in
// p's loaded runtime.
func (e *GojaEngine) HasFunction(p *process.Process, functionName string) bool {
	e.mu.Lock()
	rt, ok := e.runtimes[p.ID]
	e.mu.Unlock()
	if !ok {
		return false
	}
	_, callable := goja.AssertFunction(rt.Get(functionName))
	return callable
}

// Unload drops the runtime and log buffer bound to p.
func (e *GojaEngine) Unload(p *process.Process) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.runtimes, p.ID)
	delete(e.logs, p.ID)
}

// Logs returns the accumulated console.log lines for p, in call order.
func (e *GojaEngine) Logs(p *process.Process) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.logs[p.ID]))
	copy(out, e.logs[p.ID])
	return out
}

func variantToNative(v variant.Variant) any {
	if v.IsNil() {
		return nil
	}
	if v.IsDictionary() {
		native, err := v.AsDictionary().ToJSON()
		if err != nil {
			return nil
		}
		var out any
		if json.Unmarshal(native, &out) == nil {
			return out
		}
		return nil
	}
	switch v.Kind() {
	case variant.KindBool:
		return v.AsBool()
	case variant.KindString, variant.KindChar:
		return v.AsString()
	case variant.KindFloat, variant.KindDouble:
		return v.AsFloat64()
	default:
		return v.AsInt64()
	}
}

func nativeToVariant(exported any) (variant.Variant, error) {
	switch t := exported.(type) {
	case nil:
		return variant.Nil(), nil
	case bool:
		return variant.Bool(t), nil
	case string:
		return variant.String(t), nil
	case int64:
		return variant.Long(t), nil
	case float64:
		return variant.Double(t), nil
	default:
		encoded, err := json.Marshal(exported)
		if err != nil {
			return variant.Nil(), err
		}
		dict, err := variant.FromJSON(encoded)
		if err != nil {
			return variant.Nil(), err
		}
		return variant.FromDictionary(dict), nil
	}
}
