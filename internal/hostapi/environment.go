package hostapi

import (
	"fmt"

	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/registry"
	"github.com/vmrealm/agentrt/internal/variant"
)

// valueTypeIDs lists every concrete Variant kind SetLocal/SetGlobal
// must accept as a second argument; the OverloadTable only dispatches
// on fixed argument TypeIDs, so "any Variant kind" is expressed as one
// registration per kind sharing the same closure.
var valueTypeIDs = []registry.TypeID{tidString, tidLong, tidDouble, tidBool, tidDict}

// registerWithValueOverloads registers fn under name once per kind in
// valueTypeIDs, each combined with keyTypes as the leading argument
// list.
func registerWithValueOverloads(mod *registry.Module, name string, keyTypes []registry.TypeID, fn registry.Callable) error {
	for _, vt := range valueTypeIDs {
		argTypes := append(append([]registry.TypeID{}, keyTypes...), vt)
		if err := mod.AddFunction(name, argTypes, fn); err != nil {
			return err
		}
	}
	return nil
}

func registerEnvironment(reg *registry.Registry, hooks Hooks) error {
	mod, err := reg.RegisterModule("Environment")
	if err != nil {
		return err
	}

	if err := mod.AddFunction("CreateWorld", []registry.TypeID{tidString, tidString, tidDict}, environmentCreateWorld(hooks)); err != nil {
		return err
	}
	if err := mod.AddFunction("DestroyWorld", []registry.TypeID{tidString}, environmentDestroyWorld(hooks)); err != nil {
		return err
	}
	if err := mod.AddFunction("EnterWorld", []registry.TypeID{tidString}, environmentEnterWorld(hooks)); err != nil {
		return err
	}
	if err := mod.AddFunction("ExitWorld", nil, environmentExitWorld); err != nil {
		return err
	}
	if err := mod.AddFunction("GetLocal", []registry.TypeID{tidString}, environmentGetLocal); err != nil {
		return err
	}
	if err := mod.AddFunction("GetGlobal", []registry.TypeID{tidString}, environmentGetGlobal); err != nil {
		return err
	}
	if err := registerWithValueOverloads(mod, "SetLocal", []registry.TypeID{tidString}, environmentSetLocal); err != nil {
		return err
	}
	if err := registerWithValueOverloads(mod, "SetGlobal", []registry.TypeID{tidString}, environmentSetGlobal(hooks)); err != nil {
		return err
	}
	if err := mod.AddFunction("GetObjects", []registry.TypeID{tidString}, environmentGetObjects); err != nil {
		return err
	}
	return nil
}

// environmentCreateWorld is restricted to God callers: only the root
// Realm decides what Worlds exist.
func environmentCreateWorld(hooks Hooks) registry.Callable {
	return func(args []registry.Value) ([]registry.Value, error) {
		p, err := caller("Environment.CreateWorld")
		if err != nil {
			return nil, err
		}
		if err := requireAny(p, process.PrivGod, "Environment.CreateWorld"); err != nil {
			return nil, err
		}
		if hooks.CreateWorld == nil {
			return nil, fmt.Errorf("hostapi: Environment.CreateWorld not wired")
		}
		worldName := asVariant(args[0]).AsString()
		templateName := asVariant(args[1]).AsString()
		overrides := asVariant(args[2]).AsDictionary()
		if err := hooks.CreateWorld(worldName, templateName, overrides); err != nil {
			return nil, err
		}
		return ok()
	}
}

func environmentDestroyWorld(hooks Hooks) registry.Callable {
	return func(args []registry.Value) ([]registry.Value, error) {
		p, err := caller("Environment.DestroyWorld")
		if err != nil {
			return nil, err
		}
		if err := requireAny(p, process.PrivGod, "Environment.DestroyWorld"); err != nil {
			return nil, err
		}
		if hooks.DestroyWorld == nil {
			return nil, fmt.Errorf("hostapi: Environment.DestroyWorld not wired")
		}
		if err := hooks.DestroyWorld(asVariant(args[0]).AsString()); err != nil {
			return nil, err
		}
		return ok()
	}
}

// environmentEnterWorld swaps the caller's CurrentEnvironment to the
// named World for the remainder of its lifetime (or until ExitWorld);
// it does not push a stack, so nested EnterWorld calls simply replace
// the previous target rather than layering.
func environmentEnterWorld(hooks Hooks) registry.Callable {
	return func(args []registry.Value) ([]registry.Value, error) {
		p, err := caller("Environment.EnterWorld")
		if err != nil {
			return nil, err
		}
		if err := requireAny(p, process.PrivGod, "Environment.EnterWorld"); err != nil {
			return nil, err
		}
		if hooks.FindWorld == nil {
			return nil, fmt.Errorf("hostapi: Environment.EnterWorld not wired")
		}
		target, found := hooks.FindWorld(asVariant(args[0]).AsString())
		if !found {
			return nil, fmt.Errorf("Environment.EnterWorld: no such world %q", asVariant(args[0]).AsString())
		}
		p.CurrentEnvironment = target
		return ok()
	}
}

func environmentExitWorld(args []registry.Value) ([]registry.Value, error) {
	p, err := caller("Environment.ExitWorld")
	if err != nil {
		return nil, err
	}
	p.CurrentEnvironment = p.HomeEnvironment
	return ok()
}

func environmentGetLocal(args []registry.Value) ([]registry.Value, error) {
	p, err := caller("Environment.GetLocal")
	if err != nil {
		return nil, err
	}
	env, err := callerEnvironment(p)
	if err != nil {
		return nil, err
	}
	return ok(env.GetLocal(asVariant(args[0]).AsString(), variant.Nil()))
}

func environmentGetGlobal(args []registry.Value) ([]registry.Value, error) {
	p, err := caller("Environment.GetGlobal")
	if err != nil {
		return nil, err
	}
	env, err := callerEnvironment(p)
	if err != nil {
		return nil, err
	}
	return ok(env.GetGlobal(asVariant(args[0]).AsString(), variant.Nil(), true))
}

func environmentSetLocal(args []registry.Value) ([]registry.Value, error) {
	p, err := caller("Environment.SetLocal")
	if err != nil {
		return nil, err
	}
	env, err := callerEnvironment(p)
	if err != nil {
		return nil, err
	}
	env.SetLocal(asVariant(args[0]).AsString(), asVariant(args[1]))
	return ok()
}

// environmentSetGlobal is restricted to God callers: a World process
// mutating global state back up into its God would cross a privilege
// boundary the three-scope resolver isn't meant to allow.
func environmentSetGlobal(hooks Hooks) registry.Callable {
	return func(args []registry.Value) ([]registry.Value, error) {
		p, err := caller("Environment.SetGlobal")
		if err != nil {
			return nil, err
		}
		if err := requireAny(p, process.PrivGod, "Environment.SetGlobal"); err != nil {
			return nil, err
		}
		env, err := callerEnvironment(p)
		if err != nil {
			return nil, err
		}
		env.SetGlobal(asVariant(args[0]).AsString(), asVariant(args[1]))
		return ok()
	}
}

func environmentGetObjects(args []registry.Value) ([]registry.Value, error) {
	p, err := caller("Environment.GetObjects")
	if err != nil {
		return nil, err
	}
	env, err := callerEnvironment(p)
	if err != nil {
		return nil, err
	}
	cm := env.ClassManager(asVariant(args[0]).AsString())
	if cm == nil {
		return ok(variant.FromDictionary(variant.NewDictionary()))
	}
	out := variant.NewDictionary()
	for _, obj := range cm.Objects() {
		out.Append(variant.String(obj.ID))
	}
	return ok(variant.FromDictionary(out))
}
