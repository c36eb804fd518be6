package hostapi

import (
	"context"
	"fmt"

	"github.com/vmrealm/agentrt/internal/classmgr"
	"github.com/vmrealm/agentrt/internal/registry"
	"github.com/vmrealm/agentrt/internal/schema"
	"github.com/vmrealm/agentrt/internal/variant"
)

func registerObject(reg *registry.Registry, hooks Hooks) error {
	mod, err := reg.RegisterModule("Object")
	if err != nil {
		return err
	}

	fns := []struct {
		name     string
		argTypes []registry.TypeID
		fn       registry.Callable
	}{
		{"Create", []registry.TypeID{tidString, tidString, tidString}, objectCreate(hooks)},
		{"Create", []registry.TypeID{tidString, tidString, tidString, tidDict}, objectCreateWithArgs(hooks)},
		{"Destroy", []registry.TypeID{tidString, tidString}, objectDestroy},
		{"IsValid", []registry.TypeID{tidString, tidString}, objectIsValid},
		{"ExpressSchema", []registry.TypeID{tidString, tidString}, objectExpressSchema},
	}
	for _, f := range fns {
		if err := mod.AddFunction(f.name, f.argTypes, f.fn); err != nil {
			return fmt.Errorf("Object.%s: %w", f.name, err)
		}
	}
	return nil
}

func objectCreate(hooks Hooks) registry.Callable {
	return objectCreateImpl(hooks, false)
}

func objectCreateWithArgs(hooks Hooks) registry.Callable {
	return objectCreateImpl(hooks, true)
}

// objectCreateImpl instantiates className under the ClassManager for
// typeName, builds its type-specific Backing, then runs
// className+"Initialize" against the caller's script engine if one
// exists, mirroring ClassManager.CreateObject's invokeInitialize
// contract: a non-nil error there tears the object back down.
func objectCreateImpl(hooks Hooks, withArgs bool) registry.Callable {
	return func(args []registry.Value) ([]registry.Value, error) {
		p, err := caller("Object.Create")
		if err != nil {
			return nil, err
		}
		env, err := callerEnvironment(p)
		if err != nil {
			return nil, err
		}

		typeName := asVariant(args[0]).AsString()
		className := asVariant(args[1]).AsString()
		id := asVariant(args[2]).AsString()

		var initArgs []variant.Variant
		if withArgs {
			if dict := asVariant(args[3]).AsDictionary(); dict != nil {
				dict.IterateInsertionOrder(func(_ variant.Key, v variant.Variant) bool {
					initArgs = append(initArgs, v)
					return true
				})
			}
		}

		cm := env.ClassManager(typeName)
		if cm == nil {
			return nil, fmt.Errorf("Object.Create: no ClassManager registered for type %q", typeName)
		}

		invokeInitialize := func(obj *classmgr.Object, initArgs []variant.Variant) error {
			switch typeName {
			case "Node":
				obj.Backing = schema.NewNode(id)
			case "Agent":
				obj.Backing = schema.NewAgent(id, env.VM)
			default:
				return fmt.Errorf("Object.Create: type %q has no known backing constructor", typeName)
			}

			entry := className + "Initialize"
			eng, err := hooks.Engines.For(p.Implementation)
			if err != nil || eng == nil || !eng.HasFunction(p, entry) {
				return nil
			}
			_, err = eng.Call(context.Background(), p, entry, initArgs)
			return err
		}

		obj, _, err := cm.CreateObject(className, p.GetPrivileges(), id, p, initArgs, invokeInitialize)
		if err != nil {
			return nil, err
		}
		return ok(variant.String(obj.ID))
	}
}

func objectDestroy(args []registry.Value) ([]registry.Value, error) {
	p, err := caller("Object.Destroy")
	if err != nil {
		return nil, err
	}
	env, err := callerEnvironment(p)
	if err != nil {
		return nil, err
	}
	cm := env.ClassManager(asVariant(args[0]).AsString())
	if cm == nil {
		return ok()
	}
	cm.DestroyObject(asVariant(args[1]).AsString())
	return ok()
}

func objectIsValid(args []registry.Value) ([]registry.Value, error) {
	p, err := caller("Object.IsValid")
	if err != nil {
		return nil, err
	}
	env, err := callerEnvironment(p)
	if err != nil {
		return nil, err
	}
	cm := env.ClassManager(asVariant(args[0]).AsString())
	if cm == nil {
		return ok(variant.Bool(false))
	}
	obj := cm.GetObject(asVariant(args[1]).AsString())
	return ok(variant.Bool(obj != nil && obj.IsValid()))
}

func objectExpressSchema(args []registry.Value) ([]registry.Value, error) {
	p, err := caller("Object.ExpressSchema")
	if err != nil {
		return nil, err
	}
	env, err := callerEnvironment(p)
	if err != nil {
		return nil, err
	}
	cm := env.ClassManager(asVariant(args[0]).AsString())
	if cm == nil {
		return ok(variant.String(""))
	}
	obj := cm.GetObject(asVariant(args[1]).AsString())
	if obj == nil {
		return ok(variant.String(""))
	}
	return ok(variant.String(obj.Class.Name))
}
