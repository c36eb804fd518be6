package hostapi

import (
	"fmt"
	"os"
	"time"

	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/registry"
	"github.com/vmrealm/agentrt/internal/variant"
)

func registerSystem(reg *registry.Registry, hooks Hooks) error {
	mod, err := reg.RegisterModule("System")
	if err != nil {
		return err
	}

	fns := []struct {
		name     string
		argTypes []registry.TypeID
		fn       registry.Callable
	}{
		{"AbsoluteTime", nil, systemAbsoluteTime},
		{"DateTimeString", nil, systemDateTimeString},
		{"GMDateTimeString", nil, systemGMDateTimeString},
		{"USADateTimeString", nil, systemUSADateTimeString},
		{"IsValidPath", []registry.TypeID{tidString}, systemIsValidPath(hooks)},
		{"GetDirectoryContents", []registry.TypeID{tidString}, systemGetDirectoryContents(hooks)},
		{"GetLabeledPath", []registry.TypeID{tidString}, systemGetLabeledPath(hooks)},
		{"SetLabeledPath", []registry.TypeID{tidString, tidString}, systemSetLabeledPath(hooks)},
		{"AssureIntegrity", nil, systemAssureIntegrity(hooks)},
	}
	for _, f := range fns {
		if err := mod.AddFunction(f.name, f.argTypes, f.fn); err != nil {
			return fmt.Errorf("System.%s: %w", f.name, err)
		}
	}
	return nil
}

func systemAbsoluteTime(args []registry.Value) ([]registry.Value, error) {
	return ok(variant.Double(float64(time.Now().UnixNano()) / 1e9))
}

func systemDateTimeString(args []registry.Value) ([]registry.Value, error) {
	return ok(variant.String(time.Now().Format("2006-01-02 15:04:05")))
}

func systemGMDateTimeString(args []registry.Value) ([]registry.Value, error) {
	return ok(variant.String(time.Now().UTC().Format("2006-01-02 15:04:05 MST")))
}

func systemUSADateTimeString(args []registry.Value) ([]registry.Value, error) {
	return ok(variant.String(time.Now().Format("01/02/2006 03:04:05 PM")))
}

func systemIsValidPath(hooks Hooks) registry.Callable {
	return func(args []registry.Value) ([]registry.Value, error) {
		if _, err := caller("System.IsValidPath"); err != nil {
			return nil, err
		}
		if hooks.Resolver == nil {
			return ok(variant.Bool(false))
		}
		path := asVariant(args[0]).AsString()
		expanded, err := hooks.Resolver.Expand(path)
		if err != nil {
			return ok(variant.Bool(false))
		}
		return ok(variant.Bool(hooks.Resolver.IsValidReadPath(expanded) == nil))
	}
}

func systemGetDirectoryContents(hooks Hooks) registry.Callable {
	return func(args []registry.Value) ([]registry.Value, error) {
		if _, err := caller("System.GetDirectoryContents"); err != nil {
			return nil, err
		}
		if hooks.Resolver == nil {
			return nil, fmt.Errorf("hostapi: System.GetDirectoryContents requires a path resolver")
		}
		path := asVariant(args[0]).AsString()
		expanded, err := hooks.Resolver.Expand(path)
		if err != nil {
			return nil, err
		}
		if err := hooks.Resolver.IsValidReadPath(expanded); err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(expanded)
		if err != nil {
			return nil, fmt.Errorf("System.GetDirectoryContents: %w", err)
		}
		out := variant.NewDictionary()
		for _, e := range entries {
			out.Append(variant.String(e.Name()))
		}
		return ok(variant.FromDictionary(out))
	}
}

func systemGetLabeledPath(hooks Hooks) registry.Callable {
	return func(args []registry.Value) ([]registry.Value, error) {
		if _, err := caller("System.GetLabeledPath"); err != nil {
			return nil, err
		}
		if hooks.Resolver == nil {
			return ok(variant.String(""))
		}
		value, found := hooks.Resolver.GetLabel(asVariant(args[0]).AsString())
		if !found {
			return ok(variant.String(""))
		}
		return ok(variant.String(value))
	}
}

// systemSetLabeledPath is restricted to God callers: relabeling a
// %LABEL% path affects every World cloned from this God afterward.
func systemSetLabeledPath(hooks Hooks) registry.Callable {
	return func(args []registry.Value) ([]registry.Value, error) {
		p, err := caller("System.SetLabeledPath")
		if err != nil {
			return nil, err
		}
		if err := requireAny(p, process.PrivGod, "System.SetLabeledPath"); err != nil {
			return nil, err
		}
		if hooks.Resolver == nil {
			return nil, fmt.Errorf("hostapi: System.SetLabeledPath requires a path resolver")
		}
		if err := hooks.Resolver.SetLabel(asVariant(args[0]).AsString(), asVariant(args[1]).AsString()); err != nil {
			return nil, err
		}
		return ok()
	}
}

func systemAssureIntegrity(hooks Hooks) registry.Callable {
	return func(args []registry.Value) ([]registry.Value, error) {
		p, err := caller("System.AssureIntegrity")
		if err != nil {
			return nil, err
		}
		env, err := callerEnvironment(p)
		if err != nil {
			return nil, err
		}
		if err := env.AssureIntegrity(hooks.MaxMemPercent); err != nil {
			return ok(variant.Bool(false))
		}
		return ok(variant.Bool(true))
	}
}
