// Package hostapi installs the script-facing native modules (shh,
// Environment, System, Object, Node, Whole, Classifier) against a
// Registry, the concrete bindings behind every guarded function a
// running script may call. It is grounded on the same module/overload
// pattern internal/registry defines: each namespace is one
// registry.Module, each function one registry.Callable closing over
// process.Current() for the caller it runs on behalf of.
package hostapi

import (
	"fmt"

	"github.com/vmrealm/agentrt/internal/engine"
	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/realm"
	"github.com/vmrealm/agentrt/internal/registry"
	"github.com/vmrealm/agentrt/internal/rterrors"
	"github.com/vmrealm/agentrt/internal/rtpath"
	"github.com/vmrealm/agentrt/internal/variant"
)

// Hooks supplies collaborators the host-facing functions need but that
// would otherwise create an import cycle: internal/api owns World
// lifecycle (CreateWorld/DestroyWorld live on *realm.God, reachable
// only through the Api that constructed it) and would need to import
// hostapi to wire these modules, so hostapi cannot import api back.
type Hooks struct {
	// Engines resolves a Process's script engine by Implementation, used
	// by shh.SendMsg/ExecuteFile/ExecuteString to run against a target
	// process's already-loaded runtime.
	Engines *engine.Registry
	// Resolver backs the System namespace's path/label functions.
	Resolver *rtpath.Resolver
	// MaxMemPercent is forwarded to Environment.AssureIntegrity calls
	// triggered indirectly through the System namespace; zero disables
	// the memory-pressure half of the check.
	MaxMemPercent float64

	// FindWorld looks up a running World's Environment by name, used by
	// Environment.EnterWorld to retarget the caller's CurrentEnvironment.
	FindWorld func(name string) (*realm.Environment, bool)

	CreateWorld  func(worldName, templateName string, overrides *variant.Dictionary) error
	DestroyWorld func(name string) error
}

// RegisterAll installs every script-facing native module against reg.
func RegisterAll(reg *registry.Registry, hooks Hooks) error {
	if err := registerShh(reg, hooks); err != nil {
		return fmt.Errorf("registering shh module: %w", err)
	}
	if err := registerEnvironment(reg, hooks); err != nil {
		return fmt.Errorf("registering Environment module: %w", err)
	}
	if err := registerSystem(reg, hooks); err != nil {
		return fmt.Errorf("registering System module: %w", err)
	}
	if err := registerObject(reg, hooks); err != nil {
		return fmt.Errorf("registering Object module: %w", err)
	}
	if err := registerNode(reg); err != nil {
		return fmt.Errorf("registering Node module: %w", err)
	}
	if err := registerWhole(reg); err != nil {
		return fmt.Errorf("registering Whole module: %w", err)
	}
	if err := registerClassifier(reg); err != nil {
		return fmt.Errorf("registering Classifier module: %w", err)
	}
	return nil
}

// Shared Variant sample TypeIDs, used to declare overload argument-type
// lists without registry exposing its Kind->TypeID table.
var (
	tidString = variant.String("").TypeID()
	tidLong   = variant.Long(0).TypeID()
	tidDouble = variant.Double(0).TypeID()
	tidBool   = variant.Bool(false).TypeID()
	tidDict   = variant.FromDictionary(variant.NewDictionary()).TypeID()
)

func asVariant(v registry.Value) variant.Variant {
	if vv, ok := v.(variant.Variant); ok {
		return vv
	}
	return variant.Nil()
}

// ok wraps zero or more Variants as the []registry.Value a Callable
// returns.
func ok(vs ...variant.Variant) ([]registry.Value, error) {
	out := make([]registry.Value, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out, nil
}

// caller fetches the process bound by the innermost BindCurrent/
// PushCurrent, erroring if a native function is somehow invoked outside
// that scope.
func caller(call string) (*process.Process, error) {
	p := process.Current()
	if p == nil {
		return nil, fmt.Errorf("hostapi: %s called with no current process bound", call)
	}
	return p, nil
}

// requireAny enforces a "require" guard: caller privileges must
// intersect mask.
func requireAny(p *process.Process, mask process.Privileges, call string) error {
	if !p.GetPrivileges().Has(mask) {
		return rterrors.PrivilegeDenied(call, uint32(p.GetPrivileges()), uint32(mask))
	}
	return nil
}

// forbid enforces a "forbid" guard ("not Basic/Schema", "not God"):
// caller privileges must not intersect mask.
func forbid(p *process.Process, mask process.Privileges, call string) error {
	if p.GetPrivileges().Has(mask) {
		return rterrors.PrivilegeDenied(call, uint32(p.GetPrivileges()), uint32(mask))
	}
	return nil
}

// callerEnvironment type-asserts p's bound Environment down to the
// concrete *realm.Environment every namespace needs for Scheduler/VM/
// ClassManager access.
func callerEnvironment(p *process.Process) (*realm.Environment, error) {
	env, ok := p.CurrentEnvironment.(*realm.Environment)
	if !ok || env == nil {
		return nil, fmt.Errorf("hostapi: process %q has no bound *realm.Environment", p.ID)
	}
	return env, nil
}
