package realm

import (
	"fmt"

	"github.com/vmrealm/agentrt/internal/classmgr"
	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/registry"
	"github.com/vmrealm/agentrt/internal/scheduler"
	"github.com/vmrealm/agentrt/internal/variant"
	"github.com/vmrealm/agentrt/internal/vm"
)

// God is the single root Realm; its name is the process identity and
// its privileges include God+World+Master.
type God struct {
	*Realm

	reg *registry.Registry

	worlds map[string]*World
}

// NewGod constructs the root Realm. callerName becomes the process
// identity. The caller supplies a fully wired Environment (Scheduler +
// VM already constructed) since that wiring is host-specific.
func NewGod(callerName string, env *Environment, reg *registry.Registry, config *variant.Dictionary) *God {
	env.Name = callerName
	realm := NewRealm(env, process.PrivGod|process.PrivWorld|process.PrivMaster, config)
	g := &God{Realm: realm, reg: reg, worlds: make(map[string]*World)}
	return g
}

// RegisterTemplate records template in the Registry under its own
// RealmName, so that CreateWorld can later clone it; name is not used.
func (g *God) RegisterTemplate(name string, template *Realm) error {
	return g.reg.RegisterRealm(template)
}

// World is a Realm derived from a template Realm by structural copy
// plus config merge.
type World struct {
	*Realm

	TemplateName string
}

// CreateWorld builds a new World from the template Realm T, following
// this construction contract:
//   - the World's Scheduler is freshly constructed with its own
//     privilege set (newScheduler is supplied by the caller, since the
//     time-out/worker-pool policy is host config, not realm state);
//   - the World's VM is a clone of T's VM (new identity, same
//     registrations) — cloneVM performs the structural copy;
//   - the local-config dictionary is deep-copied from T, then merged
//     with overrides (caller wins on key collisions); no separate
//     updater-config dictionary is kept;
//   - script paths are the union of T's paths and overrides' paths.
func (g *God) CreateWorld(name string, template *Realm, newScheduler *scheduler.Scheduler, cloneVM func(t *vm.VM, newID string) (*vm.VM, error), overrides *variant.Dictionary) (*World, error) {
	if _, exists := g.worlds[name]; exists {
		return nil, fmt.Errorf("world %q already exists", name)
	}

	clonedVM, err := cloneVM(template.VM, name)
	if err != nil {
		return nil, fmt.Errorf("cloning template vm for world %q: %w", name, err)
	}

	env := NewEnvironment(name, newScheduler, clonedVM, g.Environment)
	clonedVM.Master().CurrentEnvironment = env
	clonedVM.Master().HomeEnvironment = env

	mergedConfig := template.LocalConfig().DeepCopy()
	mergedConfig.Merge(overrides)

	mergedPaths := append([]string{}, template.ScriptPaths...)
	if overrides != nil {
		overridePaths := overrides.Get(variant.StringKey(ConfigScriptPaths), variant.Nil())
		if overridePaths.IsDictionary() {
			overridePaths.AsDictionary().IterateInsertionOrder(func(k variant.Key, v variant.Variant) bool {
				mergedPaths = append(mergedPaths, v.AsString())
				return true
			})
		}
	}

	worldRealm := NewRealm(env, template.Privileges, mergedConfig)
	worldRealm.ScriptPaths = dedupe(mergedPaths)

	for _, cm := range template.ClassManagers() {
		cloned := classmgr.NewClassManager(cm.TypeName, cm.Privileges, cm.BaseProcess())
		classes := make(map[string]*classmgr.Class, len(cm.ClassNames()))
		for _, name := range cm.ClassNames() {
			classes[name] = cm.GetClass(name)
		}
		cloned.InstallHierarchy(classes)
		worldRealm.AddClassManager(cloned)
	}

	for _, sm := range template.Submodules() {
		worldRealm.RegisterSubmodule(sm.Name)
	}

	w := &World{Realm: worldRealm, TemplateName: template.Name}
	g.worlds[name] = w
	return w, nil
}

// GetWorld returns the World registered under name, or nil.
func (g *God) GetWorld(name string) *World {
	return g.worlds[name]
}

// Worlds lists every World currently running under this God.
func (g *God) Worlds() []*World {
	out := make([]*World, 0, len(g.worlds))
	for _, w := range g.worlds {
		out = append(out, w)
	}
	return out
}

// DestroyWorld invokes shhFinalize, destroys the Objects of the World's
// ClassManagers via Teardown, and removes it from God's table; the
// World's Scheduler and VM are not torn down.
func (g *God) DestroyWorld(name string, invokeFinalize func(scriptPath string) error) error {
	w, ok := g.worlds[name]
	if !ok {
		return fmt.Errorf("world %q does not exist", name)
	}
	if err := w.Finalize(invokeFinalize); err != nil {
		return err
	}
	w.Teardown()
	delete(g.worlds, name)
	return nil
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
