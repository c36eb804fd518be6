// Package realm implements Environment/Realm/World/God: the lifecycle
// root hierarchy, its three-scope variable resolution,
// and the template-to-World clone-plus-merge construction contract. It
// is grounded on the host bootstrap layer's Config-struct-plus-
// constructor-plus-lifecycle shape (system/bootstrap/wiring.go's
// FullSystemConfig/FullSystem/Start/Stop), generalized from "wiring one
// running system from a config struct" to "cloning a World from a
// template Realm's config Dictionary".
package realm

import (
	"sync"

	"github.com/vmrealm/agentrt/internal/classifier"
	"github.com/vmrealm/agentrt/internal/classmgr"
	"github.com/vmrealm/agentrt/internal/registry"
	"github.com/vmrealm/agentrt/internal/rtlog"
	"github.com/vmrealm/agentrt/internal/scheduler"
	"github.com/vmrealm/agentrt/internal/variant"
	"github.com/vmrealm/agentrt/internal/vm"
)

// metaStore is the process-wide Meta scope, shared by every Environment
// under its own mutex ("resources shared: ... the
// Meta-config dictionary ... are each process-wide under their own
// mutex").
type metaStore struct {
	mu   sync.Mutex
	dict *variant.Dictionary
}

var globalMeta = &metaStore{dict: variant.NewDictionary()}

// GetMeta reads key from the process-wide Meta scope.
func GetMeta(key string, def variant.Variant) variant.Variant {
	globalMeta.mu.Lock()
	defer globalMeta.mu.Unlock()
	return globalMeta.dict.Get(variant.StringKey(key), def)
}

// SetMeta writes key to the process-wide Meta scope.
func SetMeta(key string, value variant.Variant) {
	globalMeta.mu.Lock()
	defer globalMeta.mu.Unlock()
	globalMeta.dict.Set(variant.StringKey(key), value)
}

// Environment is a named container for a Scheduler, a VM, a set of
// ClassManagers, and a local-config Dictionary.
type Environment struct {
	mu sync.RWMutex

	Name string

	Scheduler *scheduler.Scheduler
	VM        *vm.VM

	classManagers map[string]*classmgr.ClassManager
	localConfig   *variant.Dictionary

	global *Environment // the designated global Environment, or self

	Log *rtlog.Logger

	traceFilter *classifier.Set
}

// NewEnvironment creates an Environment named name; global designates
// the Environment that GetGlobal/SetGlobal resolve against (pass the
// Environment itself for a root/God Environment).
func NewEnvironment(name string, sched *scheduler.Scheduler, v *vm.VM, global *Environment) *Environment {
	e := &Environment{
		Name:          name,
		Scheduler:     sched,
		VM:            v,
		classManagers: make(map[string]*classmgr.ClassManager),
		localConfig:   variant.NewDictionary(),
		Log:           rtlog.NewDefault(name),
	}
	if global == nil {
		e.global = e
	} else {
		e.global = global
	}
	return e
}

// EnvironmentName implements process.Environment.
func (e *Environment) EnvironmentName() string { return e.Name }

// RealmName implements registry.RealmHandle.
func (e *Environment) RealmName() string { return e.Name }

// AddClassManager registers a ClassManager keyed by its type-name.
func (e *Environment) AddClassManager(m *classmgr.ClassManager) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.classManagers[m.TypeName] = m
}

// ClassManager returns the ClassManager registered under typeName, or
// nil.
func (e *Environment) ClassManager(typeName string) *classmgr.ClassManager {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.classManagers[typeName]
}

// ClassManagers returns every registered ClassManager.
func (e *Environment) ClassManagers() []*classmgr.ClassManager {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*classmgr.ClassManager, 0, len(e.classManagers))
	for _, m := range e.classManagers {
		out = append(out, m)
	}
	return out
}

// GetLocal reads key from this Environment's local-config Dictionary,
// under its mutex.
func (e *Environment) GetLocal(key string, def variant.Variant) variant.Variant {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.localConfig.Get(variant.StringKey(key), def)
}

// SetLocal writes key to this Environment's local-config Dictionary.
func (e *Environment) SetLocal(key string, value variant.Variant) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.localConfig.Set(variant.StringKey(key), value)
}

// GetGlobal reads key from the designated global Environment, falling
// back to Meta if checkMeta.
func (e *Environment) GetGlobal(key string, def variant.Variant, checkMeta bool) variant.Variant {
	val := e.global.GetLocal(key, variant.Nil())
	if !val.IsNil() {
		return val
	}
	if checkMeta {
		return GetMeta(key, def)
	}
	return def
}

// SetGlobal writes key to the global Environment only.
func (e *Environment) SetGlobal(key string, value variant.Variant) {
	e.global.SetLocal(key, value)
}

// Resolve implements the local -> global -> meta precedence across
// an Environment's three variable scopes.
func (e *Environment) Resolve(key string, def variant.Variant) variant.Variant {
	if v := e.GetLocal(key, variant.Nil()); !v.IsNil() {
		return v
	}
	if v := e.global.GetLocal(key, variant.Nil()); !v.IsNil() {
		return v
	}
	return GetMeta(key, def)
}

// LocalConfig exposes the local-config Dictionary directly, for Realm
// construction (reading boot_script/update_script/etc. keys) and for
// Merge during World cloning.
func (e *Environment) LocalConfig() *variant.Dictionary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.localConfig
}

// AssureIntegrity composes the Environment's two integrity checks: the
// VM's dangling-reference and host-resource-pressure check, and every
// owned ClassManager's class-file hash check. maxMemPercent is forwarded
// to VM.AssureIntegrity; zero disables the memory check.
func (e *Environment) AssureIntegrity(maxMemPercent float64) error {
	if err := e.VM.AssureIntegrity(maxMemPercent); err != nil {
		return err
	}
	for _, cm := range e.ClassManagers() {
		if err := cm.VerifyIntegrity(); err != nil {
			return err
		}
	}
	return nil
}

// SetTraceFilter installs the label Set that gates this Environment's
// Trace output; nil clears the filter so every trace line passes.
func (e *Environment) SetTraceFilter(filter *classifier.Set) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.traceFilter = filter
}

// TraceFilter returns the Environment's current trace filter, or nil.
func (e *Environment) TraceFilter() *classifier.Set {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.traceFilter
}

var _ registry.RealmHandle = (*Environment)(nil)
