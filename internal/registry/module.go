package registry

import (
	"fmt"
	"sync"
)

// ObjectInstantiator constructs a new hard-class-backed Object instance.
// internal/classmgr supplies the concrete function; registry only stores
// the pointer so that classmgr doesn't need to depend back on registry
// for anything but these type aliases.
type ObjectInstantiator func() (any, error)

// RealmHandle is the minimal surface the Registry needs from a Realm to
// register/unregister it by name, kept narrow so this package never
// imports internal/realm (which itself depends on registry for type and
// module lookups).
type RealmHandle interface {
	RealmName() string
}

// ProcessHandle is the minimal surface RegisterModuleInProcess needs from
// a Process, kept narrow so this package never imports internal/process
// (which transitively depends back on registry through
// internal/rtmessage and internal/variant).
type ProcessHandle interface {
	// MessengerID identifies the process for error messages.
	MessengerID() string
	// RegisterModule records that the process has bound this module
	// under the given alias, so p.Modules() drives the engine's
	// symbol-binding loop.
	RegisterModule(alias string)
	// BindCurrent marks the process as the one currently executing,
	// for the duration of the returned unwind func, so a module's
	// Register callback can reach it via process.Current().
	BindCurrent() func()
}

// RegisterFunc is invoked once per process that registers a module,
// letting a module install per-process state (e.g. binding symbols
// into a particular script runtime) rather than only exposing a
// process-wide, stateless function table.
type RegisterFunc func(proc ProcessHandle, alias string, config any) error

// Module is a named collection of overload tables, the Go-side mirror of
// a single registered native module (the "native modules" that
// expose the host API to scripts).
type Module struct {
	mu        sync.RWMutex
	Name      string
	functions map[string]*OverloadTable
	register  RegisterFunc
}

func newModule(name string) *Module {
	return &Module{Name: name, functions: make(map[string]*OverloadTable)}
}

// SetRegister attaches the per-process registration hook invoked by
// RegisterModuleInProcess. Modules with no per-process setup (most
// native modules: their functions are process-agnostic) need not call
// this.
func (m *Module) SetRegister(fn RegisterFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.register = fn
}

// AddFunction registers fn under name/argTypes, creating the function's
// OverloadTable on first use.
func (m *Module) AddFunction(name string, argTypes []TypeID, fn Callable) error {
	m.mu.Lock()
	table, ok := m.functions[name]
	if !ok {
		table = NewOverloadTable(name)
		m.functions[name] = table
	}
	m.mu.Unlock()
	return table.Register(argTypes, fn)
}

// Function returns the OverloadTable for name, or nil if the module has
// no function by that name.
func (m *Module) Function(name string) *OverloadTable {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.functions[name]
}

// FunctionNames lists every function name registered on the module.
func (m *Module) FunctionNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.functions))
	for name := range m.functions {
		out = append(out, name)
	}
	return out
}

// Registry is the process-wide catalogue: types (embedded TypeRegistry),
// modules, realm templates, and hard classes — the four responsibilities
// collected under one "Registry" owner.
type Registry struct {
	*TypeRegistry

	mu      sync.RWMutex
	modules map[string]*Module
	realms  map[string]RealmHandle

	classMu      sync.RWMutex
	hardClasses  map[string]TypeID
	instantiators map[TypeID][]ObjectInstantiator
}

// New creates an empty process-wide Registry with its type allocator
// starting above the reserved primitive range.
func New() *Registry {
	return &Registry{
		TypeRegistry:  NewTypeRegistry(PrimitiveBase),
		modules:       make(map[string]*Module),
		realms:        make(map[string]RealmHandle),
		hardClasses:   make(map[string]TypeID),
		instantiators: make(map[TypeID][]ObjectInstantiator),
	}
}

// RegisterModule creates and returns a new, empty Module under name.
// Registering the same name twice is a registration error.
func (r *Registry) RegisterModule(name string) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.modules[name]; exists {
		return nil, fmt.Errorf("module %q already registered", name)
	}
	m := newModule(name)
	r.modules[name] = m
	return m, nil
}

// GetModule returns the module registered under name, or nil if absent.
func (r *Registry) GetModule(name string) *Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.modules[name]
}

// ModuleNames lists every registered module name.
func (r *Registry) ModuleNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.modules))
	for name := range r.modules {
		out = append(out, name)
	}
	return out
}

// RegisterModuleInProcess binds module name into proc under alias
// (defaulting alias to name), running the module's per-process Register
// hook if one was attached with SetRegister. The module's Register
// callback runs with proc bound as the current process, so it can reach
// proc via process.Current() without registry importing
// internal/process.
func (r *Registry) RegisterModuleInProcess(proc ProcessHandle, name, alias string, config any) (*Module, error) {
	m := r.GetModule(name)
	if m == nil {
		return nil, fmt.Errorf("module %q is not registered", name)
	}
	if alias == "" {
		alias = name
	}

	unbind := proc.BindCurrent()
	defer unbind()

	m.mu.RLock()
	register := m.register
	m.mu.RUnlock()

	if register != nil {
		if err := register(proc, alias, config); err != nil {
			return nil, fmt.Errorf("registering module %q as %q in process %q: %w", name, alias, proc.MessengerID(), err)
		}
	}
	proc.RegisterModule(alias)
	return m, nil
}

// RegisterRealm records a template Realm by name. Registering the same
// name twice is a registration error (no two template realms may share a
// name, ).
func (r *Registry) RegisterRealm(realm RealmHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := realm.RealmName()
	if _, exists := r.realms[name]; exists {
		return fmt.Errorf("realm %q already registered", name)
	}
	r.realms[name] = realm
	return nil
}

// UnregisterRealm removes a previously registered realm by name.
func (r *Registry) UnregisterRealm(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.realms, name)
}

// GetRealm returns the registered realm template by name, or nil.
func (r *Registry) GetRealm(name string) RealmHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.realms[name]
}

// RealmNames lists every registered template realm name.
func (r *Registry) RealmNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.realms))
	for name := range r.realms {
		out = append(out, name)
	}
	return out
}

// RegisterHardClass binds a native (hard) class name to the TypeID its
// Objects report, matching the ClassManager hard-class table.
func (r *Registry) RegisterHardClass(name string, id TypeID) error {
	r.classMu.Lock()
	defer r.classMu.Unlock()
	if _, exists := r.hardClasses[name]; exists {
		return fmt.Errorf("hard class %q already registered", name)
	}
	r.hardClasses[name] = id
	return nil
}

// GetHardClass returns the TypeID registered for a hard class name, or
// NoType if none is registered.
func (r *Registry) GetHardClass(name string) TypeID {
	r.classMu.RLock()
	defer r.classMu.RUnlock()
	return r.hardClasses[name]
}

// RegisterObjectInstantiator adds a constructor for Objects of the given
// hard-class TypeID. Multiple instantiators may be registered for the
// same id (e.g. one per Implementation adapter); GetObjectInstantiators
// returns all of them in registration order.
func (r *Registry) RegisterObjectInstantiator(id TypeID, fn ObjectInstantiator) {
	r.classMu.Lock()
	defer r.classMu.Unlock()
	r.instantiators[id] = append(r.instantiators[id], fn)
}

// GetObjectInstantiators returns every instantiator registered for id, in
// registration order, or nil if none were registered.
func (r *Registry) GetObjectInstantiators(id TypeID) []ObjectInstantiator {
	r.classMu.RLock()
	defer r.classMu.RUnlock()
	out := make([]ObjectInstantiator, len(r.instantiators[id]))
	copy(out, r.instantiators[id])
	return out
}
