// Package registry implements the process-wide catalogue of types,
// modules, realm templates, overload tables, and hard (native) classes
// described in . It is grounded on the service-module registry
// of the host system (ordered registration, name-keyed lookup, health
// hooks) generalized from "named services" to "named types/modules".
package registry

import (
	"fmt"
	"sync"
)

// TypeID is the stable 32-bit handle the Registry assigns to each
// registered value type. Primitive ids are stable across runs because
// the base is reserved and primitives self-register at package init.
type TypeID uint32

// PrimitiveBase is the first TypeID available to RegisterType callers;
// ids below it are reserved for the Variant primitive kinds so that a
// primitive's TypeID never collides with a script-registered one.
const PrimitiveBase TypeID = 100

// NoType is the zero value, rendered as "nil"/absent.
const NoType TypeID = 0

// EqualsFunc compares two values of the same registered type.
type EqualsFunc func(a, b any) bool

// StringFunc renders a value of the registered type as a string.
type StringFunc func(v any) string

// ValueFunc parses a string into a value of the registered type.
type ValueFunc func(s string) (any, error)

// TypeDescriptor is a per-C-type descriptor: name, id, equality,
// stringify, and parse functions. Push/pop glue is represented by the
// EqualsFunc/StringFunc/ValueFunc trio plus whatever the engine adapter
// layer (internal/engine) does on top for a specific scripting host.
type TypeDescriptor struct {
	ID     TypeID
	Name   string
	Equals EqualsFunc
	String StringFunc
	Value  ValueFunc
}

// TypeRegistry is the type-id allocator and lookup table. Types are
// registered exactly once and never destroyed.
type TypeRegistry struct {
	mu       sync.RWMutex
	byID     map[TypeID]*TypeDescriptor
	byName   map[string]TypeID
	nextID   TypeID
}

// NewTypeRegistry creates an empty TypeRegistry whose allocator starts at
// start (callers pass PrimitiveBase for the process-wide registry so
// primitive kinds can occupy the reserved range below it).
func NewTypeRegistry(start TypeID) *TypeRegistry {
	return &TypeRegistry{
		byID:   make(map[TypeID]*TypeDescriptor),
		byName: make(map[string]TypeID),
		nextID: start,
	}
}

// RegisterType allocates a new stable TypeID for name and stores the
// descriptor. Registering the same name twice is a registration error.
func (t *TypeRegistry) RegisterType(name string) (TypeID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.byName[name]; exists {
		return NoType, fmt.Errorf("type %q already registered", name)
	}

	id := t.nextID
	t.nextID++
	t.byID[id] = &TypeDescriptor{ID: id, Name: name}
	t.byName[name] = id
	return id, nil
}

// RegisterReservedType registers name under an explicit, caller-chosen id
// (used for the Variant primitive kinds, whose ids must be stable below
// PrimitiveBase rather than allocator-assigned).
func (t *TypeRegistry) RegisterReservedType(id TypeID, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.byID[id]; exists {
		return fmt.Errorf("type id %d already registered", id)
	}
	if _, exists := t.byName[name]; exists {
		return fmt.Errorf("type %q already registered", name)
	}
	t.byID[id] = &TypeDescriptor{ID: id, Name: name}
	t.byName[name] = id
	return nil
}

// RegisterFunctions attaches equals/string/value functions to a
// previously registered type id.
func (t *TypeRegistry) RegisterFunctions(id TypeID, eq EqualsFunc, str StringFunc, val ValueFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	desc, ok := t.byID[id]
	if !ok {
		return fmt.Errorf("type id %d not registered", id)
	}
	desc.Equals = eq
	desc.String = str
	desc.Value = val
	return nil
}

// GetType returns the descriptor for id, or nil if unknown.
func (t *TypeRegistry) GetType(id TypeID) *TypeDescriptor {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byID[id]
}

// GetTypeName returns the registered name for id, or "nil" for NoType
// and unknown ids.
func (t *TypeRegistry) GetTypeName(id TypeID) string {
	if id == NoType {
		return "nil"
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if desc, ok := t.byID[id]; ok {
		return desc.Name
	}
	return "nil"
}

// GetTypeID returns the id registered for name, or NoType if unknown.
func (t *TypeRegistry) GetTypeID(name string) TypeID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byName[name]
}
