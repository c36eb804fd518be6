package registry

import (
	"fmt"
	"strings"
	"sync"
)

// Value is the minimal contract an argument must satisfy to participate
// in overload resolution: knowing its own dynamic TypeID. internal/variant
// implements this for every Variant.
type Value interface {
	TypeID() TypeID
}

// Callable is a native function registered against an argument-type-list,
// invoked with already-resolved arguments.
type Callable func(args []Value) ([]Value, error)

// SharedTypeResolver answers, for a given per-implementation engine, which
// declared argument type a caller's actual type is acceptable in place of
// (the dispatch rule's "shared-types" equivalence step, e.g.
// language-specific numeric casts).
type SharedTypeResolver interface {
	// Acceptable reports whether actual may stand in for declared.
	Acceptable(declared, actual TypeID) bool
}

type overloadEntry struct {
	argTypes []TypeID
	fn       Callable
	order    int
}

// OverloadTable maps argument-type-lists to callables for one function
// name, with fallback via a shared-type equivalence relation.
type OverloadTable struct {
	mu      sync.RWMutex
	name    string
	entries []*overloadEntry
	nextOrd int
}

// NewOverloadTable creates an empty table for the named function.
func NewOverloadTable(name string) *OverloadTable {
	return &OverloadTable{name: name}
}

func key(argTypes []TypeID) string {
	parts := make([]string, len(argTypes))
	for i, t := range argTypes {
		parts[i] = fmt.Sprintf("%d", t)
	}
	return strings.Join(parts, ",")
}

// Register adds a callable for the exact argument-type-list. Registering
// an argument-type-list that is already present is a no-op: the first
// callable stays registered and fn is discarded.
func (o *OverloadTable) Register(argTypes []TypeID, fn Callable) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	k := key(argTypes)
	for _, e := range o.entries {
		if key(e.argTypes) == k {
			// Can't compare func values for identity beyond pointer
			// equality of the underlying code pointer is not exposed in
			// Go; registering twice for the same arg-list is treated as
			// idempotent by contract — callers are expected not to swap
			// in a different implementation under an existing signature.
			return nil
		}
	}

	o.entries = append(o.entries, &overloadEntry{argTypes: argTypes, fn: fn, order: o.nextOrd})
	o.nextOrd++
	return nil
}

// Resolve implements the three-step dispatch rule: exact match, then
// shared-type equivalence (ties broken by registration order), else a
// structured error naming the function and actual types.
func (o *OverloadTable) Resolve(actual []TypeID, shared SharedTypeResolver, typeName func(TypeID) string) (Callable, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	// Step 1: exact match.
	k := key(actual)
	for _, e := range o.entries {
		if key(e.argTypes) == k {
			return e.fn, nil
		}
	}

	// Step 2: shared-type equivalence, first registration-order match.
	if shared != nil {
		var candidates []*overloadEntry
		for _, e := range o.entries {
			if len(e.argTypes) != len(actual) {
				continue
			}
			ok := true
			for i, declared := range e.argTypes {
				if !shared.Acceptable(declared, actual[i]) {
					ok = false
					break
				}
			}
			if ok {
				candidates = append(candidates, e)
			}
		}
		if len(candidates) > 0 {
			best := candidates[0]
			for _, c := range candidates[1:] {
				if c.order < best.order {
					best = c
				}
			}
			return best.fn, nil
		}
	}

	// Step 3: failure.
	names := make([]string, len(actual))
	for i, t := range actual {
		if typeName != nil {
			names[i] = typeName(t)
		} else {
			names[i] = fmt.Sprintf("%d", t)
		}
	}
	return nil, fmt.Errorf("no overload of %s matches argument types [%s]", o.name, strings.Join(names, ", "))
}

// Name returns the function name this table dispatches for.
func (o *OverloadTable) Name() string {
	return o.name
}
