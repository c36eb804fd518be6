package hostapi

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vmrealm/agentrt/internal/classifier"
	"github.com/vmrealm/agentrt/internal/registry"
	"github.com/vmrealm/agentrt/internal/variant"
)

// classifierHandles maps opaque string handles to live Sets, since
// script callers address a classifier by id rather than holding a Go
// pointer directly.
var classifierHandles sync.Map // string -> *classifier.Set

func registerClassifier(reg *registry.Registry) error {
	mod, err := reg.RegisterModule("Classifier")
	if err != nil {
		return err
	}

	fns := []struct {
		name     string
		argTypes []registry.TypeID
		fn       registry.Callable
	}{
		{"New", nil, classifierNew},
		{"Destroy", []registry.TypeID{tidString}, classifierDestroy},
		{"Add", []registry.TypeID{tidString, tidString}, classifierAdd},
		{"Remove", []registry.TypeID{tidString, tidString}, classifierRemove},
		{"Reset", []registry.TypeID{tidString}, classifierReset},
		{"Empty", []registry.TypeID{tidString}, classifierEmpty},
		{"Has", []registry.TypeID{tidString, tidString}, classifierHas},
		{"Intersects", []registry.TypeID{tidString, tidString}, classifierIntersects},
		{"Superset", []registry.TypeID{tidString, tidString}, classifierSuperset},
		{"Subset", []registry.TypeID{tidString, tidString}, classifierSubset},
		{"Plus", []registry.TypeID{tidString, tidString}, classifierPlus},
		{"Minus", []registry.TypeID{tidString, tidString}, classifierMinus},
		{"ToString", []registry.TypeID{tidString}, classifierToString},
	}
	for _, f := range fns {
		if err := mod.AddFunction(f.name, f.argTypes, f.fn); err != nil {
			return fmt.Errorf("Classifier.%s: %w", f.name, err)
		}
	}
	return nil
}

func classifierLookup(id string) (*classifier.Set, error) {
	v, ok := classifierHandles.Load(id)
	if !ok {
		return nil, fmt.Errorf("Classifier: no such handle %q", id)
	}
	return v.(*classifier.Set), nil
}

func classifierNew(args []registry.Value) ([]registry.Value, error) {
	if _, err := caller("Classifier.New"); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	classifierHandles.Store(id, classifier.New())
	return ok(variant.String(id))
}

func classifierDestroy(args []registry.Value) ([]registry.Value, error) {
	classifierHandles.Delete(asVariant(args[0]).AsString())
	return ok()
}

func classifierAdd(args []registry.Value) ([]registry.Value, error) {
	s, err := classifierLookup(asVariant(args[0]).AsString())
	if err != nil {
		return nil, err
	}
	s.Add(asVariant(args[1]).AsString())
	return ok()
}

func classifierRemove(args []registry.Value) ([]registry.Value, error) {
	s, err := classifierLookup(asVariant(args[0]).AsString())
	if err != nil {
		return nil, err
	}
	s.Remove(asVariant(args[1]).AsString())
	return ok()
}

func classifierReset(args []registry.Value) ([]registry.Value, error) {
	s, err := classifierLookup(asVariant(args[0]).AsString())
	if err != nil {
		return nil, err
	}
	s.Reset()
	return ok()
}

func classifierEmpty(args []registry.Value) ([]registry.Value, error) {
	s, err := classifierLookup(asVariant(args[0]).AsString())
	if err != nil {
		return nil, err
	}
	return ok(variant.Bool(s.Empty()))
}

func classifierHas(args []registry.Value) ([]registry.Value, error) {
	s, err := classifierLookup(asVariant(args[0]).AsString())
	if err != nil {
		return nil, err
	}
	return ok(variant.Bool(s.Has(asVariant(args[1]).AsString())))
}

func classifierPair(args []registry.Value) (*classifier.Set, *classifier.Set, error) {
	a, err := classifierLookup(asVariant(args[0]).AsString())
	if err != nil {
		return nil, nil, err
	}
	b, err := classifierLookup(asVariant(args[1]).AsString())
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func classifierIntersects(args []registry.Value) ([]registry.Value, error) {
	a, b, err := classifierPair(args)
	if err != nil {
		return nil, err
	}
	return ok(variant.Bool(a.Intersects(b)))
}

func classifierSuperset(args []registry.Value) ([]registry.Value, error) {
	a, b, err := classifierPair(args)
	if err != nil {
		return nil, err
	}
	return ok(variant.Bool(a.Superset(b)))
}

func classifierSubset(args []registry.Value) ([]registry.Value, error) {
	a, b, err := classifierPair(args)
	if err != nil {
		return nil, err
	}
	return ok(variant.Bool(a.Subset(b)))
}

func classifierPlus(args []registry.Value) ([]registry.Value, error) {
	a, b, err := classifierPair(args)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	classifierHandles.Store(id, a.Plus(b))
	return ok(variant.String(id))
}

func classifierMinus(args []registry.Value) ([]registry.Value, error) {
	a, b, err := classifierPair(args)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	classifierHandles.Store(id, a.Minus(b))
	return ok(variant.String(id))
}

func classifierToString(args []registry.Value) ([]registry.Value, error) {
	s, err := classifierLookup(asVariant(args[0]).AsString())
	if err != nil {
		return nil, err
	}
	return ok(variant.String(s.String()))
}
