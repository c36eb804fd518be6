package hostapi

import (
	"fmt"

	"github.com/vmrealm/agentrt/internal/registry"
	"github.com/vmrealm/agentrt/internal/schema"
	"github.com/vmrealm/agentrt/internal/variant"
)

func registerWhole(reg *registry.Registry) error {
	mod, err := reg.RegisterModule("Whole")
	if err != nil {
		return err
	}

	fns := []struct {
		name     string
		argTypes []registry.TypeID
		fn       registry.Callable
	}{
		{"CreateCollection", []registry.TypeID{tidString, tidString}, wholeCreateCollection},
		{"DestroyCollection", []registry.TypeID{tidString, tidString}, wholeDestroyCollection},
		{"AddPart", []registry.TypeID{tidString, tidString, tidString, tidString}, wholeAddPart},
		{"GetPartByName", []registry.TypeID{tidString, tidString, tidString}, wholeGetPartByName},
		{"GetPartByID", []registry.TypeID{tidString, tidString, tidLong}, wholeGetPartByID},
		{"DestroyPart", []registry.TypeID{tidString, tidString, tidString}, wholeDestroyPart},
		{"AddSchema", []registry.TypeID{tidString, tidString, tidString}, wholeAddSchema},
		{"GetSchema", []registry.TypeID{tidString, tidString}, wholeGetSchema},
	}
	for _, f := range fns {
		if err := mod.AddFunction(f.name, f.argTypes, f.fn); err != nil {
			return fmt.Errorf("Whole.%s: %w", f.name, err)
		}
	}
	return nil
}

// resolveAgent looks the backing *schema.Agent up under the caller's
// "Agent" ClassManager by object id.
func resolveAgent(args []registry.Value, idIndex int) (*schema.Agent, error) {
	p, err := caller("Whole")
	if err != nil {
		return nil, err
	}
	env, err := callerEnvironment(p)
	if err != nil {
		return nil, err
	}
	cm := env.ClassManager("Agent")
	if cm == nil {
		return nil, fmt.Errorf("hostapi: no Agent ClassManager registered")
	}
	id := asVariant(args[idIndex]).AsString()
	obj := cm.GetObject(id)
	if obj == nil || !obj.IsValid() {
		return nil, fmt.Errorf("Agent %q does not exist", id)
	}
	a, ok := obj.Backing.(*schema.Agent)
	if !ok {
		return nil, fmt.Errorf("Agent %q has no *schema.Agent backing", id)
	}
	return a, nil
}

func wholeCreateCollection(args []registry.Value) ([]registry.Value, error) {
	a, err := resolveAgent(args, 0)
	if err != nil {
		return nil, err
	}
	if _, err := a.Whole().CreateCollection(asVariant(args[1]).AsString()); err != nil {
		return nil, err
	}
	return ok()
}

func wholeDestroyCollection(args []registry.Value) ([]registry.Value, error) {
	a, err := resolveAgent(args, 0)
	if err != nil {
		return nil, err
	}
	a.Whole().DestroyCollection(asVariant(args[1]).AsString())
	return ok()
}

func wholeCollection(args []registry.Value, agentIdx, collectionIdx int) (*schema.Agent, *schema.Collection, error) {
	a, err := resolveAgent(args, agentIdx)
	if err != nil {
		return nil, nil, err
	}
	c := a.Whole().GetCollection(asVariant(args[collectionIdx]).AsString())
	if c == nil {
		return nil, nil, fmt.Errorf("Whole.AddPart: no collection %q", asVariant(args[collectionIdx]).AsString())
	}
	return a, c, nil
}

func wholeAddPart(args []registry.Value) ([]registry.Value, error) {
	_, c, err := wholeCollection(args, 0, 1)
	if err != nil {
		return nil, err
	}
	nodeName := asVariant(args[3]).AsString()
	var node *schema.Node
	if nodeName != "" {
		n, err := resolveNodeByID(args, nodeName)
		if err == nil {
			node = n
		}
	}
	if _, err := c.AddPart(asVariant(args[2]).AsString(), node); err != nil {
		return nil, err
	}
	return ok()
}

// resolveNodeByID looks a Node up directly by id without consuming an
// argument slot, used when an argument carries the id as a value
// rather than positionally.
func resolveNodeByID(args []registry.Value, id string) (*schema.Node, error) {
	p, err := caller("Whole")
	if err != nil {
		return nil, err
	}
	env, err := callerEnvironment(p)
	if err != nil {
		return nil, err
	}
	cm := env.ClassManager("Node")
	if cm == nil {
		return nil, fmt.Errorf("hostapi: no Node ClassManager registered")
	}
	obj := cm.GetObject(id)
	if obj == nil || !obj.IsValid() {
		return nil, fmt.Errorf("Node %q does not exist", id)
	}
	n, ok := obj.Backing.(*schema.Node)
	if !ok {
		return nil, fmt.Errorf("Node %q has no *schema.Node backing", id)
	}
	return n, nil
}

func wholeGetPartByName(args []registry.Value) ([]registry.Value, error) {
	_, c, err := wholeCollection(args, 0, 1)
	if err != nil {
		return nil, err
	}
	part := c.GetPartByName(asVariant(args[2]).AsString())
	if part == nil {
		return ok(variant.Nil())
	}
	return ok(variant.Long(int64(part.ID)))
}

func wholeGetPartByID(args []registry.Value) ([]registry.Value, error) {
	_, c, err := wholeCollection(args, 0, 1)
	if err != nil {
		return nil, err
	}
	part := c.GetPartByID(uint64(asVariant(args[2]).AsInt64()))
	if part == nil {
		return ok(variant.Nil())
	}
	return ok(variant.String(part.Name))
}

func wholeDestroyPart(args []registry.Value) ([]registry.Value, error) {
	_, c, err := wholeCollection(args, 0, 1)
	if err != nil {
		return nil, err
	}
	c.DestroyPart(asVariant(args[2]).AsString())
	return ok()
}

func wholeAddSchema(args []registry.Value) ([]registry.Value, error) {
	a, err := resolveAgent(args, 0)
	if err != nil {
		return nil, err
	}
	sub, err := resolveAgent(args, 2)
	if err != nil {
		return nil, err
	}
	if err := a.AddSchema(asVariant(args[1]).AsString(), sub); err != nil {
		return nil, err
	}
	return ok()
}

func wholeGetSchema(args []registry.Value) ([]registry.Value, error) {
	a, err := resolveAgent(args, 0)
	if err != nil {
		return nil, err
	}
	sub := a.GetSchema(asVariant(args[1]).AsString())
	if sub == nil {
		return ok(variant.String(""))
	}
	return ok(variant.String(sub.ID))
}
