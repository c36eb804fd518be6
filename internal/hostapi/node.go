package hostapi

import (
	"fmt"

	"github.com/vmrealm/agentrt/internal/registry"
	"github.com/vmrealm/agentrt/internal/schema"
	"github.com/vmrealm/agentrt/internal/variant"
)

func registerNode(reg *registry.Registry) error {
	mod, err := reg.RegisterModule("Node")
	if err != nil {
		return err
	}

	fns := []struct {
		name     string
		argTypes []registry.TypeID
		fn       registry.Callable
	}{
		{"CreateInputInterface", []registry.TypeID{tidString, tidString, tidLong}, nodeCreateInputInterface},
		{"CreateOutputInterface", []registry.TypeID{tidString, tidString, tidLong}, nodeCreateOutputInterface},
		{"ReadInput", []registry.TypeID{tidString, tidString}, nodeReadInput},
		{"WriteOutput", []registry.TypeID{tidString, tidString, tidDict}, nodeWriteOutput},
		{"AddChild", []registry.TypeID{tidString, tidString}, nodeAddChild},
		{"GetChildNodes", []registry.TypeID{tidString}, nodeGetChildNodes},
		{"CreateEdge", []registry.TypeID{tidString, tidLong, tidString, tidString}, nodeCreateEdge},
		{"Update", []registry.TypeID{tidString}, nodeUpdate},
		{"Destroy", []registry.TypeID{tidString}, nodeDestroy},
		{"DestroyChildNodes", []registry.TypeID{tidString}, nodeDestroyChildNodes},
	}
	for _, f := range fns {
		if err := mod.AddFunction(f.name, f.argTypes, f.fn); err != nil {
			return fmt.Errorf("Node.%s: %w", f.name, err)
		}
	}
	return nil
}

// resolveNode looks the backing *schema.Node up under the caller's
// "Node" ClassManager by object id.
func resolveNode(args []registry.Value, idIndex int) (*schema.Node, error) {
	p, err := caller("Node")
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
	id := asVariant(args[idIndex]).AsString()
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

func floatsToDict(vals []float64) *variant.Dictionary {
	d := variant.NewDictionary()
	for _, v := range vals {
		d.Append(variant.Double(v))
	}
	return d
}

func dictToFloats(d *variant.Dictionary) []float64 {
	if d == nil {
		return nil
	}
	var out []float64
	d.IterateInsertionOrder(func(_ variant.Key, v variant.Variant) bool {
		out = append(out, v.AsFloat64())
		return true
	})
	return out
}

func nodeCreateInputInterface(args []registry.Value) ([]registry.Value, error) {
	n, err := resolveNode(args, 0)
	if err != nil {
		return nil, err
	}
	n.CreateInputInterface(asVariant(args[1]).AsString(), int(asVariant(args[2]).AsInt64()))
	return ok()
}

func nodeCreateOutputInterface(args []registry.Value) ([]registry.Value, error) {
	n, err := resolveNode(args, 0)
	if err != nil {
		return nil, err
	}
	n.CreateOutputInterface(asVariant(args[1]).AsString(), int(asVariant(args[2]).AsInt64()))
	return ok()
}

func nodeReadInput(args []registry.Value) ([]registry.Value, error) {
	n, err := resolveNode(args, 0)
	if err != nil {
		return nil, err
	}
	vals, err := n.ReadInput(asVariant(args[1]).AsString())
	if err != nil {
		return nil, err
	}
	return ok(variant.FromDictionary(floatsToDict(vals)))
}

func nodeWriteOutput(args []registry.Value) ([]registry.Value, error) {
	n, err := resolveNode(args, 0)
	if err != nil {
		return nil, err
	}
	if err := n.WriteOutput(asVariant(args[1]).AsString(), dictToFloats(asVariant(args[2]).AsDictionary())); err != nil {
		return nil, err
	}
	return ok()
}

func nodeAddChild(args []registry.Value) ([]registry.Value, error) {
	n, err := resolveNode(args, 0)
	if err != nil {
		return nil, err
	}
	child, err := resolveNode(args, 1)
	if err != nil {
		return nil, err
	}
	n.AddChild(child)
	return ok()
}

func nodeGetChildNodes(args []registry.Value) ([]registry.Value, error) {
	n, err := resolveNode(args, 0)
	if err != nil {
		return nil, err
	}
	out := variant.NewDictionary()
	for _, c := range n.GetChildNodes() {
		out.Append(variant.String(c.ID))
	}
	return ok(variant.FromDictionary(out))
}

func nodeCreateEdge(args []registry.Value) ([]registry.Value, error) {
	n, err := resolveNode(args, 0)
	if err != nil {
		return nil, err
	}
	_, err = n.CreateEdge(int(asVariant(args[1]).AsInt64()), asVariant(args[2]).AsString(), asVariant(args[3]).AsString())
	if err != nil {
		return nil, err
	}
	return ok()
}

func nodeUpdate(args []registry.Value) ([]registry.Value, error) {
	n, err := resolveNode(args, 0)
	if err != nil {
		return nil, err
	}
	n.Update()
	return ok()
}

func nodeDestroy(args []registry.Value) ([]registry.Value, error) {
	n, err := resolveNode(args, 0)
	if err != nil {
		return nil, err
	}
	n.Destroy()
	return ok()
}

func nodeDestroyChildNodes(args []registry.Value) ([]registry.Value, error) {
	n, err := resolveNode(args, 0)
	if err != nil {
		return nil, err
	}
	n.DestroyChildNodes()
	return ok()
}
