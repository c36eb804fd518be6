package schema

import (
	"fmt"
	"sync"

	"github.com/vmrealm/agentrt/internal/vm"
)

// Part is a single member of a Collection, indexed by both name and a
// monotonic part-id.
type Part struct {
	ID   uint64
	Name string
	Node *Node
}

// Collection is a two-level, named grouping of Parts owned by a Whole.
type Collection struct {
	Name string

	mu       sync.Mutex
	byName   map[string]*Part
	byID     map[uint64]*Part
	nextPart uint64
}

func newCollection(name string) *Collection {
	return &Collection{Name: name, byName: make(map[string]*Part), byID: make(map[uint64]*Part)}
}

// AddPart inserts a named Part and assigns it the next monotonic id.
func (c *Collection) AddPart(name string, node *Node) (*Part, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byName[name]; exists {
		return nil, fmt.Errorf("part %q already exists in collection %q", name, c.Name)
	}
	p := &Part{ID: c.nextPart, Name: name, Node: node}
	c.nextPart++
	c.byName[name] = p
	c.byID[p.ID] = p
	return p, nil
}

// GetPartByName returns the Part registered under name, or nil.
func (c *Collection) GetPartByName(name string) *Part {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byName[name]
}

// GetPartByID returns the Part registered under id, or nil.
func (c *Collection) GetPartByID(id uint64) *Part {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.byID[id]
}

// DestroyPart removes a Part by name from both indexes.
func (c *Collection) DestroyPart(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.byName[name]; ok {
		delete(c.byName, name)
		delete(c.byID, p.ID)
	}
}

// Whole owns zero-or-more named Collections.
type Whole struct {
	mu          sync.Mutex
	collections map[string]*Collection
}

func newWhole() *Whole {
	return &Whole{collections: make(map[string]*Collection)}
}

// CreateCollection creates and registers a new, empty Collection.
func (w *Whole) CreateCollection(name string) (*Collection, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.collections[name]; exists {
		return nil, fmt.Errorf("collection %q already exists", name)
	}
	c := newCollection(name)
	w.collections[name] = c
	return c, nil
}

// GetCollection returns the Collection registered under name, or nil.
func (w *Whole) GetCollection(name string) *Collection {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.collections[name]
}

// DestroyCollection removes a Collection by name.
func (w *Whole) DestroyCollection(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.collections, name)
}

// Agent is a VM+Object whose master Process executes the agent's
// script; it may own Schemas (sub-agents) and a Whole.
type Agent struct {
	ID string
	VM *vm.VM

	mu      sync.Mutex
	schemas map[string]*Agent
	whole   *Whole
}

// NewAgent creates an Agent bound to an already-constructed VM (the
// Agent's master Process runs the agent script).
func NewAgent(id string, v *vm.VM) *Agent {
	return &Agent{ID: id, VM: v, schemas: make(map[string]*Agent)}
}

// AddSchema registers a sub-agent under name.
func (a *Agent) AddSchema(name string, sub *Agent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.schemas[name]; exists {
		return fmt.Errorf("schema %q already exists on agent %q", name, a.ID)
	}
	a.schemas[name] = sub
	return nil
}

// GetSchema returns the sub-agent registered under name, or nil.
func (a *Agent) GetSchema(name string) *Agent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.schemas[name]
}

// Whole lazily creates and returns the agent's Whole.
func (a *Agent) Whole() *Whole {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.whole == nil {
		a.whole = newWhole()
	}
	return a.whole
}
