// Package engine adapts script implementations (Process.Implementation
// tags) to a narrow invocation surface the rest of the runtime drives,
// grounded on the host TEE layer's ScriptEngine/ScriptExecutionRequest
// split (system/tee/script_engine.go, system/tee/script_domain.go):
// that package isolates "which JS runtime actually runs the script"
// behind an interface so the enclave-backed and simulation engines are
// interchangeable; here the same seam isolates "which language backs
// this Process" behind one interface so goja, and eventually other
// language adapters, are interchangeable.
package engine

import (
	"context"
	"fmt"

	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/variant"
)

// Entry points a script's Implementation is expected to define.
const (
	EntryMain       = "shhMain"
	EntryInitialize = "shhInitialize"
	EntryUpdate     = "shhUpdate"
	EntryFinalize   = "shhFinalize"
)

// ScriptEngine is the narrow collaborator boundary between a Process
// and the language runtime that executes its script. This runtime
// does not prescribe a scripting language, only the entry points a
// language binding must expose.
type ScriptEngine interface {
	// Load compiles and evaluates scriptSource once into a fresh
	// isolated runtime bound to p, registering any module functions p
	// has declared via RegisterModule.
	Load(ctx context.Context, p *process.Process, scriptSource string) error
	// Call invokes functionName with args inside p's already-loaded
	// runtime and returns its results.
	Call(ctx context.Context, p *process.Process, functionName string, args []variant.Variant) ([]variant.Variant, error)
	// HasFunction reports whether functionName is defined in p's
	// loaded runtime, used before invoking optional entry points such
	// as shhInitialize.
	HasFunction(p *process.Process, functionName string) bool
	// Eval compiles and immediately runs source inside p's already-loaded
	// runtime, returning whatever value the script expression produced.
	// It backs the shh.ExecuteString/ExecuteFile host functions, which
	// run an arbitrary snippet against an already-running process rather
	// than bootstrapping a new one.
	Eval(ctx context.Context, p *process.Process, source string) ([]variant.Variant, error)
	// Unload releases the runtime bound to p.
	Unload(p *process.Process)
}

// Registry dispatches to a ScriptEngine by Process.Implementation, per
// the Implementation tag (Engine/Lua/Python).
type Registry struct {
	engines map[process.Implementation]ScriptEngine
}

// NewRegistry builds an engine Registry with no adapters installed.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[process.Implementation]ScriptEngine)}
}

// Register installs the ScriptEngine responsible for impl.
func (r *Registry) Register(impl process.Implementation, e ScriptEngine) {
	r.engines[impl] = e
}

// For returns the ScriptEngine registered for impl, or an error if none
// was installed.
func (r *Registry) For(impl process.Implementation) (ScriptEngine, error) {
	e, ok := r.engines[impl]
	if !ok {
		return nil, fmt.Errorf("no script engine registered for implementation %q", impl)
	}
	return e, nil
}
