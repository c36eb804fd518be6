package engine

import (
	"context"
	"fmt"

	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/variant"
)

// UnsupportedEngine answers every call with an error naming the
// language it stands in for. Registering it under process.ImplLua or
// process.ImplPython lets Realms declare those Implementation tags in
// config without the runtime silently misrouting to goja; a real
// adapter can replace it without touching any caller.
type UnsupportedEngine struct {
	Language string
}

func (e *UnsupportedEngine) Load(ctx context.Context, p *process.Process, scriptSource string) error {
	return fmt.Errorf("%s scripting is not available in this build", e.Language)
}

func (e *UnsupportedEngine) Call(ctx context.Context, p *process.Process, functionName string, args []variant.Variant) ([]variant.Variant, error) {
	return nil, fmt.Errorf("%s scripting is not available in this build", e.Language)
}

func (e *UnsupportedEngine) HasFunction(p *process.Process, functionName string) bool {
	return false
}

func (e *UnsupportedEngine) Eval(ctx context.Context, p *process.Process, source string) ([]variant.Variant, error) {
	return nil, fmt.Errorf("%s scripting is not available in this build", e.Language)
}

func (e *UnsupportedEngine) Unload(p *process.Process) {}
