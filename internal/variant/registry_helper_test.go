package variant

import (
	"testing"

	"github.com/vmrealm/agentrt/internal/registry"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	return registry.New()
}
