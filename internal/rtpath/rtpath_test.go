package rtpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandSingleLabel(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.SetLabel("BOOT", "/var/agentrt/boot"))

	expanded, err := r.Expand("%boot%/main.js")
	require.NoError(t, err)
	assert.Equal(t, "/var/agentrt/boot/main.js", expanded)
}

func TestExpandUnknownLabelErrors(t *testing.T) {
	r := NewResolver()
	_, err := r.Expand("%missing%/x")
	assert.Error(t, err)
}

func TestExpandUnterminatedLabelErrors(t *testing.T) {
	r := NewResolver()
	_, err := r.Expand("%boot/x")
	assert.Error(t, err)
}

func TestSetLabelExpandsAgainstExistingLabels(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.SetLabel("ROOT", "/var/agentrt"))
	require.NoError(t, r.SetLabel("BOOT", "%root%/boot"))

	v, ok := r.GetLabel("BOOT")
	require.True(t, ok)
	assert.Equal(t, "/var/agentrt/boot", v)
}

func TestReadPathContainment(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.AddReadPath("/var/agentrt/scripts"))

	assert.NoError(t, r.IsValidReadPath("/var/agentrt/scripts/main.js"))
	assert.Error(t, r.IsValidReadPath("/etc/passwd"))
}

func TestReadPathRejectsRepositioning(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.AddReadPath("/var/agentrt/scripts"))

	assert.Error(t, r.IsValidReadPath("/var/agentrt/scripts/../../etc/passwd"))
}

func TestRemovePathRevokesAccess(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.AddWritePath("/var/agentrt/data"))
	assert.NoError(t, r.IsValidWritePath("/var/agentrt/data/out.json"))

	r.RemoveWritePath("/var/agentrt/data")
	assert.Error(t, r.IsValidWritePath("/var/agentrt/data/out.json"))
}

func TestAddPathDeduplicates(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.AddReadPath("/var/agentrt/scripts"))
	require.NoError(t, r.AddReadPath("/var/agentrt/scripts"))
	assert.Len(t, r.readPaths, 1)
}
