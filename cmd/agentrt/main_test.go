package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmrealm/agentrt/internal/api"
	"github.com/vmrealm/agentrt/internal/engine"
	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/rtpath"
	"github.com/vmrealm/agentrt/internal/variant"
)

func TestLoadAndCallRunsScriptThroughRegisteredEngine(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "boot.js")
	require.NoError(t, os.WriteFile(scriptPath, []byte(`
		var seen = null;
		function shhMain(config) { seen = config; return "booted"; }
	`), 0o600))

	resolver := rtpath.NewResolver()
	require.NoError(t, resolver.SetLabel("root", dir))
	require.NoError(t, resolver.AddReadPath("%root%"))

	a := api.New(api.Config{})
	a.RegisterScriptEngine(process.ImplEngine, engine.NewGojaEngine(a.Registry()))
	p := process.New("p1", process.PrivGod, process.ImplEngine, nil)

	config := variant.NewDictionary()
	config.Set(variant.StringKey("name"), variant.String("test-realm"))

	err := loadAndCall(context.Background(), a, p, resolver, "%root%/boot.js", engine.EntryMain, config)
	assert.NoError(t, err)
}

func TestLoadAndCallRejectsPathOutsideAllowList(t *testing.T) {
	resolver := rtpath.NewResolver()
	require.NoError(t, resolver.SetLabel("root", t.TempDir()))
	require.NoError(t, resolver.AddReadPath("%root%"))

	a := api.New(api.Config{})
	a.RegisterScriptEngine(process.ImplEngine, engine.NewGojaEngine(a.Registry()))
	p := process.New("p1", process.PrivGod, process.ImplEngine, nil)

	err := loadAndCall(context.Background(), a, p, resolver, "/etc/passwd", engine.EntryMain, variant.NewDictionary())
	assert.Error(t, err)
}
