package classmgr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/variant"
)

func TestParseClassSpecLine(t *testing.T) {
	spec, err := ParseClassSpecLine("Worker Specializes Agent (Abstract)")
	require.NoError(t, err)
	assert.Equal(t, "Worker", spec.ClassName)
	assert.Equal(t, "Agent", spec.ParentName)
	assert.True(t, spec.Abstract)
}

func TestParseClassSpecLineRejectsMalformed(t *testing.T) {
	_, err := ParseClassSpecLine("not a spec line")
	assert.Error(t, err)

	_, err = ParseClassSpecLine("1BadName Specializes Agent")
	assert.Error(t, err)
}

func TestBuildHierarchyTopSortsAndLinksParents(t *testing.T) {
	specs := []*ClassSpec{
		{ClassName: "Manager", ParentName: "Worker"},
		{ClassName: "Worker", ParentName: "Agent"},
	}
	base := process.New("base", process.PrivAgent, process.ImplEngine, nil)
	classes, err := BuildHierarchy("Agent", specs, base, "::")
	require.NoError(t, err)

	worker := classes["Worker"]
	require.NotNil(t, worker)
	assert.Equal(t, "Agent::", worker.OverridePrefix)

	manager := classes["Manager"]
	require.NotNil(t, manager)
	assert.Equal(t, "Worker::", manager.OverridePrefix)
}

func TestBuildHierarchyDetectsCycles(t *testing.T) {
	specs := []*ClassSpec{
		{ClassName: "A", ParentName: "B"},
		{ClassName: "B", ParentName: "A"},
	}
	base := process.New("base", process.PrivAgent, process.ImplEngine, nil)
	_, err := BuildHierarchy("Agent", specs, base, "::")
	assert.Error(t, err)
}

func TestBuildHierarchyRejectsFinalParent(t *testing.T) {
	specs := []*ClassSpec{
		{ClassName: "Sealed", ParentName: "Agent", Final: true},
		{ClassName: "Child", ParentName: "Sealed"},
	}
	base := process.New("base", process.PrivAgent, process.ImplEngine, nil)
	_, err := BuildHierarchy("Agent", specs, base, "::")
	assert.Error(t, err)
}

func TestClassManagerCreateObjectChecksPrivilegeAndAbstract(t *testing.T) {
	base := process.New("base", process.PrivAgent, process.ImplEngine, nil)
	m := NewClassManager("Agent", process.PrivAgent, base)
	m.InstallHierarchy(map[string]*Class{
		"Worker":   {Name: "Worker", TypeName: "Agent"},
		"Abstract": {Name: "Abstract", TypeName: "Agent", Abstract: true},
	})

	obj, valid, err := m.CreateObject("Worker", process.PrivAgent, "obj-1", base, nil, nil)
	require.NoError(t, err)
	assert.True(t, valid)
	assert.True(t, obj.IsValid())

	_, _, err = m.CreateObject("Worker", process.PrivBasic, "obj-2", base, nil, nil)
	assert.Error(t, err)

	_, _, err = m.CreateObject("Abstract", process.PrivAgent, "obj-3", base, nil, nil)
	assert.Error(t, err)
}

func TestClassManagerDestroyObjectInvalidates(t *testing.T) {
	base := process.New("base", process.PrivAgent, process.ImplEngine, nil)
	m := NewClassManager("Agent", process.PrivAgent, base)
	m.InstallHierarchy(map[string]*Class{"Worker": {Name: "Worker", TypeName: "Agent"}})

	obj, _, err := m.CreateObject("Worker", process.PrivAgent, "obj-1", base, nil, nil)
	require.NoError(t, err)

	m.DestroyObject("obj-1")
	assert.False(t, obj.IsValid())
	assert.Nil(t, m.GetObject("obj-1"))
}

func TestClassManagerCreateObjectRunsInitializerAndRollsBackOnFailure(t *testing.T) {
	base := process.New("base", process.PrivAgent, process.ImplEngine, nil)
	m := NewClassManager("Agent", process.PrivAgent, base)
	m.InstallHierarchy(map[string]*Class{"Worker": {Name: "Worker", TypeName: "Agent"}})

	var seenArgs []variant.Variant
	obj, valid, err := m.CreateObject("Worker", process.PrivAgent, "obj-1", base, []variant.Variant{variant.String("seed")},
		func(o *Object, args []variant.Variant) error {
			seenArgs = args
			o.Backing = "initialized"
			return nil
		})
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, "initialized", obj.Backing)
	require.Len(t, seenArgs, 1)
	assert.Equal(t, "seed", seenArgs[0].AsString())

	_, _, err = m.CreateObject("Worker", process.PrivAgent, "obj-2", base, nil,
		func(o *Object, args []variant.Variant) error {
			return assert.AnError
		})
	assert.Error(t, err)
	assert.Nil(t, m.GetObject("obj-2"))
}

func TestClassManagerVerifyIntegrityDetectsHashMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Worker.script")
	require.NoError(t, os.WriteFile(path, []byte("// Worker Specializes Agent\n"), 0o644))

	specs, err := ScanClasses(dir, "//", false, nil)
	require.NoError(t, err)
	require.Len(t, specs, 1)

	base := process.New("base", process.PrivAgent, process.ImplEngine, nil)
	classes, err := BuildHierarchy("Agent", specs, base, "::")
	require.NoError(t, err)

	m := NewClassManager("Agent", process.PrivAgent, base)
	m.InstallHierarchy(classes)
	require.NoError(t, m.VerifyIntegrity())

	require.NoError(t, os.WriteFile(path, []byte("// Worker Specializes Agent (changed)\n"), 0o644))
	assert.Error(t, m.VerifyIntegrity())
}
