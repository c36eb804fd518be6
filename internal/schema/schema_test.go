package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodePortsAndEdges(t *testing.T) {
	parent := NewNode("root")
	child := NewNode("child")
	parent.AddChild(child)

	child.CreateOutputInterface("out", 2)
	parent.CreateInputInterface("in", 2)

	require.NoError(t, child.WriteOutput("out", []float64{1, 2}))

	_, err := parent.CreateEdge(0, "out", "in")
	require.NoError(t, err)

	parent.Update()
	values, err := parent.ReadInput("in")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, values)
}

func TestNodeSiblingIndexResolution(t *testing.T) {
	parent := NewNode("root")
	a := NewNode("a")
	b := NewNode("b")
	parent.AddChild(a)
	parent.AddChild(b)

	a.CreateOutputInterface("out", 1)
	b.CreateInputInterface("in", 1)
	require.NoError(t, a.WriteOutput("out", []float64{9}))

	_, err := b.CreateEdge(-1, "out", "in")
	require.NoError(t, err)
	b.Update()
	values, _ := b.ReadInput("in")
	assert.Equal(t, []float64{9}, values)
}

func TestNodeDestroyChildNodes(t *testing.T) {
	parent := NewNode("root")
	child := NewNode("child")
	parent.AddChild(child)
	require.Len(t, parent.GetChildNodes(), 1)

	parent.DestroyChildNodes()
	assert.Empty(t, parent.GetChildNodes())
}

func TestWholeCollectionPart(t *testing.T) {
	w := newWhole()
	c, err := w.CreateCollection("parts")
	require.NoError(t, err)

	p1, err := c.AddPart("left", NewNode("left"))
	require.NoError(t, err)
	p2, err := c.AddPart("right", NewNode("right"))
	require.NoError(t, err)

	assert.Equal(t, uint64(0), p1.ID)
	assert.Equal(t, uint64(1), p2.ID)
	assert.Same(t, p1, c.GetPartByName("left"))
	assert.Same(t, p2, c.GetPartByID(1))

	c.DestroyPart("left")
	assert.Nil(t, c.GetPartByName("left"))
}

func TestAgentSchemaRegistration(t *testing.T) {
	a := NewAgent("agent-1", nil)
	sub := NewAgent("agent-2", nil)
	require.NoError(t, a.AddSchema("child", sub))
	assert.Same(t, sub, a.GetSchema("child"))

	err := a.AddSchema("child", sub)
	assert.Error(t, err)
}
