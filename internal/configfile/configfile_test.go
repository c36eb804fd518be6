package configfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmrealm/agentrt/internal/variant"
)

func TestParseScalarPairs(t *testing.T) {
	dict, err := Parse(`
		// top-level realm config
		name "sandbox"
		priority 5
		ratio 1.5
		active true
	`)
	require.NoError(t, err)

	assert.Equal(t, "sandbox", dict.Get(variant.StringKey("name"), variant.Nil()).AsString())
	assert.Equal(t, int64(5), dict.Get(variant.StringKey("priority"), variant.Nil()).AsInt64())
	assert.Equal(t, 1.5, dict.Get(variant.StringKey("ratio"), variant.Nil()).AsFloat64())
	assert.True(t, dict.Get(variant.StringKey("active"), variant.Nil()).AsBool())
}

func TestParseNestedMap(t *testing.T) {
	dict, err := Parse(`
		scheduler {
			timeout_ms 250
			label "main"
		}
	`)
	require.NoError(t, err)

	nested := dict.Get(variant.StringKey("scheduler"), variant.Nil())
	require.True(t, nested.IsDictionary())
	assert.Equal(t, int64(250), nested.AsDictionary().Get(variant.StringKey("timeout_ms"), variant.Nil()).AsInt64())
}

func TestParseArrayAppendAndIndexed(t *testing.T) {
	dict, err := Parse(`
		paths[] "a"
		paths[] "b"
		labels[2] "third"
		labels[0] "first"
	`)
	require.NoError(t, err)

	paths := dict.Get(variant.StringKey("paths"), variant.Nil()).AsDictionary()
	assert.Equal(t, "a", paths.Get(variant.IntKey(0), variant.Nil()).AsString())
	assert.Equal(t, "b", paths.Get(variant.IntKey(1), variant.Nil()).AsString())

	labels := dict.Get(variant.StringKey("labels"), variant.Nil()).AsDictionary()
	assert.Equal(t, "third", labels.Get(variant.IntKey(2), variant.Nil()).AsString())
	assert.Equal(t, "first", labels.Get(variant.IntKey(0), variant.Nil()).AsString())
	assert.Equal(t, int64(3), labels.GetNextArrayIndex())
}

func TestParseNumericSequencePromotesToDoubleOnAnyFractional(t *testing.T) {
	dict, err := Parse(`position 1 2 3.5`)
	require.NoError(t, err)

	seq := dict.Get(variant.StringKey("position"), variant.Nil()).AsDictionary()
	require.NotNil(t, seq)
	assert.Equal(t, variant.KindDouble, seq.Get(variant.IntKey(0), variant.Nil()).Kind())
	assert.Equal(t, 3.5, seq.Get(variant.IntKey(2), variant.Nil()).AsFloat64())
}

func TestParseSingleNumberStaysScalar(t *testing.T) {
	dict, err := Parse(`count 7`)
	require.NoError(t, err)
	v := dict.Get(variant.StringKey("count"), variant.Nil())
	assert.False(t, v.IsDictionary())
	assert.Equal(t, int64(7), v.AsInt64())
}

func TestParseRawParenBlob(t *testing.T) {
	dict, err := Parse(`expr (a + b)`)
	require.NoError(t, err)
	assert.Equal(t, "a + b", dict.Get(variant.StringKey("expr"), variant.Nil()).AsString())
}

func TestWriteRoundTripsScalars(t *testing.T) {
	dict, err := Parse(`
		name "sandbox"
		priority 5
	`)
	require.NoError(t, err)

	rewritten := Write(dict)
	reparsed, err := Parse(rewritten)
	require.NoError(t, err)
	assert.True(t, dict.DeepCompare(reparsed))
}

func TestRealmConfigFromYAML(t *testing.T) {
	dict, err := RealmConfigFromYAML([]byte("name: sandbox\nscheduler:\n  timeout_ms: 250\npaths:\n  - a\n  - b\n"))
	require.NoError(t, err)

	assert.Equal(t, "sandbox", dict.Get(variant.StringKey("name"), variant.Nil()).AsString())
	nested := dict.Get(variant.StringKey("scheduler"), variant.Nil()).AsDictionary()
	assert.Equal(t, int64(250), nested.Get(variant.StringKey("timeout_ms"), variant.Nil()).AsInt64())
	paths := dict.Get(variant.StringKey("paths"), variant.Nil()).AsDictionary()
	assert.Equal(t, "a", paths.Get(variant.IntKey(0), variant.Nil()).AsString())
}

func TestChecksumIsStableAndContentSensitive(t *testing.T) {
	a := Checksum([]byte("hello"))
	b := Checksum([]byte("hello"))
	c := Checksum([]byte("world"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
