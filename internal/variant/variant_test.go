package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantStringifyAndParseRoundTrip(t *testing.T) {
	cases := []struct {
		kind Kind
		s    string
	}{
		{KindInt, "42"},
		{KindDouble, "3.5"},
		{KindBool, "true"},
		{KindString, "hello"},
		{KindLong, "9001"},
	}
	for _, c := range cases {
		v, err := Parse(c.kind, c.s)
		require.NoError(t, err)
		assert.Equal(t, c.kind, v.Kind())
		assert.Equal(t, c.s, v.AsString())
	}
}

func TestVariantEqualsAcrossNumericKinds(t *testing.T) {
	assert.True(t, Int(5).Equals(Long(5)))
	assert.True(t, Double(2.0).Equals(Int(2)))
	assert.False(t, Double(2.5).Equals(Int(2)))
	assert.True(t, String("a").Equals(String("a")))
	assert.False(t, String("a").Equals(Int(1)))
}

func TestVariantBoolCaseInsensitive(t *testing.T) {
	v, err := Parse(KindBool, "TRUE")
	require.NoError(t, err)
	assert.True(t, v.AsBool())
}

func TestDictionarySetGetExists(t *testing.T) {
	d := NewDictionary()
	d.Set(StringKey("name"), String("agent-1"))
	assert.True(t, d.Exists(StringKey("name")))
	assert.False(t, d.Exists(StringKey("missing")))
	assert.Equal(t, "agent-1", d.Get(StringKey("name"), Nil()).AsString())
	assert.Equal(t, "default", d.Get(StringKey("missing"), String("default")).AsString())
}

func TestDictionaryStringAndIntKeysAreDistinct(t *testing.T) {
	d := NewDictionary()
	d.Set(StringKey("1"), String("as-string-key"))
	d.Set(IntKey(1), String("as-int-key"))
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, "as-string-key", d.Get(StringKey("1"), Nil()).AsString())
	assert.Equal(t, "as-int-key", d.Get(IntKey(1), Nil()).AsString())
}

func TestDictionaryInsertionOrderPreservedAcrossOverwrite(t *testing.T) {
	d := NewDictionary()
	d.Set(StringKey("a"), Int(1))
	d.Set(StringKey("b"), Int(2))
	d.Set(StringKey("a"), Int(99))

	var keys []string
	d.IterateInsertionOrder(func(k Key, v Variant) bool {
		keys = append(keys, k.String())
		return true
	})
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.Equal(t, int64(99), d.Get(StringKey("a"), Nil()).AsInt64())
}

func TestDictionaryDestroyRemovesFromBothViews(t *testing.T) {
	d := NewDictionary()
	d.Set(StringKey("a"), Int(1))
	d.Set(StringKey("b"), Int(2))
	d.Destroy(StringKey("a"))

	assert.False(t, d.Exists(StringKey("a")))
	assert.Equal(t, 1, d.Len())
	var keys []string
	d.IterateInsertionOrder(func(k Key, v Variant) bool {
		keys = append(keys, k.String())
		return true
	})
	assert.Equal(t, []string{"b"}, keys)
}

func TestDictionaryAppendUsesArrayIndex(t *testing.T) {
	d := NewDictionary()
	i0 := d.Append(String("x"))
	i1 := d.Append(String("y"))
	assert.Equal(t, int64(0), i0)
	assert.Equal(t, int64(1), i1)
	assert.Equal(t, int64(2), d.GetNextArrayIndex())
	assert.Equal(t, "x", d.Get(IntKey(0), Nil()).AsString())
}

func TestDictionaryMergeOverwritesAndAppends(t *testing.T) {
	d := NewDictionary()
	d.Set(StringKey("a"), Int(1))
	d.Set(StringKey("b"), Int(2))

	other := NewDictionary()
	other.Set(StringKey("b"), Int(20))
	other.Set(StringKey("c"), Int(3))

	d.Merge(other)
	assert.Equal(t, int64(1), d.Get(StringKey("a"), Nil()).AsInt64())
	assert.Equal(t, int64(20), d.Get(StringKey("b"), Nil()).AsInt64())
	assert.Equal(t, int64(3), d.Get(StringKey("c"), Nil()).AsInt64())

	var keys []string
	d.IterateInsertionOrder(func(k Key, v Variant) bool {
		keys = append(keys, k.String())
		return true
	})
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

// TestDictionaryRoundTrip covers Testable Property 8: DeepCopy then
// DeepCompare must report equal for any Dictionary, including nested
// dictionaries at leaves.
func TestDictionaryRoundTrip(t *testing.T) {
	inner := NewDictionary()
	inner.Set(StringKey("x"), Double(1.5))
	inner.Append(String("y"))

	d := NewDictionary()
	d.Set(StringKey("alpha"), Double(1.5))
	d.Set(StringKey("beta"), FromDictionary(inner))

	clone := d.DeepCopy()
	assert.True(t, d.DeepCompare(clone))

	clone.Set(StringKey("alpha"), Double(2.0))
	assert.False(t, d.DeepCompare(clone))
}

func TestDictionaryNestedSetIsDeepCopy(t *testing.T) {
	inner := NewDictionary()
	inner.Set(StringKey("x"), Int(1))

	d := NewDictionary()
	d.Set(StringKey("nested"), FromDictionary(inner))

	inner.Set(StringKey("x"), Int(99))
	stored := d.Get(StringKey("nested"), Nil()).AsDictionary()
	assert.Equal(t, int64(1), stored.Get(StringKey("x"), Nil()).AsInt64())
}

func TestDictionaryJSONRoundTrip(t *testing.T) {
	d := NewDictionary()
	d.Set(StringKey("alpha"), Double(1.5))
	nested := NewDictionary()
	nested.Append(String("x"))
	nested.Append(String("y"))
	d.Set(StringKey("beta"), FromDictionary(nested))

	data, err := d.ToJSON()
	require.NoError(t, err)

	parsed, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, 1.5, parsed.Get(StringKey("alpha"), Nil()).AsFloat64())

	betaDict := parsed.Get(StringKey("beta"), Nil()).AsDictionary()
	require.NotNil(t, betaDict)
	assert.Equal(t, "x", betaDict.Get(IntKey(0), Nil()).AsString())
	assert.Equal(t, "y", betaDict.Get(IntKey(1), Nil()).AsString())
}

func TestDictionaryQueryJSONPath(t *testing.T) {
	d := NewDictionary()
	d.Set(StringKey("alpha"), Double(1.5))
	nested := NewDictionary()
	nested.Set(StringKey("name"), String("child"))
	d.Set(StringKey("beta"), FromDictionary(nested))

	v, err := d.Query("$.beta.name")
	require.NoError(t, err)
	assert.Equal(t, "child", v)
}

func TestRegisterPrimitivesAssignsStableTypeIDs(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, RegisterPrimitives(reg))
	assert.NotEqual(t, reg.GetTypeID("int"), reg.GetTypeID("string"))
	assert.Equal(t, "int", reg.GetTypeName(Int(0).TypeID()))
}
