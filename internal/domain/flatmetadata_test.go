package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatMetadataSettersDropEmptyValues(t *testing.T) {
	m := NewFlatMetadata()
	m.SetString("empty", "")
	m.SetString("full", "x")
	m.SetStringList("empty_list", nil)
	m.SetStringList("full_list", []string{"a"})
	m.SetBool("flag", false)

	_, hasEmpty := m["empty"]
	_, hasEmptyList := m["empty_list"]
	assert.False(t, hasEmpty)
	assert.False(t, hasEmptyList)
	assert.Equal(t, "x", m["full"])
	assert.Equal(t, []string{"a"}, m["full_list"])
	assert.Equal(t, false, m["flag"], "booleans are never dropped, even false")
}

func TestFlatMetadataMergeLastWriterWins(t *testing.T) {
	a := NewFlatMetadata()
	a.SetString("key", "from_a")
	b := NewFlatMetadata()
	b.SetString("key", "from_b")
	a.Merge(b)
	assert.Equal(t, "from_b", a["key"])
}

func TestFlatMetadataCloneIsIndependent(t *testing.T) {
	a := NewFlatMetadata()
	a.SetString("key", "v")
	b := a.Clone()
	b["key"] = "mutated"
	assert.Equal(t, "v", a["key"])
}

func TestFlatMetadataValidateRejectsNestedMaps(t *testing.T) {
	m := FlatMetadata{"nested": map[string]any{"x": 1}}
	require.Error(t, m.Validate())
}

func TestFlatMetadataValidateRejectsNonStringListElements(t *testing.T) {
	m := FlatMetadata{"bad_list": []any{"ok", 1}}
	require.Error(t, m.Validate())
}

func TestFlatMetadataValidateAcceptsScalarsAndStringLists(t *testing.T) {
	m := FlatMetadata{
		"s": "text", "i": 1, "f": 1.5, "b": true, "list": []string{"a", "b"},
	}
	require.NoError(t, m.Validate())
}

func TestFlatMetadataRequiredKeysPresent(t *testing.T) {
	m := FlatMetadata{"landmark_id": "LP-00001"}
	missing := m.RequiredKeysPresent(RequiredKeysShared)
	assert.Contains(t, missing, "source_type")
	assert.NotContains(t, missing, "landmark_id")
}

func TestFlatMetadataStringsToAPI(t *testing.T) {
	m := FlatMetadata{
		"b":    true,
		"list": []string{"a", "b"},
		"s":    "hello",
		"n":    5,
	}
	out := m.StringsToAPI()
	assert.Equal(t, true, out["b"])
	assert.Equal(t, []string{"a", "b"}, out["list"])
	assert.Equal(t, "hello", out["s"])
	assert.Equal(t, "5", out["n"])
}
