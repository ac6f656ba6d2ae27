package haste

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileEntry_MarshalUnmarshalRoundTrip(t *testing.T) {
	t.Parallel()

	entry := FileEntry{
		HasteID: "Foo",
		MTime:   1234567890,
		Size:    42,
		Visited: true,
		Deps:    []string{"Bar", "Baz"},
		SHA1:    "deadbeef",
	}

	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var decoded FileEntry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, entry, decoded)
}

func TestFileEntry_MarshalJSON_IsPositionalArray(t *testing.T) {
	t.Parallel()

	entry := FileEntry{HasteID: "Foo", MTime: 1, Size: 2, Visited: false, Deps: nil, SHA1: ""}
	data, err := json.Marshal(entry)
	require.NoError(t, err)

	var tuple []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &tuple))
	assert.Len(t, tuple, 6)
}

func TestEmpty_HasNoNilMaps(t *testing.T) {
	t.Parallel()

	snap := Empty()
	assert.NotNil(t, snap.Clocks)
	assert.NotNil(t, snap.Files)
	assert.NotNil(t, snap.Modules)
	assert.NotNil(t, snap.Mocks)
	assert.NotNil(t, snap.Duplicates)

	assert.NotPanics(t, func() {
		snap.Files["a.js"] = &FileEntry{}
		snap.Modules["Foo"] = PlatformBindings{Generic: ModuleEntry{Path: "a.js"}}
	})
}

func TestSnapshot_CloneShallow_IsIndependentOfSource(t *testing.T) {
	t.Parallel()

	snap := Empty()
	snap.Files["a.js"] = &FileEntry{MTime: 1}
	snap.Modules["Foo"] = PlatformBindings{Generic: {Path: "a.js"}}
	snap.Duplicates["Foo"] = map[string]DuplicateBindings{
		Generic: {"a.js": KindModule, "b.js": KindModule},
	}

	clone := snap.CloneShallow()
	clone.Files["c.js"] = &FileEntry{MTime: 2}
	delete(clone.Modules, "Foo")
	delete(clone.Duplicates["Foo"][Generic], "a.js")

	assert.NotContains(t, snap.Files, "c.js")
	assert.Contains(t, snap.Modules, "Foo")
	assert.Contains(t, snap.Duplicates["Foo"][Generic], "a.js")
}

func TestPlatform_RecognizesConfiguredSuffix(t *testing.T) {
	t.Parallel()

	platforms := []string{"ios", "android"}
	assert.Equal(t, "ios", Platform("Widget.ios.js", platforms))
	assert.Equal(t, "android", Platform("Widget.android.js", platforms))
	assert.Equal(t, Generic, Platform("Widget.js", platforms))
	assert.Equal(t, Generic, Platform("Widget.ios.js", nil))
}

func TestPlatform_NestedPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ios", Platform("components/Widget.ios.js", []string{"ios"}))
}
