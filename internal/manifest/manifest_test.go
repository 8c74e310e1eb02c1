package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest_Format(t *testing.T) {
	m := New()
	m.Add("/srv/builds/zc706-master/runtime.bin")
	m.Add("/srv/builds/zc706-master/runtime.elf")
	m.Add("/srv/builds/zc706-master/boot.bin")

	var sb strings.Builder
	_, err := m.WriteTo(&sb)
	require.NoError(t, err)

	expected := "file binary-dist /srv/builds/zc706-master/runtime.bin\n" +
		"file binary-dist /srv/builds/zc706-master/runtime.elf\n" +
		"file binary-dist /srv/builds/zc706-master/boot.bin\n"
	assert.Equal(t, expected, sb.String())
}

func TestManifest_WriteAndParseFile(t *testing.T) {
	dir := t.TempDir()

	m := New()
	m.Add(filepath.Join(dir, "satman.bin"))
	m.AddTyped("doc", filepath.Join(dir, "README"))

	require.NoError(t, m.WriteFile(dir))

	entries, err := ParseFile(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, TypeBinaryDist, entries[0].Type)
	assert.Equal(t, filepath.Join(dir, "satman.bin"), entries[0].Path)
	assert.Equal(t, "doc", entries[1].Type)
}

func TestManifest_EntriesCopies(t *testing.T) {
	m := New()
	m.Add("a.bin")

	entries := m.Entries()
	entries[0].Path = "mutated"

	assert.Equal(t, "a.bin", m.Entries()[0].Path, "callers cannot mutate internal state")
}

func TestParse_SkipsBlankLines(t *testing.T) {
	input := "file binary-dist a.bin\n\n\nfile binary-dist b.bin\n"

	entries, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.bin", entries[0].Path)
	assert.Equal(t, "b.bin", entries[1].Path)
}

func TestParse_MalformedLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "wrong keyword", input: "product binary-dist a.bin\n"},
		{name: "missing path", input: "file binary-dist\n"},
		{name: "extra field", input: "file binary-dist a.bin extra\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "malformed manifest entry")
		})
	}
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open manifest")
}

func TestManifest_EmptyWritesEmptyFile(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, New().WriteFile(dir))

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Empty(t, data)
}
