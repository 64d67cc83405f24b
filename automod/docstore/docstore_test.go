package docstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadSave(t *testing.T) {
	assert := assert.New(t)
	p := filepath.Join(t.TempDir(), "nested", "doc.json")

	var out map[string]int
	found, err := Load(p, &out)
	assert.NoError(err)
	assert.False(found)

	assert.NoError(Save(p, map[string]int{"a": 1, "b": 2}))
	found, err = Load(p, &out)
	assert.NoError(err)
	assert.True(found)
	assert.Equal(map[string]int{"a": 1, "b": 2}, out)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(p))
	assert.NoError(err)
	assert.Equal(1, len(entries))
}

func TestLoadComments(t *testing.T) {
	assert := assert.New(t)
	p := filepath.Join(t.TempDir(), "doc.json")
	raw := `{
    // operators leave notes in here
    "a": 1,
    "b": 2,
}`
	assert.NoError(os.WriteFile(p, []byte(raw), 0o644))

	var out map[string]int
	found, err := Load(p, &out)
	assert.NoError(err)
	assert.True(found)
	assert.Equal(2, out["b"])

	assert.NoError(os.WriteFile(p, []byte("not json"), 0o644))
	_, err = Load(p, &out)
	assert.Error(err)
}
