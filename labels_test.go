package detrack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLabels(t *testing.T) {

	path := filepath.Join(t.TempDir(), "labels.txt")
	data := "# plates\nperson\n\n  car \nbus\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, Taxonomy{"person", "car", "bus"}, labels)
	assert.Equal(t, 3, labels.Len())
	assert.Equal(t, "car", labels.Name(1))

	idx, ok := labels.Index("bus")
	assert.True(t, ok)
	assert.Equal(t, 2, idx)

	_, ok = labels.Index("truck")
	assert.False(t, ok)
}

func TestLoadLabelsEmpty(t *testing.T) {

	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("\n# nothing\n"), 0o644))

	_, err := LoadLabels(path)
	assert.ErrorIs(t, err, ErrConfig)

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestCOCOLabels(t *testing.T) {
	assert.Equal(t, 80, COCOLabels.Len())
	assert.Equal(t, "person", COCOLabels.Name(0))
	assert.Equal(t, "toothbrush", COCOLabels.Name(79))
}
