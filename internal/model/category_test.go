package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryRegistry_Known(t *testing.T) {
	r, err := NewCategoryRegistry(DefaultCategoryMapping())
	require.NoError(t, err)

	cat, violent, known := r.Collapse("THEFT")
	assert.True(t, known)
	assert.Equal(t, Category("THEFT"), cat)
	assert.False(t, violent)

	cat, violent, known = r.Collapse("HOMICIDE")
	assert.True(t, known)
	assert.Equal(t, Category("HOMICIDE"), cat)
	assert.True(t, violent)

	cat, violent, known = r.Collapse("MOTOR VEHICLE THEFT")
	assert.True(t, known)
	assert.Equal(t, Category("THEFT"), cat)
	assert.False(t, violent)
}

func TestCategoryRegistry_UnknownPassThrough(t *testing.T) {
	r, err := NewCategoryRegistry(DefaultCategoryMapping())
	require.NoError(t, err)

	cat, violent, known := r.Collapse("RITUAL MISCHIEF")
	assert.False(t, known)
	assert.Equal(t, Category("RITUAL MISCHIEF"), cat)
	assert.False(t, violent)

	// Seen twice, recorded once with a count of two.
	r.Collapse("RITUAL MISCHIEF")
	unknown := r.Unknown()
	assert.Equal(t, 2, unknown["RITUAL MISCHIEF"])
	assert.Equal(t, []string{"RITUAL MISCHIEF"}, r.UnknownDescriptions())
}

func TestNewCategoryRegistry_Validation(t *testing.T) {
	t.Run("empty table", func(t *testing.T) {
		_, err := NewCategoryRegistry(CategoryMapping{})
		require.Error(t, err)
	})

	t.Run("violent label outside collapse range", func(t *testing.T) {
		_, err := NewCategoryRegistry(CategoryMapping{
			Collapse: map[string]Category{"THEFT": "THEFT"},
			Violent:  []Category{"PIRACY"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PIRACY")
	})
}

func TestLoadCategoryMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "categories.yaml")
	content := `
collapse:
  THEFT: THEFT
  ROBBERY: ROBBERY
violent:
  - ROBBERY
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := LoadCategoryMapping(path)
	require.NoError(t, err)

	r, err := NewCategoryRegistry(m)
	require.NoError(t, err)

	_, violent, known := r.Collapse("ROBBERY")
	assert.True(t, known)
	assert.True(t, violent)
}

func TestLoadCategoryMapping_MissingFile(t *testing.T) {
	_, err := LoadCategoryMapping(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
