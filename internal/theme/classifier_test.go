package theme

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyUsesFirstMatchingTheme(t *testing.T) {
	t.Parallel()

	c := New(DefaultThemes())

	// "vacuna" belongs to Sanidad and "subvención" to Economía/Empresa; Sanidad comes first.
	assert.Equal(t, "Sanidad", c.Classify("Orden de subvención para la compra de vacunas"))
	assert.Equal(t, "Economía/Empresa", c.Classify("Resolución sobre el IMPUESTO de sociedades"))
	assert.Equal(t, "Trabajo/Laboral", c.Classify("Convenio colectivo del sector"))
	assert.Equal(t, "Justicia/Procedimientos", c.Classify("Juzgado de Primera Instancia n.º 3"))
}

func TestClassifyDefault(t *testing.T) {
	t.Parallel()

	c := New(DefaultThemes())
	assert.Equal(t, Default, c.Classify("Nombramiento de notario"))
	assert.Equal(t, "Other", c.Classify(""))
}

func TestClassifyTieBreakFollowsTableOrder(t *testing.T) {
	t.Parallel()

	title := "alpha beta"
	first := New([]Theme{{Name: "B", Keywords: []string{"beta"}}, {Name: "A", Keywords: []string{"alpha"}}})
	second := New([]Theme{{Name: "A", Keywords: []string{"alpha"}}, {Name: "B", Keywords: []string{"beta"}}})

	assert.Equal(t, "B", first.Classify(title))
	assert.Equal(t, "A", second.Classify(title))
}

func TestNewLowercasesAndDropsEmptyKeywords(t *testing.T) {
	t.Parallel()

	c := New([]Theme{{Name: "X", Keywords: []string{"  ", "ÁRBOL"}}})
	assert.Equal(t, "X", c.Classify("Tala de un árbol"))
	assert.Equal(t, Default, c.Classify("nada"))
	assert.Equal(t, []Theme{{Name: "X", Keywords: []string{"árbol"}}}, c.Themes())
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "themes.yaml")
	content := "- theme: Defensa\n  keywords: [ejército, armada]\n- theme: Cultura\n  keywords: [museo]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	themes, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, themes, 2)
	assert.Equal(t, "Defensa", themes[0].Name)
	assert.Equal(t, []string{"ejército", "armada"}, themes[0].Keywords)

	c := New(themes)
	assert.Equal(t, "Cultura", c.Classify("Ayudas al Museo del Prado"))
}

func TestLoadFileErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- keywords: [x]\n"), 0o600))
	_, err = LoadFile(path)
	require.ErrorContains(t, err, "no theme name")
}
