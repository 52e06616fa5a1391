package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitReadsExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("catalog:\n  year: 2021\ntext:\n  inline: true\n"), 0o600))

	v := viper.New()
	Init(v, path)

	assert.Equal(t, path, v.ConfigFileUsed())
	assert.Equal(t, 2021, v.GetInt("catalog.year"))
	assert.True(t, v.GetBool("text.inline"))
	assert.Equal(t, "data/base.jsonl", v.GetString("output.path"))
}

func TestInitEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("BOE_OUTPUT_PATH", "gs://boe-data/base.jsonl")
	t.Chdir(t.TempDir())

	v := viper.New()
	Init(v, "")

	assert.Equal(t, "gs://boe-data/base.jsonl", v.GetString("output.path"))
	assert.Equal(t, 3, v.GetInt("http.max_tries"))
}
