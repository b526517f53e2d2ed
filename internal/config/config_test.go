package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresCredential(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.toml"))
	t.Setenv("GROQ_API_KEY", "")
	os.Unsetenv("GROQ_API_KEY")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.toml"))
	t.Setenv("GROQ_API_KEY", "gsk_test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8501, cfg.App.Port)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.Model)
	assert.Equal(t, "sentence-transformers/all-MiniLM-L6-v2", cfg.Embedding.RepoID)
	assert.Equal(t, 512, cfg.Retrieval.ChunkSize)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, "gsk_test", cfg.LLM.APIKey)
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
port = 9000

[llm]
model = "from-file-model"

[retrieval]
top_k = 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)

	// Env beats file, file beats default.
	assert.Equal(t, 9100, cfg.App.Port)
	assert.Equal(t, "from-file-model", cfg.LLM.Model)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 64, cfg.Retrieval.ChunkOverlap)
}

func TestHTTPAddrAndDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.App.Host = "127.0.0.1"
	cfg.App.Port = 8501

	assert.Equal(t, "127.0.0.1:8501", cfg.HTTPAddr())
	assert.Contains(t, cfg.MySQLDSN(), "tcp(127.0.0.1:3306)/insight_engine")
}
