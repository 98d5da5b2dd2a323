package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/cardscan/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generated.yaml")
	out, _, err := runCLI(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration written to "+path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	out, _, err = runCLI(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# loaded from "+path)
	assert.Contains(t, out, "engine: tesseract")
	assert.Contains(t, out, "port: 8080")
}

func TestConfigShow_RedactsSecrets(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "secret.yaml"), `
ocr:
  azure:
    key: super-secret
store:
  driver: postgres
  dsn: host=db password=hunter2
`)
	out, _, err := runCLI(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "super-secret")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, redacted)
}

func TestRedactSecrets(t *testing.T) {
	cfg := config.DefaultConfig()
	got := redactSecrets(cfg)
	assert.Empty(t, got.OCR.Azure.Key)
	assert.Equal(t, cfg.Store.DSN, got.Store.DSN)

	cfg.PDF.Password = "pw"
	assert.Equal(t, redacted, redactSecrets(cfg).PDF.Password)
	assert.Equal(t, "pw", cfg.PDF.Password)
}
