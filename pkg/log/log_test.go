package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_WritesToOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	Init("debug", "json", dir)
	t.Cleanup(func() { Init("info", "json", "") })

	Infow("[LogTest] hello", "user", "alice")
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"user":"alice"`)
}
