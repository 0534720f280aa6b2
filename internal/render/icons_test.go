package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "icons.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadIcons(t *testing.T) {
	path := writeFile(t, `{"icons":["mdi:heart","","mdi:star"]}`)
	assert.Equal(t, []string{"mdi:heart", "mdi:star"}, LoadIcons(path))
}

func TestLoadIconsFallsBack(t *testing.T) {
	cases := map[string]string{
		"missing": filepath.Join(t.TempDir(), "nope.json"),
		"corrupt": writeFile(t, `{"icons":`),
		"empty":   writeFile(t, `{"icons":[]}`),
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadIcons(path)
			assert.ErrorIs(t, err, ErrIconLoad)
			assert.Equal(t, []string{DefaultIcon}, LoadIcons(path))
		})
	}
}
