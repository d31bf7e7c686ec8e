package registry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forma-dev/bridge-core/registry"
	"github.com/zeebo/assert"
)

func TestProcess(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		assert.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	write("tia.json", `{
		"chain": "Celestia",
		"addressOrDenom": "utia",
		"symbol": "TIA",
		"name": "Celestia",
		"decimals": 6,
		"connections": [{"chain": "Forma Mainnet", "addressOrDenom": "0xTIA"}]
	}`)
	write("stia.json", `{
		"chain": "stride",
		"addressOrDenom": "stutia",
		"symbol": "stTIA",
		"decimals": 6
	}`)
	// non-json files are not picked up
	write("README.md", "routes")

	tokens, err := registry.Process(dir)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(tokens))

	// chain spellings are normalized on conversion
	var tia, stTIA int
	for i, tok := range tokens {
		switch tok.Symbol {
		case "TIA":
			tia = i
		case "stTIA":
			stTIA = i
		}
	}
	assert.Equal(t, "celestia", tokens[tia].Chain)
	assert.Equal(t, 1, len(tokens[tia].Connections))
	assert.Equal(t, "forma", tokens[tia].Connections[0].Chain)
	assert.Equal(t, "stride", tokens[stTIA].Chain)
	assert.Equal(t, 0, len(tokens[stTIA].Connections))
}

func TestProcessRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("not json"), 0o600))

	_, err := registry.Process(dir)
	assert.Error(t, err)
}

func TestProcessEmptyDir(t *testing.T) {
	tokens, err := registry.Process(t.TempDir())
	assert.NoError(t, err)
	assert.Equal(t, 0, len(tokens))
}
