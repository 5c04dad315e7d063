package mpcnet

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "party.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadPartyConfig(t *testing.T) {
	path := writeConfig(t, `
id = 1
bind = "127.0.0.1:9101"
timeout_ms = 5000

[[peers]]
id = 0
address = "127.0.0.1:9100"

[[peers]]
id = 2
address = "127.0.0.1:9102"
`)
	cfg, err := LoadPartyConfig(path)
	require.NoError(t, err)
	require.Equal(t, 1, cfg.ID)
	require.Equal(t, 3, cfg.NumParties())
	require.Equal(t, 5*time.Second, cfg.Timeout())
}

func TestConfigDefaultTimeout(t *testing.T) {
	path := writeConfig(t, `
id = 1
[[peers]]
id = 0
address = "127.0.0.1:9100"
`)
	cfg, err := LoadPartyConfig(path)
	require.NoError(t, err)
	require.Equal(t, defaultTimeout, cfg.Timeout())
}

func TestConfigRejectsDuplicatePeer(t *testing.T) {
	path := writeConfig(t, `
id = 0
bind = "127.0.0.1:9100"
[[peers]]
id = 1
address = "127.0.0.1:9101"
[[peers]]
id = 1
address = "127.0.0.1:9102"
`)
	_, err := LoadPartyConfig(path)
	require.Error(t, err)
}

func TestConfigRequiresBindForAcceptingParty(t *testing.T) {
	path := writeConfig(t, `
id = 0
[[peers]]
id = 1
address = "127.0.0.1:9101"
`)
	_, err := LoadPartyConfig(path)
	require.Error(t, err)
}

func TestConfigRejectsMissingAddress(t *testing.T) {
	path := writeConfig(t, `
id = 1
[[peers]]
id = 0
`)
	_, err := LoadPartyConfig(path)
	require.Error(t, err)
}
