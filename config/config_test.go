package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, data string) string {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))
	return path
}

func TestDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "info", c.Logger.Level)
	require.Equal(t, "console", c.Logger.Encoding)
	require.Equal(t, dbconfig.InMemoryDB, c.Storage.Type)
	require.Equal(t, 5*time.Second, c.RPC.DialTimeout)
	require.Empty(t, c.RPC.Endpoint)

	self, err := c.Vault.SelfAccount()
	require.NoError(t, err)
	require.True(t, self.Equals(util.Uint160{}))

	_, err = c.Logger.Build()
	require.NoError(t, err)
}

func TestLoadFile(t *testing.T) {
	self := util.Uint160{1, 2, 3}
	path := writeConfig(t, `
logger:
  level: debug
  encoding: json
storage:
  type: leveldb
  leveldboptions:
    datadirectorypath: /var/lib/sharevault
rpc:
  endpoint: http://localhost:30333
  dial_timeout: 10s
wallet:
  path: wallet.json
vault:
  name: staging vault
  self: `+address.Uint160ToString(self)+`
  assets:
    - 0xcfa4d2000000000000000000000000000000d2a4
    - ef40000000000000000000000000000000000001
`)

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", c.Logger.Level)
	require.Equal(t, dbconfig.LevelDB, c.Storage.Type)
	require.Equal(t, "/var/lib/sharevault", c.Storage.LevelDBOptions.DataDirectoryPath)
	require.Equal(t, "http://localhost:30333", c.RPC.Endpoint)
	require.Equal(t, 10*time.Second, c.RPC.DialTimeout)
	require.Equal(t, "wallet.json", c.Wallet.Path)
	require.Equal(t, "staging vault", c.Vault.Name)

	acc, err := c.Vault.SelfAccount()
	require.NoError(t, err)
	require.Equal(t, self, acc)

	hs, err := c.Vault.AssetHashes()
	require.NoError(t, err)
	require.Len(t, hs, 2)
	require.Equal(t, "cfa4d2000000000000000000000000000000d2a4", hs[0].StringLE())
}

func TestEnvOverride(t *testing.T) {
	path := writeConfig(t, `
storage:
  type: leveldb
  leveldboptions:
    datadirectorypath: /var/lib/sharevault
`)
	t.Setenv("SHAREVAULT_STORAGE_TYPE", "boltdb")
	t.Setenv("SHAREVAULT_STORAGE_BOLTDBOPTIONS_FILEPATH", "/tmp/vault.bolt")
	t.Setenv("SHAREVAULT_LOGGER_LEVEL", "warn")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, dbconfig.BoltDB, c.Storage.Type)
	require.Equal(t, "/tmp/vault.bolt", c.Storage.BoltDBOptions.FilePath)
	require.Equal(t, "warn", c.Logger.Level)
}

func TestInvalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		data string
	}{
		{name: "storage type", data: "storage:\n  type: rocksdb\n"},
		{name: "leveldb path", data: "storage:\n  type: leveldb\n"},
		{name: "boltdb path", data: "storage:\n  type: boltdb\n"},
		{name: "logger level", data: "logger:\n  level: loud\n"},
		{name: "logger encoding", data: "logger:\n  encoding: xml\n"},
		{name: "custody account", data: "vault:\n  self: NotAnAddress\n"},
		{name: "asset hash", data: "vault:\n  assets: [abc]\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.data))
			require.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
		require.Error(t, err)
	})
}
