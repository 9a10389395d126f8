package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/sharevault/dump"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

const testAsset = "cfa4d2000000000000000000000000000000d2a4"

type testCLI struct {
	t      *testing.T
	config string
	owner  string
	out    bytes.Buffer
}

func newTestCLI(t *testing.T) *testCLI {
	dir := t.TempDir()
	self := address.Uint160ToString(util.Uint160{0xee})

	cfg := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(cfg, []byte(`
logger:
  level: error
storage:
  type: boltdb
  boltdboptions:
    filepath: `+filepath.Join(dir, "vault.bolt")+`
vault:
  name: test vault
  self: `+self+`
  assets:
    - `+testAsset+`
`), 0600))

	exiter := cli.OsExiter
	cli.OsExiter = func(int) {}
	t.Cleanup(func() { cli.OsExiter = exiter })

	return &testCLI{
		t:      t,
		config: cfg,
		owner:  address.Uint160ToString(util.Uint160{1, 2, 3}),
	}
}

func (x *testCLI) run(args ...string) error {
	x.out.Reset()
	app := newApp()
	app.Writer = &x.out
	app.ErrWriter = &bytes.Buffer{}
	return app.Run(append([]string{"sharevault", "--config", x.config, "--account", x.owner}, args...))
}

func TestDeployAndInspect(t *testing.T) {
	x := newTestCLI(t)

	require.NoError(t, x.run("deploy", "--version", "1.0.0"))
	require.Contains(t, x.out.String(), "running version 1.0.0")

	require.NoError(t, x.run("inspect"))
	require.Contains(t, x.out.String(), "test vault")
	require.Contains(t, x.out.String(), testAsset)
	require.Contains(t, x.out.String(), "100000000000000000")

	require.NoError(t, x.run("deploy"))
	require.Contains(t, x.out.String(), "running version 2.0.0")

	require.NoError(t, x.run("inspect"))
	require.Contains(t, x.out.String(), "supported")

	require.NoError(t, x.run("audit"))
	require.Contains(t, x.out.String(), "consistent")

	t.Run("upgrade again", func(t *testing.T) {
		require.Error(t, x.run("upgrade", "--version", "2.0.0"))
	})

	t.Run("deposit without funds", func(t *testing.T) {
		require.Error(t, x.run("deposit", "--amount", "1000000000000000000"))
	})

	t.Run("invalid amount", func(t *testing.T) {
		require.Error(t, x.run("deposit", "--amount", "-5"))
	})
}

func TestDumpCommand(t *testing.T) {
	x := newTestCLI(t)
	require.NoError(t, x.run("deploy"))

	dir := t.TempDir()
	require.Error(t, x.run("dump", "--dir", dir))
	require.NoError(t, x.run("dump", "--dir", dir, "--label", "test"))

	var names []string
	require.NoError(t, dump.IterateDumps(dir, func(id dump.ID, r *dump.Reader) {
		require.Equal(t, "test", id.Label)
		r.IterateVaults(func(name string, h dump.Header) {
			names = append(names, name)
			require.Equal(t, 2_000_000, h.Version)
			require.NotEmpty(t, h.Fingerprint)
		})
	}))
	require.Equal(t, []string{"test vault"}, names)
}

func TestLayoutCommand(t *testing.T) {
	x := newTestCLI(t)

	require.NoError(t, x.run("layout", "--version", "1.0.0"))
	require.Contains(t, x.out.String(), "minAmount")
	require.NotContains(t, x.out.String(), "deprecated")

	require.NoError(t, x.run("layout"))
	require.Contains(t, x.out.String(), "(deprecated)")
	require.Contains(t, x.out.String(), "supportedAssets")

	require.Error(t, x.run("layout", "--version", "3.0.0"))
}
