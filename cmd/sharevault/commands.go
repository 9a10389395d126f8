package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/sharevault/common"
	"github.com/nspcc-dev/sharevault/deploy"
	"github.com/nspcc-dev/sharevault/dump"
	"github.com/nspcc-dev/sharevault/proxy"
	"github.com/nspcc-dev/sharevault/schema"
	"github.com/nspcc-dev/sharevault/vault"
	"github.com/urfave/cli"
)

var (
	assetFlag = cli.StringFlag{
		Name:  "asset",
		Usage: "Asset hash (LE)",
	}
	versionFlag = cli.StringFlag{
		Name:  "version",
		Usage: "Logic version, e.g. 2.0.0 (default: the latest one)",
	}
)

func deployCommand() cli.Command {
	return cli.Command{
		Name:  "deploy",
		Usage: "Deploy the vault or upgrade it to the target version",
		Flags: []cli.Flag{
			assetFlag,
			versionFlag,
			cli.StringFlag{Name: "initial-version", Usage: "Version to deploy the empty vault with"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			prm := deploy.Prm{
				Logger: e.log,
				Proxy:  e.prm,
				Init: vault.InitPrm{
					Owner: e.caller,
					Name:  e.cfg.Vault.Name,
				},
			}

			var err error
			if prm.Init.Asset, err = assetArg(c, e); err != nil {
				return err
			}
			if s := c.String("version"); s != "" {
				if prm.TargetVersion, err = common.ParseVersion(s); err != nil {
					return err
				}
			}
			if s := c.String("initial-version"); s != "" {
				if prm.InitialVersion, err = common.ParseVersion(s); err != nil {
					return err
				}
			}

			p, err := deploy.Deploy(context.Background(), prm)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "vault is running version %s\n", common.FormatVersion(p.Version()))
			return nil
		}),
	}
}

func upgradeCommand() cli.Command {
	return cli.Command{
		Name:  "upgrade",
		Usage: "Swap vault logic to the given version",
		Flags: []cli.Flag{
			versionFlag,
			cli.BoolFlag{Name: "migrate", Usage: "Run migration of the new logic"},
		},
		Action: withVault(func(c *cli.Context, e *env, p *proxy.Proxy) error {
			prm := proxy.UpgradePrm{Migrate: c.Bool("migrate")}
			if s := c.String("version"); s != "" {
				var err error
				if prm.Version, err = common.ParseVersion(s); err != nil {
					return err
				}
			} else {
				vs := e.prm.Catalog.Versions()
				prm.Version = vs[len(vs)-1]
			}

			if err := p.Upgrade(context.Background(), e.caller, prm); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "vault upgraded to %s\n", common.FormatVersion(p.Version()))
			return nil
		}),
	}
}

func addAssetCommand() cli.Command {
	return cli.Command{
		Name:  "add-asset",
		Usage: "Change deposit asset (single-asset vault) or support new one",
		Flags: []cli.Flag{assetFlag},
		Action: withVault(func(c *cli.Context, e *env, p *proxy.Proxy) error {
			a, err := assetArg(c, e)
			if err != nil {
				return err
			}
			return p.ChangeOrAddAsset(context.Background(), e.caller, a)
		}),
	}
}

func depositCommand() cli.Command {
	return cli.Command{
		Name:  "deposit",
		Usage: "Deposit asset into the vault",
		Flags: []cli.Flag{
			assetFlag,
			cli.StringFlag{Name: "amount", Usage: "Amount of the asset in minimal units"},
		},
		Action: withVault(func(c *cli.Context, e *env, p *proxy.Proxy) error {
			a, err := assetArg(c, e)
			if err != nil {
				return err
			}
			amount, err := uintArg(c, "amount")
			if err != nil {
				return err
			}
			shares, err := p.Deposit(context.Background(), e.caller, a, amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "minted %s shares\n", shares.Dec())
			return nil
		}),
	}
}

func withdrawCommand() cli.Command {
	return cli.Command{
		Name:  "withdraw",
		Usage: "Burn shares and withdraw the asset",
		Flags: []cli.Flag{
			assetFlag,
			cli.StringFlag{Name: "shares", Usage: "Number of shares to burn"},
		},
		Action: withVault(func(c *cli.Context, e *env, p *proxy.Proxy) error {
			a, err := assetArg(c, e)
			if err != nil {
				return err
			}
			shares, err := uintArg(c, "shares")
			if err != nil {
				return err
			}
			amount, err := p.Withdraw(context.Background(), e.caller, a, shares)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "withdrawn %s\n", amount.Dec())
			return nil
		}),
	}
}

func inspectCommand() cli.Command {
	return cli.Command{
		Name:  "inspect",
		Usage: "Print vault state",
		Action: withVault(func(c *cli.Context, _ *env, p *proxy.Proxy) error {
			s, err := p.Snapshot(context.Background())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "version\t%s\n", common.FormatVersion(p.Version()))
			fmt.Fprintf(w, "phase\t%s\n", p.Phase())
			fmt.Fprintf(w, "owner\t%s\n", address.Uint160ToString(s.Owner))
			fmt.Fprintf(w, "name\t%s\n", s.Name)
			if !s.Asset.Equals(util.Uint160{}) {
				fmt.Fprintf(w, "asset\t%s\n", s.Asset.StringLE())
			}
			if s.MinAmount != nil {
				fmt.Fprintf(w, "min amount\t%s\n", s.MinAmount.Dec())
			}
			for _, a := range s.SupportedAssets {
				minAmount, err := p.MinDeposit(context.Background(), a)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "supported\t%s\tmin %s\n", a.StringLE(), minAmount.Dec())
			}
			for _, ts := range s.TotalShares {
				fmt.Fprintf(w, "total shares\t%s\t%s\n", ts.Asset.StringLE(), ts.Amount.Dec())
			}
			for _, sh := range s.Shares {
				fmt.Fprintf(w, "shares\t%s\t%s\t%s\n", sh.Asset.StringLE(), address.Uint160ToString(sh.Holder), sh.Amount.Dec())
			}
			return w.Flush()
		}),
	}
}

func auditCommand() cli.Command {
	return cli.Command{
		Name:  "audit",
		Usage: "Check that shares of every asset sum up to its total",
		Action: withVault(func(c *cli.Context, _ *env, p *proxy.Proxy) error {
			if err := p.Audit(context.Background()); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "share ledger is consistent")
			return nil
		}),
	}
}

func dumpCommand() cli.Command {
	return cli.Command{
		Name:  "dump",
		Usage: "Dump vault storage for migration tests",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "dir", Value: "testdata", Usage: "Output directory"},
			cli.StringFlag{Name: "label", Usage: "Label of the environment (e.g. 'staging')"},
			cli.UintFlag{Name: "seq", Value: 1, Usage: "Sequence number of the dump"},
		},
		Action: withVault(func(c *cli.Context, e *env, p *proxy.Proxy) error {
			if c.String("label") == "" {
				return errors.New("missing dump label")
			}
			dir := c.String("dir")
			if err := os.MkdirAll(dir, 0700); err != nil {
				return fmt.Errorf("create root dir: %w", err)
			}

			s, err := p.Snapshot(context.Background())
			if err != nil {
				return err
			}
			b, err := s.Bytes()
			if err != nil {
				return err
			}

			d, err := dump.NewCreator(dir, dump.ID{Label: c.String("label"), Seq: uint32(c.Uint("seq"))})
			if err != nil {
				return fmt.Errorf("init local dumper: %w", err)
			}
			defer d.Close()

			name := e.cfg.Vault.Name
			if name == "" {
				name = "vault"
			}
			err = d.AddVault(name, dump.Header{Version: p.Version(), Fingerprint: schema.Fingerprint(b)}).WriteStore(e.store)
			if err != nil {
				return err
			}
			if err = d.Flush(); err != nil {
				return fmt.Errorf("flush dump: %w", err)
			}

			fmt.Fprintf(c.App.Writer, "vault is successfully dumped to '%s/'\n", dir)
			return nil
		}),
	}
}

func layoutCommand() cli.Command {
	return cli.Command{
		Name:  "layout",
		Usage: "Print storage layout of the logic version",
		Flags: []cli.Flag{versionFlag},
		Action: func(c *cli.Context) error {
			catalog := newCatalog()
			vs := catalog.Versions()
			v := vs[len(vs)-1]
			if s := c.String("version"); s != "" {
				var err error
				if v, err = common.ParseVersion(s); err != nil {
					return err
				}
			}
			l, err := catalog.Get(v)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLOT\tNAME\tTYPE\t")
			for _, f := range l.Layout() {
				name := f.Name
				if f.Deprecated {
					name += " (deprecated)"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t\n", f.Slot, name, f.Type)
			}
			return w.Flush()
		},
	}
}

func withEnv(f func(*cli.Context, *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := openEnv(c)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		defer e.close()

		if err = f(c, e); err != nil {
			return cli.NewExitError(err, 1)
		}
		return nil
	}
}

func withVault(f func(*cli.Context, *env, *proxy.Proxy) error) cli.ActionFunc {
	return withEnv(func(c *cli.Context, e *env) error {
		p, err := e.openVault()
		if err != nil {
			return err
		}
		return f(c, e, p)
	})
}

func assetArg(c *cli.Context, e *env) (util.Uint160, error) {
	if s := c.String("asset"); s != "" {
		return util.Uint160DecodeStringLE(strings.TrimPrefix(s, "0x"))
	}
	hs, err := e.cfg.Vault.AssetHashes()
	if err != nil {
		return util.Uint160{}, err
	}
	if len(hs) == 0 {
		return util.Uint160{}, errors.New("missing asset")
	}
	return hs[0], nil
}

func uintArg(c *cli.Context, name string) (*uint256.Int, error) {
	s := c.String(name)
	if s == "" {
		return nil, fmt.Errorf("missing %s", name)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}
