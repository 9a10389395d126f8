package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/nspcc-dev/sharevault/asset"
	"github.com/nspcc-dev/sharevault/asset/memtoken"
	"github.com/nspcc-dev/sharevault/asset/nep17"
	"github.com/nspcc-dev/sharevault/config"
	"github.com/nspcc-dev/sharevault/proxy"
	"github.com/nspcc-dev/sharevault/state"
	v1 "github.com/nspcc-dev/sharevault/vault/v1"
	v2 "github.com/nspcc-dev/sharevault/vault/v2"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// precision of assets which are not backed by the network.
const memDecimals = 18

// env is a set of components single command works with.
type env struct {
	cfg    *config.Config
	log    *zap.Logger
	store  *state.Store
	rpc    *rpcclient.Client
	caller util.Uint160
	prm    proxy.Prm
}

func openEnv(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}

	log, err := cfg.Logger.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	self, err := cfg.Vault.SelfAccount()
	if err != nil {
		return nil, fmt.Errorf("vault custody account: %w", err)
	}
	hashes, err := cfg.Vault.AssetHashes()
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, log: log}

	var accs []*wallet.Account
	if cfg.Wallet.Path != "" {
		accs, err = openAccounts(cfg.Wallet)
		if err != nil {
			return nil, err
		}
	}

	if s := c.GlobalString("account"); s != "" {
		if e.caller, err = address.StringToUint160(s); err != nil {
			return nil, fmt.Errorf("calling account: %w", err)
		}
	} else if len(accs) > 0 {
		e.caller = accs[0].ScriptHash()
	}

	var assets []asset.Asset
	if cfg.RPC.Endpoint == "" {
		log.Debug("no RPC endpoint configured, using in-memory assets")
		for i := range hashes {
			assets = append(assets, memtoken.New(hashes[i], memDecimals))
		}
	} else {
		assets, err = e.dialAssets(hashes, accs)
		if err != nil {
			return nil, err
		}
	}

	e.store, err = state.Open(cfg.Storage)
	if err != nil {
		e.close()
		return nil, err
	}

	e.prm = proxy.Prm{
		Logger:  log,
		Store:   e.store,
		Catalog: newCatalog(),
		Self:    self,
		Assets:  asset.NewBook(assets...),
	}
	return e, nil
}

func newCatalog() proxy.Catalog {
	return proxy.NewCatalog(v1.New(), v2.New())
}

func (e *env) dialAssets(hashes []util.Uint160, accs []*wallet.Account) ([]asset.Asset, error) {
	var err error
	e.rpc, err = rpcclient.New(context.Background(), e.cfg.RPC.Endpoint, rpcclient.Options{
		DialTimeout:    e.cfg.RPC.DialTimeout,
		RequestTimeout: e.cfg.RPC.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}
	if err = e.rpc.Init(); err != nil {
		e.rpc.Close()
		return nil, fmt.Errorf("init RPC client: %w", err)
	}

	signers := make(map[util.Uint160]nep17.Signer, len(accs))
	for _, acc := range accs {
		act, err := actor.NewSimple(e.rpc, acc)
		if err != nil {
			e.rpc.Close()
			return nil, fmt.Errorf("init actor of %s: %w", acc.Address, err)
		}
		signers[acc.ScriptHash()] = act
	}

	inv := invoker.New(e.rpc, nil)
	res := make([]asset.Asset, 0, len(hashes))
	for i := range hashes {
		tok := nep17.New(inv, hashes[i])
		for h, s := range signers {
			tok.AddSigner(h, s)
		}
		res = append(res, tok)
	}
	return res, nil
}

func openAccounts(cfg config.Wallet) ([]*wallet.Account, error) {
	w, err := wallet.NewWalletFromFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open wallet: %w", err)
	}
	defer w.Close()

	if len(w.Accounts) == 0 {
		return nil, errors.New("wallet has no accounts")
	}
	for _, acc := range w.Accounts {
		if err = acc.Decrypt(cfg.Password, w.Scrypt); err != nil {
			return nil, fmt.Errorf("decrypt account %s: %w", acc.Address, err)
		}
	}
	return w.Accounts, nil
}

func (e *env) openVault() (*proxy.Proxy, error) {
	return proxy.Open(e.prm)
}

func (e *env) close() {
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			e.log.Warn("failed to close vault store", zap.Error(err))
		}
	}
	if e.rpc != nil {
		e.rpc.Close()
	}
	_ = e.log.Sync()
}
