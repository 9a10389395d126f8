/*
Package deploy synchronizes the vault state with the logic version it is
expected to run.
*/
package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/sharevault/common"
	"github.com/nspcc-dev/sharevault/proxy"
	"github.com/nspcc-dev/sharevault/schema"
	"github.com/nspcc-dev/sharevault/vault"
	"go.uber.org/zap"
)

// Prm groups all parameters of the vault deployment procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Parameters of the vault container. Prm.Logger is used if
	// Proxy.Logger is unset.
	Proxy proxy.Prm

	// Initial state of the vault deployed from scratch. Init.Owner also
	// authorizes upgrades of the already deployed vault.
	Init vault.InitPrm

	// Version to deploy the vault with when the state is empty. Defaults
	// to the lowest version of the catalog.
	InitialVersion int

	// Version the vault is expected to run. Defaults to the highest
	// version of the catalog.
	TargetVersion int
}

// Deploy brings the vault to the target version and returns Proxy running
// it. The vault is deployed if the state is empty. Otherwise, logic is
// upgraded version by version until the target is reached, running
// migration of every logic providing it.
//
// Deploy is idempotent: the vault already running the target version is
// just opened.
func Deploy(ctx context.Context, prm Prm) (*proxy.Proxy, error) {
	if prm.Logger == nil {
		prm.Logger = zap.NewNop()
	}
	if prm.Proxy.Logger == nil {
		prm.Proxy.Logger = prm.Logger
	}

	versions := prm.Proxy.Catalog.Versions()
	if len(versions) == 0 {
		return nil, errors.New("empty logic catalog")
	}
	if prm.InitialVersion == 0 {
		prm.InitialVersion = versions[0]
	}
	if prm.TargetVersion == 0 {
		prm.TargetVersion = versions[len(versions)-1]
	}
	if prm.InitialVersion > prm.TargetVersion {
		return nil, fmt.Errorf("initial version %s is higher than the target one %s",
			common.FormatVersion(prm.InitialVersion), common.FormatVersion(prm.TargetVersion))
	}

	log := prm.Logger.With(zap.String("target", common.FormatVersion(prm.TargetVersion)))

	current, err := schema.ReadVersion(prm.Proxy.Store.Begin(), schema.ImplementationKey)
	if err != nil {
		return nil, fmt.Errorf("read running version: %w", err)
	}

	var p *proxy.Proxy
	if current == 0 {
		log.Info("vault state is empty, deploying...",
			zap.String("version", common.FormatVersion(prm.InitialVersion)),
			zap.String("owner", address.Uint160ToString(prm.Init.Owner)))

		p, err = proxy.Deploy(ctx, prm.Proxy, proxy.DeployPrm{
			Version: prm.InitialVersion,
			Init:    prm.Init,
		})
		if err != nil {
			return nil, err
		}

		log.Info("vault successfully deployed")
	} else {
		if current > prm.TargetVersion {
			return nil, fmt.Errorf("%w: running version %s is higher than the target one",
				common.ErrVersionMismatch, common.FormatVersion(current))
		}

		p, err = proxy.Open(prm.Proxy)
		if err != nil {
			return nil, fmt.Errorf("open vault: %w", err)
		}

		log.Debug("vault is already deployed", zap.String("version", common.FormatVersion(current)))
	}

	for _, v := range versions {
		if v <= p.Version() || v > prm.TargetVersion {
			continue
		}

		l, _ := prm.Proxy.Catalog.Get(v)
		_, migrate := l.(vault.Migrator)

		log.Info("upgrading vault...",
			zap.String("from", common.FormatVersion(p.Version())),
			zap.String("to", common.FormatVersion(v)),
			zap.Bool("migrate", migrate))

		err = p.Upgrade(ctx, prm.Init.Owner, proxy.UpgradePrm{Version: v, Migrate: migrate})
		if err != nil {
			return nil, fmt.Errorf("upgrade to %s: %w", common.FormatVersion(v), err)
		}
	}

	if p.Version() != prm.TargetVersion {
		return nil, fmt.Errorf("%w: target version %s is missing in the catalog",
			common.ErrUnknownVersion, common.FormatVersion(prm.TargetVersion))
	}

	log.Info("vault is synchronized with the target version")
	return p, nil
}
