package proxy

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/sharevault/asset"
	"github.com/nspcc-dev/sharevault/common"
	"github.com/nspcc-dev/sharevault/ledger"
	"github.com/nspcc-dev/sharevault/schema"
	"github.com/nspcc-dev/sharevault/vault"
)

// Name returns vault name.
func (p *Proxy) Name(ctx context.Context) (string, error) {
	var res string
	err := p.call(ctx, util.Uint160{}, "name", func(ctx context.Context, l vault.Logic, ic *vault.Invocation) error {
		var err error
		res, err = l.Name(ctx, ic)
		return err
	})
	return res, err
}

// Owner returns vault owner.
func (p *Proxy) Owner(ctx context.Context) (util.Uint160, error) {
	var res util.Uint160
	err := p.call(ctx, util.Uint160{}, "owner", func(ctx context.Context, l vault.Logic, ic *vault.Invocation) error {
		var err error
		res, err = l.Owner(ctx, ic)
		return err
	})
	return res, err
}

// IsSupported checks whether the asset accepts new deposits.
func (p *Proxy) IsSupported(ctx context.Context, a util.Uint160) (bool, error) {
	var res bool
	err := p.call(ctx, util.Uint160{}, "isSupported", func(ctx context.Context, l vault.Logic, ic *vault.Invocation) error {
		var err error
		res, err = l.IsSupported(ctx, ic, a)
		return err
	})
	return res, err
}

// MinDeposit returns minimum accepted deposit of the asset.
func (p *Proxy) MinDeposit(ctx context.Context, a util.Uint160) (*uint256.Int, error) {
	return p.uintCall(ctx, "minDeposit", func(ctx context.Context, l vault.Logic, ic *vault.Invocation) (*uint256.Int, error) {
		return l.MinDeposit(ctx, ic, a)
	})
}

// TotalShares returns shares of the asset outstanding.
func (p *Proxy) TotalShares(ctx context.Context, a util.Uint160) (*uint256.Int, error) {
	return p.uintCall(ctx, "totalShares", func(ctx context.Context, l vault.Logic, ic *vault.Invocation) (*uint256.Int, error) {
		return l.TotalShares(ctx, ic, a)
	})
}

// Balance returns shares of the asset the holder owns.
func (p *Proxy) Balance(ctx context.Context, a, holder util.Uint160) (*uint256.Int, error) {
	return p.uintCall(ctx, "balance", func(ctx context.Context, l vault.Logic, ic *vault.Invocation) (*uint256.Int, error) {
		return l.Balance(ctx, ic, a, holder)
	})
}

// PreviewDeposit returns shares amount of the asset is worth now.
func (p *Proxy) PreviewDeposit(ctx context.Context, a util.Uint160, amount *uint256.Int) (*uint256.Int, error) {
	return p.uintCall(ctx, "previewDeposit", func(ctx context.Context, l vault.Logic, ic *vault.Invocation) (*uint256.Int, error) {
		return l.PreviewDeposit(ctx, ic, a, amount)
	})
}

// PreviewWithdraw returns amount of the asset shares are worth now.
func (p *Proxy) PreviewWithdraw(ctx context.Context, a util.Uint160, shares *uint256.Int) (*uint256.Int, error) {
	return p.uintCall(ctx, "previewWithdraw", func(ctx context.Context, l vault.Logic, ic *vault.Invocation) (*uint256.Int, error) {
		return l.PreviewWithdraw(ctx, ic, a, shares)
	})
}

// Deposit pulls amount of the asset from the caller and returns minted
// shares. The caller must allow the vault to spend the amount beforehand.
func (p *Proxy) Deposit(ctx context.Context, caller, a util.Uint160, amount *uint256.Int) (*uint256.Int, error) {
	return p.uintCallBy(ctx, caller, "deposit", func(ctx context.Context, l vault.Logic, ic *vault.Invocation) (*uint256.Int, error) {
		return l.Deposit(ctx, ic, a, amount)
	})
}

// DepositWithPermit is Deposit authorized by the caller's permit credential.
func (p *Proxy) DepositWithPermit(ctx context.Context, caller, a util.Uint160, amount *uint256.Int,
	deadline time.Time, cred asset.Credential) (*uint256.Int, error) {
	return p.uintCallBy(ctx, caller, "depositWithPermit", func(ctx context.Context, l vault.Logic, ic *vault.Invocation) (*uint256.Int, error) {
		pd, ok := l.(vault.PermitDepositor)
		if !ok {
			return nil, fmt.Errorf("%w (version %s)", common.ErrUnsupportedMethod, common.FormatVersion(l.Version()))
		}
		return pd.DepositWithPermit(ctx, ic, a, amount, deadline, cred)
	})
}

// Withdraw burns caller shares of the asset and returns amount paid out.
func (p *Proxy) Withdraw(ctx context.Context, caller, a util.Uint160, shares *uint256.Int) (*uint256.Int, error) {
	return p.uintCallBy(ctx, caller, "withdraw", func(ctx context.Context, l vault.Logic, ic *vault.Invocation) (*uint256.Int, error) {
		return l.Withdraw(ctx, ic, a, shares)
	})
}

// ChangeOrAddAsset makes the asset acceptable for deposits. Owner only.
func (p *Proxy) ChangeOrAddAsset(ctx context.Context, caller, a util.Uint160) error {
	return p.call(ctx, caller, "changeOrAddAsset", func(ctx context.Context, l vault.Logic, ic *vault.Invocation) error {
		return l.ChangeOrAddAsset(ctx, ic, a)
	})
}

// TransferOwnership hands the vault over. Owner only.
func (p *Proxy) TransferOwnership(ctx context.Context, caller, owner util.Uint160) error {
	return p.call(ctx, caller, "transferOwnership", func(ctx context.Context, l vault.Logic, ic *vault.Invocation) error {
		return l.TransferOwnership(ctx, ic, owner)
	})
}

// Snapshot returns vault state decoded with the active layout.
func (p *Proxy) Snapshot(ctx context.Context) (*schema.Snapshot, error) {
	var res *schema.Snapshot
	err := p.call(ctx, util.Uint160{}, "snapshot", func(_ context.Context, l vault.Logic, ic *vault.Invocation) error {
		var err error
		res, err = schema.Read(ic.Tx, l.Layout())
		return err
	})
	return res, err
}

// Audit checks share ledger consistency of every asset.
func (p *Proxy) Audit(ctx context.Context) error {
	return p.call(ctx, util.Uint160{}, "audit", func(_ context.Context, _ vault.Logic, ic *vault.Invocation) error {
		return ledger.AuditAll(ic.Tx)
	})
}

func (p *Proxy) uintCall(ctx context.Context, op string, f func(context.Context, vault.Logic, *vault.Invocation) (*uint256.Int, error)) (*uint256.Int, error) {
	return p.uintCallBy(ctx, util.Uint160{}, op, f)
}

func (p *Proxy) uintCallBy(ctx context.Context, caller util.Uint160, op string, f func(context.Context, vault.Logic, *vault.Invocation) (*uint256.Int, error)) (*uint256.Int, error) {
	var res *uint256.Int
	err := p.call(ctx, caller, op, func(ctx context.Context, l vault.Logic, ic *vault.Invocation) error {
		var err error
		res, err = f(ctx, l, ic)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
