/*
Package v1 implements the single-asset vault logic.

Exactly one asset accepts deposits at a time. Its minimum deposit is cached
when the asset becomes current. Changing the asset does not affect shares
of the previous one: they can still be withdrawn.

# Storage

	| Slot | Field       | Type                                        |
	|------|-------------|---------------------------------------------|
	| 0    | owner       | address                                     |
	| 1    | name        | string                                      |
	| 2    | asset       | address                                     |
	| 3    | minAmount   | uint256                                     |
	| 4    | totalShares | mapping(address=>uint256)                   |
	| 5    | shares      | mapping(address=>mapping(address=>uint256)) |
*/
package v1

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/sharevault/common"
	"github.com/nspcc-dev/sharevault/ledger"
	"github.com/nspcc-dev/sharevault/registry"
	"github.com/nspcc-dev/sharevault/schema"
	"github.com/nspcc-dev/sharevault/vault"
)

// Logic is the single-asset vault logic.
type Logic struct {
	reg registry.Single
}

var _ vault.Logic = (*Logic)(nil)

// New returns Logic.
func New() *Logic {
	return new(Logic)
}

// Version implements vault.Logic.
func (*Logic) Version() int { return common.Version1 }

// PreviousVersion implements vault.Logic. Single-asset vault is deployed
// only from scratch.
func (*Logic) PreviousVersion() int { return 0 }

// Layout implements vault.Logic.
func (*Logic) Layout() schema.Layout { return schema.LayoutV1 }

// Initialize implements vault.Logic. Initial asset is required.
func (l *Logic) Initialize(ctx context.Context, ic *vault.Invocation, prm vault.InitPrm) error {
	if prm.Asset.Equals(util.Uint160{}) {
		return fmt.Errorf("%w: zero initial asset", common.ErrInvalidAsset)
	}
	if err := vault.Init(ic, l.Version(), prm); err != nil {
		return err
	}
	return l.setAsset(ctx, ic, prm.Asset)
}

// Name implements vault.Logic.
func (*Logic) Name(_ context.Context, ic *vault.Invocation) (string, error) {
	return vault.Name(ic.Tx)
}

// Owner implements vault.Logic.
func (*Logic) Owner(_ context.Context, ic *vault.Invocation) (util.Uint160, error) {
	return vault.Owner(ic.Tx)
}

// Asset returns current asset.
func (l *Logic) Asset(_ context.Context, ic *vault.Invocation) (util.Uint160, error) {
	return l.reg.Current(ic.Tx)
}

// IsSupported implements vault.Logic.
func (l *Logic) IsSupported(_ context.Context, ic *vault.Invocation, asset util.Uint160) (bool, error) {
	return l.reg.IsSupported(ic.Tx, asset)
}

// MinDeposit implements vault.Logic. It returns cached minimum of the
// current asset whichever asset is requested.
func (l *Logic) MinDeposit(_ context.Context, ic *vault.Invocation, _ util.Uint160) (*uint256.Int, error) {
	return l.reg.MinAmount(ic.Tx)
}

// TotalShares implements vault.Logic.
func (*Logic) TotalShares(_ context.Context, ic *vault.Invocation, asset util.Uint160) (*uint256.Int, error) {
	return ledger.TotalShares(ic.Tx, asset)
}

// Balance implements vault.Logic.
func (*Logic) Balance(_ context.Context, ic *vault.Invocation, asset, holder util.Uint160) (*uint256.Int, error) {
	return ledger.BalanceOf(ic.Tx, asset, holder)
}

// PreviewDeposit implements vault.Logic.
func (l *Logic) PreviewDeposit(ctx context.Context, ic *vault.Invocation, asset util.Uint160, amount *uint256.Int) (*uint256.Int, error) {
	return vault.PreviewDeposit(ctx, ic, l.reg, asset, amount)
}

// PreviewWithdraw implements vault.Logic.
func (*Logic) PreviewWithdraw(ctx context.Context, ic *vault.Invocation, asset util.Uint160, shares *uint256.Int) (*uint256.Int, error) {
	return vault.PreviewWithdraw(ctx, ic, asset, shares)
}

// Deposit implements vault.Logic.
func (l *Logic) Deposit(ctx context.Context, ic *vault.Invocation, asset util.Uint160, amount *uint256.Int) (*uint256.Int, error) {
	minAmount, err := l.reg.MinAmount(ic.Tx)
	if err != nil {
		return nil, err
	}
	return vault.Deposit(ctx, ic, l.reg, asset, amount, minAmount)
}

// Withdraw implements vault.Logic.
func (*Logic) Withdraw(ctx context.Context, ic *vault.Invocation, asset util.Uint160, shares *uint256.Int) (*uint256.Int, error) {
	return vault.Withdraw(ctx, ic, asset, shares)
}

// ChangeOrAddAsset implements vault.Logic. The asset replaces current one.
func (l *Logic) ChangeOrAddAsset(ctx context.Context, ic *vault.Invocation, asset util.Uint160) error {
	if err := vault.CheckOwner(ic, "changeAsset"); err != nil {
		return err
	}
	return l.setAsset(ctx, ic, asset)
}

// TransferOwnership implements vault.Logic.
func (*Logic) TransferOwnership(_ context.Context, ic *vault.Invocation, owner util.Uint160) error {
	return vault.TransferOwnership(ic, owner)
}

func (l *Logic) setAsset(ctx context.Context, ic *vault.Invocation, asset util.Uint160) error {
	if asset.Equals(util.Uint160{}) {
		return fmt.Errorf("changeAsset: %w: zero asset", common.ErrInvalidAsset)
	}

	a, err := ic.Env.Asset(asset)
	if err != nil {
		return fmt.Errorf("changeAsset: %w", err)
	}
	decimals, err := a.Decimals(ctx)
	if err != nil {
		return fmt.Errorf("changeAsset: get decimals: %w", err)
	}
	if err = l.reg.Change(ic.Tx, asset, decimals); err != nil {
		return fmt.Errorf("changeAsset: %w", err)
	}

	ic.Notify(vault.AssetChanged{Asset: asset})
	return nil
}
