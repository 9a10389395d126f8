/*
Package v2 implements the multi-asset vault logic.

Any number of assets accept deposits simultaneously. The set only grows.
Minimum deposit is computed from the live asset precision on every deposit.
Deposits can be authorized by permit credentials redeemed with the asset.

Fields of the single-asset logic stay at their slots as deprecated ones.
Migrate moves the single current asset into the supported set and zeroes
the deprecated fields.

# Storage

	| Slot | Field               | Type                                        |
	|------|---------------------|---------------------------------------------|
	| 0    | owner               | address                                     |
	| 1    | name                | string                                      |
	| 2    | deprecatedAsset     | address                                     |
	| 3    | deprecatedMinAmount | uint256                                     |
	| 4    | totalShares         | mapping(address=>uint256)                   |
	| 5    | shares              | mapping(address=>mapping(address=>uint256)) |
	| 6    | supportedAssets     | mapping(address=>bool)                      |
*/
package v2

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/sharevault/asset"
	"github.com/nspcc-dev/sharevault/common"
	"github.com/nspcc-dev/sharevault/conversion"
	"github.com/nspcc-dev/sharevault/ledger"
	"github.com/nspcc-dev/sharevault/registry"
	"github.com/nspcc-dev/sharevault/schema"
	"github.com/nspcc-dev/sharevault/vault"
	"go.uber.org/zap"
)

// Logic is the multi-asset vault logic.
type Logic struct {
	set        registry.Set
	deprecated registry.Single
}

var (
	_ vault.Logic           = (*Logic)(nil)
	_ vault.PermitDepositor = (*Logic)(nil)
	_ vault.Migrator        = (*Logic)(nil)
)

// New returns Logic.
func New() *Logic {
	return new(Logic)
}

// Version implements vault.Logic.
func (*Logic) Version() int { return common.Version2 }

// PreviousVersion implements vault.Logic.
func (*Logic) PreviousVersion() int { return common.Version1 }

// Layout implements vault.Logic.
func (*Logic) Layout() schema.Layout { return schema.LayoutV2 }

// Initialize implements vault.Logic. Initial asset is optional.
func (l *Logic) Initialize(_ context.Context, ic *vault.Invocation, prm vault.InitPrm) error {
	if err := vault.Init(ic, l.Version(), prm); err != nil {
		return err
	}
	if prm.Asset.Equals(util.Uint160{}) {
		return nil
	}
	return l.addAsset(ic, prm.Asset)
}

// Migrate implements vault.Migrator. It is idempotent.
func (l *Logic) Migrate(_ context.Context, ic *vault.Invocation) error {
	cur, err := l.deprecated.Current(ic.Tx)
	if err != nil {
		return fmt.Errorf("migrate: read deprecated asset: %w", err)
	}
	minAmount, err := l.deprecated.MinAmount(ic.Tx)
	if err != nil {
		return fmt.Errorf("migrate: read deprecated minimum: %w", err)
	}

	if !cur.Equals(util.Uint160{}) && !minAmount.IsZero() {
		ok, err := l.set.IsSupported(ic.Tx, cur)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if !ok {
			if err = l.addAsset(ic, cur); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		ic.Log.Info("single-asset state migrated",
			zap.String("asset", address.Uint160ToString(cur)), zap.String("minAmount", minAmount.Dec()))
	}

	l.deprecated.Clear(ic.Tx)
	return nil
}

// Name implements vault.Logic.
func (*Logic) Name(_ context.Context, ic *vault.Invocation) (string, error) {
	return vault.Name(ic.Tx)
}

// Owner implements vault.Logic.
func (*Logic) Owner(_ context.Context, ic *vault.Invocation) (util.Uint160, error) {
	return vault.Owner(ic.Tx)
}

// Assets returns all supported assets.
func (l *Logic) Assets(_ context.Context, ic *vault.Invocation) ([]util.Uint160, error) {
	return l.set.List(ic.Tx)
}

// IsSupported implements vault.Logic.
func (l *Logic) IsSupported(_ context.Context, ic *vault.Invocation, asset util.Uint160) (bool, error) {
	return l.set.IsSupported(ic.Tx, asset)
}

// MinDeposit implements vault.Logic. It is computed from the current asset
// precision, nothing is cached.
func (*Logic) MinDeposit(ctx context.Context, ic *vault.Invocation, asset util.Uint160) (*uint256.Int, error) {
	a, err := ic.Env.Asset(asset)
	if err != nil {
		return nil, err
	}
	decimals, err := a.Decimals(ctx)
	if err != nil {
		return nil, fmt.Errorf("get decimals of %s: %w", address.Uint160ToString(asset), err)
	}
	return conversion.MinDeposit(decimals)
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
	return vault.PreviewDeposit(ctx, ic, l.set, asset, amount)
}

// PreviewWithdraw implements vault.Logic.
func (*Logic) PreviewWithdraw(ctx context.Context, ic *vault.Invocation, asset util.Uint160, shares *uint256.Int) (*uint256.Int, error) {
	return vault.PreviewWithdraw(ctx, ic, asset, shares)
}

// Deposit implements vault.Logic.
func (l *Logic) Deposit(ctx context.Context, ic *vault.Invocation, asset util.Uint160, amount *uint256.Int) (*uint256.Int, error) {
	minAmount, err := l.MinDeposit(ctx, ic, asset)
	if err != nil {
		return nil, err
	}
	return vault.Deposit(ctx, ic, l.set, asset, amount, minAmount)
}

// DepositWithPermit implements vault.PermitDepositor. The credential is
// redeemed with the asset to let the vault pull amount, then the deposit
// proceeds as usual. Credential is not redeemed for unsupported assets and
// amounts below the minimum.
func (l *Logic) DepositWithPermit(ctx context.Context, ic *vault.Invocation, assetHash util.Uint160, amount *uint256.Int,
	deadline time.Time, cred asset.Credential) (*uint256.Int, error) {
	if now := ic.Env.Clock().Now(); now.After(deadline) {
		return nil, fmt.Errorf("%w: deadline %s, now %s", asset.ErrPermitExpired, deadline.UTC(), now.UTC())
	}

	ok, err := l.set.IsSupported(ic.Tx, assetHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is not supported", common.ErrInvalidAsset, address.Uint160ToString(assetHash))
	}
	minAmount, err := l.MinDeposit(ctx, ic, assetHash)
	if err != nil {
		return nil, err
	}
	if amount.Lt(minAmount) {
		return nil, fmt.Errorf("%w: %s is below minimum %s", common.ErrInsufficientAmount, amount.Dec(), minAmount.Dec())
	}

	a, err := ic.Env.Asset(assetHash)
	if err != nil {
		return nil, err
	}
	p, ok := a.(asset.Permitter)
	if !ok {
		return nil, fmt.Errorf("%w: %s", asset.ErrPermitUnsupported, address.Uint160ToString(assetHash))
	}
	err = p.Permit(ctx, ic.Caller, ic.Env.Self(), amount, deadline, cred)
	if err != nil {
		return nil, fmt.Errorf("redeem permit: %w", err)
	}

	return l.Deposit(ctx, ic, assetHash, amount)
}

// Withdraw implements vault.Logic.
func (*Logic) Withdraw(ctx context.Context, ic *vault.Invocation, asset util.Uint160, shares *uint256.Int) (*uint256.Int, error) {
	return vault.Withdraw(ctx, ic, asset, shares)
}

// ChangeOrAddAsset implements vault.Logic. The asset is added to the
// supported set.
func (l *Logic) ChangeOrAddAsset(_ context.Context, ic *vault.Invocation, asset util.Uint160) error {
	if err := vault.CheckOwner(ic, "addAsset"); err != nil {
		return err
	}
	if err := l.addAsset(ic, asset); err != nil {
		return fmt.Errorf("addAsset: %w", err)
	}
	return nil
}

// TransferOwnership implements vault.Logic.
func (*Logic) TransferOwnership(_ context.Context, ic *vault.Invocation, owner util.Uint160) error {
	return vault.TransferOwnership(ic, owner)
}

func (l *Logic) addAsset(ic *vault.Invocation, asset util.Uint160) error {
	if err := l.set.Add(ic.Tx, asset); err != nil {
		return err
	}
	ic.Notify(vault.AssetChanged{Asset: asset})
	return nil
}
