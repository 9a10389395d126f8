package vault

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/sharevault/common"
	"github.com/nspcc-dev/sharevault/conversion"
	"github.com/nspcc-dev/sharevault/ledger"
	"github.com/nspcc-dev/sharevault/registry"
	"github.com/nspcc-dev/sharevault/schema"
	"github.com/nspcc-dev/sharevault/state"
	"go.uber.org/zap"
)

// Init writes fields common to all versions and marks state as initialized
// by the given version.
func Init(ic *Invocation, version int, prm InitPrm) error {
	v, err := schema.ReadVersion(ic.Tx, schema.InitializedKey)
	if err != nil {
		return err
	}
	if v != 0 {
		return fmt.Errorf("%w by version %s", common.ErrAlreadyInitialized, common.FormatVersion(v))
	}
	if prm.Owner.Equals(util.Uint160{}) {
		return fmt.Errorf("%w: zero owner", common.ErrInvalidOwner)
	}

	ic.Tx.Put(schema.ScalarKey(schema.SlotOwner), common.EncodeHash160(prm.Owner))
	ic.Tx.Put(schema.ScalarKey(schema.SlotName), []byte(prm.Name))
	schema.WriteVersion(ic.Tx, schema.InitializedKey, version)

	ic.Log.Debug("vault initialized",
		zap.String("name", prm.Name), zap.String("owner", address.Uint160ToString(prm.Owner)))
	return nil
}

// Owner returns vault owner.
func Owner(tx *state.Tx) (util.Uint160, error) {
	raw, err := tx.Get(schema.ScalarKey(schema.SlotOwner))
	if err != nil {
		return util.Uint160{}, err
	}
	return common.DecodeHash160(raw)
}

// Name returns vault name.
func Name(tx *state.Tx) (string, error) {
	raw, err := tx.Get(schema.ScalarKey(schema.SlotName))
	return string(raw), err
}

// CheckOwner fails unless the caller is the vault owner.
func CheckOwner(ic *Invocation, op string) error {
	owner, err := Owner(ic.Tx)
	if err != nil {
		return err
	}
	return common.CheckOwnerWitness(op, ic.Caller, owner)
}

// TransferOwnership hands the vault over to the new owner.
func TransferOwnership(ic *Invocation, owner util.Uint160) error {
	if err := CheckOwner(ic, "transferOwnership"); err != nil {
		return err
	}
	if owner.Equals(util.Uint160{}) {
		return fmt.Errorf("transferOwnership: %w: zero owner", common.ErrInvalidOwner)
	}

	ic.Tx.Put(schema.ScalarKey(schema.SlotOwner), common.EncodeHash160(owner))
	ic.Notify(OwnershipTransferred{Previous: ic.Caller, Next: owner})
	return nil
}

// PreviewDeposit returns shares minted for amount of the supported asset
// at the current exchange rate.
func PreviewDeposit(ctx context.Context, ic *Invocation, reg registry.Registry, asset util.Uint160, amount *uint256.Int) (*uint256.Int, error) {
	ok, err := reg.IsSupported(ic.Tx, asset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is not accepted for deposit", common.ErrInvalidAsset, address.Uint160ToString(asset))
	}

	total, err := ledger.TotalShares(ic.Tx, asset)
	if err != nil {
		return nil, err
	}
	if total.IsZero() {
		return conversion.SharesForDeposit(amount, total, nil)
	}

	pool, err := poolBalance(ctx, ic, asset)
	if err != nil {
		return nil, err
	}
	return conversion.SharesForDeposit(amount, total, pool)
}

// PreviewWithdraw returns amount of the asset paid for shares at the current
// exchange rate. Asset support is not required.
func PreviewWithdraw(ctx context.Context, ic *Invocation, asset util.Uint160, shares *uint256.Int) (*uint256.Int, error) {
	total, err := ledger.TotalShares(ic.Tx, asset)
	if err != nil {
		return nil, err
	}
	if total.IsZero() {
		return nil, fmt.Errorf("%w: no shares of %s outstanding", common.ErrInsufficientSupply, address.Uint160ToString(asset))
	}

	pool, err := poolBalance(ctx, ic, asset)
	if err != nil {
		return nil, err
	}
	return conversion.AmountForWithdraw(shares, total, pool)
}

// Deposit mints shares for amount of the asset to the caller and then pulls
// the amount into custody. Amount must be at least minAmount.
func Deposit(ctx context.Context, ic *Invocation, reg registry.Registry, asset util.Uint160, amount, minAmount *uint256.Int) (*uint256.Int, error) {
	if amount.Lt(minAmount) {
		return nil, fmt.Errorf("%w: %s is below minimum %s", common.ErrInsufficientAmount, amount.Dec(), minAmount.Dec())
	}

	shares, err := PreviewDeposit(ctx, ic, reg, asset, amount)
	if err != nil {
		return nil, err
	}

	err = ledger.Mint(ic.Tx, asset, ic.Caller, shares)
	if err != nil {
		return nil, err
	}

	a, err := ic.Env.Asset(asset)
	if err != nil {
		return nil, err
	}
	self := ic.Env.Self()
	err = a.TransferFrom(ctx, self, ic.Caller, self, amount)
	if err != nil {
		return nil, fmt.Errorf("pull %s of %s from %s: %w", amount.Dec(), address.Uint160ToString(asset),
			address.Uint160ToString(ic.Caller), err)
	}

	ic.Notify(Deposited{Caller: ic.Caller, Asset: asset, Amount: amount.Clone(), Shares: shares.Clone()})
	ic.Log.Debug("assets were deposited", zap.String("amount", amount.Dec()), zap.String("shares", shares.Dec()))
	return shares, nil
}

// Withdraw burns caller shares of the asset and then pushes corresponding
// amount out of custody.
func Withdraw(ctx context.Context, ic *Invocation, asset util.Uint160, shares *uint256.Int) (*uint256.Int, error) {
	bal, err := ledger.BalanceOf(ic.Tx, asset, ic.Caller)
	if err != nil {
		return nil, err
	}
	if bal.Lt(shares) {
		return nil, fmt.Errorf("%w: %s holds %s shares, %s requested", common.ErrInsufficientBalance,
			address.Uint160ToString(ic.Caller), bal.Dec(), shares.Dec())
	}

	amount, err := PreviewWithdraw(ctx, ic, asset, shares)
	if err != nil {
		return nil, err
	}

	err = ledger.Burn(ic.Tx, asset, ic.Caller, shares)
	if err != nil {
		return nil, err
	}

	a, err := ic.Env.Asset(asset)
	if err != nil {
		return nil, err
	}
	err = a.Transfer(ctx, ic.Env.Self(), ic.Caller, amount)
	if err != nil {
		return nil, fmt.Errorf("push %s of %s to %s: %w", amount.Dec(), address.Uint160ToString(asset),
			address.Uint160ToString(ic.Caller), err)
	}

	ic.Notify(Withdrawn{Caller: ic.Caller, Asset: asset, Shares: shares.Clone(), Amount: amount.Clone()})
	ic.Log.Debug("assets were withdrawn", zap.String("amount", amount.Dec()), zap.String("shares", shares.Dec()))
	return amount, nil
}

func poolBalance(ctx context.Context, ic *Invocation, asset util.Uint160) (*uint256.Int, error) {
	a, err := ic.Env.Asset(asset)
	if err != nil {
		return nil, err
	}
	b, err := a.BalanceOf(ctx, ic.Env.Self())
	if err != nil {
		return nil, fmt.Errorf("get pool balance of %s: %w", address.Uint160ToString(asset), err)
	}
	return b, nil
}
