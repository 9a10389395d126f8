/*
Package ledger keeps vault shares: total shares outstanding per asset and
shares of every holder per asset.

For every asset the sum of holder balances equals total shares at every
point between calls. Holder entries are never removed: zero is a valid
final balance.
*/
package ledger

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/sharevault/common"
	"github.com/nspcc-dev/sharevault/schema"
	"github.com/nspcc-dev/sharevault/state"
)

// TotalShares returns shares outstanding for the asset.
func TotalShares(tx *state.Tx, asset util.Uint160) (*uint256.Int, error) {
	return getUint(tx, schema.AssetKey(schema.SlotTotalShares, asset))
}

// BalanceOf returns shares of the holder for the asset.
func BalanceOf(tx *state.Tx, asset, holder util.Uint160) (*uint256.Int, error) {
	return getUint(tx, schema.HolderKey(schema.SlotShares, asset, holder))
}

// Mint credits shares to the holder and to the asset total.
func Mint(tx *state.Tx, asset, holder util.Uint160, shares *uint256.Int) error {
	total, err := TotalShares(tx, asset)
	if err != nil {
		return err
	}
	bal, err := BalanceOf(tx, asset, holder)
	if err != nil {
		return err
	}

	// balance <= total, so the total overflows first
	if _, overflow := total.AddOverflow(total, shares); overflow {
		return fmt.Errorf("mint %s shares: %w", shares, common.ErrShareOverflow)
	}
	bal.Add(bal, shares)

	tx.Put(schema.AssetKey(schema.SlotTotalShares, asset), common.EncodeUint256(total))
	tx.Put(schema.HolderKey(schema.SlotShares, asset, holder), common.EncodeUint256(bal))
	return nil
}

// Burn debits shares from the holder and from the asset total.
func Burn(tx *state.Tx, asset, holder util.Uint160, shares *uint256.Int) error {
	bal, err := BalanceOf(tx, asset, holder)
	if err != nil {
		return err
	}
	if bal.Lt(shares) {
		return fmt.Errorf("%w: %s holds %s shares, %s requested", common.ErrInsufficientBalance,
			address.Uint160ToString(holder), bal, shares)
	}
	total, err := TotalShares(tx, asset)
	if err != nil {
		return err
	}

	// total >= balance >= shares
	bal.Sub(bal, shares)
	total.Sub(total, shares)

	tx.Put(schema.AssetKey(schema.SlotTotalShares, asset), common.EncodeUint256(total))
	tx.Put(schema.HolderKey(schema.SlotShares, asset, holder), common.EncodeUint256(bal))
	return nil
}

// Assets iterates over all assets shares have ever been minted for.
func Assets(tx *state.Tx, f func(asset util.Uint160, total *uint256.Int) bool) error {
	var err error
	tx.Seek(schema.ScalarKey(schema.SlotTotalShares), func(k, v []byte) bool {
		var (
			a     util.Uint160
			total *uint256.Int
		)
		if a, err = common.DecodeHash160(k); err != nil {
			return false
		}
		if total, err = common.DecodeUint256(v); err != nil {
			return false
		}
		return f(a, total)
	})
	return err
}

// Holders iterates over all holders of the asset shares.
func Holders(tx *state.Tx, asset util.Uint160, f func(holder util.Uint160, shares *uint256.Int) bool) error {
	var err error
	tx.Seek(schema.AssetKey(schema.SlotShares, asset), func(k, v []byte) bool {
		var (
			h   util.Uint160
			bal *uint256.Int
		)
		if h, err = common.DecodeHash160(k); err != nil {
			return false
		}
		if bal, err = common.DecodeUint256(v); err != nil {
			return false
		}
		return f(h, bal)
	})
	return err
}

// Audit checks that holder balances of the asset sum up to its total.
func Audit(tx *state.Tx, asset util.Uint160) error {
	total, err := TotalShares(tx, asset)
	if err != nil {
		return err
	}

	var (
		sum      = new(uint256.Int)
		overflow bool
	)
	err = Holders(tx, asset, func(_ util.Uint160, shares *uint256.Int) bool {
		_, overflow = sum.AddOverflow(sum, shares)
		return !overflow
	})
	if err != nil {
		return err
	}
	if overflow || !sum.Eq(total) {
		return fmt.Errorf("asset %s: holders own %s shares, total is %s", address.Uint160ToString(asset), sum, total)
	}
	return nil
}

// AuditAll runs Audit for every asset known to the ledger.
func AuditAll(tx *state.Tx) error {
	var assets []util.Uint160
	err := Assets(tx, func(a util.Uint160, _ *uint256.Int) bool {
		assets = append(assets, a)
		return true
	})
	if err != nil {
		return err
	}
	for i := range assets {
		if err = Audit(tx, assets[i]); err != nil {
			return err
		}
	}
	return nil
}

func getUint(tx *state.Tx, key []byte) (*uint256.Int, error) {
	raw, err := tx.Get(key)
	if err != nil {
		return nil, err
	}
	return common.DecodeUint256(raw)
}
