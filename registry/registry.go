/*
Package registry tracks assets accepted for deposit.

Single keeps the only current asset of the single-asset vault together with
its cached minimum deposit. Set is the additive allow-list of the
multi-asset vault. Both are owned by the vault state and never duplicated.
*/
package registry

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/sharevault/common"
	"github.com/nspcc-dev/sharevault/conversion"
	"github.com/nspcc-dev/sharevault/schema"
	"github.com/nspcc-dev/sharevault/state"
)

// Registry answers whether new deposits of the asset are accepted.
type Registry interface {
	IsSupported(tx *state.Tx, asset util.Uint160) (bool, error)
}

// Single is a registry of exactly one current asset.
type Single struct{}

// Current returns current asset, zero hash if there is none.
func (Single) Current(tx *state.Tx) (util.Uint160, error) {
	raw, err := tx.Get(schema.ScalarKey(schema.SlotAsset))
	if err != nil {
		return util.Uint160{}, err
	}
	return common.DecodeHash160(raw)
}

// MinAmount returns cached minimum deposit of the current asset.
func (Single) MinAmount(tx *state.Tx) (*uint256.Int, error) {
	raw, err := tx.Get(schema.ScalarKey(schema.SlotMinAmount))
	if err != nil {
		return nil, err
	}
	return common.DecodeUint256(raw)
}

// IsSupported implements Registry.
func (r Single) IsSupported(tx *state.Tx, asset util.Uint160) (bool, error) {
	cur, err := r.Current(tx)
	if err != nil {
		return false, err
	}
	return !asset.Equals(util.Uint160{}) && cur.Equals(asset), nil
}

// Change makes asset current and caches its minimum deposit computed from
// decimals.
func (r Single) Change(tx *state.Tx, asset util.Uint160, decimals int) error {
	if asset.Equals(util.Uint160{}) {
		return fmt.Errorf("%w: zero asset", common.ErrInvalidAsset)
	}
	cur, err := r.Current(tx)
	if err != nil {
		return err
	}
	if cur.Equals(asset) {
		return fmt.Errorf("%w: %s is already current", common.ErrInvalidAsset, address.Uint160ToString(asset))
	}
	minAmount, err := conversion.MinDeposit(decimals)
	if err != nil {
		return fmt.Errorf("asset %s: %w", address.Uint160ToString(asset), err)
	}

	tx.Put(schema.ScalarKey(schema.SlotAsset), common.EncodeHash160(asset))
	tx.Put(schema.ScalarKey(schema.SlotMinAmount), common.EncodeUint256(minAmount))
	return nil
}

// Clear zeroes current asset and its minimum. Values stay at their slots.
func (Single) Clear(tx *state.Tx) {
	tx.Put(schema.ScalarKey(schema.SlotAsset), common.EncodeHash160(util.Uint160{}))
	tx.Put(schema.ScalarKey(schema.SlotMinAmount), common.EncodeUint256(new(uint256.Int)))
}

// Set is an additive registry of simultaneously supported assets. There is
// no removal: an asset once added accepts deposits forever.
type Set struct{}

// IsSupported implements Registry.
func (Set) IsSupported(tx *state.Tx, asset util.Uint160) (bool, error) {
	raw, err := tx.Get(schema.AssetKey(schema.SlotSupportedAssets, asset))
	if err != nil {
		return false, err
	}
	return common.DecodeBool(raw)
}

// Add puts asset into the set.
func (r Set) Add(tx *state.Tx, asset util.Uint160) error {
	if asset.Equals(util.Uint160{}) {
		return fmt.Errorf("%w: zero asset", common.ErrInvalidAsset)
	}
	ok, err := r.IsSupported(tx, asset)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %s is already supported", common.ErrInvalidAsset, address.Uint160ToString(asset))
	}
	tx.Put(schema.AssetKey(schema.SlotSupportedAssets, asset), common.EncodeBool(true))
	return nil
}

// List returns supported assets in key order.
func (Set) List(tx *state.Tx) ([]util.Uint160, error) {
	var (
		res []util.Uint160
		err error
	)
	tx.Seek(schema.ScalarKey(schema.SlotSupportedAssets), func(k, v []byte) bool {
		var (
			a  util.Uint160
			ok bool
		)
		if a, err = common.DecodeHash160(k); err != nil {
			return false
		}
		if ok, err = common.DecodeBool(v); err != nil {
			return false
		}
		if ok {
			res = append(res, a)
		}
		return true
	})
	return res, err
}
