/*
Package conversion implements exchange between assets and vault shares.

All arithmetic is unsigned with truncating division. Products are computed
in 512 bits, so the only possible overflow is the one of the final
quotient, which is reported as an error instead of being wrapped.
*/
package conversion

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/sharevault/common"
)

// MaxDecimals is the largest asset precision the vault works with: 10^77 is
// the greatest power of ten fitting into 256 bits.
const MaxDecimals = 77

var ten = uint256.NewInt(10)

// MinDeposit returns the minimum accepted deposit for the asset of the given
// precision: one tenth of a whole unit, 10^decimals / 10.
func MinDeposit(decimals int) (*uint256.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: unsupported precision %d", common.ErrInvalidAsset, decimals)
	}
	unit := new(uint256.Int).Exp(ten, uint256.NewInt(uint64(decimals)))
	return unit.Div(unit, ten), nil
}

// SharesForDeposit returns the number of shares amount of the asset is worth.
// When no shares are outstanding, the rate is 1:1 and the first depositor
// defines it. Otherwise shares = floor(amount * totalShares / poolBalance).
//
// Pool balance is the vault holding at the moment of the call, so direct
// transfers into the vault dilute the rate in favour of existing holders.
func SharesForDeposit(amount, totalShares, poolBalance *uint256.Int) (*uint256.Int, error) {
	if totalShares.IsZero() {
		return amount.Clone(), nil
	}
	if poolBalance.IsZero() {
		return nil, fmt.Errorf("%w: %s shares outstanding against empty pool", common.ErrDepletedPool, totalShares)
	}
	shares, overflow := new(uint256.Int).MulDivOverflow(amount, totalShares, poolBalance)
	if overflow {
		return nil, fmt.Errorf("%w: deposit of %s exceeds share capacity", common.ErrShareOverflow, amount)
	}
	return shares, nil
}

// AmountForWithdraw returns the amount of the asset shares are worth:
// floor(shares * poolBalance / totalShares). There is no precondition on the
// asset itself, only on its supply.
//
// For shares <= totalShares the result never exceeds poolBalance, so it
// always fits. Bigger share counts are only possible in previews.
func AmountForWithdraw(shares, totalShares, poolBalance *uint256.Int) (*uint256.Int, error) {
	if totalShares.IsZero() {
		return nil, fmt.Errorf("%w: no shares outstanding", common.ErrInsufficientSupply)
	}
	amount, overflow := new(uint256.Int).MulDivOverflow(shares, poolBalance, totalShares)
	if overflow {
		return nil, fmt.Errorf("%w: %s shares exceed pool capacity", common.ErrInsufficientSupply, shares)
	}
	return amount, nil
}
