/*
Package asset defines fungible assets the vault keeps in custody.

The vault never moves tokens itself: it asks an Asset to transfer them on
its behalf. Assets may call back into the vault while transferring, the
vault tolerates it.
*/
package asset

import (
	"context"
	"errors"
	"time"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

var (
	// ErrPermitUnsupported is returned when the asset can't redeem permit
	// credentials.
	ErrPermitUnsupported = errors.New("asset does not support permits")
	// ErrPermitExpired is returned for credentials redeemed after deadline.
	ErrPermitExpired = errors.New("permit expired")
	// ErrInvalidCredential is returned for credentials not signed by the
	// owner or already redeemed.
	ErrInvalidCredential = errors.New("invalid permit credential")
)

// Asset is a fungible token.
type Asset interface {
	// Hash returns asset identifier.
	Hash() util.Uint160
	// Decimals returns asset precision.
	Decimals(ctx context.Context) (int, error)
	// BalanceOf returns amount of the asset the holder has.
	BalanceOf(ctx context.Context, holder util.Uint160) (*uint256.Int, error)
	// Transfer moves amount from the account of from to the account of to.
	// from is the account acting.
	Transfer(ctx context.Context, from, to util.Uint160, amount *uint256.Int) error
	// TransferFrom moves amount from the account of from to the account of
	// to spending allowance given by from to spender.
	TransferFrom(ctx context.Context, spender, from, to util.Uint160, amount *uint256.Int) error
}

// Permitter is an Asset able to set allowances by signed credentials.
type Permitter interface {
	Asset

	// Permit sets allowance of spender over owner's funds to amount if
	// credential proves owner's consent and deadline hasn't passed. Every
	// credential can be redeemed once.
	Permit(ctx context.Context, owner, spender util.Uint160, amount *uint256.Int, deadline time.Time, cred Credential) error
}
