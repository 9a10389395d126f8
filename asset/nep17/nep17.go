/*
Package nep17 provides vault assets backed by NEP-17 tokens of the Neo
network.

Reads are done by test invocations, transfers are sent as transactions
signed by the account funds are moved from and awaited. NEP-17 has no
allowances: the vault is allowed to pull funds of accounts which registered
their signers.
*/
package nep17

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/nep17"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/sharevault/asset"
)

// ErrNoSigner is returned for transfers from accounts with no signer.
var ErrNoSigner = errors.New("no signer for the account")

// Signer sends and awaits transactions of the account. *actor.Actor
// satisfies it.
type Signer interface {
	nep17.Actor

	Wait(h util.Uint256, vub uint32, err error) (*state.AppExecResult, error)
}

// Token is asset.Asset of the NEP-17 token.
type Token struct {
	hash    util.Uint160
	reader  *nep17.TokenReader
	signers map[util.Uint160]Signer
}

var _ asset.Asset = (*Token)(nil)

// New returns Token with given hash read through inv.
func New(inv nep17.Invoker, hash util.Uint160) *Token {
	return &Token{
		hash:    hash,
		reader:  nep17.NewReader(inv, hash),
		signers: make(map[util.Uint160]Signer),
	}
}

// AddSigner registers signer of the account.
func (t *Token) AddSigner(acc util.Uint160, s Signer) {
	t.signers[acc] = s
}

// Hash implements asset.Asset.
func (t *Token) Hash() util.Uint160 {
	return t.hash
}

// Decimals implements asset.Asset.
func (t *Token) Decimals(context.Context) (int, error) {
	d, err := t.reader.Decimals()
	if err != nil {
		return 0, fmt.Errorf("call 'decimals' of %s: %w", t.hash.StringLE(), err)
	}
	return d, nil
}

// BalanceOf implements asset.Asset.
func (t *Token) BalanceOf(_ context.Context, holder util.Uint160) (*uint256.Int, error) {
	b, err := t.reader.BalanceOf(holder)
	if err != nil {
		return nil, fmt.Errorf("call 'balanceOf' of %s: %w", t.hash.StringLE(), err)
	}
	res, overflow := uint256.FromBig(b)
	if overflow || b.Sign() < 0 {
		return nil, fmt.Errorf("invalid balance %s", b)
	}
	return res, nil
}

// Transfer implements asset.Asset.
func (t *Token) Transfer(ctx context.Context, from, to util.Uint160, amount *uint256.Int) error {
	return t.send(ctx, from, to, amount)
}

// TransferFrom implements asset.Asset. Spender is not checked: funds move
// if the signer of from is registered.
func (t *Token) TransferFrom(ctx context.Context, _, from, to util.Uint160, amount *uint256.Int) error {
	return t.send(ctx, from, to, amount)
}

func (t *Token) send(ctx context.Context, from, to util.Uint160, amount *uint256.Int) error {
	s, ok := t.signers[from]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSigner, address.Uint160ToString(from))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := s.Wait(nep17.New(s, t.hash).Transfer(from, to, amount.ToBig(), nil))
	if err != nil {
		return fmt.Errorf("transfer %s of %s: %w", amount.Dec(), t.hash.StringLE(), err)
	}
	if res.VMState != vmstate.Halt {
		return fmt.Errorf("transfer %s of %s: transaction %s failed: %s",
			amount.Dec(), t.hash.StringLE(), res.Container.StringLE(), res.FaultException)
	}
	return nil
}
