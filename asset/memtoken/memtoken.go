/*
Package memtoken implements in-process fungible token. It is used as the
vault asset in tests, local deployments and CLI dry runs.
*/
package memtoken

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/sharevault/asset"
)

var (
	// ErrInsufficientFunds is returned when sender has less than transferred.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInsufficientAllowance is returned when spender is allowed to move
	// less than requested.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Hook is called on every transfer before funds move. Non-nil error aborts
// the transfer.
type Hook func(ctx context.Context, from, to util.Uint160, amount *uint256.Int) error

type allowanceKey struct {
	owner, spender util.Uint160
}

// Token is an in-memory asset.Permitter. It is safe for concurrent use.
type Token struct {
	hash  util.Uint160
	clock clock.Clock

	mu         sync.Mutex
	decimals   int
	balances   map[util.Uint160]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
	nonces     map[uuid.UUID]struct{}
	hooks      []Hook
}

var _ asset.Permitter = (*Token)(nil)

// New returns empty token.
func New(hash util.Uint160, decimals int) *Token {
	return &Token{
		hash:       hash,
		clock:      clock.New(),
		decimals:   decimals,
		balances:   make(map[util.Uint160]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
		nonces:     make(map[uuid.UUID]struct{}),
	}
}

// SetClock replaces time source used for permit deadlines.
func (t *Token) SetClock(c clock.Clock) {
	t.clock = c
}

// SetDecimals changes token precision.
func (t *Token) SetDecimals(d int) {
	t.mu.Lock()
	t.decimals = d
	t.mu.Unlock()
}

// OnTransfer registers hook.
func (t *Token) OnTransfer(h Hook) {
	t.mu.Lock()
	t.hooks = append(t.hooks, h)
	t.mu.Unlock()
}

// Mint credits amount to the holder.
func (t *Token) Mint(holder util.Uint160, amount *uint256.Int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.balance(holder).Add(t.balance(holder), amount)
}

// Approve sets allowance of spender over owner funds.
func (t *Token) Approve(owner, spender util.Uint160, amount *uint256.Int) {
	t.mu.Lock()
	t.allowances[allowanceKey{owner, spender}] = amount.Clone()
	t.mu.Unlock()
}

// Allowance returns amount spender is allowed to move from owner.
func (t *Token) Allowance(owner, spender util.Uint160) *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if a, ok := t.allowances[allowanceKey{owner, spender}]; ok {
		return a.Clone()
	}
	return new(uint256.Int)
}

// Hash implements asset.Asset.
func (t *Token) Hash() util.Uint160 {
	return t.hash
}

// Decimals implements asset.Asset.
func (t *Token) Decimals(context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.decimals, nil
}

// BalanceOf implements asset.Asset.
func (t *Token) BalanceOf(_ context.Context, holder util.Uint160) (*uint256.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.balance(holder).Clone(), nil
}

// Transfer implements asset.Asset.
func (t *Token) Transfer(ctx context.Context, from, to util.Uint160, amount *uint256.Int) error {
	if err := t.runHooks(ctx, from, to, amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.move(from, to, amount)
}

// TransferFrom implements asset.Asset.
func (t *Token) TransferFrom(ctx context.Context, spender, from, to util.Uint160, amount *uint256.Int) error {
	t.mu.Lock()
	k := allowanceKey{from, spender}
	allowed, ok := t.allowances[k]
	if !ok || allowed.Lt(amount) {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s may spend %s of %s, %s requested", ErrInsufficientAllowance,
			address.Uint160ToString(spender), allowanceString(allowed), address.Uint160ToString(from), amount)
	}
	t.mu.Unlock()

	if err := t.runHooks(ctx, from, to, amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// hooks may have spent allowance meanwhile
	allowed, ok = t.allowances[k]
	if !ok || allowed.Lt(amount) {
		return fmt.Errorf("%w: allowance changed during transfer", ErrInsufficientAllowance)
	}
	if err := t.move(from, to, amount); err != nil {
		return err
	}
	allowed.Sub(allowed, amount)
	return nil
}

// Permit implements asset.Permitter.
func (t *Token) Permit(_ context.Context, owner, spender util.Uint160, amount *uint256.Int, deadline time.Time, cred asset.Credential) error {
	if now := t.clock.Now(); now.After(deadline) {
		return fmt.Errorf("%w: deadline %s, now %s", asset.ErrPermitExpired, deadline.UTC(), now.UTC())
	}

	digest := asset.PermitDigest(t.hash, owner, spender, amount, deadline, cred.Nonce)
	if err := cred.Verify(owner, digest); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.nonces[cred.Nonce]; ok {
		return fmt.Errorf("%w: nonce %s is already used", asset.ErrInvalidCredential, cred.Nonce)
	}
	t.nonces[cred.Nonce] = struct{}{}
	t.allowances[allowanceKey{owner, spender}] = amount.Clone()
	return nil
}

func (t *Token) runHooks(ctx context.Context, from, to util.Uint160, amount *uint256.Int) error {
	t.mu.Lock()
	hooks := append([]Hook(nil), t.hooks...)
	t.mu.Unlock()

	for _, h := range hooks {
		if err := h(ctx, from, to, amount); err != nil {
			return fmt.Errorf("transfer hook: %w", err)
		}
	}
	return nil
}

// move must be called under lock.
func (t *Token) move(from, to util.Uint160, amount *uint256.Int) error {
	src := t.balance(from)
	if src.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, %s requested", ErrInsufficientFunds,
			address.Uint160ToString(from), src, amount)
	}
	src.Sub(src, amount)
	dst := t.balance(to)
	dst.Add(dst, amount)
	return nil
}

func (t *Token) balance(holder util.Uint160) *uint256.Int {
	b, ok := t.balances[holder]
	if !ok {
		b = new(uint256.Int)
		t.balances[holder] = b
	}
	return b
}

func allowanceString(a *uint256.Int) string {
	if a == nil {
		return "0"
	}
	return a.String()
}
