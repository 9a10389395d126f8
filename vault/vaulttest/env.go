/*
Package vaulttest provides execution environment for vault logic tests.
*/
package vaulttest

import (
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/sharevault/asset"
	"github.com/nspcc-dev/sharevault/state"
	"github.com/nspcc-dev/sharevault/vault"
	"go.uber.org/zap/zaptest"
)

// Env is vault.Env over fixed assets and mock clock.
type Env struct {
	self  util.Uint160
	book  asset.Book
	clock *clock.Mock
}

// NewEnv returns Env of the vault with custody account self.
func NewEnv(self util.Uint160, assets ...asset.Asset) *Env {
	return &Env{
		self:  self,
		book:  asset.NewBook(assets...),
		clock: clock.NewMock(),
	}
}

// Self implements vault.Env.
func (e *Env) Self() util.Uint160 { return e.self }

// Asset implements vault.Env.
func (e *Env) Asset(h util.Uint160) (asset.Asset, error) { return e.book.Asset(h) }

// Clock implements vault.Env.
func (e *Env) Clock() clock.Clock { return e.clock }

// Mock returns controllable clock of the Env.
func (e *Env) Mock() *clock.Mock { return e.clock }

// Invocation returns invocation of the caller over tx.
func (e *Env) Invocation(tb testing.TB, tx *state.Tx, caller util.Uint160) *vault.Invocation {
	return &vault.Invocation{
		Caller: caller,
		Tx:     tx,
		Env:    e,
		Log:    zaptest.NewLogger(tb),
	}
}

// Units returns n whole units of the asset with given precision.
func Units(n uint64, decimals int) *uint256.Int {
	unit := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals)))
	return unit.Mul(unit, uint256.NewInt(n))
}
