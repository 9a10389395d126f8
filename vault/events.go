package vault

import (
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/sharevault/common"
	"go.uber.org/zap/zapcore"
)

// Event is a record of the vault state change.
type Event interface {
	zapcore.ObjectMarshaler

	EventName() string
}

// Deposited is emitted on successful deposit.
type Deposited struct {
	Caller util.Uint160
	Asset  util.Uint160
	Amount *uint256.Int
	Shares *uint256.Int
}

// Withdrawn is emitted on successful withdrawal.
type Withdrawn struct {
	Caller util.Uint160
	Asset  util.Uint160
	Shares *uint256.Int
	Amount *uint256.Int
}

// AssetChanged is emitted when the asset starts accepting deposits.
type AssetChanged struct {
	Asset util.Uint160
}

// OwnershipTransferred is emitted when the owner changes.
type OwnershipTransferred struct {
	Previous util.Uint160
	Next     util.Uint160
}

// Upgraded is emitted when vault logic is swapped.
type Upgraded struct {
	From int
	To   int
}

// EventName implements Event.
func (Deposited) EventName() string { return "Deposit" }

// EventName implements Event.
func (Withdrawn) EventName() string { return "Withdrawal" }

// EventName implements Event.
func (AssetChanged) EventName() string { return "AssetChanged" }

// EventName implements Event.
func (OwnershipTransferred) EventName() string { return "OwnershipTransferred" }

// EventName implements Event.
func (Upgraded) EventName() string { return "Upgraded" }

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e Deposited) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("caller", address.Uint160ToString(e.Caller))
	enc.AddString("asset", address.Uint160ToString(e.Asset))
	enc.AddString("amount", e.Amount.Dec())
	enc.AddString("shares", e.Shares.Dec())
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e Withdrawn) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("caller", address.Uint160ToString(e.Caller))
	enc.AddString("asset", address.Uint160ToString(e.Asset))
	enc.AddString("shares", e.Shares.Dec())
	enc.AddString("amount", e.Amount.Dec())
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e AssetChanged) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("asset", address.Uint160ToString(e.Asset))
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e OwnershipTransferred) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("previous", address.Uint160ToString(e.Previous))
	enc.AddString("next", address.Uint160ToString(e.Next))
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (e Upgraded) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("from", common.FormatVersion(e.From))
	enc.AddString("to", common.FormatVersion(e.To))
	return nil
}
