package schema

import (
	"fmt"

	"github.com/nspcc-dev/sharevault/common"
)

// Type is a persisted field type. Types are compared literally.
type Type string

// Field types used by the vault.
const (
	TypeAddress       Type = "address"
	TypeString        Type = "string"
	TypeUint256       Type = "uint256"
	TypeAssetUint256  Type = "mapping(address=>uint256)"
	TypeHolderUint256 Type = "mapping(address=>mapping(address=>uint256))"
	TypeAssetBool     Type = "mapping(address=>bool)"
)

// Slot is a position of the field in the layout.
type Slot byte

// Slots of the vault fields.
const (
	SlotOwner Slot = iota
	SlotName
	SlotAsset
	SlotMinAmount
	SlotTotalShares
	SlotShares
	SlotSupportedAssets
)

// Field describes single persisted field.
type Field struct {
	Slot       Slot
	Name       string
	Type       Type
	Deprecated bool
}

// Layout is an ordered list of fields; i-th field occupies i-th slot.
type Layout []Field

// LayoutV1 is the layout of the single-asset vault.
var LayoutV1 = Layout{
	{Slot: SlotOwner, Name: "owner", Type: TypeAddress},
	{Slot: SlotName, Name: "name", Type: TypeString},
	{Slot: SlotAsset, Name: "asset", Type: TypeAddress},
	{Slot: SlotMinAmount, Name: "minAmount", Type: TypeUint256},
	{Slot: SlotTotalShares, Name: "totalShares", Type: TypeAssetUint256},
	{Slot: SlotShares, Name: "shares", Type: TypeHolderUint256},
}

// LayoutV2 is the layout of the multi-asset vault. Single-asset fields stay
// at their slots as deprecated ones.
var LayoutV2 = Layout{
	{Slot: SlotOwner, Name: "owner", Type: TypeAddress},
	{Slot: SlotName, Name: "name", Type: TypeString},
	{Slot: SlotAsset, Name: "deprecatedAsset", Type: TypeAddress, Deprecated: true},
	{Slot: SlotMinAmount, Name: "deprecatedMinAmount", Type: TypeUint256, Deprecated: true},
	{Slot: SlotTotalShares, Name: "totalShares", Type: TypeAssetUint256},
	{Slot: SlotShares, Name: "shares", Type: TypeHolderUint256},
	{Slot: SlotSupportedAssets, Name: "supportedAssets", Type: TypeAssetBool},
}

// Validate checks that every field sits at the slot equal to its position.
func (l Layout) Validate() error {
	for i := range l {
		if int(l[i].Slot) != i {
			return fmt.Errorf("field '%s' at position %d claims slot %d", l[i].Name, i, l[i].Slot)
		}
		if l[i].Type == "" {
			return fmt.Errorf("field '%s' has no type", l[i].Name)
		}
	}
	return nil
}

// Has reports whether layout contains a field at the slot.
func (l Layout) Has(s Slot) bool {
	return int(s) < len(l)
}

// CheckAppendOnly checks that next layout keeps every field of prev at its
// slot with the same type. Renaming is allowed, a field can become
// deprecated but can never return from deprecation.
func CheckAppendOnly(prev, next Layout) error {
	if err := prev.Validate(); err != nil {
		return fmt.Errorf("%w: previous layout: %w", common.ErrIncompatibleLayout, err)
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: next layout: %w", common.ErrIncompatibleLayout, err)
	}
	if len(next) < len(prev) {
		return fmt.Errorf("%w: %d fields removed", common.ErrIncompatibleLayout, len(prev)-len(next))
	}
	for i := range prev {
		switch {
		case prev[i].Type != next[i].Type:
			return fmt.Errorf("%w: slot %d changes type from '%s' to '%s'",
				common.ErrIncompatibleLayout, i, prev[i].Type, next[i].Type)
		case prev[i].Deprecated && !next[i].Deprecated:
			return fmt.Errorf("%w: slot %d ('%s') is revived from deprecation",
				common.ErrIncompatibleLayout, i, next[i].Name)
		}
	}
	return nil
}
