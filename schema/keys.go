package schema

import (
	"github.com/nspcc-dev/neo-go/pkg/util"
)

const reservedPrefix = 0xff

var (
	// ImplementationKey stores version of the active logic.
	ImplementationKey = []byte{reservedPrefix, 'i', 'm', 'p', 'l'}
	// InitializedKey stores version of the logic which initialized the state.
	InitializedKey = []byte{reservedPrefix, 'i', 'n', 'i', 't'}
)

// ScalarKey returns storage key of the scalar field.
func ScalarKey(s Slot) []byte {
	return []byte{byte(s)}
}

// AssetKey returns storage key of the asset-keyed mapping entry.
func AssetKey(s Slot, asset util.Uint160) []byte {
	return append([]byte{byte(s)}, asset.BytesBE()...)
}

// HolderKey returns storage key of the (asset, holder)-keyed mapping entry.
func HolderKey(s Slot, asset, holder util.Uint160) []byte {
	k := make([]byte, 1, 1+2*util.Uint160Size)
	k[0] = byte(s)
	k = append(k, asset.BytesBE()...)
	return append(k, holder.BytesBE()...)
}
