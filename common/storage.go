package common

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Storage value encoding shared by all persisted fields. Unsigned integers
// are 32-byte big-endian words, identities are 20-byte big-endian hashes.

// EncodeUint256 returns fixed-width representation of n.
func EncodeUint256(n *uint256.Int) []byte {
	b := n.Bytes32()
	return b[:]
}

// DecodeUint256 decodes value stored with EncodeUint256. Missing value is
// zero.
func DecodeUint256(b []byte) (*uint256.Int, error) {
	if b == nil {
		return new(uint256.Int), nil
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("invalid uint256 length %d", len(b))
	}
	return new(uint256.Int).SetBytes(b), nil
}

// EncodeHash160 returns fixed-width representation of h.
func EncodeHash160(h util.Uint160) []byte {
	return h.BytesBE()
}

// DecodeHash160 decodes value stored with EncodeHash160. Missing value is
// zero hash.
func DecodeHash160(b []byte) (util.Uint160, error) {
	if b == nil {
		return util.Uint160{}, nil
	}
	h, err := util.Uint160DecodeBytesBE(b)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid hash160: %w", err)
	}
	return h, nil
}

// EncodeBool returns single-byte representation of v.
func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeBool decodes value stored with EncodeBool. Missing value is false.
func DecodeBool(b []byte) (bool, error) {
	switch {
	case b == nil:
		return false, nil
	case len(b) != 1 || b[0] > 1:
		return false, errors.New("invalid bool encoding")
	default:
		return b[0] == 1, nil
	}
}
