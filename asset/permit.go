package asset

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Credential is a single-use owner consent to set allowance.
type Credential struct {
	Nonce     uuid.UUID
	PublicKey *keys.PublicKey
	Signature []byte
}

// PermitDigest returns hash signed by the owner to permit spender to use
// amount of the asset until deadline.
func PermitDigest(asset, owner, spender util.Uint160, amount *uint256.Int, deadline time.Time, nonce uuid.UUID) util.Uint256 {
	w := io.NewBufBinWriter()
	w.WriteBytes(asset.BytesBE())
	w.WriteBytes(owner.BytesBE())
	w.WriteBytes(spender.BytesBE())
	a := amount.Bytes32()
	w.WriteBytes(a[:])
	w.WriteU64LE(uint64(deadline.Unix()))
	w.WriteBytes(nonce[:])
	return hash.Sha256(w.Bytes())
}

// SignPermit issues credential of the key owner.
func SignPermit(priv *keys.PrivateKey, asset, spender util.Uint160, amount *uint256.Int, deadline time.Time) Credential {
	pub := priv.PublicKey()
	nonce := uuid.New()
	digest := PermitDigest(asset, pub.GetScriptHash(), spender, amount, deadline, nonce)

	return Credential{
		Nonce:     nonce,
		PublicKey: pub,
		Signature: priv.SignHash(digest),
	}
}

// Verify checks that c is signed by owner over digest.
func (c Credential) Verify(owner util.Uint160, digest util.Uint256) error {
	if c.PublicKey == nil {
		return fmt.Errorf("%w: missing public key", ErrInvalidCredential)
	}
	if !c.PublicKey.GetScriptHash().Equals(owner) {
		return fmt.Errorf("%w: key does not belong to %s", ErrInvalidCredential, address.Uint160ToString(owner))
	}
	if !c.PublicKey.Verify(c.Signature, digest.BytesBE()) {
		return fmt.Errorf("%w: wrong signature", ErrInvalidCredential)
	}
	return nil
}
