package common

import (
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// CheckOwnerWitness checks that caller is the vault owner. It returns
// ErrUnauthorized wrapped with the operation name otherwise.
func CheckOwnerWitness(op string, caller, owner util.Uint160) error {
	if owner.Equals(util.Uint160{}) || !caller.Equals(owner) {
		return fmt.Errorf("%s: %w: caller %s is not the owner", op, ErrUnauthorized, address.Uint160ToString(caller))
	}
	return nil
}
