package asset

import (
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/sharevault/common"
)

// Book is a set of assets known to the vault environment indexed by hash.
type Book map[util.Uint160]Asset

// NewBook returns Book of given assets.
func NewBook(as ...Asset) Book {
	b := make(Book, len(as))
	for i := range as {
		b[as[i].Hash()] = as[i]
	}
	return b
}

// Asset returns asset by its hash.
func (b Book) Asset(h util.Uint160) (Asset, error) {
	a, ok := b[h]
	if !ok {
		return nil, fmt.Errorf("%w: unknown asset %s", common.ErrInvalidAsset, address.Uint160ToString(h))
	}
	return a, nil
}
