package proxy

import (
	"fmt"
	"slices"

	"github.com/nspcc-dev/sharevault/common"
	"github.com/nspcc-dev/sharevault/vault"
)

// Catalog is a set of known logic versions.
type Catalog map[int]vault.Logic

// NewCatalog returns Catalog of given logic.
func NewCatalog(ls ...vault.Logic) Catalog {
	c := make(Catalog, len(ls))
	for i := range ls {
		c[ls[i].Version()] = ls[i]
	}
	return c
}

// Get returns logic of the version.
func (c Catalog) Get(version int) (vault.Logic, error) {
	l, ok := c[version]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownVersion, common.FormatVersion(version))
	}
	return l, nil
}

// Versions returns known versions in ascending order.
func (c Catalog) Versions() []int {
	res := make([]int, 0, len(c))
	for v := range c {
		res = append(res, v)
	}
	slices.Sort(res)
	return res
}
