package schema

import (
	"testing"

	"github.com/nspcc-dev/sharevault/common"
	"github.com/stretchr/testify/require"
)

func TestLayouts(t *testing.T) {
	require.NoError(t, LayoutV1.Validate())
	require.NoError(t, LayoutV2.Validate())
	require.NoError(t, CheckAppendOnly(LayoutV1, LayoutV2))
	require.NoError(t, CheckAppendOnly(LayoutV2, LayoutV2))

	require.True(t, LayoutV2.Has(SlotSupportedAssets))
	require.False(t, LayoutV1.Has(SlotSupportedAssets))
}

func TestCheckAppendOnly(t *testing.T) {
	clone := func(l Layout) Layout { return append(Layout(nil), l...) }

	t.Run("removal", func(t *testing.T) {
		require.ErrorIs(t, CheckAppendOnly(LayoutV2, LayoutV1), common.ErrIncompatibleLayout)
	})

	t.Run("reorder", func(t *testing.T) {
		l := clone(LayoutV2)
		l[SlotTotalShares], l[SlotMinAmount] = l[SlotMinAmount], l[SlotTotalShares]
		l[SlotTotalShares].Slot, l[SlotMinAmount].Slot = SlotTotalShares, SlotMinAmount
		require.ErrorIs(t, CheckAppendOnly(LayoutV1, l), common.ErrIncompatibleLayout)
	})

	t.Run("retype", func(t *testing.T) {
		l := clone(LayoutV2)
		l[SlotAsset].Type = TypeUint256
		require.ErrorIs(t, CheckAppendOnly(LayoutV1, l), common.ErrIncompatibleLayout)
	})

	t.Run("revival", func(t *testing.T) {
		l := clone(LayoutV2)
		l[SlotAsset].Deprecated = false
		require.ErrorIs(t, CheckAppendOnly(LayoutV2, l), common.ErrIncompatibleLayout)
	})

	t.Run("gap", func(t *testing.T) {
		l := clone(LayoutV2)
		l[SlotSupportedAssets].Slot = 9
		require.ErrorIs(t, CheckAppendOnly(LayoutV1, l), common.ErrIncompatibleLayout)
	})

	t.Run("rename", func(t *testing.T) {
		l := clone(LayoutV1)
		l[SlotName].Name = "label"
		require.NoError(t, CheckAppendOnly(LayoutV1, l))
	})
}
