package proxy

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/sharevault/asset"
	"github.com/nspcc-dev/sharevault/asset/memtoken"
	"github.com/nspcc-dev/sharevault/common"
	"github.com/nspcc-dev/sharevault/schema"
	"github.com/nspcc-dev/sharevault/state"
	"github.com/nspcc-dev/sharevault/vault"
	v1 "github.com/nspcc-dev/sharevault/vault/v1"
	v2 "github.com/nspcc-dev/sharevault/vault/v2"
	"github.com/nspcc-dev/sharevault/vault/vaulttest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	self   = util.Uint160{0xee}
	owner  = util.Uint160{0x0f}
	holder = util.Uint160{0x01}
	other  = util.Uint160{0x02}

	assetA = util.Uint160{0xaa}
	assetB = util.Uint160{0xbb}
)

func units(n uint64) *uint256.Int { return vaulttest.Units(n, 18) }

type testVault struct {
	*Proxy

	t      *testing.T
	prm    Prm
	tokenA *memtoken.Token
	tokenB *memtoken.Token
	events []vault.Event
}

func newTestPrm(t *testing.T, catalog Catalog) (Prm, *memtoken.Token, *memtoken.Token) {
	tokenA := memtoken.New(assetA, 18)
	tokenB := memtoken.New(assetB, 18)
	return Prm{
		Logger:  zaptest.NewLogger(t),
		Store:   state.NewMemory(),
		Catalog: catalog,
		Self:    self,
		Assets:  asset.NewBook(tokenA, tokenB),
	}, tokenA, tokenB
}

func defaultCatalog() Catalog {
	return NewCatalog(v1.New(), v2.New())
}

func deployTestVault(t *testing.T, catalog Catalog, a util.Uint160) *testVault {
	prm, tokenA, tokenB := newTestPrm(t, catalog)
	v := &testVault{t: t, prm: prm, tokenA: tokenA, tokenB: tokenB}

	p, err := Deploy(context.Background(), prm, DeployPrm{
		Version: common.Version1,
		Init:    vault.InitPrm{Owner: owner, Name: "shares", Asset: a},
	})
	require.NoError(t, err)
	p.Subscribe(func(e vault.Event) { v.events = append(v.events, e) })
	v.Proxy = p
	return v
}

func (v *testVault) fund(tok *memtoken.Token, h util.Uint160, amount *uint256.Int) {
	tok.Mint(h, amount)
	allowed := tok.Allowance(h, self)
	tok.Approve(h, self, allowed.Add(allowed, amount))
}

func (v *testVault) requireShares(a, h util.Uint160, expected *uint256.Int) {
	bal, err := v.Balance(context.Background(), a, h)
	require.NoError(v.t, err)
	require.Equal(v.t, expected, bal)
}

func (v *testVault) requireTotal(a util.Uint160, expected *uint256.Int) {
	total, err := v.TotalShares(context.Background(), a)
	require.NoError(v.t, err)
	require.Equal(v.t, expected, total)
}

func (v *testVault) requireSnapshot() *schema.Snapshot {
	s, err := v.Snapshot(context.Background())
	require.NoError(v.t, err)
	return s
}

func TestDeployOpen(t *testing.T) {
	ctx := context.Background()
	v := deployTestVault(t, defaultCatalog(), assetA)

	require.Equal(t, common.Version1, v.Version())
	require.Equal(t, PhaseV1Active, v.Phase())
	require.Equal(t, []vault.Event(nil), v.events, "subscribed after deployment")

	name, err := v.Name(ctx)
	require.NoError(t, err)
	require.Equal(t, "shares", name)

	_, err = Deploy(ctx, v.prm, DeployPrm{
		Version: common.Version1,
		Init:    vault.InitPrm{Owner: owner, Name: "again", Asset: assetA},
	})
	require.ErrorIs(t, err, common.ErrAlreadyInitialized)

	p, err := Open(v.prm)
	require.NoError(t, err)
	require.Equal(t, common.Version1, p.Version())

	t.Run("empty", func(t *testing.T) {
		prm, _, _ := newTestPrm(t, defaultCatalog())
		_, err := Open(prm)
		require.ErrorIs(t, err, common.ErrNotInitialized)
	})
	t.Run("unknown version", func(t *testing.T) {
		prm, _, _ := newTestPrm(t, defaultCatalog())
		_, err := Deploy(ctx, prm, DeployPrm{Version: common.MakeVersion(3, 0, 0)})
		require.ErrorIs(t, err, common.ErrUnknownVersion)
	})
	t.Run("failed initialization", func(t *testing.T) {
		prm, _, _ := newTestPrm(t, defaultCatalog())
		_, err := Deploy(ctx, prm, DeployPrm{Version: common.Version1, Init: vault.InitPrm{Owner: owner}})
		require.ErrorIs(t, err, common.ErrInvalidAsset)

		_, err = Open(prm)
		require.ErrorIs(t, err, common.ErrNotInitialized)
	})
}

func TestConcreteScenario(t *testing.T) {
	ctx := context.Background()
	v := deployTestVault(t, defaultCatalog(), assetA)
	v.fund(v.tokenA, holder, units(110))

	shares, err := v.Deposit(ctx, holder, assetA, units(10))
	require.NoError(t, err)
	require.Equal(t, units(10), shares)
	v.requireTotal(assetA, units(10))

	shares, err = v.Deposit(ctx, holder, assetA, units(100))
	require.NoError(t, err)
	require.Equal(t, units(100), shares)
	v.requireTotal(assetA, units(110))

	amount, err := v.Withdraw(ctx, holder, assetA, units(10))
	require.NoError(t, err)
	require.Equal(t, units(10), amount)
	v.requireTotal(assetA, units(100))

	require.Equal(t, []vault.Event{
		vault.Deposited{Caller: holder, Asset: assetA, Amount: units(10), Shares: units(10)},
		vault.Deposited{Caller: holder, Asset: assetA, Amount: units(100), Shares: units(100)},
		vault.Withdrawn{Caller: holder, Asset: assetA, Shares: units(10), Amount: units(10)},
	}, v.events)
	require.NoError(t, v.Audit(ctx))
}

func TestFailedCallLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	v := deployTestVault(t, defaultCatalog(), assetA)

	// no allowance: shares are minted, then the pull fails
	v.tokenA.Mint(holder, units(1))
	_, err := v.Deposit(ctx, holder, assetA, units(1))
	require.ErrorIs(t, err, memtoken.ErrInsufficientAllowance)

	v.requireShares(assetA, holder, new(uint256.Int))
	v.requireTotal(assetA, new(uint256.Int))
	require.Empty(t, v.requireSnapshot().Shares)
	require.Empty(t, v.events)
}

func TestUpgrade(t *testing.T) {
	ctx := context.Background()
	v := deployTestVault(t, defaultCatalog(), assetA)
	v.fund(v.tokenA, holder, units(5))

	_, err := v.Deposit(ctx, holder, assetA, units(5))
	require.NoError(t, err)
	v.events = nil

	before := v.requireSnapshot()
	require.Equal(t, assetA, before.Asset)
	require.False(t, before.MinAmount.IsZero())

	t.Run("not owner", func(t *testing.T) {
		err := v.Upgrade(ctx, holder, UpgradePrm{Version: common.Version2, Migrate: true})
		require.ErrorIs(t, err, common.ErrUnauthorized)
	})
	t.Run("unknown version", func(t *testing.T) {
		err := v.Upgrade(ctx, owner, UpgradePrm{Version: common.MakeVersion(2, 1, 0)})
		require.ErrorIs(t, err, common.ErrUnknownVersion)
	})
	t.Run("same version", func(t *testing.T) {
		err := v.Upgrade(ctx, owner, UpgradePrm{Version: common.Version1})
		require.ErrorIs(t, err, common.ErrAlreadyUpdated)
	})
	t.Run("migration of logic without one", func(t *testing.T) {
		catalog := NewCatalog(v1.New(), plainV2{v2.New()})
		v := deployTestVault(t, catalog, assetA)
		err := v.Upgrade(ctx, owner, UpgradePrm{Version: common.Version2, Migrate: true})
		require.ErrorIs(t, err, common.ErrUnsupportedMethod)
		require.Equal(t, common.Version1, v.Version())
	})
	require.Equal(t, common.Version1, v.Version())
	require.Empty(t, v.events)

	require.NoError(t, v.Upgrade(ctx, owner, UpgradePrm{Version: common.Version2, Migrate: true}))
	require.Equal(t, common.Version2, v.Version())
	require.Equal(t, PhaseV2Active, v.Phase())
	require.Equal(t, []vault.Event{
		vault.AssetChanged{Asset: assetA},
		vault.Upgraded{From: common.Version1, To: common.Version2},
	}, v.events)

	ok, err := v.IsSupported(ctx, assetA)
	require.NoError(t, err)
	require.True(t, ok)

	after := v.requireSnapshot()
	require.Equal(t, util.Uint160{}, after.Asset)
	require.True(t, after.MinAmount.IsZero())
	require.Equal(t, []util.Uint160{assetA}, after.SupportedAssets)
	require.Equal(t, before.Owner, after.Owner)
	require.Equal(t, before.Name, after.Name)
	require.Equal(t, before.TotalShares, after.TotalShares)
	require.Equal(t, before.Shares, after.Shares)
	require.Equal(t, uint32(common.Version1), after.Initialized)
	require.Equal(t, uint32(common.Version2), after.Implementation)

	err = v.Upgrade(ctx, owner, UpgradePrm{Version: common.Version2, Migrate: true})
	require.ErrorIs(t, err, common.ErrAlreadyUpdated)

	// v1 can't be installed back
	err = v.Upgrade(ctx, owner, UpgradePrm{Version: common.Version1})
	require.ErrorIs(t, err, common.ErrVersionMismatch)

	amount, err := v.Withdraw(ctx, holder, assetA, units(5))
	require.NoError(t, err)
	require.Equal(t, units(5), amount)

	p, err := Open(v.prm)
	require.NoError(t, err)
	require.Equal(t, common.Version2, p.Version())
}

func TestUpgradeWithoutMigration(t *testing.T) {
	ctx := context.Background()
	v := deployTestVault(t, defaultCatalog(), assetA)

	require.NoError(t, v.Upgrade(ctx, owner, UpgradePrm{Version: common.Version2}))

	ok, err := v.IsSupported(ctx, assetA)
	require.NoError(t, err)
	require.False(t, ok)

	// deprecated fields are kept at their slots
	s := v.requireSnapshot()
	require.Equal(t, assetA, s.Asset)
	require.False(t, s.MinAmount.IsZero())
}

func TestDesupportedAsset(t *testing.T) {
	ctx := context.Background()
	v := deployTestVault(t, defaultCatalog(), assetB)
	v.fund(v.tokenB, holder, units(3))

	_, err := v.Deposit(ctx, holder, assetB, units(3))
	require.NoError(t, err)
	require.NoError(t, v.ChangeOrAddAsset(ctx, owner, assetA))
	require.NoError(t, v.Upgrade(ctx, owner, UpgradePrm{Version: common.Version2, Migrate: true}))

	ok, err := v.IsSupported(ctx, assetB)
	require.NoError(t, err)
	require.False(t, ok)

	amount, err := v.PreviewWithdraw(ctx, assetB, units(3))
	require.NoError(t, err)
	require.Equal(t, units(3), amount)

	_, err = v.PreviewDeposit(ctx, assetB, units(3))
	require.ErrorIs(t, err, common.ErrInvalidAsset)

	_, err = v.Withdraw(ctx, holder, assetB, units(3))
	require.NoError(t, err)
	v.requireShares(assetB, holder, new(uint256.Int))
}

func TestUpgradeRollback(t *testing.T) {
	ctx := context.Background()
	errMigration := errors.New("migration failed")

	catalog := NewCatalog(v1.New(), testV2{
		Logic: v2.New(),
		migrate: func(ctx context.Context, l *v2.Logic, ic *vault.Invocation) error {
			if err := l.Migrate(ctx, ic); err != nil {
				return err
			}
			return errMigration
		},
	})
	v := deployTestVault(t, catalog, assetA)
	before, err := v.requireSnapshot().Bytes()
	require.NoError(t, err)

	err = v.Upgrade(ctx, owner, UpgradePrm{Version: common.Version2, Migrate: true})
	require.ErrorIs(t, err, errMigration)

	require.Equal(t, common.Version1, v.Version())
	require.Equal(t, PhaseV1Active, v.Phase())
	after, err := v.requireSnapshot().Bytes()
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.Empty(t, v.events)
}

func TestIncompatibleLayout(t *testing.T) {
	ctx := context.Background()

	reordered := append(schema.Layout(nil), schema.LayoutV2...)
	reordered[2], reordered[3] = reordered[3], reordered[2]
	reordered[2].Slot, reordered[3].Slot = 2, 3

	catalog := NewCatalog(v1.New(), testV2{Logic: v2.New(), layout: reordered})
	v := deployTestVault(t, catalog, assetA)

	err := v.Upgrade(ctx, owner, UpgradePrm{Version: common.Version2})
	require.ErrorIs(t, err, common.ErrIncompatibleLayout)
	require.Equal(t, common.Version1, v.Version())
}

func TestCallsDuringUpgrade(t *testing.T) {
	ctx := context.Background()

	var (
		v          *testVault
		nestedErr  error
		started    = make(chan struct{})
		resume     = make(chan struct{})
		concurrent = make(chan error, 1)
		phase      = make(chan Phase, 1)
	)
	catalog := NewCatalog(v1.New(), testV2{
		Logic: v2.New(),
		migrate: func(ctx context.Context, l *v2.Logic, ic *vault.Invocation) error {
			_, nestedErr = v.Balance(ctx, assetA, holder)
			close(started)
			<-resume
			return l.Migrate(ctx, ic)
		},
	})
	v = deployTestVault(t, catalog, assetA)

	go func() {
		<-started
		phase <- v.Phase()
		_, err := v.Name(context.Background())
		concurrent <- err
		close(resume)
	}()

	require.NoError(t, v.Upgrade(ctx, owner, UpgradePrm{Version: common.Version2, Migrate: true}))
	require.Equal(t, PhaseUpgrading, <-phase)
	require.ErrorIs(t, nestedErr, common.ErrUpgrading)
	require.ErrorIs(t, <-concurrent, common.ErrUpgrading)
	require.Equal(t, PhaseV2Active, v.Phase())
}

func TestReentrancy(t *testing.T) {
	ctx := context.Background()
	v := deployTestVault(t, defaultCatalog(), assetA)
	v.fund(v.tokenA, holder, units(10))
	v.fund(v.tokenA, other, units(10))

	_, err := v.Deposit(ctx, holder, assetA, units(10))
	require.NoError(t, err)
	v.events = nil

	var (
		observedShares *uint256.Int
		reentered      bool
		failNested     bool
	)
	v.tokenA.OnTransfer(func(ctx context.Context, from, to util.Uint160, amount *uint256.Int) error {
		if !from.Equals(self) || reentered {
			return nil
		}
		reentered = true

		// shares are burned before the asset leaves custody
		var err error
		observedShares, err = v.Balance(ctx, assetA, holder)
		if err != nil {
			return err
		}

		depositor := other
		if failNested {
			depositor = util.Uint160{0x77}
		}
		_, err = v.Deposit(ctx, depositor, assetA, units(10))
		return err
	})

	t.Run("failed nested call", func(t *testing.T) {
		failNested = true
		defer func() { failNested, reentered = false, false }()

		_, err := v.Withdraw(ctx, holder, assetA, units(5))
		require.ErrorIs(t, err, memtoken.ErrInsufficientAllowance)
		require.Equal(t, units(5), observedShares)

		v.requireShares(assetA, holder, units(10))
		v.requireTotal(assetA, units(10))
		require.Empty(t, v.events)
	})

	amount, err := v.Withdraw(ctx, holder, assetA, units(5))
	require.NoError(t, err)
	require.Equal(t, units(5), amount)
	require.Equal(t, units(5), observedShares)

	// nested deposit priced against burned supply and unmoved pool
	v.requireShares(assetA, other, units(5))
	v.requireShares(assetA, holder, units(5))
	v.requireTotal(assetA, units(10))
	require.NoError(t, v.Audit(ctx))

	pool, err := v.tokenA.BalanceOf(ctx, self)
	require.NoError(t, err)
	require.Equal(t, units(15), pool)

	require.Equal(t, []vault.Event{
		vault.Deposited{Caller: other, Asset: assetA, Amount: units(10), Shares: units(5)},
		vault.Withdrawn{Caller: holder, Asset: assetA, Shares: units(5), Amount: units(5)},
	}, v.events)
}

func TestPermitUnsupportedByV1(t *testing.T) {
	v := deployTestVault(t, defaultCatalog(), assetA)
	_, err := v.DepositWithPermit(context.Background(), holder, assetA, units(1), v.Clock().Now(), asset.Credential{})
	require.ErrorIs(t, err, common.ErrUnsupportedMethod)
}

func TestLedgerInvariant(t *testing.T) {
	ctx := context.Background()
	v := deployTestVault(t, defaultCatalog(), assetA)
	holders := []util.Uint160{holder, other, {0x03}, {0x04}}
	for _, h := range holders {
		v.fund(v.tokenA, h, units(10000))
		v.fund(v.tokenB, h, units(10000))
	}

	rnd := rand.New(rand.NewSource(42))
	assets := []util.Uint160{assetA}
	var deposits, withdrawals int

	for i := 0; i < 200; i++ {
		if i == 100 {
			require.NoError(t, v.Upgrade(ctx, owner, UpgradePrm{Version: common.Version2, Migrate: true}))
			require.NoError(t, v.ChangeOrAddAsset(ctx, owner, assetB))
			assets = append(assets, assetB)
		}

		h := holders[rnd.Intn(len(holders))]
		a := assets[rnd.Intn(len(assets))]

		if rnd.Intn(3) > 0 {
			_, err := v.Deposit(ctx, h, a, units(uint64(rnd.Intn(20)+1)))
			require.NoError(t, err, "step %d", i)
			deposits++
		} else {
			bal, err := v.Balance(ctx, a, h)
			require.NoError(t, err)
			shares := new(uint256.Int).Div(bal, uint256.NewInt(uint64(rnd.Intn(3)+1)))
			if !shares.IsZero() {
				_, err = v.Withdraw(ctx, h, a, shares)
				require.NoError(t, err, "step %d", i)
				withdrawals++
			}
		}

		require.NoError(t, v.Audit(ctx), "step %d", i)
	}

	require.Greater(t, deposits, 100)
	require.Greater(t, withdrawals, 20)
}

// plainV2 hides migration of the multi-asset logic.
type plainV2 struct {
	vault.Logic
}

type testV2 struct {
	*v2.Logic

	migrate func(context.Context, *v2.Logic, *vault.Invocation) error
	layout  schema.Layout
}

func (l testV2) Migrate(ctx context.Context, ic *vault.Invocation) error {
	if l.migrate == nil {
		return l.Logic.Migrate(ctx, ic)
	}
	return l.migrate(ctx, l.Logic, ic)
}

func (l testV2) Layout() schema.Layout {
	if l.layout == nil {
		return l.Logic.Layout()
	}
	return l.layout
}
