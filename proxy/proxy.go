package proxy

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/sharevault/asset"
	"github.com/nspcc-dev/sharevault/common"
	"github.com/nspcc-dev/sharevault/schema"
	"github.com/nspcc-dev/sharevault/state"
	"github.com/nspcc-dev/sharevault/vault"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

// AssetSource resolves assets the vault works with.
type AssetSource interface {
	Asset(util.Uint160) (asset.Asset, error)
}

// Prm groups parameters of the Proxy.
type Prm struct {
	// Writes vault events and upgrades into the log. Optional.
	Logger *zap.Logger

	// Vault state.
	Store *state.Store

	// Logic versions the vault can run.
	Catalog Catalog

	// Custody account of the vault.
	Self util.Uint160

	Assets AssetSource

	// Optional time source, system clock by default.
	Clock clock.Clock
}

// DeployPrm groups parameters of the vault deployment.
type DeployPrm struct {
	// Version of the logic to deploy.
	Version int

	Init vault.InitPrm
}

// UpgradePrm groups parameters of the logic swap.
type UpgradePrm struct {
	// Version of the logic to install.
	Version int

	// Run migration of the new logic atomically with the swap.
	Migrate bool
}

// Proxy is a stable vault container running the active logic over the vault
// state. Proxy is safe for concurrent use: calls are serialized.
type Proxy struct {
	log     *zap.Logger
	store   *state.Store
	catalog Catalog
	self    util.Uint160
	assets  AssetSource
	clock   clock.Clock

	mtx       deadlock.Mutex
	active    atomic.Pointer[activeLogic]
	upgrading atomic.Bool

	subMtx sync.Mutex
	subs   []func(vault.Event)
}

type activeLogic struct {
	vault.Logic
}

type frameKey struct{}

// frame is a call being executed by the Proxy.
type frame struct {
	p  *Proxy
	ic *vault.Invocation
	// rejects nested calls
	locked bool
}

func newProxy(prm Prm) *Proxy {
	p := &Proxy{
		log:     prm.Logger,
		store:   prm.Store,
		catalog: prm.Catalog,
		self:    prm.Self,
		assets:  prm.Assets,
		clock:   prm.Clock,
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if p.clock == nil {
		p.clock = clock.New()
	}
	return p
}

// Deploy initializes empty state with the logic of the requested version and
// returns Proxy running it.
func Deploy(ctx context.Context, prm Prm, dPrm DeployPrm) (*Proxy, error) {
	p := newProxy(prm)

	l, err := p.catalog.Get(dPrm.Version)
	if err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}
	if err = l.Layout().Validate(); err != nil {
		return nil, fmt.Errorf("deploy: %w: %w", common.ErrIncompatibleLayout, err)
	}

	tx := p.store.Begin()

	impl, err := schema.ReadVersion(tx, schema.ImplementationKey)
	if err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}
	if impl != 0 {
		return nil, fmt.Errorf("deploy: %w: running version %s", common.ErrAlreadyInitialized, common.FormatVersion(impl))
	}

	ic := p.invocation(dPrm.Init.Owner, tx)
	if err = l.Initialize(p.enter(ctx, ic, true), ic, dPrm.Init); err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}
	schema.WriteVersion(tx, schema.ImplementationKey, l.Version())

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}
	p.active.Store(&activeLogic{l})

	p.log.Info("vault deployed",
		zap.String("name", dPrm.Init.Name), zap.String("version", common.FormatVersion(l.Version())))
	p.publish(ic.Events())
	return p, nil
}

// Open returns Proxy running the logic recorded in the initialized state.
func Open(prm Prm) (*Proxy, error) {
	p := newProxy(prm)

	v, err := schema.ReadVersion(p.store.Begin(), schema.ImplementationKey)
	if err != nil {
		return nil, fmt.Errorf("read implementation version: %w", err)
	}
	if v == 0 {
		return nil, common.ErrNotInitialized
	}
	l, err := p.catalog.Get(v)
	if err != nil {
		return nil, err
	}
	p.active.Store(&activeLogic{l})

	p.log.Debug("vault opened", zap.String("version", common.FormatVersion(v)))
	return p, nil
}

// Self implements vault.Env.
func (p *Proxy) Self() util.Uint160 {
	return p.self
}

// Asset implements vault.Env.
func (p *Proxy) Asset(h util.Uint160) (asset.Asset, error) {
	return p.assets.Asset(h)
}

// Clock implements vault.Env.
func (p *Proxy) Clock() clock.Clock {
	return p.clock
}

// Subscribe registers handler of the vault events. Handlers are called
// after the call emitting events is committed.
func (p *Proxy) Subscribe(f func(vault.Event)) {
	p.subMtx.Lock()
	p.subs = append(p.subs, f)
	p.subMtx.Unlock()
}

// Version returns version of the active logic.
func (p *Proxy) Version() int {
	return p.logic().Version()
}

// Layout returns persisted fields of the active logic.
func (p *Proxy) Layout() schema.Layout {
	return p.logic().Layout()
}

// Phase returns current phase of the upgrade machine.
func (p *Proxy) Phase() Phase {
	if p.upgrading.Load() {
		return PhaseUpgrading
	}
	return phaseOf(p.Version())
}

// Upgrade swaps the active logic. Only the vault owner can upgrade. New logic
// must be able to serve the current state and keep its layout append-only.
// If requested, migration of the new logic is run atomically with the swap.
// On any failure neither state nor active logic change.
func (p *Proxy) Upgrade(ctx context.Context, caller util.Uint160, prm UpgradePrm) error {
	if p.frame(ctx) != nil {
		return fmt.Errorf("upgrade: %w: called from within vault call", common.ErrUpgrading)
	}

	events, err := p.upgrade(ctx, caller, prm)
	if err != nil {
		return fmt.Errorf("upgrade: %w", err)
	}
	p.publish(events)
	return nil
}

func (p *Proxy) upgrade(ctx context.Context, caller util.Uint160, prm UpgradePrm) ([]vault.Event, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	cur := p.logic()
	ic := p.invocation(caller, p.store.Begin())

	owner, err := cur.Owner(ctx, ic)
	if err != nil {
		return nil, err
	}
	if err = common.CheckOwnerWitness("upgrade", caller, owner); err != nil {
		return nil, err
	}

	next, err := p.catalog.Get(prm.Version)
	if err != nil {
		return nil, err
	}
	from, err := schema.ReadVersion(ic.Tx, schema.ImplementationKey)
	if err != nil {
		return nil, err
	}
	if err = common.CheckVersion(from, next.Version(), next.PreviousVersion()); err != nil {
		return nil, err
	}
	if err = schema.CheckAppendOnly(cur.Layout(), next.Layout()); err != nil {
		return nil, err
	}

	var m vault.Migrator
	if prm.Migrate {
		var ok bool
		if m, ok = next.(vault.Migrator); !ok {
			return nil, fmt.Errorf("%w: migrate (version %s)", common.ErrUnsupportedMethod, common.FormatVersion(next.Version()))
		}
	}

	p.upgrading.Store(true)
	defer p.upgrading.Store(false)

	log := p.log.With(zap.String("from", common.FormatVersion(from)), zap.String("to", common.FormatVersion(next.Version())))
	log.Info("upgrading vault logic...", zap.Bool("migrate", prm.Migrate))

	schema.WriteVersion(ic.Tx, schema.ImplementationKey, next.Version())
	if m != nil {
		if err = m.Migrate(p.enter(ctx, ic, true), ic); err != nil {
			log.Error("vault migration failed, logic is kept", zap.Error(err))
			return nil, err
		}
	}
	ic.Notify(vault.Upgraded{From: from, To: next.Version()})

	if err = ic.Tx.Commit(); err != nil {
		return nil, err
	}
	p.active.Store(&activeLogic{next})

	log.Info("vault logic successfully upgraded")
	return ic.Events(), nil
}

// call runs f with the active logic as an atomic unit. Calls made with the
// context of another call are nested into it.
func (p *Proxy) call(ctx context.Context, caller util.Uint160, op string, f func(context.Context, vault.Logic, *vault.Invocation) error) error {
	if outer := p.frame(ctx); outer != nil {
		if outer.locked {
			return fmt.Errorf("%s: %w", op, common.ErrUpgrading)
		}

		ic := p.invocation(caller, outer.ic.Tx.Nest())
		if err := f(p.enter(ctx, ic, false), p.logic(), ic); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := ic.Tx.Commit(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		outer.ic.Notify(ic.Events()...)
		return nil
	}

	if p.upgrading.Load() {
		return fmt.Errorf("%s: %w", op, common.ErrUpgrading)
	}

	events, err := p.root(ctx, caller, f)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p.publish(events)
	return nil
}

func (p *Proxy) root(ctx context.Context, caller util.Uint160, f func(context.Context, vault.Logic, *vault.Invocation) error) ([]vault.Event, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	ic := p.invocation(caller, p.store.Begin())
	if err := f(p.enter(ctx, ic, false), p.logic(), ic); err != nil {
		return nil, err
	}
	if err := ic.Tx.Commit(); err != nil {
		return nil, err
	}
	return ic.Events(), nil
}

func (p *Proxy) invocation(caller util.Uint160, tx *state.Tx) *vault.Invocation {
	return &vault.Invocation{
		Caller: caller,
		Tx:     tx,
		Env:    p,
		Log:    p.log,
	}
}

func (p *Proxy) enter(ctx context.Context, ic *vault.Invocation, locked bool) context.Context {
	return context.WithValue(ctx, frameKey{}, &frame{p: p, ic: ic, locked: locked})
}

func (p *Proxy) frame(ctx context.Context) *frame {
	f, _ := ctx.Value(frameKey{}).(*frame)
	if f == nil || f.p != p {
		return nil
	}
	return f
}

func (p *Proxy) logic() vault.Logic {
	return p.active.Load().Logic
}

func (p *Proxy) publish(events []vault.Event) {
	p.subMtx.Lock()
	subs := slices.Clone(p.subs)
	p.subMtx.Unlock()

	for _, e := range events {
		p.log.Info("vault event", zap.String("name", e.EventName()), zap.Object("event", e))
		for _, f := range subs {
			f(e)
		}
	}
}
