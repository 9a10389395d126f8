package vault

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/sharevault/asset"
	"github.com/nspcc-dev/sharevault/schema"
	"github.com/nspcc-dev/sharevault/state"
	"go.uber.org/zap"
)

// Env is an execution environment of the vault.
type Env interface {
	// Self returns custody account of the vault.
	Self() util.Uint160
	// Asset returns asset by its hash.
	Asset(util.Uint160) (asset.Asset, error)
	// Clock returns time source.
	Clock() clock.Clock
}

// Invocation is a context of a single vault call.
type Invocation struct {
	Caller util.Uint160
	Tx     *state.Tx
	Env    Env
	Log    *zap.Logger

	events []Event
}

// Notify records event. Events are published when the call succeeds.
func (ic *Invocation) Notify(es ...Event) {
	ic.events = append(ic.events, es...)
}

// Events returns events recorded so far.
func (ic *Invocation) Events() []Event {
	return ic.events
}

// InitPrm groups vault initialization parameters.
type InitPrm struct {
	Owner util.Uint160
	Name  string
	// Initial deposit asset. Required by the single-asset logic.
	Asset util.Uint160
}

// Logic is the vault logic of a particular version.
type Logic interface {
	// Version returns logic version.
	Version() int
	// PreviousVersion returns the lowest version state of which can be served
	// by the logic after upgrade. Zero means the logic can only be deployed
	// from scratch.
	PreviousVersion() int
	// Layout returns persisted fields the logic works with.
	Layout() schema.Layout

	Initialize(ctx context.Context, ic *Invocation, prm InitPrm) error

	Name(ctx context.Context, ic *Invocation) (string, error)
	Owner(ctx context.Context, ic *Invocation) (util.Uint160, error)
	IsSupported(ctx context.Context, ic *Invocation, asset util.Uint160) (bool, error)
	MinDeposit(ctx context.Context, ic *Invocation, asset util.Uint160) (*uint256.Int, error)
	TotalShares(ctx context.Context, ic *Invocation, asset util.Uint160) (*uint256.Int, error)
	Balance(ctx context.Context, ic *Invocation, asset, holder util.Uint160) (*uint256.Int, error)
	PreviewDeposit(ctx context.Context, ic *Invocation, asset util.Uint160, amount *uint256.Int) (*uint256.Int, error)
	PreviewWithdraw(ctx context.Context, ic *Invocation, asset util.Uint160, shares *uint256.Int) (*uint256.Int, error)

	// Deposit pulls amount of the asset from the caller and returns minted
	// shares.
	Deposit(ctx context.Context, ic *Invocation, asset util.Uint160, amount *uint256.Int) (*uint256.Int, error)
	// Withdraw burns caller shares and returns pushed amount of the asset.
	Withdraw(ctx context.Context, ic *Invocation, asset util.Uint160, shares *uint256.Int) (*uint256.Int, error)
	ChangeOrAddAsset(ctx context.Context, ic *Invocation, asset util.Uint160) error
	TransferOwnership(ctx context.Context, ic *Invocation, owner util.Uint160) error
}

// PermitDepositor is a Logic accepting deposits authorized by permit
// credentials.
type PermitDepositor interface {
	DepositWithPermit(ctx context.Context, ic *Invocation, asset util.Uint160, amount *uint256.Int,
		deadline time.Time, cred asset.Credential) (*uint256.Int, error)
}

// Migrator is a Logic adapting state of the previous version. Migrate is
// run only by the proxy atomically with the logic swap.
type Migrator interface {
	Migrate(ctx context.Context, ic *Invocation) error
}
