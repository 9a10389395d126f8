package nep17

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/stretchr/testify/require"
)

type testInv struct {
	results map[string]*result.Invoke
	err     error
}

func (t *testInv) Call(_ util.Uint160, method string, _ ...any) (*result.Invoke, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.results[method], nil
}

func halt(item any) *result.Invoke {
	return &result.Invoke{State: "HALT", Stack: []stackitem.Item{stackitem.Make(item)}}
}

type testSigner struct {
	testInv

	sent   int
	vm     vmstate.State
	waitEr error
}

func (t *testSigner) MakeRun([]byte) (*transaction.Transaction, error) {
	return nil, errors.New("not implemented")
}

func (t *testSigner) MakeUnsignedRun([]byte, []transaction.Attribute) (*transaction.Transaction, error) {
	return nil, errors.New("not implemented")
}

func (t *testSigner) SendRun(script []byte) (util.Uint256, uint32, error) {
	if len(script) == 0 {
		return util.Uint256{}, 0, errors.New("empty script")
	}
	t.sent++
	return util.Uint256{1, 2, 3}, 100, nil
}

func (t *testSigner) Wait(h util.Uint256, _ uint32, err error) (*state.AppExecResult, error) {
	if err != nil {
		return nil, err
	}
	if t.waitEr != nil {
		return nil, t.waitEr
	}
	return &state.AppExecResult{
		Container: h,
		Execution: state.Execution{VMState: t.vm, FaultException: "ASSERT failed"},
	}, nil
}

func TestReads(t *testing.T) {
	hash := util.Uint160{0xaa}
	inv := &testInv{results: map[string]*result.Invoke{
		"decimals":  halt(8),
		"balanceOf": halt(big.NewInt(12345)),
	}}
	tok := New(inv, hash)
	require.Equal(t, hash, tok.Hash())

	d, err := tok.Decimals(context.Background())
	require.NoError(t, err)
	require.Equal(t, 8, d)

	b, err := tok.BalanceOf(context.Background(), util.Uint160{1})
	require.NoError(t, err)
	require.Equal(t, uint64(12345), b.Uint64())

	t.Run("negative balance", func(t *testing.T) {
		inv.results["balanceOf"] = halt(big.NewInt(-1))
		_, err := tok.BalanceOf(context.Background(), util.Uint160{1})
		require.Error(t, err)
	})

	t.Run("node failure", func(t *testing.T) {
		inv.err = errors.New("connection refused")
		_, err := tok.Decimals(context.Background())
		require.ErrorIs(t, err, inv.err)
	})
}

func TestTransfer(t *testing.T) {
	from, to := util.Uint160{1}, util.Uint160{2}
	tok := New(&testInv{}, util.Uint160{0xaa})
	amount := uint256.NewInt(100)

	err := tok.Transfer(context.Background(), from, to, amount)
	require.ErrorIs(t, err, ErrNoSigner)

	s := &testSigner{vm: vmstate.Halt}
	tok.AddSigner(from, s)

	require.NoError(t, tok.Transfer(context.Background(), from, to, amount))
	require.NoError(t, tok.TransferFrom(context.Background(), to, from, to, amount))
	require.Equal(t, 2, s.sent)

	t.Run("fault", func(t *testing.T) {
		s.vm = vmstate.Fault
		err := tok.Transfer(context.Background(), from, to, amount)
		require.ErrorContains(t, err, "ASSERT failed")
	})

	t.Run("wait", func(t *testing.T) {
		s.waitEr = errors.New("timeout")
		err := tok.Transfer(context.Background(), from, to, amount)
		require.ErrorIs(t, err, s.waitEr)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		sent := s.sent
		require.ErrorIs(t, tok.Transfer(ctx, from, to, amount), context.Canceled)
		require.Equal(t, sent, s.sent)
	})
}
