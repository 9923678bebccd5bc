package chains

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/gustavo/swapdesk/internal/cache"
	"github.com/gustavo/swapdesk/internal/registry"
)

type fakeBackend struct {
	balance       *big.Int
	tokenBalance  *big.Int
	decimals      uint8
	balanceCalls  int
	contractCalls map[string]int
	failuresLeft  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		balance:       big.NewInt(2e18),
		tokenBalance:  big.NewInt(1_000_000),
		decimals:      6,
		contractCalls: map[string]int{},
	}
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (f *fakeBackend) BalanceAt(_ context.Context, _ common.Address, _ *big.Int) (*big.Int, error) {
	f.balanceCalls++
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	selector := hex.EncodeToString(msg.Data[:4])
	f.contractCalls[selector]++
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return nil, fmt.Errorf("transient rpc failure")
	}
	method, err := registry.ERC20.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "balanceOf":
		return method.Outputs.Pack(new(big.Int).Set(f.tokenBalance))
	case "decimals":
		return method.Outputs.Pack(f.decimals)
	case "name":
		return method.Outputs.Pack("Fake Token")
	case "allowance":
		return method.Outputs.Pack(big.NewInt(0))
	}
	return nil, fmt.Errorf("unexpected call %s", method.Name)
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 0, nil
}
func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}
func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}
func (f *fakeBackend) SendTransaction(context.Context, *types.Transaction) error { return nil }
func (f *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

func selectorOf(t *testing.T, method string) string {
	t.Helper()
	m, ok := registry.ERC20.Methods[method]
	if !ok {
		t.Fatalf("unknown method %s", method)
	}
	return hex.EncodeToString(m.ID)
}

func poolWithFake(fake *fakeBackend, c cache.Cache) *Pool {
	dial := func(context.Context, string) (Backend, error) { return fake, nil }
	return NewPool(dial, c)
}

const testToken = "0xABC0000000000000000000000000000000000abc"
const testWallet = "0x1110000000000000000000000000000000000111"

func TestNativeSentinelDecimalsSkipRPC(t *testing.T) {
	fake := newFakeBackend()
	dialed := false
	pool := NewPool(func(context.Context, string) (Backend, error) {
		dialed = true
		return fake, nil
	}, cache.NewMemory())

	decimals, err := pool.TokenDecimals(context.Background(), 1, registry.NativeCoin)
	if err != nil {
		t.Fatalf("TokenDecimals failed: %v", err)
	}
	if decimals != 18 {
		t.Fatalf("expected native decimals 18, got %d", decimals)
	}
	if dialed {
		t.Fatal("native sentinel decimals must not dial the chain")
	}
}

func TestNativeSentinelNameFromProfile(t *testing.T) {
	fake := newFakeBackend()
	pool := poolWithFake(fake, cache.NewMemory())
	name, err := pool.TokenName(context.Background(), 56, registry.NativeCoin)
	if err != nil {
		t.Fatalf("TokenName failed: %v", err)
	}
	if name != "BNB" {
		t.Fatalf("expected BNB, got %s", name)
	}
}

func TestDecimalsCacheSuppressesRPC(t *testing.T) {
	fake := newFakeBackend()
	mem := cache.NewMemory()
	ctx := context.Background()
	if err := mem.Set(ctx, "decimals:1:"+"0xabc0000000000000000000000000000000000abc", "6", time.Hour); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	pool := poolWithFake(fake, mem)

	decimals, err := pool.TokenDecimals(ctx, 1, testToken)
	if err != nil {
		t.Fatalf("TokenDecimals failed: %v", err)
	}
	if decimals != 6 {
		t.Fatalf("expected cached decimals 6, got %d", decimals)
	}
	if fake.contractCalls[selectorOf(t, "decimals")] != 0 {
		t.Fatal("decimals RPC must not fire on cache hit")
	}

	// The balance is not cached, so exactly one balanceOf call goes out.
	if _, err := pool.TokenBalance(ctx, 1, testWallet, testToken); err != nil {
		t.Fatalf("TokenBalance failed: %v", err)
	}
	if got := fake.contractCalls[selectorOf(t, "balanceOf")]; got != 1 {
		t.Fatalf("expected one balanceOf call, got %d", got)
	}
	if fake.contractCalls[selectorOf(t, "decimals")] != 0 {
		t.Fatal("balance query must not trigger a decimals call")
	}
}

func TestBalanceCachedWithinTTL(t *testing.T) {
	fake := newFakeBackend()
	pool := poolWithFake(fake, cache.NewMemory())
	ctx := context.Background()

	first, err := pool.TokenBalance(ctx, 1, testWallet, testToken)
	if err != nil {
		t.Fatalf("TokenBalance failed: %v", err)
	}
	second, err := pool.TokenBalance(ctx, 1, testWallet, testToken)
	if err != nil {
		t.Fatalf("TokenBalance (cached) failed: %v", err)
	}
	if first.Cmp(second) != 0 {
		t.Fatalf("cached balance mismatch: %s vs %s", first, second)
	}
	if got := fake.contractCalls[selectorOf(t, "balanceOf")]; got != 1 {
		t.Fatalf("expected one balanceOf call, got %d", got)
	}
}

func TestNativeBalanceUsesChainBalance(t *testing.T) {
	fake := newFakeBackend()
	pool := poolWithFake(fake, cache.NewMemory())

	balance, err := pool.NativeBalance(context.Background(), 1, testWallet)
	if err != nil {
		t.Fatalf("NativeBalance failed: %v", err)
	}
	if balance.Cmp(big.NewInt(2e18)) != 0 {
		t.Fatalf("unexpected native balance %s", balance)
	}
	if fake.balanceCalls != 1 {
		t.Fatalf("expected one BalanceAt call, got %d", fake.balanceCalls)
	}
	if len(fake.contractCalls) != 0 {
		t.Fatal("native balance must not call a contract")
	}
}

func TestReadsRetryTransientFailures(t *testing.T) {
	fake := newFakeBackend()
	fake.failuresLeft = 2
	pool := poolWithFake(fake, cache.NewMemory())

	decimals, err := pool.TokenDecimals(context.Background(), 1, testToken)
	if err != nil {
		t.Fatalf("TokenDecimals failed after retries: %v", err)
	}
	if decimals != 6 {
		t.Fatalf("unexpected decimals %d", decimals)
	}
	if got := fake.contractCalls[selectorOf(t, "decimals")]; got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestUnsupportedChainIsUsageError(t *testing.T) {
	pool := poolWithFake(newFakeBackend(), cache.NewMemory())
	if _, err := pool.NativeBalance(context.Background(), 31337, testWallet); err == nil {
		t.Fatal("expected error for unsupported chain")
	}
}
