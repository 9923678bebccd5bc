package orchestrate

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/fernet/fernet-go"
	"github.com/google/uuid"

	"github.com/gustavo/swapdesk/internal/aggregator"
	"github.com/gustavo/swapdesk/internal/chains"
	swaperr "github.com/gustavo/swapdesk/internal/errors"
	"github.com/gustavo/swapdesk/internal/logger"
	"github.com/gustavo/swapdesk/internal/store"
	"github.com/gustavo/swapdesk/internal/vault"
	"github.com/gustavo/swapdesk/internal/wallet"
)

const (
	testFromToken = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	testToToken   = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
)

type fakeBackend struct {
	sent     []*types.Transaction
	gasPrice *big.Int
	gasLimit uint64
}

func (f *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) { return big.NewInt(1), nil }
func (f *fakeBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return nil, nil
}
func (f *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return nil, nil
}
func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 0, nil
}
func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return f.gasPrice, nil
}
func (f *fakeBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return f.gasLimit, nil
}
func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	return nil
}
func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return nil, nil
}

type fakePool struct {
	backend  *fakeBackend
	balance  *big.Int
	decimals int
}

func (f *fakePool) Backend(ctx context.Context, chainID int64) (chains.Backend, error) {
	return f.backend, nil
}
func (f *fakePool) TokenBalance(ctx context.Context, chainID int64, wallet, token string) (*big.Int, error) {
	return f.balance, nil
}
func (f *fakePool) TokenDecimals(ctx context.Context, chainID int64, token string) (int, error) {
	return f.decimals, nil
}

type fakeQuotes struct {
	swapPayload   aggregator.TxPayload
	swapErr       error
	bridgeID      int64
	buildReq      *aggregator.CrosschainQuoteRequest
	builtBridgeID int64
	buildPayload  aggregator.TxPayload
	status        aggregator.BridgeStatus
	saveErr       error
	savedOrders   []aggregator.LimitOrderSubmission
	supported     bool
}

func (f *fakeQuotes) SwapTransaction(ctx context.Context, req aggregator.SwapRequest) (aggregator.TxPayload, error) {
	return f.swapPayload, f.swapErr
}
func (f *fakeQuotes) SupportedChain(ctx context.Context, fromChain, toChain int64) (aggregator.SupportedChain, bool, error) {
	return aggregator.SupportedChain{ChainID: toChain}, f.supported, nil
}
func (f *fakeQuotes) CrosschainQuote(ctx context.Context, req aggregator.CrosschainQuoteRequest) (int64, error) {
	return f.bridgeID, nil
}
func (f *fakeQuotes) BuildCrosschainTx(ctx context.Context, req aggregator.CrosschainQuoteRequest, wallet string, bridgeID int64) (aggregator.TxPayload, error) {
	f.buildReq = &req
	f.builtBridgeID = bridgeID
	return f.buildPayload, nil
}
func (f *fakeQuotes) Status(ctx context.Context, txHash string) (aggregator.BridgeStatus, error) {
	return f.status, nil
}
func (f *fakeQuotes) SaveLimitOrder(ctx context.Context, order aggregator.LimitOrderSubmission) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedOrders = append(f.savedOrders, order)
	return nil
}

type fakeApprover struct {
	consumed *uint64
	calls    int
}

func (f *fakeApprover) EnsureApproved(ctx context.Context, chainID int64, token, owner, spender string, amount *big.Int, key *ecdsa.PrivateKey) (*uint64, error) {
	f.calls++
	return f.consumed, nil
}

type fakeNonces struct {
	pending    uint64
	afterCalls []uint64
}

func (f *fakeNonces) Pending(ctx context.Context, chainID int64, wallet string) (uint64, error) {
	return f.pending, nil
}
func (f *fakeNonces) After(ctx context.Context, chainID int64, wallet string, consumed uint64) (uint64, error) {
	f.afterCalls = append(f.afterCalls, consumed)
	return consumed + 1, nil
}

type fakeSwapStore struct{ records []store.SwapRecord }

func (f *fakeSwapStore) Insert(ctx context.Context, rec store.SwapRecord) (store.SwapRecord, error) {
	f.records = append(f.records, rec)
	return rec, nil
}

type fakeLimitStore struct{ records []store.LimitOrderRecord }

func (f *fakeLimitStore) Insert(ctx context.Context, rec store.LimitOrderRecord) (store.LimitOrderRecord, error) {
	f.records = append(f.records, rec)
	return rec, nil
}

type fakeBridgeStore struct {
	records []store.CrosschainSwapRecord
	settled []store.BridgeState
	updated bool
}

func (f *fakeBridgeStore) Insert(ctx context.Context, rec store.CrosschainSwapRecord) (store.CrosschainSwapRecord, error) {
	f.records = append(f.records, rec)
	return rec, nil
}
func (f *fakeBridgeStore) Settle(ctx context.Context, sourceTxHash string, status store.BridgeState, destTxHash *string) (bool, error) {
	f.settled = append(f.settled, status)
	return f.updated, nil
}

type fixture struct {
	orch     *Orchestrator
	backend  *fakeBackend
	pool     *fakePool
	quotes   *fakeQuotes
	approver *fakeApprover
	nonces   *fakeNonces
	swaps    *fakeSwapStore
	limits   *fakeLimitStore
	bridges  *fakeBridgeStore
	vault    *vault.Vault
	keyEnc   string
	address  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	var fk fernet.Key
	if err := fk.Generate(); err != nil {
		t.Fatalf("generate vault key: %v", err)
	}
	v, err := vault.New([]string{fk.Encode()})
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	encrypted, err := v.Encrypt(crypto.FromECDSA(key))
	if err != nil {
		t.Fatalf("encrypt key: %v", err)
	}

	f := &fixture{
		backend:  &fakeBackend{gasPrice: big.NewInt(3_000_000_000), gasLimit: 50000},
		quotes:   &fakeQuotes{supported: true},
		approver: &fakeApprover{},
		nonces:   &fakeNonces{pending: 10},
		swaps:    &fakeSwapStore{},
		limits:   &fakeLimitStore{},
		bridges:  &fakeBridgeStore{updated: true},
		vault:    v,
		keyEnc:   encrypted,
		address:  crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}
	f.pool = &fakePool{backend: f.backend, balance: big.NewInt(1e18), decimals: 6}
	f.orch = New(Deps{
		Vault:       v,
		Pool:        f.pool,
		Quotes:      f.quotes,
		Approver:    f.approver,
		Nonces:      f.nonces,
		Locker:      wallet.NewLocker(),
		Swaps:       f.swaps,
		LimitOrders: f.limits,
		Bridges:     f.bridges,
		Log:         logger.Nop(),
		Now:         func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) },
	})
	return f
}

func routePayload() aggregator.TxPayload {
	return aggregator.TxPayload{
		To:       "0x7D0CcAa3Fac1e5A943c5168b6CEd828691b46B36",
		Value:    big.NewInt(123456),
		Data:     "0xdeadbeef",
		GasLimit: big.NewInt(200000),
		GasPrice: big.NewInt(5_000_000_000),
	}
}

func swapParams(f *fixture) SwapParams {
	return SwapParams{
		UserID:          uuid.New(),
		ChainID:         1,
		Wallet:          f.address,
		EncryptedKey:    f.keyEnc,
		FromToken:       testFromToken,
		ToToken:         testToToken,
		Amount:          "25.5",
		SlippagePercent: 1,
		PriceImpactPct:  5,
	}
}

func TestSwapBroadcastsOnceWithPaddedGasAndValue(t *testing.T) {
	f := newFixture(t)
	f.quotes.swapPayload = routePayload()

	res := f.orch.Swap(context.Background(), swapParams(f))
	if !res.OK {
		t.Fatalf("swap failed: %v", res.Err)
	}
	if len(f.backend.sent) != 1 {
		t.Fatalf("expected exactly one broadcast, got %d", len(f.backend.sent))
	}

	tx := f.backend.sent[0]
	if tx.Value().Int64() != 123456 {
		t.Fatalf("route value must pass through unchanged, got %s", tx.Value())
	}
	if tx.Gas() != 500000 {
		t.Fatalf("gas limit must be padded, got %d", tx.Gas())
	}
	if tx.GasPrice().Int64() != 12_500_000_000 {
		t.Fatalf("gas price must carry the safety ratio, got %s", tx.GasPrice())
	}
	if tx.Nonce() != 10 {
		t.Fatalf("expected pending nonce 10, got %d", tx.Nonce())
	}
	if len(f.swaps.records) != 1 || f.swaps.records[0].TxHash != res.TxHash {
		t.Fatal("swap record must be persisted with the broadcast hash")
	}
	if got := f.swaps.records[0].Amount.String(); got != "25500000" {
		t.Fatalf("swap record must store minor units, got %s", got)
	}
	if res.ExplorerURL == "" {
		t.Fatal("explorer url missing")
	}
}

func TestSwapNonceFollowsApproval(t *testing.T) {
	f := newFixture(t)
	f.quotes.swapPayload = routePayload()
	consumed := uint64(10)
	f.approver.consumed = &consumed

	res := f.orch.Swap(context.Background(), swapParams(f))
	if !res.OK {
		t.Fatalf("swap failed: %v", res.Err)
	}
	if len(f.nonces.afterCalls) != 1 || f.nonces.afterCalls[0] != 10 {
		t.Fatal("swap must sequence after the approval's consumed nonce")
	}
	if f.backend.sent[0].Nonce() != 11 {
		t.Fatalf("swap nonce must exceed the approval nonce, got %d", f.backend.sent[0].Nonce())
	}
}

func TestSwapInsufficientBalanceStopsBeforeQuote(t *testing.T) {
	f := newFixture(t)
	f.pool.balance = big.NewInt(1)
	f.quotes.swapPayload = routePayload()

	res := f.orch.Swap(context.Background(), swapParams(f))
	if res.OK {
		t.Fatal("swap must fail on insufficient balance")
	}
	if !swaperr.Is(res.Err, swaperr.CodeInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", res.Err)
	}
	if len(f.backend.sent) != 0 {
		t.Fatal("nothing may be broadcast")
	}
	if f.approver.calls != 0 {
		t.Fatal("no approval may be requested")
	}
	if len(f.swaps.records) != 0 {
		t.Fatal("no record may be written on failure")
	}
}

func TestSwapQuoteFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.quotes.swapErr = swaperr.New(swaperr.CodeQuoteUnavailable, "no liquidity")

	res := f.orch.Swap(context.Background(), swapParams(f))
	if res.OK {
		t.Fatal("swap must fail when the quote fails")
	}
	if res.Message != "no liquidity" {
		t.Fatalf("provider message must surface, got %q", res.Message)
	}
	if len(f.backend.sent) != 0 || len(f.swaps.records) != 0 {
		t.Fatal("failed quote must leave no trace")
	}
}

func limitParams(f *fixture) LimitOrderParams {
	return LimitOrderParams{
		UserID:       uuid.New(),
		ChainID:      1,
		Wallet:       f.address,
		EncryptedKey: f.keyEnc,
		MakerToken:   testFromToken,
		TakerToken:   testToToken,
		MakingAmount: "100",
		TakingAmount: "105",
		MinReturn:    "100",
		Hours:        24,
	}
}

func TestLimitOrderPersistedOnlyOnAcceptance(t *testing.T) {
	f := newFixture(t)
	p := limitParams(f)
	p.PartiallyAble = true

	res := f.orch.LimitOrder(context.Background(), p)
	if !res.OK {
		t.Fatalf("limit order failed: %v", res.Err)
	}
	if res.OrderHash == "" {
		t.Fatal("missing order hash")
	}
	if len(f.quotes.savedOrders) != 1 {
		t.Fatalf("expected one submission, got %d", len(f.quotes.savedOrders))
	}
	if len(f.limits.records) != 1 || f.limits.records[0].OrderHash != res.OrderHash {
		t.Fatal("accepted order must be persisted")
	}
	rec := f.limits.records[0]
	if rec.Maker != f.address {
		t.Fatalf("record must carry the maker address, got %s", rec.Maker)
	}
	if !rec.PartiallyAble {
		t.Fatal("record must keep the partial-fill flag")
	}
	if rec.MakingAmount.String() != "100000000" || rec.MinReturn.String() != "100000000" {
		t.Fatalf("record must store minor units, got %s / %s", rec.MakingAmount, rec.MinReturn)
	}

	sub := f.quotes.savedOrders[0]
	if sub.Data.Receiver != f.address || sub.Data.AllowedSender != zeroAllowedSender {
		t.Fatalf("unexpected order fields %+v", sub.Data)
	}
	if sub.Data.Salt == "0" || sub.Data.Salt == "" {
		t.Fatal("salt must be random and nonzero")
	}
	if sub.Signature == "" {
		t.Fatal("order must be signed")
	}
}

func TestLimitOrderRejectionWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.quotes.saveErr = swaperr.New(swaperr.CodeOrderRejected, "invalid signature")

	res := f.orch.LimitOrder(context.Background(), limitParams(f))
	if res.OK {
		t.Fatal("rejected order must not report success")
	}
	if len(f.limits.records) != 0 {
		t.Fatal("rejected order must not be persisted")
	}
}

func TestLimitOrderRequiresTakingAboveMinReturn(t *testing.T) {
	f := newFixture(t)
	p := limitParams(f)
	p.TakingAmount = "100"
	p.MinReturn = "100"

	res := f.orch.LimitOrder(context.Background(), p)
	if res.OK || !swaperr.Is(res.Err, swaperr.CodeUsage) {
		t.Fatalf("equal taking and min return must be rejected, got %v", res.Err)
	}
}

func TestLimitOrderSaltsDiffer(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 2; i++ {
		if res := f.orch.LimitOrder(context.Background(), limitParams(f)); !res.OK {
			t.Fatalf("limit order failed: %v", res.Err)
		}
	}
	if f.quotes.savedOrders[0].Data.Salt == f.quotes.savedOrders[1].Data.Salt {
		t.Fatal("two orders share a salt")
	}
}

func crosschainParams(f *fixture) CrosschainParams {
	return CrosschainParams{
		UserID:          uuid.New(),
		FromChainID:     1,
		ToChainID:       137,
		Wallet:          f.address,
		EncryptedKey:    f.keyEnc,
		FromToken:       testFromToken,
		ToToken:         testToToken,
		Amount:          "50",
		SlippagePercent: 1,
		PriceImpactPct:  5,
	}
}

func TestCrosschainUsesQuotedBridgeID(t *testing.T) {
	f := newFixture(t)
	f.quotes.bridgeID = 211
	f.quotes.buildPayload = routePayload()

	res := f.orch.Crosschain(context.Background(), crosschainParams(f))
	if !res.OK {
		t.Fatalf("crosschain failed: %v", res.Err)
	}
	if f.quotes.builtBridgeID != 211 {
		t.Fatalf("build-tx must receive the quoted bridge id, got %d", f.quotes.builtBridgeID)
	}
	if len(f.bridges.records) != 1 {
		t.Fatalf("expected one pending record, got %d", len(f.bridges.records))
	}
	rec := f.bridges.records[0]
	if rec.SourceTxHash != res.TxHash {
		t.Fatal("record must carry the source tx hash")
	}
	if rec.BridgeID != 211 {
		t.Fatalf("record must carry the quoted bridge id, got %d", rec.BridgeID)
	}
	if rec.Wallet != f.address {
		t.Fatalf("record must carry the signing wallet, got %s", rec.Wallet)
	}
	if got := rec.Amount.String(); got != "50000000" {
		t.Fatalf("record must store minor units, got %s", got)
	}
	if rec.Slippage.String() != "1" || rec.PriceImpact != 5 {
		t.Fatalf("record must keep the quote tolerances, got %s / %d", rec.Slippage, rec.PriceImpact)
	}
}

func TestCrosschainUnsupportedRoute(t *testing.T) {
	f := newFixture(t)
	f.quotes.supported = false

	res := f.orch.Crosschain(context.Background(), crosschainParams(f))
	if res.OK || !swaperr.Is(res.Err, swaperr.CodeQuoteUnavailable) {
		t.Fatalf("unsupported route must fail with quote unavailable, got %v", res.Err)
	}
	if len(f.backend.sent) != 0 || len(f.bridges.records) != 0 {
		t.Fatal("unsupported route must leave no trace")
	}
}

func TestSettleBridgeTransitions(t *testing.T) {
	cases := []struct {
		name   string
		status aggregator.BridgeStatus
		want   store.BridgeState
		settle bool
	}{
		{"success", aggregator.BridgeStatus{Status: "SUCCESS", DetailStatus: "SUCCESS", ToTxHash: "0xdest"}, store.BridgeCompleted, true},
		{"failure", aggregator.BridgeStatus{Status: "FAILURE", DetailStatus: "FAILURE"}, store.BridgeFailed, true},
		{"refund", aggregator.BridgeStatus{DetailStatus: "REFUND"}, store.BridgeFailed, true},
		{"still pending", aggregator.BridgeStatus{Status: "PENDING", DetailStatus: "WAITING"}, store.BridgePending, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.quotes.status = tc.status

			state, err := f.orch.SettleBridge(context.Background(), "0xsource")
			if err != nil {
				t.Fatalf("SettleBridge failed: %v", err)
			}
			if state != tc.want {
				t.Fatalf("expected state %s, got %s", tc.want, state)
			}
			if tc.settle && len(f.bridges.settled) != 1 {
				t.Fatal("terminal status must settle the record")
			}
			if !tc.settle && len(f.bridges.settled) != 0 {
				t.Fatal("pending status must not touch the record")
			}
		})
	}
}

func TestWithdrawNative(t *testing.T) {
	f := newFixture(t)
	f.pool.decimals = 18
	f.pool.balance = big.NewInt(2e18)

	res := f.orch.Withdraw(context.Background(), WithdrawParams{
		UserID:       uuid.New(),
		ChainID:      1,
		Wallet:       f.address,
		EncryptedKey: f.keyEnc,
		Token:        "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee",
		To:           "0x2220000000000000000000000000000000000222",
		Amount:       "1",
	})
	if !res.OK {
		t.Fatalf("withdraw failed: %v", res.Err)
	}
	tx := f.backend.sent[0]
	if tx.Value().Cmp(big.NewInt(1e18)) != 0 {
		t.Fatalf("unexpected transfer value %s", tx.Value())
	}
	if tx.Gas() != 21000 {
		t.Fatalf("native transfer must use 21000 gas, got %d", tx.Gas())
	}
	if tx.GasPrice().Cmp(f.backend.gasPrice) != 0 {
		t.Fatal("withdraw must use the suggested gas price")
	}
}

func TestWithdrawERC20EstimatesGas(t *testing.T) {
	f := newFixture(t)
	f.pool.decimals = 6
	f.pool.balance = big.NewInt(100_000_000)

	res := f.orch.Withdraw(context.Background(), WithdrawParams{
		UserID:       uuid.New(),
		ChainID:      1,
		Wallet:       f.address,
		EncryptedKey: f.keyEnc,
		Token:        testFromToken,
		To:           "0x2220000000000000000000000000000000000222",
		Amount:       "25",
	})
	if !res.OK {
		t.Fatalf("withdraw failed: %v", res.Err)
	}
	tx := f.backend.sent[0]
	if tx.Gas() != 100000 {
		t.Fatalf("erc20 transfer gas must double the estimate, got %d", tx.Gas())
	}
	if tx.Value().Sign() != 0 {
		t.Fatal("erc20 transfer must carry no native value")
	}
	if tx.To().Hex() != testFromToken {
		t.Fatalf("transfer must target the token contract, got %s", tx.To().Hex())
	}
}
