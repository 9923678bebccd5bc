package orchestrate

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gustavo/swapdesk/internal/aggregator"
	"github.com/gustavo/swapdesk/internal/amounts"
	swaperr "github.com/gustavo/swapdesk/internal/errors"
	"github.com/gustavo/swapdesk/internal/registry"
	"github.com/gustavo/swapdesk/internal/store"
)

// LimitOrderParams describes one off-chain limit order.
type LimitOrderParams struct {
	UserID        uuid.UUID
	ChainID       int64
	Wallet        string
	EncryptedKey  string
	MakerToken    string
	TakerToken    string
	MakingAmount  string
	TakingAmount  string
	MinReturn     string
	Hours         int
	PartiallyAble bool
}

const zeroAllowedSender = "0x0000000000000000000000000000000000000000"

// LimitOrder signs an order off-chain and submits it to the order book. A
// database row is written only when the book explicitly accepted the order.
func (o *Orchestrator) LimitOrder(ctx context.Context, p LimitOrderParams) Result {
	profile, err := registry.Chain(p.ChainID)
	if err != nil {
		return fail(err)
	}
	if profile.LimitVerifier == "" {
		return fail(swaperr.New(swaperr.CodeUsage, fmt.Sprintf("chain %d does not support limit orders", p.ChainID)))
	}
	if p.Hours <= 0 {
		return fail(swaperr.New(swaperr.CodeUsage, "order lifetime must be positive"))
	}

	makerDecimals, err := o.deps.Pool.TokenDecimals(ctx, p.ChainID, p.MakerToken)
	if err != nil {
		return fail(err)
	}
	takerDecimals, err := o.deps.Pool.TokenDecimals(ctx, p.ChainID, p.TakerToken)
	if err != nil {
		return fail(err)
	}
	making, err := amounts.Scale(p.MakingAmount, makerDecimals)
	if err != nil {
		return fail(err)
	}
	taking, err := amounts.Scale(p.TakingAmount, takerDecimals)
	if err != nil {
		return fail(err)
	}
	minReturn, err := amounts.Scale(p.MinReturn, takerDecimals)
	if err != nil {
		return fail(err)
	}
	if taking.Cmp(minReturn) <= 0 {
		return fail(swaperr.New(swaperr.CodeUsage, "taking amount must exceed the minimum return"))
	}

	keyHex, err := o.deps.Vault.DecryptKeyHex(p.EncryptedKey)
	if err != nil {
		return fail(err)
	}
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return fail(swaperr.Wrap(swaperr.CodeSecretIntegrity, "restore signing key", err))
	}

	unlock := o.deps.Locker.Lock(p.Wallet)
	defer unlock()

	if _, err := o.deps.Approver.EnsureApproved(ctx, p.ChainID, p.MakerToken, p.Wallet, profile.LimitApproval, making, key); err != nil {
		return fail(err)
	}

	salt, err := randomSalt()
	if err != nil {
		return fail(err)
	}
	deadline := o.deps.Now().Add(time.Duration(p.Hours) * time.Hour)

	order := aggregator.LimitOrderData{
		Salt:          strconv.FormatUint(salt, 10),
		MakerToken:    p.MakerToken,
		TakerToken:    p.TakerToken,
		Maker:         p.Wallet,
		Receiver:      p.Wallet,
		AllowedSender: zeroAllowedSender,
		MakingAmount:  making.String(),
		TakingAmount:  taking.String(),
		MinReturn:     minReturn.String(),
		DeadLine:      strconv.FormatInt(deadline.Unix(), 10),
		PartiallyAble: p.PartiallyAble,
	}

	orderHash, signature, err := signOrder(order, p.ChainID, profile.LimitVerifier, key)
	if err != nil {
		return fail(err)
	}

	submission := aggregator.LimitOrderSubmission{
		OrderHash: orderHash,
		Signature: signature,
		ChainID:   strconv.FormatInt(p.ChainID, 10),
		Data:      order,
	}
	if err := o.deps.Quotes.SaveLimitOrder(ctx, submission); err != nil {
		return fail(err)
	}

	o.deps.Log.WithFields(map[string]interface{}{
		"chain_id":   p.ChainID,
		"wallet":     p.Wallet,
		"order_hash": orderHash,
	}).Infof("limit order accepted")

	if _, err := o.deps.LimitOrders.Insert(ctx, store.LimitOrderRecord{
		UserID:        p.UserID,
		ChainID:       p.ChainID,
		OrderHash:     orderHash,
		Salt:          order.Salt,
		Maker:         p.Wallet,
		MakerToken:    p.MakerToken,
		TakerToken:    p.TakerToken,
		MakingAmount:  decimal.NewFromBigInt(making, 0),
		TakingAmount:  decimal.NewFromBigInt(taking, 0),
		MinReturn:     decimal.NewFromBigInt(minReturn, 0),
		PartiallyAble: p.PartiallyAble,
		Deadline:      deadline,
	}); err != nil {
		o.deps.Log.WithField("order_hash", orderHash).Errorf("order accepted but not recorded: %v", err)
	}

	return Result{OK: true, OrderHash: orderHash}
}

// randomSalt draws the order salt from the CSPRNG so two orders created in
// the same second can never collide.
func randomSalt() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, swaperr.Wrap(swaperr.CodeInternal, "draw order salt", err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// signOrder hashes the order under the book's EIP-712 domain and signs it.
func signOrder(order aggregator.LimitOrderData, chainID int64, verifier string, key *ecdsa.PrivateKey) (string, string, error) {
	typed := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			registry.LimitOrderPrimaryType: {
				{Name: "salt", Type: "uint256"},
				{Name: "makerToken", Type: "address"},
				{Name: "takerToken", Type: "address"},
				{Name: "maker", Type: "address"},
				{Name: "receiver", Type: "address"},
				{Name: "allowedSender", Type: "address"},
				{Name: "makingAmount", Type: "uint256"},
				{Name: "takingAmount", Type: "uint256"},
				{Name: "minReturn", Type: "uint256"},
				{Name: "deadLine", Type: "uint256"},
				{Name: "partiallyAble", Type: "bool"},
			},
		},
		PrimaryType: registry.LimitOrderPrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              registry.LimitOrderDomainName,
			Version:           registry.LimitOrderDomainVersion,
			ChainId:           math.NewHexOrDecimal256(chainID),
			VerifyingContract: verifier,
		},
		Message: apitypes.TypedDataMessage{
			"salt":          order.Salt,
			"makerToken":    order.MakerToken,
			"takerToken":    order.TakerToken,
			"maker":         order.Maker,
			"receiver":      order.Receiver,
			"allowedSender": order.AllowedSender,
			"makingAmount":  order.MakingAmount,
			"takingAmount":  order.TakingAmount,
			"minReturn":     order.MinReturn,
			"deadLine":      order.DeadLine,
			"partiallyAble": order.PartiallyAble,
		},
	}

	hash, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return "", "", swaperr.Wrap(swaperr.CodeInternal, "hash order", err)
	}
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		return "", "", swaperr.Wrap(swaperr.CodeInternal, "sign order", err)
	}
	sig[64] += 27
	return hexutil.Encode(hash), hexutil.Encode(sig), nil
}
