package ton

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/ton/jetton"
	"github.com/xssnick/tonutils-go/ton/wallet"

	swaperr "github.com/gustavo/swapdesk/internal/errors"
	"github.com/gustavo/swapdesk/internal/logger"
	"github.com/gustavo/swapdesk/internal/metadata"
)

// Gas attachments for the different message shapes. Unused remainder is
// bounced back by the contracts.
var (
	nativeSwapGas     = tlb.MustFromTON("0.3").Nano()
	jettonSwapAttach  = tlb.MustFromTON("0.3").Nano()
	swapForwardGas    = tlb.MustFromTON("0.25").Nano()
	jettonTransferGas = tlb.MustFromTON("0.05").Nano()
	nftPurchaseBuffer = tlb.MustFromTON("0.6").Nano()
)

const globalConfigURL = "https://ton.org/global.config.json"

// Connect dials the liteserver set from the public global config.
func Connect(ctx context.Context) (ton.APIClientWrapped, error) {
	pool := liteclient.NewConnectionPool()
	if err := pool.AddConnectionsFromConfigUrl(ctx, globalConfigURL); err != nil {
		return nil, swaperr.Wrap(swaperr.CodeChainUnavailable, "connect ton liteservers", err)
	}
	return ton.NewAPIClient(pool).WithRetry(), nil
}

// SaleReader verifies NFT sale contracts before any TON moves.
type SaleReader interface {
	SaleData(ctx context.Context, saleAddress string) (metadata.SaleData, error)
}

// Trader runs swaps, withdrawals and NFT purchases for TON custodial wallets.
// Callers decrypt the mnemonic before handing it in; the trader never touches
// the vault.
type Trader struct {
	api    ton.APIClientWrapped
	stonfi *StonfiClient
	tonapi SaleReader
	xrare  *XRareClient
	log    *logger.Logger

	queryID func() uint64
}

func NewTrader(api ton.APIClientWrapped, stonfi *StonfiClient, tonapi SaleReader, xrare *XRareClient, log *logger.Logger) *Trader {
	if log == nil {
		log = logger.Nop()
	}
	return &Trader{
		api:     api,
		stonfi:  stonfi,
		tonapi:  tonapi,
		xrare:   xrare,
		log:     log,
		queryID: func() uint64 { return uint64(time.Now().UnixNano()) },
	}
}

func (t *Trader) walletFromMnemonic(mnemonic string) (*wallet.Wallet, error) {
	w, err := wallet.FromSeed(t.api, strings.Fields(mnemonic), wallet.V4R2)
	if err != nil {
		return nil, swaperr.Wrap(swaperr.CodeSecretIntegrity, "restore ton wallet", err)
	}
	return w, nil
}

func (t *Trader) jettonWalletOf(ctx context.Context, master, owner *address.Address) (*address.Address, error) {
	client := jetton.NewJettonMasterClient(t.api, master)
	jw, err := client.GetJettonWallet(ctx, owner)
	if err != nil {
		return nil, swaperr.Wrap(swaperr.CodeChainUnavailable, "resolve jetton wallet", err)
	}
	return jw.Address(), nil
}

// SwapParams describes one DEX swap. Native TON on either side is expressed
// with the proxy address.
type SwapParams struct {
	Mnemonic   string
	FromJetton string
	ToJetton   string
	Amount     *big.Int
}

// SwapOutcome reports what was sent and the floor enforced on-chain.
type SwapOutcome struct {
	Wallet      string
	Router      string
	QuotedAsk   *big.Int
	MinAskUnits *big.Int
}

// Swap simulates the route, resolves the router's wallets and sends a single
// transfer carrying the swap instruction. The DEX refunds the offer if the
// pool cannot meet the 90% floor.
func (t *Trader) Swap(ctx context.Context, p SwapParams) (SwapOutcome, error) {
	if p.Amount == nil || p.Amount.Sign() <= 0 {
		return SwapOutcome{}, swaperr.New(swaperr.CodeUsage, "swap amount must be positive")
	}

	w, err := t.walletFromMnemonic(p.Mnemonic)
	if err != nil {
		return SwapOutcome{}, err
	}
	me := w.WalletAddress()

	sim, err := t.stonfi.Simulate(ctx, p.FromJetton, p.ToJetton, p.Amount)
	if err != nil {
		return SwapOutcome{}, err
	}
	router, err := address.ParseAddr(sim.RouterAddress)
	if err != nil {
		return SwapOutcome{}, swaperr.Wrap(swaperr.CodeMalformedResponse, "parse router address", err)
	}
	minOut := MinAskUnits(sim.AskUnits)

	askMaster, err := address.ParseAddr(p.ToJetton)
	if err != nil {
		return SwapOutcome{}, swaperr.Wrap(swaperr.CodeUsage, "parse ask token", err)
	}
	routerAskWallet, err := t.jettonWalletOf(ctx, askMaster, router)
	if err != nil {
		return SwapOutcome{}, err
	}
	forward := swapBody(routerAskWallet, me, minOut)

	var dest *address.Address
	var attach *big.Int
	if p.FromJetton == TonProxyAddress {
		proxyMaster := address.MustParseAddr(TonProxyAddress)
		dest, err = t.jettonWalletOf(ctx, proxyMaster, router)
		if err != nil {
			return SwapOutcome{}, err
		}
		attach = new(big.Int).Add(p.Amount, nativeSwapGas)
	} else {
		offerMaster, perr := address.ParseAddr(p.FromJetton)
		if perr != nil {
			return SwapOutcome{}, swaperr.Wrap(swaperr.CodeUsage, "parse offer token", perr)
		}
		dest, err = t.jettonWalletOf(ctx, offerMaster, me)
		if err != nil {
			return SwapOutcome{}, err
		}
		attach = jettonSwapAttach
	}

	body := jettonTransferBody(t.queryID(), p.Amount, router, me, swapForwardGas, forward)
	msg := wallet.SimpleMessage(dest, tlb.FromNanoTON(attach), body)
	if err := w.Send(ctx, msg, true); err != nil {
		return SwapOutcome{}, swaperr.Wrap(swaperr.CodeBroadcast, "send swap message", err)
	}

	t.log.WithFields(map[string]interface{}{
		"wallet": me.String(),
		"router": sim.RouterAddress,
	}).Infof("ton swap sent")

	return SwapOutcome{
		Wallet:      me.String(),
		Router:      sim.RouterAddress,
		QuotedAsk:   sim.AskUnits,
		MinAskUnits: minOut,
	}, nil
}

// WithdrawNative sends plain TON to a recipient.
func (t *Trader) WithdrawNative(ctx context.Context, mnemonic, to string, amount *big.Int) error {
	w, err := t.walletFromMnemonic(mnemonic)
	if err != nil {
		return err
	}
	dest, err := address.ParseAddr(to)
	if err != nil {
		return swaperr.Wrap(swaperr.CodeUsage, "parse recipient", err)
	}
	msg := wallet.SimpleMessage(dest, tlb.FromNanoTON(amount), nil)
	if err := w.Send(ctx, msg, true); err != nil {
		return swaperr.Wrap(swaperr.CodeBroadcast, "send withdrawal", err)
	}
	return nil
}

// WithdrawJetton moves a jetton amount to a recipient through the wallet's
// own jetton wallet.
func (t *Trader) WithdrawJetton(ctx context.Context, mnemonic, master, to string, amount *big.Int) error {
	w, err := t.walletFromMnemonic(mnemonic)
	if err != nil {
		return err
	}
	me := w.WalletAddress()
	masterAddr, err := address.ParseAddr(master)
	if err != nil {
		return swaperr.Wrap(swaperr.CodeUsage, "parse jetton master", err)
	}
	dest, err := address.ParseAddr(to)
	if err != nil {
		return swaperr.Wrap(swaperr.CodeUsage, "parse recipient", err)
	}
	myJettonWallet, err := t.jettonWalletOf(ctx, masterAddr, me)
	if err != nil {
		return err
	}

	body := jettonTransferBody(t.queryID(), amount, dest, me, big.NewInt(1), nil)
	msg := wallet.SimpleMessage(myJettonWallet, tlb.FromNanoTON(jettonTransferGas), body)
	if err := w.Send(ctx, msg, true); err != nil {
		return swaperr.Wrap(swaperr.CodeBroadcast, "send jetton withdrawal", err)
	}
	return nil
}
