package ton

import (
	"math/big"

	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tvm/cell"
)

// DEX and jetton op codes. Fixed by the respective contracts.
const (
	opJettonTransfer = 0x0f8a7ea5
	opStonfiSwap     = 0x25938561
)

// swapBody builds the DEX swap instruction carried inside a jetton transfer's
// forward payload: swap into the router's wallet for the ask token, enforcing
// the minimum out, paying out to the recipient.
func swapBody(routerAskWallet, recipient *address.Address, minOut *big.Int) *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(opStonfiSwap, 32).
		MustStoreAddr(routerAskWallet).
		MustStoreBigCoins(minOut).
		MustStoreAddr(recipient).
		MustStoreBoolBit(false).
		EndCell()
}

// jettonTransferBody builds the standard jetton transfer that moves amount to
// the destination, forwarding forwardTon and the swap instruction so the
// router executes on receipt.
func jettonTransferBody(queryID uint64, amount *big.Int, destination, responseTo *address.Address, forwardTon *big.Int, forward *cell.Cell) *cell.Cell {
	b := cell.BeginCell().
		MustStoreUInt(opJettonTransfer, 32).
		MustStoreUInt(queryID, 64).
		MustStoreBigCoins(amount).
		MustStoreAddr(destination).
		MustStoreAddr(responseTo).
		MustStoreBoolBit(false).
		MustStoreBigCoins(forwardTon)
	if forward != nil {
		b.MustStoreBoolBit(true).MustStoreRef(forward)
	} else {
		b.MustStoreBoolBit(false)
	}
	return b.EndCell()
}
