package walletgen

import (
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/xssnick/tonutils-go/ton/wallet"

	swaperr "github.com/gustavo/swapdesk/internal/errors"
	"github.com/gustavo/swapdesk/internal/vault"
)

// EVMWallet is a freshly generated EVM account. The key leaves this package
// only in encrypted form.
type EVMWallet struct {
	Address      string
	EncryptedKey string
}

// TONWallet is a freshly generated TON account (V4R2 contract).
type TONWallet struct {
	Address           string
	EncryptedMnemonic string
}

// NewEVM generates a secp256k1 key and seals it with the vault.
func NewEVM(v *vault.Vault) (EVMWallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return EVMWallet{}, swaperr.Wrap(swaperr.CodeInternal, "generate evm key", err)
	}
	encrypted, err := v.Encrypt(crypto.FromECDSA(key))
	if err != nil {
		return EVMWallet{}, err
	}
	return EVMWallet{
		Address:      crypto.PubkeyToAddress(key.PublicKey).Hex(),
		EncryptedKey: encrypted,
	}, nil
}

// NewTON generates a 24-word seed, derives the V4R2 address and seals the
// mnemonic with the vault.
func NewTON(v *vault.Vault) (TONWallet, error) {
	words := wallet.NewSeed()
	w, err := wallet.FromSeed(nil, words, wallet.V4R2)
	if err != nil {
		return TONWallet{}, swaperr.Wrap(swaperr.CodeInternal, "derive ton wallet", err)
	}
	encrypted, err := v.Encrypt([]byte(strings.Join(words, " ")))
	if err != nil {
		return TONWallet{}, err
	}
	return TONWallet{
		Address:           w.WalletAddress().String(),
		EncryptedMnemonic: encrypted,
	}, nil
}
