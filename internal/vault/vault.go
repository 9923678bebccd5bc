package vault

import (
	"encoding/hex"

	"github.com/fernet/fernet-go"

	swaperr "github.com/gustavo/swapdesk/internal/errors"
)

// Vault encrypts and decrypts wallet secrets at rest. The first key in the
// ring signs new ciphertexts; every key is tried on decryption, so a key can
// be rotated in by prepending it while the old one still decrypts.
type Vault struct {
	keys []*fernet.Key
}

// New decodes the key ring. An empty or malformed ring is a startup error;
// the caller is expected to treat it as fatal.
func New(encodedKeys []string) (*Vault, error) {
	if len(encodedKeys) == 0 {
		return nil, swaperr.New(swaperr.CodeUsage, "vault requires at least one key")
	}
	keys := make([]*fernet.Key, 0, len(encodedKeys))
	for _, encoded := range encodedKeys {
		k, err := fernet.DecodeKey(encoded)
		if err != nil {
			return nil, swaperr.Wrap(swaperr.CodeUsage, "decode vault key", err)
		}
		keys = append(keys, k)
	}
	return &Vault{keys: keys}, nil
}

// Encrypt seals an arbitrary secret and returns the ciphertext token.
func (v *Vault) Encrypt(secret []byte) (string, error) {
	tok, err := fernet.EncryptAndSign(secret, v.keys[0])
	if err != nil {
		return "", swaperr.Wrap(swaperr.CodeInternal, "encrypt secret", err)
	}
	return string(tok), nil
}

// Decrypt opens a ciphertext token. A failed decryption means the ciphertext
// was tampered with or sealed under an unknown key; it must never be retried
// and garbage bytes must never reach a signer.
func (v *Vault) Decrypt(ciphertext string) ([]byte, error) {
	plain := fernet.VerifyAndDecrypt([]byte(ciphertext), 0, v.keys)
	if plain == nil {
		return nil, swaperr.New(swaperr.CodeSecretIntegrity, "secret failed integrity check")
	}
	return plain, nil
}

// DecryptKeyHex decrypts a stored private key and returns it hex-encoded,
// the form the transaction signer consumes.
func (v *Vault) DecryptKeyHex(ciphertext string) (string, error) {
	plain, err := v.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(plain), nil
}

// DecryptMnemonic decrypts a stored seed phrase.
func (v *Vault) DecryptMnemonic(ciphertext string) (string, error) {
	plain, err := v.Decrypt(ciphertext)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
