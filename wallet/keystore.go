package wallet

import (
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"bnbw/internal/crypto"
	"bnbw/internal/model"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const networkName = "bsc-testnet"

// ErrInvalidKeyFormat reports import input that cannot be a secp256k1 private
// key (wrong length, non-hex characters).
var ErrInvalidKeyFormat = errors.New("invalid private key format")

// PasswordFunc supplies the wallet-file password. The returned slice is zeroed
// by the KeyStore after use.
type PasswordFunc func() ([]byte, error)

// Session is the single active private-key/address pair. The address is always
// the value derived from the key; the pair is persisted and removed together.
type Session struct {
	PrivateKey *ecdsa.PrivateKey
	Address    string
}

// KeyStore persists and retrieves the single active session in an encrypted
// .wlt file. It is the only writer of that file.
type KeyStore struct {
	filePath string
	password PasswordFunc
}

// NewKeyStore creates a KeyStore over the given wallet file path.
func NewKeyStore(filePath string, password PasswordFunc) *KeyStore {
	return &KeyStore{filePath: filePath, password: password}
}

// Generate produces a fresh random key, derives its address, persists both and
// returns the session. Any previously persisted session is overwritten.
func (k *KeyStore) Generate() (*Session, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	session := &Session{
		PrivateKey: key,
		Address:    ethcrypto.PubkeyToAddress(key.PublicKey).Hex(),
	}
	if err := k.persist(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Import normalizes rawKey to canonical hex form, derives the address, persists
// and returns the session. Fails with ErrInvalidKeyFormat without touching
// storage when the input cannot be a key.
func (k *KeyStore) Import(rawKey string) (*Session, error) {
	normalized := strings.ToLower(strings.TrimSpace(rawKey))
	normalized = strings.TrimPrefix(normalized, "0x")

	key, err := ethcrypto.HexToECDSA(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}

	session := &Session{
		PrivateKey: key,
		Address:    ethcrypto.PubkeyToAddress(key.PublicKey).Hex(),
	}
	if err := k.persist(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Load reads the persisted session, re-deriving the address from the key as an
// integrity check. A structurally broken file, a key that fails derivation or
// an address that no longer matches the key are all treated as corruption:
// storage is cleared and (nil, nil) is returned, so callers never activate an
// unusable key. A decryption failure surfaces as an error, since it cannot be
// told apart from a wrong password. (nil, nil) is also returned when nothing
// is persisted.
func (k *KeyStore) Load() (*Session, error) {
	if _, err := os.Stat(k.filePath); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat wallet file: %w", err)
	}

	passwordBytes, err := k.password()
	if err != nil {
		return nil, err
	}
	defer clear(passwordBytes)

	wltFile, walletData, err := crypto.DecryptWallet(k.filePath, passwordBytes)
	if err != nil {
		if errors.Is(err, crypto.ErrFileNotExist) {
			return nil, nil
		}
		if errors.Is(err, crypto.ErrMalformedFile) {
			if clearErr := k.Clear(); clearErr != nil {
				return nil, fmt.Errorf("failed to clear corrupted wallet: %w", clearErr)
			}
			return nil, nil
		}
		// Authentication failure cannot be told apart from a wrong
		// password, so it surfaces instead of wiping the wallet.
		return nil, fmt.Errorf("failed to decrypt wallet: %w", err)
	}
	defer clear(walletData.PrivateKey)

	key, err := ethcrypto.ToECDSA(walletData.PrivateKey)
	if err != nil {
		if clearErr := k.Clear(); clearErr != nil {
			return nil, fmt.Errorf("failed to clear corrupted wallet: %w", clearErr)
		}
		return nil, nil
	}

	address := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()
	if address != wltFile.Address {
		if clearErr := k.Clear(); clearErr != nil {
			return nil, fmt.Errorf("failed to clear corrupted wallet: %w", clearErr)
		}
		return nil, nil
	}

	return &Session{PrivateKey: key, Address: address}, nil
}

// Clear removes the persisted session. Removing an absent session is not an
// error.
func (k *KeyStore) Clear() error {
	if err := os.Remove(k.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove wallet file: %w", err)
	}
	return nil
}

// Address reads the stored address without decrypting the key.
func (k *KeyStore) Address() (string, error) {
	return crypto.ReadWalletAddress(k.filePath)
}

// ReceiveQR reads the stored receive QR (base64 PNG) without decrypting the key.
func (k *KeyStore) ReceiveQR() (string, error) {
	return crypto.ReadWalletQR(k.filePath)
}

// CanonicalKeyHex renders a session key in the canonical 0x-prefixed hex form.
func CanonicalKeyHex(key *ecdsa.PrivateKey) string {
	return "0x" + hex.EncodeToString(ethcrypto.FromECDSA(key))
}

func (k *KeyStore) persist(session *Session) error {
	passwordBytes, err := k.password()
	if err != nil {
		return err
	}
	defer clear(passwordBytes)

	png, err := addressQRPNG(session.Address, receiveQRSize)
	if err != nil {
		return err
	}
	qrCode := base64.StdEncoding.EncodeToString(png)

	keyBytes := ethcrypto.FromECDSA(session.PrivateKey)
	defer clear(keyBytes)

	walletData := &model.WalletData{
		PrivateKey: keyBytes,
		CreatedAt:  time.Now().Format(time.RFC3339),
	}

	if err := crypto.EncryptWallet(k.filePath, networkName, session.Address, qrCode, walletData, passwordBytes); err != nil {
		return fmt.Errorf("failed to encrypt wallet: %w", err)
	}
	return nil
}
