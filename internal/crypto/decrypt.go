package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"bnbw/internal/model"

	"golang.org/x/crypto/scrypt"
)

// ErrFileNotExist reports that no wallet file is persisted at the given path.
var ErrFileNotExist = errors.New("wallet file does not exist")

// ErrMalformedFile reports that the wallet file is structurally broken and
// cannot yield a key regardless of password. Distinct from a GCM auth
// failure, which looks the same as a wrong password.
var ErrMalformedFile = errors.New("malformed wallet file")

// DecryptWallet reads and decrypts the .wlt file
// password must be []byte for security (caller should zero it after use)
func DecryptWallet(filePath string, password []byte) (*model.WalletFile, *model.WalletData, error) {
	fileData, err := readWalletFile(filePath)
	if err != nil {
		return nil, nil, err
	}

	// Deserialize file structure
	var wltFile model.WalletFile
	if err := json.Unmarshal(fileData, &wltFile); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}

	// Decode salt and nonce
	salt, err := base64.StdEncoding.DecodeString(wltFile.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: bad salt: %v", ErrMalformedFile, err)
	}

	nonce, err := base64.StdEncoding.DecodeString(wltFile.Nonce)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: bad nonce: %v", ErrMalformedFile, err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(wltFile.CipherText)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: bad ciphertext: %v", ErrMalformedFile, err)
	}

	// Derive key from password
	key, err := scrypt.Key(password, salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive key: %w", err)
	}

	// Create AES cipher
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	// Create GCM
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	// Decrypt
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, nil, errors.New("invalid password")
	}
	defer clear(plaintext) // wipe decrypted bytes from memory

	// Deserialize wallet data
	var walletData model.WalletData
	if err := json.Unmarshal(plaintext, &walletData); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}

	return &wltFile, &walletData, nil
}

// ReadWalletAddress reads only the address from the .wlt file (without decryption)
func ReadWalletAddress(filePath string) (string, error) {
	fileData, err := readWalletFile(filePath)
	if err != nil {
		return "", err
	}

	var wltFile model.WalletFile
	if err := json.Unmarshal(fileData, &wltFile); err != nil {
		return "", fmt.Errorf("failed to unmarshal wlt file: %w", err)
	}

	return wltFile.Address, nil
}

// ReadWalletQR reads only the receive QR (base64 PNG) from the .wlt file
func ReadWalletQR(filePath string) (string, error) {
	fileData, err := readWalletFile(filePath)
	if err != nil {
		return "", err
	}

	var wltFile model.WalletFile
	if err := json.Unmarshal(fileData, &wltFile); err != nil {
		return "", fmt.Errorf("failed to unmarshal wlt file: %w", err)
	}

	return wltFile.QR, nil
}

func readWalletFile(filePath string) ([]byte, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotExist
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if fileInfo.Size() == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrMalformedFile)
	}

	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Skip UTF-8 BOM if present
	if len(fileData) >= 3 && fileData[0] == 0xEF && fileData[1] == 0xBB && fileData[2] == 0xBF {
		fileData = fileData[3:]
	}

	return fileData, nil
}
