package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	KeyDerivationIterations = 120000
	keyLength               = 32
	ivLength                = 12
)

var (
	ErrNoKey   = errors.New("no encryption key")
	ErrDecrypt = errors.New("decryption failed")
)

// Key is an AES-256-GCM key. The raw key bytes never leave this package.
type Key struct {
	aead cipher.AEAD
}

// CipherPayload is the at-rest form of an encrypted payload.
type CipherPayload struct {
	Cipher string `json:"cipher"`
	IV     string `json:"iv"`
}

// HasCryptoSupport reports whether AES-GCM and a random source are usable.
// Callers store plaintext when it returns false.
func HasCryptoSupport() bool {
	block, err := aes.NewCipher(make([]byte, keyLength))
	if err != nil {
		return false
	}
	if _, err := cipher.NewGCM(block); err != nil {
		return false
	}
	var probe [1]byte
	if _, err := rand.Read(probe[:]); err != nil {
		return false
	}
	return true
}

// DeriveKey runs PBKDF2-SHA256 over secret and salt and returns an AES-256-GCM key.
func DeriveKey(secret, salt string) (*Key, error) {
	raw := pbkdf2.Key([]byte(secret), []byte(salt), KeyDerivationIterations, keyLength, sha256.New)
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &Key{aead: aead}, nil
}

// DeriveUserKey derives the local payload key from the user's own identifier.
// The identifier is not a secret, so this only obfuscates the on-device store
// against casual inspection. It is not confidentiality against someone holding
// the device.
func DeriveUserKey(userID string) (*Key, error) {
	if userID == "" {
		return nil, errors.New("derive key: empty user id")
	}
	return DeriveKey(userID, "timeclock:"+userID)
}

// EncryptJSON encodes data as JSON and seals it under a fresh random 12-byte IV.
func EncryptJSON(data any, key *Key) (*CipherPayload, error) {
	if key == nil {
		return nil, ErrNoKey
	}
	plain, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	sealed := key.aead.Seal(nil, iv, plain, nil)
	return &CipherPayload{
		Cipher: base64.StdEncoding.EncodeToString(sealed),
		IV:     base64.StdEncoding.EncodeToString(iv),
	}, nil
}

// DecryptJSON opens payload and decodes the JSON into out. Tampering or a wrong
// key yields ErrDecrypt.
func DecryptJSON(payload CipherPayload, key *Key, out any) error {
	if key == nil {
		return ErrNoKey
	}
	sealed, err := base64.StdEncoding.DecodeString(payload.Cipher)
	if err != nil {
		return fmt.Errorf("%w: cipher encoding: %v", ErrDecrypt, err)
	}
	iv, err := base64.StdEncoding.DecodeString(payload.IV)
	if err != nil {
		return fmt.Errorf("%w: iv encoding: %v", ErrDecrypt, err)
	}
	if len(iv) != ivLength {
		return fmt.Errorf("%w: iv length %d", ErrDecrypt, len(iv))
	}

	plain, err := key.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	if err := json.Unmarshal(plain, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
