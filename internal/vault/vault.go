// Package vault seals opaque secrets for storage at rest. It has no
// knowledge of what it is sealing; callers hand it plaintext and get back
// a base64 blob, or hand it a blob and get back plaintext.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrUnsealFailed is returned for any blob that cannot be decrypted:
// malformed base64, truncated data, bad padding, or a rotated key. Callers
// must treat it as "no secret stored", not as a fatal error.
var ErrUnsealFailed = errors.New("vault: unseal failed")

type Vault struct {
	key []byte
}

// New builds a vault keyed by a 32-byte process-wide secret (AES-256).
func New(key []byte) (*Vault, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("vault: key must be 32 bytes, got %d", len(key))
	}
	k := make([]byte, 32)
	copy(k, key)
	return &Vault{key: k}, nil
}

// Seal encrypts plaintext with AES-256-CBC under a fresh random IV and
// returns base64(iv || ciphertext). Two calls on the same plaintext never
// produce the same blob.
func (v *Vault) Seal(plaintext string) (string, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", err
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	buf := make([]byte, aes.BlockSize+len(padded))
	iv := buf[:aes.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf[aes.BlockSize:], padded)
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Unseal reverses Seal. Every decode failure maps to ErrUnsealFailed so a
// corrupted or re-keyed blob degrades to "treat as disconnected".
func (v *Vault) Unseal(blob string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", ErrUnsealFailed
	}
	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return "", ErrUnsealFailed
	}

	block, err := aes.NewCipher(v.key)
	if err != nil {
		return "", ErrUnsealFailed
	}

	iv, ciphertext := raw[:aes.BlockSize], raw[aes.BlockSize:]
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)

	plain, ok := unpad(plain, aes.BlockSize)
	if !ok {
		return "", ErrUnsealFailed
	}
	return string(plain), nil
}

// PKCS#7
func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func unpad(b []byte, size int) ([]byte, bool) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, false
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}
