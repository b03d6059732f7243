// Package crypto provides the passphrase-based cipher used to seal shared records.
//
// Blobs are produced as base64(salt || iv || ciphertext) where:
//   - salt and iv are each one AES block (16 bytes), fresh for every Seal
//   - the key is derived from the passphrase and salt with PBKDF2
//   - the plaintext is PKCS#7 padded and encrypted with AES-CBC
//
// Open reports every failure as ErrDecrypt so callers cannot tell a wrong
// passphrase apart from corrupted data.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	BlockSize  = aes.BlockSize
	SaltSize   = BlockSize
	IVSize     = BlockSize
	KeySize    = 32 // AES-256
	headerSize = SaltSize + IVSize
)

var (
	ErrInvalidKeyLength = errors.New("invalid key length")
	ErrDecrypt          = errors.New("decryption failed")
)

// KDFParams controls PBKDF2. Every peer sharing a slot must agree on them.
type KDFParams struct {
	Iterations int
	Hash       func() hash.Hash
}

// DefaultKDFParams are the parameters existing slots were written with.
var DefaultKDFParams = KDFParams{
	Iterations: 1000,
	Hash:       sha1.New,
}

// HashByName maps a config name to a PRF hash constructor.
func HashByName(name string) (func() hash.Hash, error) {
	switch name {
	case "", "sha1":
		return sha1.New, nil
	case "sha256":
		return sha256.New, nil
	default:
		return nil, fmt.Errorf("unknown kdf hash %q", name)
	}
}

// ValidKeyLength reports whether n selects AES-128, AES-192 or AES-256.
func ValidKeyLength(n int) bool {
	return n == 16 || n == 24 || n == 32
}

// DeriveKey derives a keyLen-byte key from a passphrase and salt.
func DeriveKey(passphrase, salt []byte, keyLen int, params KDFParams) ([]byte, error) {
	if !ValidKeyLength(keyLen) {
		return nil, ErrInvalidKeyLength
	}
	if params.Iterations <= 0 {
		params.Iterations = DefaultKDFParams.Iterations
	}
	if params.Hash == nil {
		params.Hash = DefaultKDFParams.Hash
	}
	return pbkdf2.Key(passphrase, salt, params.Iterations, keyLen, params.Hash), nil
}

// Cipher seals and opens blobs. The zero value uses AES-256 and DefaultKDFParams.
type Cipher struct {
	KeyLength int
	KDF       KDFParams
}

func (c Cipher) keyLength() int {
	if c.KeyLength == 0 {
		return KeySize
	}
	return c.KeyLength
}

// Seal encrypts plaintext under passphrase with a fresh salt and IV.
func (c Cipher) Seal(plaintext, passphrase []byte) ([]byte, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(rand.Reader, header); err != nil {
		return nil, fmt.Errorf("failed to generate salt and iv: %w", err)
	}
	salt, iv := header[:SaltSize], header[SaltSize:]

	key, err := DeriveKey(passphrase, salt, c.keyLength(), c.KDF)
	if err != nil {
		return nil, err
	}
	defer ClearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := pad(plaintext)
	raw := make([]byte, headerSize+len(padded))
	copy(raw, header)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(raw[headerSize:], padded)

	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out, nil
}

// Open reverses Seal. Any failure yields ErrDecrypt.
func (c Cipher) Open(blob, passphrase []byte) ([]byte, error) {
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(blob)))
	n, err := base64.StdEncoding.Decode(raw, blob)
	if err != nil {
		return nil, ErrDecrypt
	}
	raw = raw[:n]

	body := len(raw) - headerSize
	if body < BlockSize || body%BlockSize != 0 {
		return nil, ErrDecrypt
	}
	salt, iv := raw[:SaltSize], raw[SaltSize:headerSize]

	key, err := DeriveKey(passphrase, salt, c.keyLength(), c.KDF)
	if err != nil {
		return nil, err
	}
	defer ClearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrDecrypt
	}

	plaintext := make([]byte, body)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, raw[headerSize:])

	out, ok := unpad(plaintext)
	if !ok {
		return nil, ErrDecrypt
	}
	return out, nil
}

// Seal encrypts with the default Cipher.
func Seal(plaintext, passphrase []byte) ([]byte, error) {
	return Cipher{}.Seal(plaintext, passphrase)
}

// Open decrypts with the default Cipher.
func Open(blob, passphrase []byte) ([]byte, error) {
	return Cipher{}.Open(blob, passphrase)
}

// pad applies PKCS#7; a full block is appended when already aligned.
func pad(b []byte) []byte {
	n := BlockSize - len(b)%BlockSize
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

func unpad(b []byte) ([]byte, bool) {
	if len(b) == 0 || len(b)%BlockSize != 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > BlockSize {
		return nil, false
	}
	var bad byte
	for _, v := range b[len(b)-n:] {
		bad |= v ^ byte(n)
	}
	if bad != 0 {
		return nil, false
	}
	return b[:len(b)-n], true
}

// ClearBytes zeroes a sensitive buffer.
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
