package checksum

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Paytm-compatible checksum codec. The wire format is fixed by the gateway:
// HMAC-SHA256 over the canonical parameter string plus a random salt,
// base64-encoded, salt appended, AES-CBC encrypted with a fixed IV.
const (
	iv           = "@@@@&&&&####$$$$"
	saltLength   = 4
	saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// FieldChecksum is the parameter carrying the checksum itself; it is always
	// excluded from the canonical string during verification.
	FieldChecksum = "CHECKSUMHASH"
)

// Sign canonicalizes params (keys sorted ascending, empty values dropped,
// joined as k=v pairs with &), appends a fresh random salt, signs with
// HMAC-SHA256 under key and returns the encrypted digest+salt blob.
// The salt varies per call so the same parameter set never yields the same
// checksum twice.
func Sign(params map[string]string, key string) (string, error) {
	salt, err := randomSalt()
	if err != nil {
		return "", fmt.Errorf("failed to generate checksum salt: %w", err)
	}

	digest := signature(canonical(params)+salt, key)

	encrypted, err := encrypt(digest+salt, key)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt checksum: %w", err)
	}

	return encrypted, nil
}

// Verify decrypts the checksum, splits off the trailing salt, recomputes the
// digest over the canonical parameter string and compares byte-for-byte.
// It gates acceptance of untrusted input, so every decryption or format
// failure is logged and reported as false, never as an error.
func Verify(params map[string]string, key, checksum string) bool {
	plaintext, err := decrypt(checksum, key)
	if err != nil {
		log.Warn().Err(err).Msg("checksum verification failed to decrypt")

		return false
	}

	if len(plaintext) <= saltLength {
		log.Warn().Msg("checksum verification got a short plaintext")

		return false
	}

	salt := plaintext[len(plaintext)-saltLength:]
	expected := plaintext[:len(plaintext)-saltLength]

	filtered := make(map[string]string, len(params))
	for k, v := range params {
		if k == FieldChecksum {
			continue
		}

		filtered[k] = v
	}

	computed := signature(canonical(filtered)+salt, key)

	return subtle.ConstantTimeCompare([]byte(computed), []byte(expected)) == 1
}

func canonical(params map[string]string) string {
	keys := make([]string, 0, len(params))

	for k, v := range params {
		if v == "" {
			continue
		}

		keys = append(keys, k)
	}

	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	return strings.Join(pairs, "&")
}

func signature(params, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(params))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func randomSalt() (string, error) {
	buf := make([]byte, saltLength)

	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = saltAlphabet[int(b)%len(saltAlphabet)]
	}

	return string(buf), nil
}

func encrypt(input, key string) (string, error) {
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(input), block.BlockSize())
	out := make([]byte, len(padded))

	cipher.NewCBCEncrypter(block, []byte(iv)).CryptBlocks(out, padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

func decrypt(input, key string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(input)
	if err != nil {
		return "", fmt.Errorf("failed to decode checksum: %w", err)
	}

	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	if len(raw) == 0 || len(raw)%block.BlockSize() != 0 {
		return "", fmt.Errorf("checksum length %d is not a multiple of the block size", len(raw))
	}

	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, []byte(iv)).CryptBlocks(out, raw)

	unpadded, err := pkcs7Unpad(out, block.BlockSize())
	if err != nil {
		return "", err
	}

	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+padding)

	copy(out, data)

	for i := len(data); i < len(out); i++ {
		out[i] = byte(padding)
	}

	return out
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty plaintext")
	}

	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, fmt.Errorf("invalid padding length %d", padding)
	}

	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("malformed padding")
		}
	}

	return data[:len(data)-padding], nil
}
