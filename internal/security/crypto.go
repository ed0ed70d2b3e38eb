// Package security seals credential files at rest and builds TLS
// configuration for the HTTP API.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the size of the salt in bytes.
	SaltSize = 16
	// NonceSize is the size of the GCM nonce in bytes.
	NonceSize = 12
	// KeySizeAES is the AES-256 key size in bytes.
	KeySizeAES = 32
	// PBKDF2Iterations is the iteration count used for new envelopes.
	PBKDF2Iterations = 100000
	// SealedFileSuffix marks a sealed file.
	SealedFileSuffix = ".enc"

	envelopeVersion = 1
	kdfName         = "pbkdf2-sha256"
)

// additionalData binds ciphertexts to this envelope format.
var additionalData = []byte("alertd-sealed-v1")

// Envelope is the on-disk form of a sealed file.
type Envelope struct {
	Version    int    `json:"version"`
	KDF        string `json:"kdf"`
	Iterations int    `json:"iterations"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// deriveKey derives an AES-256 key from a passphrase and salt.
func deriveKey(passphrase, salt []byte, iterations int) []byte {
	return pbkdf2.Key(passphrase, salt, iterations, KeySizeAES, sha256.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext with AES-256-GCM under a key derived from passphrase.
func Seal(plaintext, passphrase []byte) (*Envelope, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("passphrase is required")
	}
	salt, err := randomBytes(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	nonce, err := randomBytes(NonceSize)
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	gcm, err := newGCM(deriveKey(passphrase, salt, PBKDF2Iterations))
	if err != nil {
		return nil, err
	}

	return &Envelope{
		Version:    envelopeVersion,
		KDF:        kdfName,
		Iterations: PBKDF2Iterations,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, plaintext, additionalData),
	}, nil
}

// Open decrypts an envelope produced by Seal.
func Open(env *Envelope, passphrase []byte) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("envelope is nil")
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	if env.KDF != kdfName {
		return nil, fmt.Errorf("unsupported key derivation %q", env.KDF)
	}
	if env.Iterations < 1 {
		return nil, fmt.Errorf("invalid iteration count %d", env.Iterations)
	}
	if len(env.Salt) != SaltSize {
		return nil, fmt.Errorf("invalid salt size: got %d, want %d", len(env.Salt), SaltSize)
	}
	if len(env.Nonce) != NonceSize {
		return nil, fmt.Errorf("invalid nonce size: got %d, want %d", len(env.Nonce), NonceSize)
	}

	gcm, err := newGCM(deriveKey(passphrase, env.Salt, env.Iterations))
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, env.Nonce, env.Ciphertext, additionalData)
	if err != nil {
		return nil, fmt.Errorf("decrypt: wrong passphrase or corrupted file")
	}
	return plaintext, nil
}

// IsSealedPath reports whether path names a sealed file.
func IsSealedPath(path string) bool {
	return strings.HasSuffix(path, SealedFileSuffix)
}

// ReadFile returns the contents of path, opening it first when it is sealed.
func ReadFile(path string, passphrase []byte) ([]byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if !IsSealedPath(path) {
		return content, nil
	}
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("passphrase required for sealed file %s", path)
	}

	var env Envelope
	if err := json.Unmarshal(content, &env); err != nil {
		return nil, fmt.Errorf("parse sealed file: %w", err)
	}
	return Open(&env, passphrase)
}

// WriteSealedFile seals plaintext and writes it with 0600 permissions. The
// .enc suffix is appended when missing; the final path is returned.
func WriteSealedFile(path string, plaintext, passphrase []byte) (string, error) {
	if !IsSealedPath(path) {
		path += SealedFileSuffix
	}

	env, err := Seal(plaintext, passphrase)
	if err != nil {
		return "", err
	}
	content, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}
	if err := os.WriteFile(path, content, 0600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}
