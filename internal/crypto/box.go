// Package crypto implements the end-to-end encryption layer for direct
// messages. Messages are sealed with NaCl box (X25519 key agreement,
// XSalsa20-Poly1305 authenticated encryption) under the sender's secret
// key and the recipient's public key, with a fresh random nonce per call.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

const (
	// KeySize is the length of both public and secret keys.
	KeySize = 32
	// NonceSize is the length of a box nonce.
	NonceSize = 24
	// Overhead is the number of bytes Seal adds on top of the plaintext.
	Overhead = box.Overhead
)

var (
	// ErrCryptoInit indicates the platform random source was unavailable.
	ErrCryptoInit = errors.New("crypto: secure random source unavailable")

	// ErrDecryptionFailed indicates authentication failure on Open. It is
	// deliberately indistinct: a tampered ciphertext, a wrong key pair and
	// transit corruption all produce this same error.
	ErrDecryptionFailed = errors.New("crypto: decryption failed")
)

// KeyPair is an agent's long-term asymmetric identity. The secret key
// never leaves the local machine and must never be logged or serialized
// into any outbound message.
type KeyPair struct {
	Public [KeySize]byte
	Secret [KeySize]byte
}

// GenerateKeyPair produces a fresh X25519 key pair from the platform
// random source.
func GenerateKeyPair() (KeyPair, error) {
	pub, sec, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: %v", ErrCryptoInit, err)
	}
	return KeyPair{Public: *pub, Secret: *sec}, nil
}

// Seal encrypts plaintext from sender to recipient. The returned nonce is
// freshly drawn from the random source on every call; two seals under the
// same key pair never share a nonce.
func Seal(plaintext []byte, senderSecret, recipientPublic *[KeySize]byte) (nonce [NonceSize]byte, ciphertext []byte, err error) {
	if _, err = rand.Read(nonce[:]); err != nil {
		return nonce, nil, fmt.Errorf("%w: %v", ErrCryptoInit, err)
	}
	ciphertext = box.Seal(nil, plaintext, &nonce, recipientPublic, senderSecret)
	return nonce, ciphertext, nil
}

// Open decrypts and authenticates a sealed message. Any failure — wrong
// keys, flipped bits, truncation — yields ErrDecryptionFailed.
func Open(nonce [NonceSize]byte, ciphertext []byte, recipientSecret, senderPublic *[KeySize]byte) ([]byte, error) {
	plaintext, ok := box.Open(nil, ciphertext, &nonce, senderPublic, recipientSecret)
	if !ok {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// EncodeKey renders a key as standard base64 for storage and wire use.
func EncodeKey(key [KeySize]byte) string {
	return base64.StdEncoding.EncodeToString(key[:])
}

// DecodeKey parses a base64 key, rejecting wrong-length material.
func DecodeKey(s string) ([KeySize]byte, error) {
	var key [KeySize]byte
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return key, fmt.Errorf("invalid base64 key: %w", err)
	}
	if len(raw) != KeySize {
		return key, fmt.Errorf("invalid key length: %d, expected %d", len(raw), KeySize)
	}
	copy(key[:], raw)
	return key, nil
}

// EncodeNonce renders a nonce as standard base64.
func EncodeNonce(nonce [NonceSize]byte) string {
	return base64.StdEncoding.EncodeToString(nonce[:])
}

// DecodeNonce parses a base64 nonce, rejecting wrong-length material.
func DecodeNonce(s string) ([NonceSize]byte, error) {
	var nonce [NonceSize]byte
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nonce, fmt.Errorf("invalid base64 nonce: %w", err)
	}
	if len(raw) != NonceSize {
		return nonce, fmt.Errorf("invalid nonce length: %d, expected %d", len(raw), NonceSize)
	}
	copy(nonce[:], raw)
	return nonce, nil
}
