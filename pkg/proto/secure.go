package proto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// KeySize is the session key length: AES-128.
const KeySize = 16

var (
	// ErrProtocol marks an envelope that could not be parsed at all.
	ErrProtocol = errors.New("proto: malformed envelope")

	// ErrSequence marks a session id or packet counter that does not match
	// the receiver's expectation. Possible replay or desync; always fatal,
	// never resynchronized.
	ErrSequence = errors.New("proto: packet sequence violation")

	// ErrCrypto marks a decrypt or unpad failure under a well-formed envelope.
	ErrCrypto = errors.New("proto: decrypt failed")
)

// Envelope is the JSON wire form of an encrypted packet. The iv and data
// fields are base64; packet and session authenticate ordering and identity.
type Envelope struct {
	IV      string `json:"iv"`
	Data    string `json:"data"`
	Packet  uint64 `json:"packet"`
	Session uint64 `json:"session"`
}

// NewSessionKey generates a fresh random AES-128 session key.
func NewSessionKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}
	return key, nil
}

// Encode encrypts plaintext under key with a freshly generated IV
// (AES-128-CBC, PKCS#7 padding) and wraps it in the JSON envelope.
// The key is stable for a session's lifetime; the IV never repeats.
func Encode(plaintext, key []byte, sessionID, counter uint64) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("encode packet: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("encode packet: generate iv: %w", err)
	}

	padded := padPKCS7(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	env := Envelope{
		IV:      base64.StdEncoding.EncodeToString(iv),
		Data:    base64.StdEncoding.EncodeToString(ciphertext),
		Packet:  counter,
		Session: sessionID,
	}
	return json.Marshal(env)
}

// Decode validates and decrypts one envelope. Rejections, in priority order:
// a malformed envelope is ErrProtocol; a session or counter mismatch is
// ErrSequence; a decrypt/unpad failure is ErrCrypto. On any rejection the
// caller must terminate the session.
func Decode(frame, key []byte, wantSession, wantCounter uint64) ([]byte, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: bad iv encoding", ErrProtocol)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: bad data encoding", ErrProtocol)
	}

	if env.Session != wantSession || env.Packet != wantCounter {
		return nil, fmt.Errorf("%w: got session=%d packet=%d, want session=%d packet=%d",
			ErrSequence, env.Session, env.Packet, wantSession, wantCounter)
	}

	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("%w: iv length %d", ErrCrypto, len(iv))
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d", ErrCrypto, len(ciphertext))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := unpadPKCS7(plaintext, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	return unpadded, nil
}

func padPKCS7(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("bad padded length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("bad padding byte")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("inconsistent padding")
		}
	}
	return data[:len(data)-n], nil
}
