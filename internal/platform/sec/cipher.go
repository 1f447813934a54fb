// Copyright (c) 2026 Agora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrCrypto is returned for any cipher text that cannot be decoded,
// decrypted or unpadded.
var ErrCrypto = errors.New("sec: malformed cipher text")

const (
	cipherKeySize = 32
	cipherIVSize  = aes.BlockSize
)

// CipherConfig carries the process-wide key and IV for the authorization key cipher.
type CipherConfig struct {
	Key string
	IV  string
}

// Cipher wraps and unwraps authorization keys with AES-256-CBC and PKCS#7
// padding. Output is deterministic for a given key and IV.
type Cipher struct {
	block cipher.Block
	iv    []byte
}

// NewCipher builds a [Cipher]. The key is truncated or zero-padded to 32 bytes
// and the IV to 16 bytes.
func NewCipher(config CipherConfig) (*Cipher, error) {
	if config.Key == "" {
		return nil, errors.New("sec: cipher key must not be empty")
	}

	block, err := aes.NewCipher(fit(config.Key, cipherKeySize))
	if err != nil {
		return nil, fmt.Errorf("sec_new_cipher_failed: %w", err)
	}

	return &Cipher{block: block, iv: fit(config.IV, cipherIVSize)}, nil
}

// Encrypt returns the base64 (standard encoding) cipher text of plainText.
func (c *Cipher) Encrypt(plainText string) (string, error) {
	padded := pad([]byte(plainText), aes.BlockSize)
	out := make([]byte, len(padded))

	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses [Cipher.Encrypt]. Every failure is reported as [ErrCrypto].
func (c *Cipher) Decrypt(cipherText string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(cipherText)
	if err != nil {
		return "", fmt.Errorf("sec_decrypt_decode_failed: %w", ErrCrypto)
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("sec_decrypt_length_invalid: %w", ErrCrypto)
	}

	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, raw)

	plain, ok := unpad(out, aes.BlockSize)
	if !ok {
		return "", fmt.Errorf("sec_decrypt_padding_invalid: %w", ErrCrypto)
	}
	return string(plain), nil
}

// # Internal

// fit truncates or zero-pads s to exactly n bytes.
func fit(s string, n int) []byte {
	out := make([]byte, n)
	copy(out, s)
	return out
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, bool) {
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}
	return data[:len(data)-n], true
}
