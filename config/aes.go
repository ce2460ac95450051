package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// AesGcmEncryptWithPassword encrypts a value for at-rest storage. The output
// is salt-nonce-ciphertext, hex encoded and dash separated.
func AesGcmEncryptWithPassword(value string, password string) (string, error) {
	salt := make([]byte, 8)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key := pbkdf2.Key([]byte(password), salt, 4096, 32, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(value), nil)

	return hex.EncodeToString(salt) + "-" + hex.EncodeToString(nonce) + "-" + hex.EncodeToString(ciphertext), nil
}

func AesGcmDecryptWithPassword(value string, password string) (string, error) {
	parts := strings.Split(value, "-")
	if len(parts) != 3 {
		return "", errors.New("invalid encrypted value format")
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", err
	}
	nonce, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", err
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", err
	}

	key := pbkdf2.Key([]byte(password), salt, 4096, 32, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(nonce) != gcm.NonceSize() {
		return "", errors.New("invalid nonce size")
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
