package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// salt is fixed so the same passphrase always opens older attachments.
var salt = []byte("invoice-backend/attachments")

// Sealer encrypts attachments with AES-GCM. The nonce is stored in front of
// the ciphertext.
type Sealer struct {
	gcm cipher.AEAD
}

func New(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase is empty")
	}
	key := pbkdf2.Key([]byte(passphrase), salt, 4096, 32, sha256.New)

	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(c)
	if err != nil {
		return nil, err
	}
	return &Sealer{gcm: gcm}, nil
}

func (s *Sealer) Encrypt(input io.Reader) (io.ReadSeeker, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	plainText, err := io.ReadAll(input)
	if err != nil {
		return nil, err
	}

	sealed := s.gcm.Seal(nonce, nonce, plainText, nil)
	return bytes.NewReader(sealed), nil
}

func (s *Sealer) Decrypt(input io.Reader) (io.ReadSeeker, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(input, nonce); err != nil {
		return nil, fmt.Errorf("unable to read nonce: %w", err)
	}

	cipherText, err := io.ReadAll(input)
	if err != nil {
		return nil, err
	}

	plainText, err := s.gcm.Open(nil, nonce, cipherText, nil)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(plainText), nil
}
