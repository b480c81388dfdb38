package crypt_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cathai/invoice-backend/pkg/crypt"
)

func TestSealer(t *testing.T) {
	s, err := crypt.New("my key")
	require.NoError(t, err)

	sealed, err := s.Encrypt(bytes.NewReader([]byte("hello world")))
	require.NoError(t, err)
	sealedBytes, err := io.ReadAll(sealed)
	require.NoError(t, err)
	assert.NotContains(t, string(sealedBytes), "hello world")

	plain, err := s.Decrypt(bytes.NewReader(sealedBytes))
	require.NoError(t, err)
	b, err := io.ReadAll(plain)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(b))

	other, err := crypt.New("another key")
	require.NoError(t, err)
	_, err = other.Decrypt(bytes.NewReader(sealedBytes))
	assert.Error(t, err)
}

func TestNew_EmptyPassphrase(t *testing.T) {
	_, err := crypt.New("")
	assert.Error(t, err)
}
