package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, expires, err := signer.Generate("pay-1", "2026/08/pay-1.pdf")
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	paymentID, relPath, _, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "pay-1", paymentID)
	assert.Equal(t, "2026/08/pay-1.pdf", relPath)
}

func TestSignedURLRejectsTamperedToken(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)

	token, _, err := signer.Generate("pay-1", "2026/08/pay-1.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token + "x")
	require.Error(t, err)
}

func TestSignedURLRejectsWrongSecret(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	other := NewSignedURLSigner("different", time.Minute)

	token, _, err := signer.Generate("pay-1", "proof.pdf")
	require.NoError(t, err)

	_, _, _, err = other.Parse(token)
	require.Error(t, err)
}

func TestSignedURLRejectsExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	signer.ttl = -time.Minute

	token, _, err := signer.Generate("pay-1", "proof.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token)
	require.Error(t, err)
}
