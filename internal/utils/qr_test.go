package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAndVerifyQR(t *testing.T) {
	payload := BuildQR(QRCheckIn, 42)
	assert.True(t, strings.HasPrefix(payload, "antiapp://check-in/42?n="))

	cafeID, err := VerifyQR(payload, QRCheckIn)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cafeID)

	// Two payloads for the same café differ by nonce.
	assert.NotEqual(t, payload, BuildQR(QRCheckIn, 42))
}

func TestVerifyQRWrongAction(t *testing.T) {
	payload := BuildQR(QRCheckOut, 7)
	_, err := VerifyQR(payload, QRCheckIn)
	assert.ErrorIs(t, err, ErrInvalidQR)
}

func TestVerifyQRRejectsGarbage(t *testing.T) {
	for _, payload := range []string{
		"",
		"not a url",
		"https://check-in/42",
		"antiapp://check-in/",
		"antiapp://check-in/0",
		"antiapp://check-in/abc",
		"antiapp://42",
	} {
		_, err := VerifyQR(payload, QRCheckIn)
		assert.ErrorIs(t, err, ErrInvalidQR, "payload %q", payload)
	}
}

func TestVerifyQRTrimsWhitespace(t *testing.T) {
	cafeID, err := VerifyQR("  "+BuildQR(QRCheckOut, 9)+"\n", QRCheckOut)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), cafeID)
}
