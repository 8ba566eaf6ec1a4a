package token

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferRewardMintsBaseUnits(t *testing.T) {
	var got mintRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/mint", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(mintResponse{Signature: "sig-123"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 9)
	sig, err := c.TransferReward(context.Background(), "wallet-abc", 1.5)
	require.NoError(t, err)
	assert.Equal(t, "sig-123", sig)
	assert.Equal(t, "wallet-abc", got.WalletAddress)
	// 1.5 coins at 9 decimals
	assert.Equal(t, uint64(1_500_000_000), got.Amount)
}

func TestTransferRewardTreasuryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(mintResponse{Error: "mint authority unavailable"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 9)
	sig, err := c.TransferReward(context.Background(), "wallet-abc", 1)
	assert.Error(t, err)
	assert.Empty(t, sig)
}

func TestTransferRewardTreasuryErrorWithoutJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 9)
	sig, err := c.TransferReward(context.Background(), "wallet-abc", 1)
	require.Error(t, err)
	// The status code drives the error even when the body is not JSON.
	assert.Contains(t, err.Error(), "treasury returned 503")
	assert.Empty(t, sig)
}

func TestTransferRewardDisabledMirror(t *testing.T) {
	c := NewClient("", 9)
	sig, err := c.TransferReward(context.Background(), "wallet-abc", 1)
	require.NoError(t, err)
	assert.Empty(t, sig)
}

func TestTransferRewardSkipsDustAndMissingWallet(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 9)

	sig, err := c.TransferReward(context.Background(), "", 1)
	require.NoError(t, err)
	assert.Empty(t, sig)

	// Below one base unit nothing can be minted.
	sig, err = c.TransferReward(context.Background(), "wallet-abc", 1e-10)
	require.NoError(t, err)
	assert.Empty(t, sig)

	assert.False(t, called)
}
