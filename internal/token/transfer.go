// Package token mirrors earned coins to the external treasury mint
// service.  The mirror is strictly best-effort: the internal balance
// is the source of truth, a failed mint is logged and surfaced as a
// warning, and nothing here can roll back a ledger credit.
package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"
)

// Client calls the treasury service that holds the mint authority.
// The treasury exposes POST {base}/mint accepting a wallet address
// and an integer amount in base units (coins shifted by the token's
// decimals).
type Client struct {
	base     string
	decimals int
	http     *http.Client
}

// NewClient builds a Client for the given treasury base URL.  An
// empty base URL disables mirroring: TransferReward becomes a no-op
// reporting success with an empty reference, which keeps local and
// test environments free of a treasury dependency.
func NewClient(baseURL string, decimals int) *Client {
	return &Client{
		base:     baseURL,
		decimals: decimals,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

type mintRequest struct {
	WalletAddress string `json:"wallet_address"`
	Amount        uint64 `json:"amount"` // base units
}

type mintResponse struct {
	Signature string `json:"signature"`
	Error     string `json:"error,omitempty"`
}

// TransferReward asks the treasury to mint the given coin amount to
// the wallet and returns the transaction signature.  Amounts are
// truncated to base units so the mirror can never mint more than the
// ledger credited.
func (c *Client) TransferReward(ctx context.Context, walletAddr string, amount float64) (string, error) {
	if c.base == "" || walletAddr == "" || amount <= 0 {
		return "", nil
	}
	baseUnits := uint64(math.Floor(amount * math.Pow10(c.decimals)))
	if baseUnits == 0 {
		return "", nil
	}
	body, err := json.Marshal(mintRequest{WalletAddress: walletAddr, Amount: baseUnits})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/mint", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("token: mint request failed: %v", err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Decode best effort: gateways in front of the treasury may
		// answer 5xx with a non-JSON body.
		var out mintResponse
		_ = json.NewDecoder(resp.Body).Decode(&out)
		err := fmt.Errorf("treasury returned %d: %s", resp.StatusCode, out.Error)
		log.Printf("token: %v", err)
		return "", err
	}
	var out mintResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Printf("token: decode mint response failed: %v", err)
		return "", err
	}
	return out.Signature, nil
}
