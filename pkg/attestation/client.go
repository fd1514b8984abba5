// Package attestation fetches burn attestations from the off-chain oracle
// and polls until one is available.
package attestation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// StatusComplete is the oracle status for a signed attestation
const StatusComplete = "complete"

// ErrNotAvailable means the oracle has no signed attestation for the hash yet
var ErrNotAvailable = errors.New("attestation not yet available")

// Response is the oracle's attestation document
type Response struct {
	Status      string `json:"status"`
	Attestation string `json:"attestation"`
}

// Client queries GET <baseURL>/<messageHash without 0x>
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an oracle client. A nil httpClient gets one with requestTimeout.
func NewClient(baseURL string, requestTimeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Fetch returns the 0x-prefixed attestation for messageHash, or an error
// wrapping ErrNotAvailable while the oracle is still signing.
func (c *Client) Fetch(ctx context.Context, messageHash string) (string, error) {
	endpoint := c.baseURL + "/" + url.PathEscape(strings.TrimPrefix(messageHash, "0x"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build attestation request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("attestation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", ErrNotAvailable
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("attestation service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode attestation response: %w", err)
	}

	if out.Status != StatusComplete {
		return "", fmt.Errorf("status %q: %w", out.Status, ErrNotAvailable)
	}

	attestation := out.Attestation
	if !strings.HasPrefix(attestation, "0x") {
		attestation = "0x" + attestation
	}
	raw, err := hexutil.Decode(attestation)
	if err != nil || len(raw) == 0 {
		return "", fmt.Errorf("malformed attestation %q: %w", out.Attestation, ErrNotAvailable)
	}
	return hexutil.Encode(raw), nil
}
