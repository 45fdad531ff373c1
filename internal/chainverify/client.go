package chainverify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
)

// ownerOf(uint256) selector.
const ownerOfSelector = "0x6352211e"

// Client confirms on chain that a domain token is actually held by the
// auction contract before an auction is surfaced as live. It defends against
// stale or premature liquidation events in the indexer; a failed call means
// the check is skipped, not that the auction is hidden.
type Client struct {
	rpcURL   string
	contract string
	http     *http.Client
}

func NewClient(httpClient *http.Client, rpcURL, nftContract string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		rpcURL:   strings.TrimSpace(rpcURL),
		contract: strings.ToLower(strings.TrimSpace(nftContract)),
		http:     httpClient,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// OwnerOf returns the current owner address of a domain token.
func (c *Client) OwnerOf(ctx context.Context, tokenID string) (string, error) {
	if c == nil || c.rpcURL == "" || c.contract == "" {
		return "", fmt.Errorf("chain verification not configured")
	}
	data, err := encodeOwnerOf(tokenID)
	if err != nil {
		return "", err
	}

	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "eth_call",
		Params: []any{
			map[string]string{"to": c.contract, "data": data},
			"latest",
		},
		ID: 1,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("rpc http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out rpcResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if out.Error != nil {
		return "", fmt.Errorf("rpc error %d: %s", out.Error.Code, out.Error.Message)
	}
	return decodeAddress(out.Result)
}

// HeldBy reports whether the token is currently owned by the given address.
func (c *Client) HeldBy(ctx context.Context, tokenID, holder string) (bool, error) {
	owner, err := c.OwnerOf(ctx, tokenID)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(owner, strings.TrimSpace(holder)), nil
}

func encodeOwnerOf(tokenID string) (string, error) {
	tokenID = strings.TrimSpace(tokenID)
	id := new(big.Int)
	var ok bool
	if strings.HasPrefix(tokenID, "0x") || strings.HasPrefix(tokenID, "0X") {
		_, ok = id.SetString(tokenID[2:], 16)
	} else {
		_, ok = id.SetString(tokenID, 10)
	}
	if !ok || id.Sign() < 0 {
		return "", fmt.Errorf("invalid token id %q", tokenID)
	}
	return ownerOfSelector + fmt.Sprintf("%064x", id), nil
}

func decodeAddress(result string) (string, error) {
	result = strings.TrimPrefix(strings.TrimSpace(result), "0x")
	if len(result) < 64 {
		return "", fmt.Errorf("short rpc result %q", result)
	}
	// The address sits in the low 20 bytes of the 32-byte word.
	return "0x" + strings.ToLower(result[len(result)-40:]), nil
}
