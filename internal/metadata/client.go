package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DomainMetadata describes the tokenized domain behind a loan or auction.
type DomainMetadata struct {
	TokenID    string `json:"tokenId"`
	DomainName string `json:"domainName"`
	TLD        string `json:"tld"`
	CharLength int    `json:"characterLength"`
	Owner      string `json:"ownerAddress"`
}

// Client looks up NFT metadata for domain tokens. Strictly best-effort: the
// aggregator treats any failure as missing metadata, never as a request
// failure.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    httpClient,
	}
}

func (c *Client) ByTokenID(ctx context.Context, tokenID string) (*DomainMetadata, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("metadata client not configured")
	}
	tokenID = strings.TrimSpace(tokenID)
	if tokenID == "" {
		return nil, fmt.Errorf("empty token id")
	}
	path := fmt.Sprintf("/v1/domains/%s", url.PathEscape(tokenID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("metadata http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out DomainMetadata
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	out.DomainName = strings.ToLower(strings.TrimSpace(out.DomainName))
	if out.DomainName != "" {
		if dot := strings.IndexByte(out.DomainName, '.'); dot > 0 {
			if out.CharLength == 0 {
				out.CharLength = dot
			}
			if out.TLD == "" {
				out.TLD = out.DomainName[dot+1:]
			}
		}
	}
	return &out, nil
}
