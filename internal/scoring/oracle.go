package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// OracleClient talks to the remote AI valuation service. Scores are expensive
// to produce, so callers go through Service's cache rather than hitting the
// oracle directly.
type OracleClient struct {
	baseURL string
	http    *http.Client
}

func NewOracleClient(httpClient *http.Client, baseURL string) *OracleClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OracleClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    httpClient,
	}
}

type OracleScore struct {
	DomainName string          `json:"domainName"`
	TokenID    string          `json:"tokenId"`
	Score      int             `json:"score"`
	Confidence float64         `json:"confidence"`
	Breakdown  json.RawMessage `json:"breakdown"`
}

func (c *OracleClient) Score(ctx context.Context, domainName string) (*OracleScore, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("scoring oracle not configured")
	}
	domainName = strings.ToLower(strings.TrimSpace(domainName))
	if domainName == "" {
		return nil, fmt.Errorf("empty domain name")
	}
	path := fmt.Sprintf("/v1/score/%s", url.PathEscape(domainName))
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
		return nil, fmt.Errorf("scoring oracle http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out OracleScore
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if out.Score < 0 {
		out.Score = 0
	}
	if out.Score > 100 {
		out.Score = 100
	}
	return &out, nil
}
