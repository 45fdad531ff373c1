package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/events"
)

// Client queries the external indexer's event API. The indexer is the only
// source of lending state; this service never writes to it.
type Client struct {
	baseURL string
	http    *http.Client

	pageLimit int
	maxPages  int
}

func NewClient(httpClient *http.Client, baseURL string, pageLimit, maxPages int) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if pageLimit <= 0 {
		pageLimit = 500
	}
	if maxPages <= 0 {
		maxPages = 40
	}
	return &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:      httpClient,
		pageLimit: pageLimit,
		maxPages:  maxPages,
	}
}

// EventFilter narrows an event query at the source. Derivation still needs an
// entity's complete history, so filters select entities, never slices of one
// entity's events.
type EventFilter struct {
	EntityID  string
	Address   string
	EventType string
}

type eventPage[D any] struct {
	Items   []D  `json:"items"`
	HasNext bool `json:"hasNext"`
}

func (c *Client) LoanEvents(ctx context.Context, filter EventFilter) ([]events.LoanEvent, error) {
	dtos, err := fetchAll[LoanEventDTO](ctx, c, "/v1/events/loans", "loanId", filter)
	if err != nil {
		return nil, err
	}
	out := make([]events.LoanEvent, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.ToEvent())
	}
	return out, nil
}

func (c *Client) PoolEvents(ctx context.Context, filter EventFilter) ([]events.PoolEvent, error) {
	dtos, err := fetchAll[PoolEventDTO](ctx, c, "/v1/events/pools", "poolId", filter)
	if err != nil {
		return nil, err
	}
	out := make([]events.PoolEvent, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.ToEvent())
	}
	return out, nil
}

func (c *Client) AuctionEvents(ctx context.Context, filter EventFilter) ([]events.AuctionEvent, error) {
	dtos, err := fetchAll[AuctionEventDTO](ctx, c, "/v1/events/auctions", "auctionId", filter)
	if err != nil {
		return nil, err
	}
	out := make([]events.AuctionEvent, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.ToEvent())
	}
	return out, nil
}

func fetchAll[D any](ctx context.Context, c *Client, path, idParam string, filter EventFilter) ([]D, error) {
	var all []D
	for page := 0; page < c.maxPages; page++ {
		params := url.Values{}
		if filter.EntityID != "" {
			params.Set(idParam, filter.EntityID)
		}
		if filter.Address != "" {
			params.Set("address", filter.Address)
		}
		if filter.EventType != "" {
			params.Set("eventType", filter.EventType)
		}
		params.Set("limit", strconv.Itoa(c.pageLimit))
		params.Set("offset", strconv.Itoa(page*c.pageLimit))

		var pageResp eventPage[D]
		if err := c.getJSON(ctx, path+"?"+params.Encode(), &pageResp); err != nil {
			return nil, err
		}
		all = append(all, pageResp.Items...)
		if !pageResp.HasNext || len(pageResp.Items) == 0 {
			break
		}
	}
	return all, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if c == nil || c.baseURL == "" {
		return fmt.Errorf("indexer client not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("indexer http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}
