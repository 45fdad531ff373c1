package indexer

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/events"
)

// FlexTimestamp tolerates the indexer's inconsistent timestamp encoding:
// JSON number or string, seconds or milliseconds. Zero means the value was
// absent or unparseable; grouping treats such events as malformed.
type FlexTimestamp struct {
	Raw int64
}

func (t *FlexTimestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		t.Raw = 0
		return nil
	}
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		// Swallow parse failures; callers see a zero timestamp and count
		// the event as a data-quality problem instead of failing the batch.
		t.Raw = 0
		return nil
	}
	t.Raw = v
	return nil
}

func (t FlexTimestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Raw)
}

type LoanEventDTO struct {
	LoanID            string          `json:"loanId"`
	EventType         string          `json:"eventType"`
	Timestamp         FlexTimestamp   `json:"timestamp"`
	Borrower          string          `json:"borrowerAddress"`
	PoolID            string          `json:"poolId"`
	TokenID           string          `json:"domainTokenId"`
	DomainName        string          `json:"domainName"`
	Principal         decimal.Decimal `json:"principalAmount"`
	InterestRateBps   int64           `json:"interestRateBps"`
	RepaymentDeadline FlexTimestamp   `json:"repaymentDeadline"`
	Amount            decimal.Decimal `json:"amount"`
	Liquidator        string          `json:"liquidatorAddress"`
}

type PoolEventDTO struct {
	PoolID          string          `json:"poolId"`
	EventType       string          `json:"eventType"`
	Timestamp       FlexTimestamp   `json:"timestamp"`
	Provider        string          `json:"providerAddress"`
	Creator         string          `json:"creatorAddress"`
	MinAIScore      int64           `json:"minAiScore"`
	InterestRateBps int64           `json:"interestRateBps"`
	SeedLiquidity   decimal.Decimal `json:"seedLiquidity"`
	Amount          decimal.Decimal `json:"amount"`
}

type AuctionEventDTO struct {
	AuctionID     string          `json:"auctionId"`
	EventType     string          `json:"eventType"`
	Timestamp     FlexTimestamp   `json:"timestamp"`
	LoanID        string          `json:"loanId"`
	TokenID       string          `json:"domainTokenId"`
	DomainName    string          `json:"domainName"`
	Borrower      string          `json:"borrowerAddress"`
	StartingPrice decimal.Decimal `json:"startingPrice"`
	Bidder        string          `json:"bidderAddress"`
	BidPrice      decimal.Decimal `json:"bidPrice"`
}

func (d LoanEventDTO) ToEvent() events.LoanEvent {
	ts, _ := events.NormalizeTimestamp(d.Timestamp.Raw)
	deadline, _ := events.NormalizeTimestamp(d.RepaymentDeadline.Raw)
	return events.LoanEvent{
		LoanID:            strings.TrimSpace(d.LoanID),
		Type:              events.LoanEventType(strings.TrimSpace(d.EventType)),
		Timestamp:         ts,
		Borrower:          strings.TrimSpace(d.Borrower),
		PoolID:            strings.TrimSpace(d.PoolID),
		TokenID:           strings.TrimSpace(d.TokenID),
		DomainName:        strings.ToLower(strings.TrimSpace(d.DomainName)),
		Principal:         d.Principal,
		InterestRateBps:   d.InterestRateBps,
		RepaymentDeadline: deadline,
		Amount:            d.Amount,
		Liquidator:        strings.TrimSpace(d.Liquidator),
	}
}

func (d PoolEventDTO) ToEvent() events.PoolEvent {
	ts, _ := events.NormalizeTimestamp(d.Timestamp.Raw)
	return events.PoolEvent{
		PoolID:          strings.TrimSpace(d.PoolID),
		Type:            events.PoolEventType(strings.TrimSpace(d.EventType)),
		Timestamp:       ts,
		Provider:        strings.TrimSpace(d.Provider),
		Creator:         strings.TrimSpace(d.Creator),
		MinAIScore:      d.MinAIScore,
		InterestRateBps: d.InterestRateBps,
		SeedLiquidity:   d.SeedLiquidity,
		Amount:          d.Amount,
	}
}

func (d AuctionEventDTO) ToEvent() events.AuctionEvent {
	ts, _ := events.NormalizeTimestamp(d.Timestamp.Raw)
	return events.AuctionEvent{
		AuctionID:     strings.TrimSpace(d.AuctionID),
		Type:          events.AuctionEventType(strings.TrimSpace(d.EventType)),
		Timestamp:     ts,
		LoanID:        strings.TrimSpace(d.LoanID),
		TokenID:       strings.TrimSpace(d.TokenID),
		DomainName:    strings.ToLower(strings.TrimSpace(d.DomainName)),
		Borrower:      strings.TrimSpace(d.Borrower),
		StartingPrice: d.StartingPrice,
		Bidder:        strings.TrimSpace(d.Bidder),
		BidPrice:      d.BidPrice,
	}
}
