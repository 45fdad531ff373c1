package derive

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/events"
)

type AuctionStatus string

const (
	AuctionActive    AuctionStatus = "active"
	AuctionCompleted AuctionStatus = "completed"
	AuctionExpired   AuctionStatus = "expired"
)

var ErrMissingAuctionStart = errors.New("auction event group has no start event")

// DefaultAuctionMaxDuration bounds how long an unsettled auction stays live.
const DefaultAuctionMaxDuration = 30 * 24 * time.Hour

// DefaultReserveRatio is the consumer-facing reserve estimate as a fraction
// of the current price. Not a contractual reserve; kept configurable.
const DefaultReserveRatio = 0.5

type AuctionView struct {
	AuctionID  string `json:"auctionId"`
	LoanID     string `json:"loanId"`
	TokenID    string `json:"domainTokenId"`
	DomainName string `json:"domainName"`
	Borrower   string `json:"borrowerAddress"`

	StartingPrice  decimal.Decimal `json:"startingPrice"`
	CurrentPrice   decimal.Decimal `json:"currentPrice"`
	DecayPerSecond decimal.Decimal `json:"decayPerSecond"`
	ReservePrice   decimal.Decimal `json:"reservePrice"`

	Status    AuctionStatus `json:"status"`
	StartedAt time.Time     `json:"startedAt"`

	Bidder       *string          `json:"bidderAddress,omitempty"`
	FinalPrice   *decimal.Decimal `json:"finalPrice,omitempty"`
	RecoveryRate *float64         `json:"recoveryRate,omitempty"`
}

// PriceAt evaluates the Dutch decay curve: price falls 1% per day,
// compounding continuously, from the starting price. currentPrice =
// floor(startingPrice * 0.99^elapsedDays). decayPerSecond is the per-second
// decay implied by the current (not starting) price, for client-side
// countdown extrapolation. A future start time (clock skew) clamps to the
// starting price with zero decay instead of producing negative elapsed decay.
func PriceAt(startingPrice decimal.Decimal, startedAt, now time.Time) (current, decayPerSecond decimal.Decimal) {
	elapsedDays := now.Sub(startedAt).Seconds() / 86400
	if elapsedDays < 0 {
		return startingPrice, decimal.Zero
	}
	factor := math.Pow(0.99, elapsedDays)
	current = startingPrice.Mul(decimal.NewFromFloat(factor)).Floor()
	if current.Sign() < 0 {
		current = decimal.Zero
	}
	// floor(current * 0.01 / 86400)
	decayPerSecond = current.Div(decimal.NewFromInt(8_640_000)).Floor()
	return current, decayPerSecond
}

// ResolveAuctionStatus classifies the lifecycle: a recorded settlement wins,
// then expiry by elapsed time, otherwise the auction is live.
func ResolveAuctionStatus(group []events.AuctionEvent, startedAt, now time.Time, maxDuration time.Duration) AuctionStatus {
	if maxDuration <= 0 {
		maxDuration = DefaultAuctionMaxDuration
	}
	if settlement(group) != nil {
		return AuctionCompleted
	}
	if now.Sub(startedAt) >= maxDuration {
		return AuctionExpired
	}
	return AuctionActive
}

func settlement(group []events.AuctionEvent) *events.AuctionEvent {
	for i := range group {
		e := &group[i]
		if e.Type != events.AuctionBidPlaced && e.Type != events.AuctionEnded {
			continue
		}
		if isZeroAddress(e.Bidder) {
			continue
		}
		return e
	}
	return nil
}

func isZeroAddress(addr string) bool {
	if addr == "" {
		return true
	}
	for i := 0; i < len(addr); i++ {
		c := addr[i]
		if c != '0' && c != 'x' && c != 'X' {
			return false
		}
	}
	return true
}

// BuildAuctionView derives one auction from its ordered event group at the
// supplied instant.
func BuildAuctionView(auctionID string, group []events.AuctionEvent, now time.Time, maxDuration time.Duration, reserveRatio float64) (AuctionView, error) {
	if len(group) == 0 {
		return AuctionView{}, ErrMissingAuctionStart
	}
	var start *events.AuctionEvent
	for i := range group {
		if group[i].Type == events.AuctionStarted {
			start = &group[i]
			break
		}
	}
	if start == nil {
		return AuctionView{}, ErrMissingAuctionStart
	}
	if reserveRatio <= 0 || reserveRatio >= 1 {
		reserveRatio = DefaultReserveRatio
	}

	status := ResolveAuctionStatus(group, start.Timestamp, now, maxDuration)

	view := AuctionView{
		AuctionID:     auctionID,
		LoanID:        start.LoanID,
		TokenID:       start.TokenID,
		DomainName:    start.DomainName,
		Borrower:      start.Borrower,
		StartingPrice: start.StartingPrice,
		Status:        status,
		StartedAt:     start.Timestamp,
	}

	if sale := settlement(group); sale != nil {
		// Price is pinned at settlement; no decay after completion.
		view.CurrentPrice, view.DecayPerSecond = sale.BidPrice, decimal.Zero
		bidder := sale.Bidder
		final := sale.BidPrice
		view.Bidder = &bidder
		view.FinalPrice = &final
		if start.StartingPrice.Sign() > 0 {
			rate, _ := final.Div(start.StartingPrice).Float64()
			view.RecoveryRate = &rate
		}
	} else {
		view.CurrentPrice, view.DecayPerSecond = PriceAt(start.StartingPrice, start.Timestamp, now)
	}

	view.ReservePrice = view.CurrentPrice.Mul(decimal.NewFromFloat(reserveRatio)).Floor()
	return view, nil
}
