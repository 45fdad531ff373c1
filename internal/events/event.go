package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Events are immutable facts emitted on chain and captured by the indexer.
// Amounts are integer minor units carried as decimals; the indexer reports
// timestamps inconsistently in seconds or milliseconds, so raw values go
// through NormalizeTimestamp before an event enters a group.

type LoanEventType string

const (
	LoanCreatedInstant     LoanEventType = "created_instant"
	LoanCreatedCrowdfunded LoanEventType = "created_crowdfunded"
	LoanRepaidFull         LoanEventType = "repaid_full"
	LoanLiquidated         LoanEventType = "liquidated"
	LoanCollateralReleased LoanEventType = "collateral_released"
)

// IsCreation reports whether the event type anchors a loan's lifecycle.
func (t LoanEventType) IsCreation() bool {
	return t == LoanCreatedInstant || t == LoanCreatedCrowdfunded
}

type LoanEvent struct {
	LoanID    string
	Type      LoanEventType
	Timestamp time.Time

	Borrower   string
	PoolID     string
	TokenID    string
	DomainName string

	Principal         decimal.Decimal
	InterestRateBps   int64
	RepaymentDeadline time.Time

	// Repayment / liquidation payload.
	Amount     decimal.Decimal
	Liquidator string
}

type PoolEventType string

const (
	PoolCreated          PoolEventType = "created"
	PoolLiquidityAdded   PoolEventType = "liquidity_added"
	PoolLiquidityRemoved PoolEventType = "liquidity_removed"
)

type PoolEvent struct {
	PoolID    string
	Type      PoolEventType
	Timestamp time.Time

	Provider string

	// Creation payload.
	Creator         string
	MinAIScore      int64
	InterestRateBps int64
	SeedLiquidity   decimal.Decimal

	// Liquidity delta for added/removed.
	Amount decimal.Decimal
}

type AuctionEventType string

const (
	AuctionStarted   AuctionEventType = "started"
	AuctionBidPlaced AuctionEventType = "bid_placed"
	AuctionEnded     AuctionEventType = "ended"
)

type AuctionEvent struct {
	AuctionID string
	Type      AuctionEventType
	Timestamp time.Time

	LoanID     string
	TokenID    string
	DomainName string
	Borrower   string

	StartingPrice decimal.Decimal

	// Settlement payload.
	Bidder   string
	BidPrice decimal.Decimal
}

// millisecondThreshold separates second-resolution unix timestamps from
// millisecond ones. Values below it are seconds (covers dates well past
// year 30000 in seconds, and anything after 2001 in milliseconds).
const millisecondThreshold = int64(1_000_000_000_000)

// NormalizeTimestamp converts a raw indexer timestamp to UTC wall-clock time.
// Returns false for non-positive values, which callers treat as a
// data-quality problem rather than an error.
func NormalizeTimestamp(raw int64) (time.Time, bool) {
	if raw <= 0 {
		return time.Time{}, false
	}
	if raw < millisecondThreshold {
		return time.Unix(raw, 0).UTC(), true
	}
	return time.UnixMilli(raw).UTC(), true
}
