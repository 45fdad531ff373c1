package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/derive"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/events"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/indexer"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/metadata"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/scoring"
)

type stubSource struct {
	loans    []events.LoanEvent
	pools    []events.PoolEvent
	auctions []events.AuctionEvent
}

func (s *stubSource) LoanEvents(ctx context.Context, f indexer.EventFilter) ([]events.LoanEvent, error) {
	if f.EntityID == "" {
		return s.loans, nil
	}
	var out []events.LoanEvent
	for _, e := range s.loans {
		if e.LoanID == f.EntityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubSource) PoolEvents(ctx context.Context, f indexer.EventFilter) ([]events.PoolEvent, error) {
	if f.EntityID == "" {
		return s.pools, nil
	}
	var out []events.PoolEvent
	for _, e := range s.pools {
		if e.PoolID == f.EntityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubSource) AuctionEvents(ctx context.Context, f indexer.EventFilter) ([]events.AuctionEvent, error) {
	if f.EntityID == "" {
		return s.auctions, nil
	}
	var out []events.AuctionEvent
	for _, e := range s.auctions {
		if e.AuctionID == f.EntityID {
			out = append(out, e)
		}
	}
	return out, nil
}

type stubScores struct {
	byDomain map[string]scoring.DomainScore
	fail     bool
}

func (s *stubScores) Get(ctx context.Context, domain string) (scoring.DomainScore, error) {
	if s.fail {
		return scoring.DomainScore{DomainName: domain}, nil
	}
	return s.byDomain[domain], nil
}

func (s *stubScores) GetBatch(ctx context.Context, domains []string) map[string]scoring.DomainScore {
	out := map[string]scoring.DomainScore{}
	if s.fail {
		return out
	}
	for _, d := range domains {
		if v, ok := s.byDomain[d]; ok {
			out[d] = v
		}
	}
	return out
}

type stubMetadata struct {
	byToken map[string]*metadata.DomainMetadata
	err     error
}

func (s *stubMetadata) ByTokenID(ctx context.Context, tokenID string) (*metadata.DomainMetadata, error) {
	if s.err != nil {
		return nil, s.err
	}
	md, ok := s.byToken[tokenID]
	if !ok {
		return nil, errors.New("not found")
	}
	return md, nil
}

type stubVerifier struct {
	heldTokens map[string]bool
	err        error
}

func (s *stubVerifier) HeldBy(ctx context.Context, tokenID, holder string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.heldTokens[tokenID], nil
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
}

func loanEvents(now time.Time) []events.LoanEvent {
	return []events.LoanEvent{
		{
			LoanID: "loan-1", Type: events.LoanCreatedInstant, Timestamp: now.AddDate(0, 0, -10),
			Borrower: "0xAAAA", PoolID: "pool-1", TokenID: "101", DomainName: "alpha.io",
			Principal: decimal.NewFromInt(500_000_000), InterestRateBps: 500,
			RepaymentDeadline: now.AddDate(0, 0, 20),
		},
		{
			LoanID: "loan-2", Type: events.LoanCreatedInstant, Timestamp: now.AddDate(0, 0, -40),
			Borrower: "0xBBBB", PoolID: "pool-1", TokenID: "102", DomainName: "beta.io",
			Principal: decimal.NewFromInt(100_000_000), InterestRateBps: 800,
			RepaymentDeadline: now.AddDate(0, 0, -10),
		},
		{LoanID: "loan-2", Type: events.LoanLiquidated, Timestamp: now.AddDate(0, 0, -5)},
		// Orphan terminal event; no creation in its group.
		{LoanID: "loan-x", Type: events.LoanRepaidFull, Timestamp: now.AddDate(0, 0, -1)},
	}
}

func newTestAggregator(src *stubSource) *Aggregator {
	return &Aggregator{
		Source: src,
		Now:    fixedNow,
	}
}

func TestLoans_DerivesFiltersAndExcludesAnomalies(t *testing.T) {
	now := fixedNow()
	agg := newTestAggregator(&stubSource{loans: loanEvents(now)})

	items, total, err := agg.Loans(context.Background(), LoanQuery{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if total != 2 {
		t.Fatalf("total=%d want 2 (anomalous loan-x excluded)", total)
	}
	if len(items) != 2 {
		t.Fatalf("items=%d want 2", len(items))
	}

	liq, _, err := agg.Loans(context.Background(), LoanQuery{Status: "liquidated"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(liq) != 1 || liq[0].LoanID != "loan-2" {
		t.Fatalf("liquidated filter got %v", liq)
	}
}

func TestLoans_FilterRunsAfterFullDerivation(t *testing.T) {
	// loan-2's history ends in liquidation even though its deadline has also
	// passed; filtering by overdue must not surface it.
	now := fixedNow()
	agg := newTestAggregator(&stubSource{loans: loanEvents(now)})
	overdue, _, err := agg.Loans(context.Background(), LoanQuery{Status: "overdue"})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(overdue) != 0 {
		t.Fatalf("overdue=%v want none: terminal outcome outranks deadline", overdue)
	}
}

func TestLoans_SortAndPaginate(t *testing.T) {
	now := fixedNow()
	agg := newTestAggregator(&stubSource{loans: loanEvents(now)})
	items, total, err := agg.Loans(context.Background(), LoanQuery{SortBy: "amount", Page: 1, Limit: 1})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if total != 2 {
		t.Fatalf("total=%d want 2", total)
	}
	if len(items) != 1 || items[0].LoanID != "loan-1" {
		t.Fatalf("page 1 by amount got %v want loan-1 (largest principal)", items)
	}
	page2, _, err := agg.Loans(context.Background(), LoanQuery{SortBy: "amount", Page: 2, Limit: 1})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(page2) != 1 || page2[0].LoanID != "loan-2" {
		t.Fatalf("page 2 by amount got %v want loan-2", page2)
	}
}

func TestLoans_EnrichmentFailureIsIsolated(t *testing.T) {
	now := fixedNow()
	agg := newTestAggregator(&stubSource{loans: loanEvents(now)})
	agg.Scores = &stubScores{byDomain: map[string]scoring.DomainScore{
		"alpha.io": {DomainName: "alpha.io", Score: 87, Cached: true},
	}}
	agg.Metadata = &stubMetadata{err: errors.New("metadata service down")}

	items, _, err := agg.Loans(context.Background(), LoanQuery{})
	if err != nil {
		t.Fatalf("batch failed on enrichment error: %v", err)
	}
	for _, it := range items {
		switch it.LoanID {
		case "loan-1":
			if it.AIScore != 87 || !it.ScoreCached {
				t.Fatalf("loan-1 score=%d cached=%v want 87/true", it.AIScore, it.ScoreCached)
			}
		case "loan-2":
			if it.AIScore != 0 {
				t.Fatalf("loan-2 score=%d want 0 fallback", it.AIScore)
			}
		}
	}
}

func TestLoan_Detail(t *testing.T) {
	now := fixedNow()
	agg := newTestAggregator(&stubSource{loans: loanEvents(now)})
	view, err := agg.Loan(context.Background(), "loan-1")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if view.Status != derive.LoanActive {
		t.Fatalf("status=%s want active", view.Status)
	}
	if _, err := agg.Loan(context.Background(), "loan-x"); err != ErrNotFound {
		t.Fatalf("anomalous loan err=%v want ErrNotFound", err)
	}
	if _, err := agg.Loan(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("missing loan err=%v want ErrNotFound", err)
	}
}

func TestAuctions_OwnershipGuard(t *testing.T) {
	now := fixedNow()
	src := &stubSource{auctions: []events.AuctionEvent{
		{
			AuctionID: "auc-1", Type: events.AuctionStarted, Timestamp: now.AddDate(0, 0, -1),
			TokenID: "101", StartingPrice: decimal.NewFromInt(1_000_000),
		},
		{
			AuctionID: "auc-2", Type: events.AuctionStarted, Timestamp: now.AddDate(0, 0, -1),
			TokenID: "102", StartingPrice: decimal.NewFromInt(2_000_000),
		},
	}}
	agg := newTestAggregator(src)
	agg.AuctionContract = "0xcontract"
	agg.Verify = &stubVerifier{heldTokens: map[string]bool{"101": true, "102": false}}

	items, total, err := agg.Auctions(context.Background(), AuctionQuery{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if total != 1 || items[0].AuctionID != "auc-1" {
		t.Fatalf("guard kept %v want only auc-1", items)
	}
}

func TestAuctions_GuardOutageDoesNotHide(t *testing.T) {
	now := fixedNow()
	src := &stubSource{auctions: []events.AuctionEvent{
		{
			AuctionID: "auc-1", Type: events.AuctionStarted, Timestamp: now.AddDate(0, 0, -1),
			TokenID: "101", StartingPrice: decimal.NewFromInt(1_000_000),
		},
	}}
	agg := newTestAggregator(src)
	agg.AuctionContract = "0xcontract"
	agg.Verify = &stubVerifier{err: errors.New("rpc down")}

	items, _, err := agg.Auctions(context.Background(), AuctionQuery{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items=%d want 1: verification outage must not hide auctions", len(items))
	}
}

func TestDashboard_Rollup(t *testing.T) {
	now := fixedNow()
	src := &stubSource{
		loans: loanEvents(now),
		pools: []events.PoolEvent{
			{
				PoolID: "pool-1", Type: events.PoolCreated, Timestamp: now.AddDate(0, 0, -60),
				Creator: "0xCCCC", SeedLiquidity: decimal.NewFromInt(1_000_000),
			},
			{
				PoolID: "pool-1", Type: events.PoolLiquidityAdded, Timestamp: now.AddDate(0, 0, -30),
				Provider: "0xDDDD", Amount: decimal.NewFromInt(500_000),
			},
		},
		auctions: []events.AuctionEvent{{
			AuctionID: "auc-1", Type: events.AuctionStarted, Timestamp: now.AddDate(0, 0, -2),
			LoanID: "loan-2", StartingPrice: decimal.NewFromInt(120_000_000),
		}},
	}
	agg := newTestAggregator(src)
	view, err := agg.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if view.TotalLoans != 2 || view.ActiveLoans != 1 || view.LiquidatedLoans != 1 {
		t.Fatalf("loan counts=%+v", view)
	}
	if view.TotalLoanVolume.Cmp(decimal.NewFromInt(600_000_000)) != 0 {
		t.Fatalf("volume=%s want 600000000", view.TotalLoanVolume)
	}
	if view.TotalPools != 1 || view.ActivePools != 1 {
		t.Fatalf("pool counts=%+v", view)
	}
	if view.TotalLiquidity.Cmp(decimal.NewFromInt(1_500_000)) != 0 {
		t.Fatalf("liquidity=%s want 1500000", view.TotalLiquidity)
	}
	if view.TotalAuctions != 1 || view.ActiveAuctions != 1 {
		t.Fatalf("auction counts=%+v", view)
	}
}

func TestPortfolio_BothSides(t *testing.T) {
	now := fixedNow()
	src := &stubSource{
		loans: loanEvents(now),
		pools: []events.PoolEvent{
			{
				PoolID: "pool-1", Type: events.PoolCreated, Timestamp: now.AddDate(0, 0, -60),
				Creator: "0xAAAA", SeedLiquidity: decimal.NewFromInt(1_000_000),
			},
			{
				PoolID: "pool-1", Type: events.PoolLiquidityRemoved, Timestamp: now.AddDate(0, 0, -10),
				Provider: "0xAAAA", Amount: decimal.NewFromInt(250_000),
			},
		},
	}
	agg := newTestAggregator(src)
	view, err := agg.Portfolio(context.Background(), "0xaaaa")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(view.BorrowedLoans) != 1 || view.BorrowedLoans[0].LoanID != "loan-1" {
		t.Fatalf("borrowed=%v want loan-1", view.BorrowedLoans)
	}
	if view.ActiveBorrowed != 1 {
		t.Fatalf("activeBorrowed=%d want 1", view.ActiveBorrowed)
	}
	if len(view.PoolPositions) != 1 || view.PoolPositions[0].NetContributed.Cmp(decimal.NewFromInt(750_000)) != 0 {
		t.Fatalf("positions=%v want net 750000", view.PoolPositions)
	}
}

func TestPools_ListWithLoanStats(t *testing.T) {
	now := fixedNow()
	src := &stubSource{
		loans: loanEvents(now),
		pools: []events.PoolEvent{{
			PoolID: "pool-1", Type: events.PoolCreated, Timestamp: now.AddDate(0, 0, -60),
			Creator: "0xCCCC", SeedLiquidity: decimal.NewFromInt(1_000_000),
		}},
	}
	agg := newTestAggregator(src)
	items, total, err := agg.Pools(context.Background(), PoolQuery{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("total=%d items=%d want 1/1", total, len(items))
	}
	p := items[0]
	if p.ActiveLoans != 1 {
		t.Fatalf("activeLoans=%d want 1", p.ActiveLoans)
	}
	if p.DefaultRate != 0.5 {
		t.Fatalf("defaultRate=%f want 0.5 (1 liquidated of 2)", p.DefaultRate)
	}
}
