package aggregate

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/derive"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/events"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/indexer"
)

// DashboardView is the platform-wide rollup. Like every other view it is
// recomputed from the event log on each request.
type DashboardView struct {
	TotalLoans      int `json:"totalLoans"`
	ActiveLoans     int `json:"activeLoans"`
	OverdueLoans    int `json:"overdueLoans"`
	RepaidLoans     int `json:"repaidLoans"`
	LiquidatedLoans int `json:"liquidatedLoans"`

	TotalLoanVolume    decimal.Decimal `json:"totalLoanVolume"`
	OutstandingDue     decimal.Decimal `json:"outstandingDue"`
	AverageHealthScore float64         `json:"averageHealthScore"`

	TotalPools     int             `json:"totalPools"`
	ActivePools    int             `json:"activePools"`
	TotalLiquidity decimal.Decimal `json:"totalLiquidity"`

	TotalAuctions  int `json:"totalAuctions"`
	ActiveAuctions int `json:"activeAuctions"`
}

func (a *Aggregator) Dashboard(ctx context.Context) (*DashboardView, error) {
	loanRaw, err := a.Source.LoanEvents(ctx, indexer.EventFilter{})
	if err != nil {
		return nil, err
	}
	poolRaw, err := a.Source.PoolEvents(ctx, indexer.EventFilter{})
	if err != nil {
		return nil, err
	}
	auctionRaw, err := a.Source.AuctionEvents(ctx, indexer.EventFilter{})
	if err != nil {
		return nil, err
	}

	loans := a.deriveLoans(loanRaw)
	pools := a.derivePools(poolRaw, loans)
	auctions := a.deriveAuctions(auctionRaw)

	view := &DashboardView{
		TotalLoanVolume: decimal.Zero,
		OutstandingDue:  decimal.Zero,
		TotalLiquidity:  decimal.Zero,
	}

	healthSum := 0
	for _, l := range loans {
		view.TotalLoans++
		view.TotalLoanVolume = view.TotalLoanVolume.Add(l.Principal)
		healthSum += l.HealthScore
		switch l.Status {
		case derive.LoanActive:
			view.ActiveLoans++
			view.OutstandingDue = view.OutstandingDue.Add(l.CurrentAmountDue)
		case derive.LoanOverdue:
			view.OverdueLoans++
			view.OutstandingDue = view.OutstandingDue.Add(l.CurrentAmountDue)
		case derive.LoanRepaid:
			view.RepaidLoans++
		case derive.LoanLiquidated:
			view.LiquidatedLoans++
		}
	}
	if view.TotalLoans > 0 {
		view.AverageHealthScore = float64(healthSum) / float64(view.TotalLoans)
	}

	for _, p := range pools {
		view.TotalPools++
		view.TotalLiquidity = view.TotalLiquidity.Add(p.TotalLiquidity)
		if p.Status == derive.PoolActive {
			view.ActivePools++
		}
	}

	for _, au := range auctions {
		view.TotalAuctions++
		if au.Status == derive.AuctionActive {
			view.ActiveAuctions++
		}
	}

	return view, nil
}

// PortfolioView aggregates one address's positions on both sides of the
// marketplace: loans it borrowed and liquidity it provided.
type PortfolioView struct {
	Address string `json:"address"`

	BorrowedLoans  []derive.LoanView `json:"borrowedLoans"`
	TotalBorrowed  decimal.Decimal   `json:"totalBorrowed"`
	TotalOwed      decimal.Decimal   `json:"totalOwed"`
	ActiveBorrowed int               `json:"activeBorrowed"`

	PoolPositions []PoolPosition  `json:"poolPositions"`
	TotalProvided decimal.Decimal `json:"totalProvided"`
}

// PoolPosition is an address's net liquidity in one pool.
type PoolPosition struct {
	PoolID         string          `json:"poolId"`
	NetContributed decimal.Decimal `json:"netContributed"`
}

func (a *Aggregator) Portfolio(ctx context.Context, address string) (*PortfolioView, error) {
	loanRaw, err := a.Source.LoanEvents(ctx, indexer.EventFilter{Address: address})
	if err != nil {
		return nil, err
	}
	poolRaw, err := a.Source.PoolEvents(ctx, indexer.EventFilter{Address: address})
	if err != nil {
		return nil, err
	}

	loans := a.deriveLoans(loanRaw)
	a.enrichLoans(ctx, loans)

	view := &PortfolioView{
		Address:       address,
		TotalBorrowed: decimal.Zero,
		TotalOwed:     decimal.Zero,
		TotalProvided: decimal.Zero,
	}
	for _, l := range loans {
		if !equalFoldAddr(l.Borrower, address) {
			continue
		}
		view.BorrowedLoans = append(view.BorrowedLoans, l)
		view.TotalBorrowed = view.TotalBorrowed.Add(l.Principal)
		if l.Status == derive.LoanActive || l.Status == derive.LoanOverdue {
			view.ActiveBorrowed++
			view.TotalOwed = view.TotalOwed.Add(l.CurrentAmountDue)
		}
	}

	res := events.GroupPoolEvents(poolRaw)
	a.logSkipped("pool", res.Skipped)
	for poolID, group := range res.Groups {
		net := decimal.Zero
		for _, e := range group {
			switch e.Type {
			case events.PoolCreated:
				if equalFoldAddr(e.Creator, address) {
					net = net.Add(e.SeedLiquidity)
				}
			case events.PoolLiquidityAdded:
				if equalFoldAddr(e.Provider, address) {
					net = net.Add(e.Amount)
				}
			case events.PoolLiquidityRemoved:
				if equalFoldAddr(e.Provider, address) {
					net = net.Sub(e.Amount)
				}
			}
		}
		if net.Sign() > 0 {
			view.PoolPositions = append(view.PoolPositions, PoolPosition{
				PoolID:         poolID,
				NetContributed: net,
			})
			view.TotalProvided = view.TotalProvided.Add(net)
		}
	}

	return view, nil
}
