package aggregate

import (
	"context"
	"sort"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/derive"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/events"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/indexer"
)

type AuctionQuery struct {
	Status   string
	Borrower string
	Domain   string
	SortBy   string // started_at (newest first) | price (largest first)
	Page     int
	Limit    int
}

// Auctions derives all auctions and applies the optional on-chain ownership
// guard before live auctions are surfaced.
func (a *Aggregator) Auctions(ctx context.Context, q AuctionQuery) ([]derive.AuctionView, int64, error) {
	raw, err := a.Source.AuctionEvents(ctx, indexer.EventFilter{})
	if err != nil {
		return nil, 0, err
	}
	views := a.deriveAuctions(raw)
	views = a.enrichAuctions(ctx, views)

	filtered := filterAuctions(views, q)
	sortAuctions(filtered, q.SortBy)
	total := int64(len(filtered))
	return paginate(filtered, q.Page, q.Limit), total, nil
}

func (a *Aggregator) Auction(ctx context.Context, auctionID string) (*derive.AuctionView, error) {
	raw, err := a.Source.AuctionEvents(ctx, indexer.EventFilter{EntityID: auctionID})
	if err != nil {
		return nil, err
	}
	res := events.GroupAuctionEvents(raw)
	a.logSkipped("auction", res.Skipped)
	group, ok := res.Groups[auctionID]
	if !ok {
		return nil, ErrNotFound
	}
	view, err := derive.BuildAuctionView(auctionID, group, a.now(), a.AuctionMaxDuration, a.ReserveRatio)
	if err != nil {
		a.logAnomaly("auction", auctionID, err)
		return nil, ErrNotFound
	}
	return &view, nil
}

func (a *Aggregator) deriveAuctions(raw []events.AuctionEvent) []derive.AuctionView {
	res := events.GroupAuctionEvents(raw)
	a.logSkipped("auction", res.Skipped)
	now := a.now()
	views := make([]derive.AuctionView, 0, len(res.Groups))
	for id, group := range res.Groups {
		view, err := derive.BuildAuctionView(id, group, now, a.AuctionMaxDuration, a.ReserveRatio)
		if err != nil {
			a.logAnomaly("auction", id, err)
			continue
		}
		views = append(views, view)
	}
	return views
}

func filterAuctions(views []derive.AuctionView, q AuctionQuery) []derive.AuctionView {
	out := views[:0:0]
	for _, v := range views {
		if q.Status != "" && string(v.Status) != q.Status {
			continue
		}
		if q.Borrower != "" && !equalFoldAddr(v.Borrower, q.Borrower) {
			continue
		}
		if q.Domain != "" && v.DomainName != q.Domain {
			continue
		}
		out = append(out, v)
	}
	return out
}

func sortAuctions(views []derive.AuctionView, sortBy string) {
	less := func(i, j int) bool { return views[i].StartedAt.After(views[j].StartedAt) }
	if sortBy == "price" {
		less = func(i, j int) bool { return views[i].CurrentPrice.Cmp(views[j].CurrentPrice) > 0 }
	}
	sort.SliceStable(views, less)
}
