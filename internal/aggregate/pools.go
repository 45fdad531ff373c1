package aggregate

import (
	"context"
	"sort"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/derive"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/events"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/indexer"
)

type PoolQuery struct {
	Status  string
	Creator string
	SortBy  string // created_at (newest first) | liquidity (largest first)
	Page    int
	Limit   int
}

// Pools derives every pool plus the loan views feeding its loan stats.
func (a *Aggregator) Pools(ctx context.Context, q PoolQuery) ([]derive.PoolView, int64, error) {
	raw, err := a.Source.PoolEvents(ctx, indexer.EventFilter{})
	if err != nil {
		return nil, 0, err
	}
	loanRaw, err := a.Source.LoanEvents(ctx, indexer.EventFilter{})
	if err != nil {
		return nil, 0, err
	}
	loans := a.deriveLoans(loanRaw)

	views := a.derivePools(raw, loans)
	filtered := filterPools(views, q)
	sortPools(filtered, q.SortBy)
	total := int64(len(filtered))
	return paginate(filtered, q.Page, q.Limit), total, nil
}

// Pool derives one pool from its complete history plus that pool's loans.
func (a *Aggregator) Pool(ctx context.Context, poolID string) (*derive.PoolView, error) {
	raw, err := a.Source.PoolEvents(ctx, indexer.EventFilter{EntityID: poolID})
	if err != nil {
		return nil, err
	}
	res := events.GroupPoolEvents(raw)
	a.logSkipped("pool", res.Skipped)
	group, ok := res.Groups[poolID]
	if !ok {
		return nil, ErrNotFound
	}

	loanRaw, err := a.Source.LoanEvents(ctx, indexer.EventFilter{})
	if err != nil {
		return nil, err
	}
	loans := a.deriveLoans(loanRaw)

	view, err := derive.BuildPoolView(poolID, group, loans, a.now())
	if err != nil {
		a.logAnomaly("pool", poolID, err)
		return nil, ErrNotFound
	}
	return &view, nil
}

func (a *Aggregator) derivePools(raw []events.PoolEvent, loans []derive.LoanView) []derive.PoolView {
	res := events.GroupPoolEvents(raw)
	a.logSkipped("pool", res.Skipped)
	now := a.now()
	views := make([]derive.PoolView, 0, len(res.Groups))
	for id, group := range res.Groups {
		view, err := derive.BuildPoolView(id, group, loans, now)
		if err != nil {
			a.logAnomaly("pool", id, err)
			continue
		}
		views = append(views, view)
	}
	return views
}

func filterPools(views []derive.PoolView, q PoolQuery) []derive.PoolView {
	out := views[:0:0]
	for _, v := range views {
		if q.Status != "" && string(v.Status) != q.Status {
			continue
		}
		if q.Creator != "" && !equalFoldAddr(v.Creator, q.Creator) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func sortPools(views []derive.PoolView, sortBy string) {
	less := func(i, j int) bool { return views[i].CreatedAt.After(views[j].CreatedAt) }
	if sortBy == "liquidity" {
		less = func(i, j int) bool { return views[i].TotalLiquidity.Cmp(views[j].TotalLiquidity) > 0 }
	}
	sort.SliceStable(views, less)
}
