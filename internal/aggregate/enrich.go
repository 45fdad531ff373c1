package aggregate

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/derive"
)

// Enrichment is strictly best-effort: each entity's external lookups run
// concurrently under a bounded limit, and any failure leaves that one entity
// with fallback fields instead of failing the batch.

func (a *Aggregator) enrichLimit() int {
	if a == nil || a.EnrichLimit <= 0 {
		return 8
	}
	return a.EnrichLimit
}

func (a *Aggregator) enrichLoans(ctx context.Context, views []derive.LoanView) {
	if len(views) == 0 {
		return
	}

	if a.Scores != nil {
		domains := make([]string, 0, len(views))
		seen := map[string]bool{}
		for i := range views {
			d := views[i].DomainName
			if d != "" && !seen[d] {
				seen[d] = true
				domains = append(domains, d)
			}
		}
		scores := a.Scores.GetBatch(ctx, domains)
		for i := range views {
			if s, ok := scores[views[i].DomainName]; ok {
				views[i].AIScore = s.Score
				views[i].ScoreCached = s.Cached
			}
		}
	}

	if a.Metadata == nil {
		return
	}
	sem := make(chan struct{}, a.enrichLimit())
	var wg sync.WaitGroup
	for i := range views {
		if views[i].TokenID == "" {
			continue
		}
		wg.Add(1)
		go func(v *derive.LoanView) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			md, err := a.Metadata.ByTokenID(ctx, v.TokenID)
			if err != nil {
				if a.Logger != nil {
					a.Logger.Warn("metadata enrichment failed",
						zap.String("token_id", v.TokenID),
						zap.Error(err),
					)
				}
				return
			}
			if v.DomainName == "" {
				v.DomainName = md.DomainName
			}
			v.DomainTLD = md.TLD
		}(&views[i])
	}
	wg.Wait()
}

func (a *Aggregator) enrichAuctions(ctx context.Context, views []derive.AuctionView) []derive.AuctionView {
	if len(views) == 0 {
		return views
	}
	if a.Verify == nil || a.AuctionContract == "" {
		return views
	}

	type verdict struct {
		checked bool
		held    bool
	}
	verdicts := make([]verdict, len(views))
	sem := make(chan struct{}, a.enrichLimit())
	var wg sync.WaitGroup
	for i := range views {
		if views[i].Status != derive.AuctionActive || views[i].TokenID == "" {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			held, err := a.Verify.HeldBy(ctx, views[i].TokenID, a.AuctionContract)
			if err != nil {
				// Verification outage must not hide live auctions.
				if a.Logger != nil {
					a.Logger.Warn("auction ownership check skipped",
						zap.String("auction_id", views[i].AuctionID),
						zap.Error(err),
					)
				}
				return
			}
			verdicts[i] = verdict{checked: true, held: held}
		}(i)
	}
	wg.Wait()

	out := views[:0:0]
	for i, v := range views {
		if verdicts[i].checked && !verdicts[i].held {
			if a.Logger != nil {
				a.Logger.Warn("auction hidden: domain not held by auction contract",
					zap.String("auction_id", v.AuctionID),
					zap.String("token_id", v.TokenID),
				)
			}
			continue
		}
		out = append(out, v)
	}
	return out
}
