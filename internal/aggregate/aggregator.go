package aggregate

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/derive"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/events"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/indexer"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/metadata"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/scoring"
)

// EventSource is the read boundary to the external indexer.
type EventSource interface {
	LoanEvents(ctx context.Context, filter indexer.EventFilter) ([]events.LoanEvent, error)
	PoolEvents(ctx context.Context, filter indexer.EventFilter) ([]events.PoolEvent, error)
	AuctionEvents(ctx context.Context, filter indexer.EventFilter) ([]events.AuctionEvent, error)
}

// ScoreProvider resolves cached AI scores; failures degrade to score zero.
type ScoreProvider interface {
	Get(ctx context.Context, domainName string) (scoring.DomainScore, error)
	GetBatch(ctx context.Context, domainNames []string) map[string]scoring.DomainScore
}

// MetadataProvider resolves domain NFT metadata, best effort.
type MetadataProvider interface {
	ByTokenID(ctx context.Context, tokenID string) (*metadata.DomainMetadata, error)
}

// OwnershipVerifier backs the optional live-auction guard.
type OwnershipVerifier interface {
	HeldBy(ctx context.Context, tokenID, holder string) (bool, error)
}

// Aggregator composes derived entity views into response shapes. Derivation
// always runs over the complete event set per entity before any filter, sort
// or page is applied; status depends on full history.
type Aggregator struct {
	Source   EventSource
	Scores   ScoreProvider
	Metadata MetadataProvider
	Verify   OwnershipVerifier
	Logger   *zap.Logger

	// AuctionContract is the holder checked by the live-auction guard.
	AuctionContract string

	EnrichLimit        int
	AuctionMaxDuration time.Duration
	ReserveRatio       float64

	// Now is injected for tests; nil means wall clock.
	Now func() time.Time
}

var ErrNotFound = errors.New("entity not found")

func (a *Aggregator) now() time.Time {
	if a != nil && a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

type LoanQuery struct {
	Status   string
	Borrower string
	PoolID   string
	Domain   string
	SortBy   string // created_at (newest first) | amount (largest first) | deadline (soonest first)
	Page     int
	Limit    int
}

// Loans derives every loan from the full event set, enriches, then filters,
// sorts and pages. Returns the page plus the post-filter total.
func (a *Aggregator) Loans(ctx context.Context, q LoanQuery) ([]derive.LoanView, int64, error) {
	raw, err := a.Source.LoanEvents(ctx, indexer.EventFilter{})
	if err != nil {
		return nil, 0, err
	}
	views := a.deriveLoans(raw)
	a.enrichLoans(ctx, views)

	filtered := filterLoans(views, q)
	sortLoans(filtered, q.SortBy)
	total := int64(len(filtered))
	return paginate(filtered, q.Page, q.Limit), total, nil
}

// Loan derives a single loan from its complete history.
func (a *Aggregator) Loan(ctx context.Context, loanID string) (*derive.LoanView, error) {
	raw, err := a.Source.LoanEvents(ctx, indexer.EventFilter{EntityID: loanID})
	if err != nil {
		return nil, err
	}
	res := events.GroupLoanEvents(raw)
	a.logSkipped("loan", res.Skipped)
	group, ok := res.Groups[loanID]
	if !ok {
		return nil, ErrNotFound
	}
	view, err := derive.BuildLoanView(loanID, group, a.now())
	if err != nil {
		a.logAnomaly("loan", loanID, err)
		return nil, ErrNotFound
	}
	views := []derive.LoanView{view}
	a.enrichLoans(ctx, views)
	return &views[0], nil
}

func (a *Aggregator) deriveLoans(raw []events.LoanEvent) []derive.LoanView {
	res := events.GroupLoanEvents(raw)
	a.logSkipped("loan", res.Skipped)
	now := a.now()
	views := make([]derive.LoanView, 0, len(res.Groups))
	for id, group := range res.Groups {
		view, err := derive.BuildLoanView(id, group, now)
		if err != nil {
			a.logAnomaly("loan", id, err)
			continue
		}
		views = append(views, view)
	}
	return views
}

func filterLoans(views []derive.LoanView, q LoanQuery) []derive.LoanView {
	out := views[:0:0]
	for _, v := range views {
		if q.Status != "" && string(v.Status) != q.Status {
			continue
		}
		if q.Borrower != "" && !equalFoldAddr(v.Borrower, q.Borrower) {
			continue
		}
		if q.PoolID != "" && v.PoolID != q.PoolID {
			continue
		}
		if q.Domain != "" && v.DomainName != q.Domain {
			continue
		}
		out = append(out, v)
	}
	return out
}

func sortLoans(views []derive.LoanView, sortBy string) {
	less := func(i, j int) bool { return views[i].CreatedAt.After(views[j].CreatedAt) }
	switch sortBy {
	case "amount":
		less = func(i, j int) bool { return views[i].Principal.Cmp(views[j].Principal) > 0 }
	case "deadline":
		less = func(i, j int) bool { return views[i].RepaymentDeadline.Before(views[j].RepaymentDeadline) }
	}
	sort.SliceStable(views, less)
}

func (a *Aggregator) logSkipped(kind string, skipped int) {
	if skipped > 0 && a.Logger != nil {
		a.Logger.Warn("malformed events excluded",
			zap.String("kind", kind),
			zap.Int("count", skipped),
		)
	}
}

func (a *Aggregator) logAnomaly(kind, id string, err error) {
	if a.Logger != nil {
		a.Logger.Warn("entity excluded from derived views",
			zap.String("kind", kind),
			zap.String("id", id),
			zap.Error(err),
		)
	}
}

func equalFoldAddr(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func paginate[V any](items []V, page, limit int) []V {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return nil
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
