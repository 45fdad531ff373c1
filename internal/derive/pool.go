package derive

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/events"
)

type PoolStatus string

const (
	PoolActive   PoolStatus = "active"
	PoolInactive PoolStatus = "inactive"
)

var ErrMissingPoolCreation = errors.New("pool event group has no creation event")

type PoolView struct {
	PoolID  string `json:"poolId"`
	Creator string `json:"creatorAddress"`

	MinAIScore      int64 `json:"minAiScore"`
	InterestRateBps int64 `json:"interestRateBps"`

	// TotalLiquidity is floored at zero for consumers; the exact replayed
	// balance (which a bad event stream could drive negative) stays internal.
	TotalLiquidity         decimal.Decimal `json:"totalLiquidity"`
	LiquidityProviderCount int             `json:"liquidityProviderCount"`

	ActiveLoans     int             `json:"activeLoans"`
	TotalLoanVolume decimal.Decimal `json:"totalLoanVolume"`
	DefaultRate     float64         `json:"defaultRate"`

	Status    PoolStatus `json:"status"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ReplayLiquidity folds a pool's ordered sub-events into the exact net
// balance: creation seed plus added deltas minus removed deltas. No event is
// counted twice; the creation event's seed is not repeated as an add.
func ReplayLiquidity(group []events.PoolEvent) decimal.Decimal {
	net := decimal.Zero
	for _, e := range group {
		switch e.Type {
		case events.PoolCreated:
			net = net.Add(e.SeedLiquidity)
		case events.PoolLiquidityAdded:
			net = net.Add(e.Amount)
		case events.PoolLiquidityRemoved:
			net = net.Sub(e.Amount)
		}
	}
	return net
}

// ProviderCount is the number of distinct addresses with a positive net
// contribution, the creator included when it seeded initial liquidity.
func ProviderCount(group []events.PoolEvent) int {
	net := map[string]decimal.Decimal{}
	for _, e := range group {
		switch e.Type {
		case events.PoolCreated:
			if e.SeedLiquidity.Sign() > 0 && e.Creator != "" {
				net[e.Creator] = net[e.Creator].Add(e.SeedLiquidity)
			}
		case events.PoolLiquidityAdded:
			if e.Provider != "" {
				net[e.Provider] = net[e.Provider].Add(e.Amount)
			}
		case events.PoolLiquidityRemoved:
			if e.Provider != "" {
				net[e.Provider] = net[e.Provider].Sub(e.Amount)
			}
		}
	}
	count := 0
	for _, v := range net {
		if v.Sign() > 0 {
			count++
		}
	}
	return count
}

// BuildPoolView derives one pool from its ordered event group plus the
// already-derived loan views belonging to it. Loans must be derived from
// their complete histories before being handed in; the pool only filters
// by PoolID.
func BuildPoolView(poolID string, group []events.PoolEvent, loans []LoanView, now time.Time) (PoolView, error) {
	if len(group) == 0 {
		return PoolView{}, ErrMissingPoolCreation
	}
	var creation *events.PoolEvent
	for i := range group {
		if group[i].Type == events.PoolCreated {
			creation = &group[i]
			break
		}
	}
	if creation == nil {
		return PoolView{}, ErrMissingPoolCreation
	}

	net := ReplayLiquidity(group)
	display := net
	if display.Sign() < 0 {
		display = decimal.Zero
	}

	active := 0
	liquidated := 0
	total := 0
	volume := decimal.Zero
	for _, l := range loans {
		if l.PoolID != poolID {
			continue
		}
		total++
		volume = volume.Add(l.Principal)
		switch l.Status {
		case LoanActive:
			active++
		case LoanLiquidated:
			liquidated++
		}
	}
	defaultRate := 0.0
	if total > 0 {
		defaultRate = float64(liquidated) / float64(total)
	}

	status := PoolActive
	if net.Sign() <= 0 && active == 0 {
		status = PoolInactive
	}

	return PoolView{
		PoolID:                 poolID,
		Creator:                creation.Creator,
		MinAIScore:             creation.MinAIScore,
		InterestRateBps:        creation.InterestRateBps,
		TotalLiquidity:         display,
		LiquidityProviderCount: ProviderCount(group),
		ActiveLoans:            active,
		TotalLoanVolume:        volume,
		DefaultRate:            defaultRate,
		Status:                 status,
		CreatedAt:              creation.Timestamp,
	}, nil
}
