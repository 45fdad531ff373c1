package events

import "sort"

// Grouping is total: every well-formed event lands in exactly one group, and
// each group is sorted chronologically with input order preserved on equal
// timestamps. Events with a zero timestamp or empty entity id are counted as
// skipped and excluded; downstream logs the count as a data-quality signal.

type GroupResult[E any] struct {
	Groups  map[string][]E
	Skipped int
}

func GroupLoanEvents(items []LoanEvent) GroupResult[LoanEvent] {
	return groupBy(items, func(e LoanEvent) (string, bool) {
		return e.LoanID, !e.Timestamp.IsZero()
	}, func(a, b LoanEvent) bool {
		return a.Timestamp.Before(b.Timestamp)
	})
}

func GroupPoolEvents(items []PoolEvent) GroupResult[PoolEvent] {
	return groupBy(items, func(e PoolEvent) (string, bool) {
		return e.PoolID, !e.Timestamp.IsZero()
	}, func(a, b PoolEvent) bool {
		return a.Timestamp.Before(b.Timestamp)
	})
}

func GroupAuctionEvents(items []AuctionEvent) GroupResult[AuctionEvent] {
	return groupBy(items, func(e AuctionEvent) (string, bool) {
		return e.AuctionID, !e.Timestamp.IsZero()
	}, func(a, b AuctionEvent) bool {
		return a.Timestamp.Before(b.Timestamp)
	})
}

func groupBy[E any](items []E, key func(E) (string, bool), less func(a, b E) bool) GroupResult[E] {
	res := GroupResult[E]{Groups: map[string][]E{}}
	for _, it := range items {
		id, ok := key(it)
		if id == "" || !ok {
			res.Skipped++
			continue
		}
		res.Groups[id] = append(res.Groups[id], it)
	}
	for id := range res.Groups {
		group := res.Groups[id]
		sort.SliceStable(group, func(i, j int) bool {
			return less(group[i], group[j])
		})
	}
	return res
}
