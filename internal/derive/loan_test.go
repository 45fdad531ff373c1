package derive

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/events"
)

func TestBuildLoanView_TenDayActiveLoan(t *testing.T) {
	now := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	created := now.AddDate(0, 0, -10)
	group := []events.LoanEvent{{
		LoanID:            "loan-1",
		Type:              events.LoanCreatedInstant,
		Timestamp:         created,
		Borrower:          "0x1111111111111111111111111111111111111111",
		PoolID:            "pool-1",
		Principal:         decimal.NewFromInt(500_000_000),
		InterestRateBps:   500,
		RepaymentDeadline: created.AddDate(0, 0, 30),
	}}
	view, err := BuildLoanView("loan-1", group, now)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if view.Status != LoanActive {
		t.Fatalf("status=%s want active", view.Status)
	}
	// floor(500000000 * 500 * 10 / (10000 * 365)) = 684931
	if view.InterestAccrued.Cmp(decimal.NewFromInt(684_931)) != 0 {
		t.Fatalf("interest=%s want 684931", view.InterestAccrued)
	}
	if view.CurrentAmountDue.Cmp(decimal.NewFromInt(500_684_931)) != 0 {
		t.Fatalf("due=%s want 500684931", view.CurrentAmountDue)
	}
}

func TestResolveLoanStatus_TerminalBeatsOverdue(t *testing.T) {
	now := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	deadline := now.AddDate(0, 0, -5)
	group := []events.LoanEvent{
		{LoanID: "loan-1", Type: events.LoanCreatedInstant, Timestamp: deadline.AddDate(0, 0, -30), RepaymentDeadline: deadline},
		{LoanID: "loan-1", Type: events.LoanRepaidFull, Timestamp: now.AddDate(0, 0, -1)},
	}
	if got := ResolveLoanStatus(group, deadline, now); got != LoanRepaid {
		t.Fatalf("status=%s want repaid", got)
	}
}

func TestBuildLoanView_LiquidatedAfterDeadline(t *testing.T) {
	now := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	created := now.AddDate(0, 0, -40)
	group := []events.LoanEvent{
		{
			LoanID: "loan-1", Type: events.LoanCreatedInstant, Timestamp: created,
			Principal: decimal.NewFromInt(1_000_000), InterestRateBps: 300,
			RepaymentDeadline: created.AddDate(0, 0, 30),
		},
		{LoanID: "loan-1", Type: events.LoanLiquidated, Timestamp: now.AddDate(0, 0, -2)},
	}
	view, err := BuildLoanView("loan-1", group, now)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if view.Status != LoanLiquidated {
		t.Fatalf("status=%s want liquidated (not overdue)", view.Status)
	}
	if view.HealthScore != 0 {
		t.Fatalf("health=%d want 0", view.HealthScore)
	}
}

func TestBuildLoanView_InterestFrozenAtTerminal(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	repaid := created.AddDate(0, 0, 10)
	group := []events.LoanEvent{
		{
			LoanID: "loan-1", Type: events.LoanCreatedInstant, Timestamp: created,
			Principal: decimal.NewFromInt(500_000_000), InterestRateBps: 500,
			RepaymentDeadline: created.AddDate(0, 0, 30),
		},
		{LoanID: "loan-1", Type: events.LoanRepaidFull, Timestamp: repaid},
	}
	early, err := BuildLoanView("loan-1", group, repaid.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	late, err := BuildLoanView("loan-1", group, repaid.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if early.InterestAccrued.Cmp(late.InterestAccrued) != 0 {
		t.Fatalf("interest kept accruing after repayment: %s vs %s", early.InterestAccrued, late.InterestAccrued)
	}
	if early.InterestAccrued.Cmp(decimal.NewFromInt(684_931)) != 0 {
		t.Fatalf("frozen interest=%s want 684931", early.InterestAccrued)
	}
}

func TestBuildLoanView_MissingCreation(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	group := []events.LoanEvent{
		{LoanID: "loan-1", Type: events.LoanRepaidFull, Timestamp: now},
	}
	if _, err := BuildLoanView("loan-1", group, now); err != ErrMissingCreation {
		t.Fatalf("err=%v want ErrMissingCreation", err)
	}
}

func TestBuildLoanView_Deterministic(t *testing.T) {
	now := time.Date(2025, 6, 11, 13, 37, 42, 0, time.UTC)
	created := now.Add(-87 * time.Hour)
	group := []events.LoanEvent{{
		LoanID: "loan-1", Type: events.LoanCreatedCrowdfunded, Timestamp: created,
		Principal: decimal.NewFromInt(123_456_789), InterestRateBps: 750,
		RepaymentDeadline: created.AddDate(0, 0, 14),
	}}
	first, err := BuildLoanView("loan-1", group, now)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := BuildLoanView("loan-1", group, now)
		if err != nil {
			t.Fatalf("err=%v", err)
		}
		if again.Status != first.Status ||
			again.InterestAccrued.Cmp(first.InterestAccrued) != 0 ||
			again.CurrentAmountDue.Cmp(first.CurrentAmountDue) != 0 ||
			again.HealthScore != first.HealthScore {
			t.Fatalf("derivation not deterministic on run %d", i)
		}
	}
}

func TestHealthScore_Bands(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		daysLeft int
		want     int
	}{
		{60, 100},
		{31, 100},
		{20, 85},
		{10, 70},
		{5, 50},
		{2, 35},
		{0, 25},
	}
	for _, tc := range cases {
		deadline := now.AddDate(0, 0, tc.daysLeft)
		if got := HealthScore(LoanActive, deadline, now); got != tc.want {
			t.Fatalf("daysLeft=%d got=%d want=%d", tc.daysLeft, got, tc.want)
		}
	}
}

func TestHealthScore_MonotoneInTimeRemaining(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	prev := -1
	for days := 0; days <= 60; days++ {
		got := HealthScore(LoanActive, now.AddDate(0, 0, days), now)
		if got < prev {
			t.Fatalf("score dropped from %d to %d at %d days remaining", prev, got, days)
		}
		prev = got
	}
}

func TestHealthScore_TerminalStatuses(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	deadline := now.AddDate(0, 0, -1)
	if got := HealthScore(LoanRepaid, deadline, now); got != 100 {
		t.Fatalf("repaid=%d want 100", got)
	}
	if got := HealthScore(LoanReleased, deadline, now); got != 100 {
		t.Fatalf("released=%d want 100", got)
	}
	if got := HealthScore(LoanLiquidated, deadline, now); got != 0 {
		t.Fatalf("liquidated=%d want 0", got)
	}
	if got := HealthScore(LoanOverdue, deadline, now); got != 25 {
		t.Fatalf("overdue=%d want 25", got)
	}
}

func TestAccrueInterest_NeverNegative(t *testing.T) {
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if got := AccrueInterest(decimal.NewFromInt(1_000_000), 500, created, created.Add(-time.Hour)); got.Sign() != 0 {
		t.Fatalf("interest=%s want 0 for accrual end before creation", got)
	}
	if got := AccrueInterest(decimal.NewFromInt(1_000_000), 500, created, created.Add(12*time.Hour)); got.Sign() != 0 {
		t.Fatalf("interest=%s want 0 before a whole day has passed", got)
	}
}
