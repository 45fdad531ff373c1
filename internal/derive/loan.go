package derive

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/events"
)

type LoanStatus string

const (
	LoanActive     LoanStatus = "active"
	LoanOverdue    LoanStatus = "overdue"
	LoanRepaid     LoanStatus = "repaid"
	LoanLiquidated LoanStatus = "liquidated"
	LoanReleased   LoanStatus = "released"
)

// IsTerminal reports whether the status can no longer change by time passing.
func (s LoanStatus) IsTerminal() bool {
	return s == LoanRepaid || s == LoanLiquidated || s == LoanReleased
}

// ErrMissingCreation marks a non-empty event group without a creation event.
// The loan is excluded from derived output and the anomaly is logged upstream.
var ErrMissingCreation = errors.New("event group has no creation event")

// LoanView is the fully derived state of one loan at a given instant. It is
// never stored; every read replays the loan's complete ordered event history.
type LoanView struct {
	LoanID     string `json:"loanId"`
	Borrower   string `json:"borrowerAddress"`
	PoolID     string `json:"poolId"`
	TokenID    string `json:"domainTokenId"`
	DomainName string `json:"domainName"`

	Principal       decimal.Decimal `json:"principalAmount"`
	InterestRateBps int64           `json:"interestRateBps"`

	Status            LoanStatus `json:"status"`
	CreatedAt         time.Time  `json:"createdAt"`
	RepaymentDeadline time.Time  `json:"repaymentDeadline"`

	InterestAccrued  decimal.Decimal `json:"interestAccrued"`
	CurrentAmountDue decimal.Decimal `json:"currentAmountDue"`
	HealthScore      int             `json:"healthScore"`

	// Best-effort enrichment; zero values when a collaborator is unavailable.
	AIScore     int    `json:"aiScore"`
	ScoreCached bool   `json:"scoreCached"`
	DomainTLD   string `json:"domainTld,omitempty"`
}

// ResolveLoanStatus walks an ordered event group and classifies the loan.
// Terminal on-chain outcomes always outrank an expired deadline: a loan
// repaid or liquidated after its deadline must not read as overdue.
func ResolveLoanStatus(group []events.LoanEvent, deadline time.Time, now time.Time) LoanStatus {
	var hasRepaid, hasLiquidated, hasReleased bool
	for _, e := range group {
		switch e.Type {
		case events.LoanRepaidFull:
			hasRepaid = true
		case events.LoanLiquidated:
			hasLiquidated = true
		case events.LoanCollateralReleased:
			hasReleased = true
		}
	}
	switch {
	case hasRepaid:
		return LoanRepaid
	case hasLiquidated:
		return LoanLiquidated
	case hasReleased:
		return LoanReleased
	case !deadline.IsZero() && now.After(deadline):
		return LoanOverdue
	default:
		return LoanActive
	}
}

// AccrueInterest computes simple non-compounding interest in minor units:
// principal * rateBps * wholeDaysElapsed / (10000 * 365), floored. Accrual
// runs from creation until now for live loans and freezes at the terminal
// event for finished ones.
func AccrueInterest(principal decimal.Decimal, rateBps int64, createdAt, accrualEnd time.Time) decimal.Decimal {
	if principal.Sign() <= 0 || rateBps <= 0 || createdAt.IsZero() || !accrualEnd.After(createdAt) {
		return decimal.Zero
	}
	days := int64(accrualEnd.Sub(createdAt).Hours() / 24)
	if days <= 0 {
		return decimal.Zero
	}
	return principal.
		Mul(decimal.NewFromInt(rateBps)).
		Mul(decimal.NewFromInt(days)).
		Div(decimal.NewFromInt(10_000 * 365)).
		Floor()
}

// HealthScore maps status and time-to-deadline onto a coarse 0-100 risk
// signal. More time remaining never lowers the score.
func HealthScore(status LoanStatus, deadline time.Time, now time.Time) int {
	switch status {
	case LoanRepaid, LoanReleased:
		return 100
	case LoanLiquidated:
		return 0
	case LoanOverdue:
		return 25
	}
	daysLeft := deadline.Sub(now).Hours() / 24
	switch {
	case daysLeft > 30:
		return 100
	case daysLeft > 14:
		return 85
	case daysLeft > 7:
		return 70
	case daysLeft > 3:
		return 50
	case daysLeft > 0:
		return 35
	default:
		return 25
	}
}

// BuildLoanView derives the complete view for one loan from its ordered event
// group at the supplied instant. The group must already be chronologically
// sorted (see events.GroupLoanEvents).
func BuildLoanView(loanID string, group []events.LoanEvent, now time.Time) (LoanView, error) {
	if len(group) == 0 {
		return LoanView{}, ErrMissingCreation
	}
	var creation *events.LoanEvent
	for i := range group {
		if group[i].Type.IsCreation() {
			creation = &group[i]
			break
		}
	}
	if creation == nil {
		return LoanView{}, ErrMissingCreation
	}

	status := ResolveLoanStatus(group, creation.RepaymentDeadline, now)

	accrualEnd := now
	if status.IsTerminal() {
		accrualEnd = terminalEventTime(group)
	}
	interest := AccrueInterest(creation.Principal, creation.InterestRateBps, creation.Timestamp, accrualEnd)

	return LoanView{
		LoanID:            loanID,
		Borrower:          creation.Borrower,
		PoolID:            creation.PoolID,
		TokenID:           creation.TokenID,
		DomainName:        creation.DomainName,
		Principal:         creation.Principal,
		InterestRateBps:   creation.InterestRateBps,
		Status:            status,
		CreatedAt:         creation.Timestamp,
		RepaymentDeadline: creation.RepaymentDeadline,
		InterestAccrued:   interest,
		CurrentAmountDue:  creation.Principal.Add(interest),
		HealthScore:       HealthScore(status, creation.RepaymentDeadline, now),
	}, nil
}

func terminalEventTime(group []events.LoanEvent) time.Time {
	for _, e := range group {
		switch e.Type {
		case events.LoanRepaidFull, events.LoanLiquidated, events.LoanCollateralReleased:
			return e.Timestamp
		}
	}
	// Unreachable for terminal statuses; fall back to the latest event.
	return group[len(group)-1].Timestamp
}
