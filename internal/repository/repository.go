package repository

import (
	"context"
	"time"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/models"
)

type ListScoringEventsParams struct {
	DomainName *string
	Outcome    *string
	Since      *time.Time
	Limit      int
	Offset     int
}

// Repository is the persistence surface of the service. Only the score cache
// and its audit trail live in Postgres; every lending view is re-derived from
// indexer events on demand and never stored.
type Repository interface {
	// Score cache.
	GetDomainScore(ctx context.Context, domainName string) (*models.DomainScoreCache, error)
	ListDomainScores(ctx context.Context, domainNames []string) ([]models.DomainScoreCache, error)
	UpsertDomainScore(ctx context.Context, item *models.DomainScoreCache) error
	DeleteExpiredDomainScores(ctx context.Context, before time.Time) (int64, error)

	// Scoring audit trail.
	InsertScoringEvent(ctx context.Context, item *models.ScoringEvent) error
	ListScoringEvents(ctx context.Context, params ListScoringEventsParams) ([]models.ScoringEvent, error)
}
