package scoring

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/models"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/repository"
)

// DomainScore is what consumers see: a bounded composite score plus whether
// it came from the cache or a live oracle round trip.
type DomainScore struct {
	DomainName string    `json:"domainName"`
	Score      int       `json:"score"`
	Confidence float64   `json:"confidence"`
	Cached     bool      `json:"cached"`
	ScoredAt   time.Time `json:"scoredAt"`
}

// Service is a read-through score cache over Postgres with a TTL. A cache
// miss falls through to the oracle; an oracle failure degrades to score zero
// so one slow collaborator never fails a batch.
type Service struct {
	Repo   repository.Repository
	Oracle *OracleClient
	Logger *zap.Logger
	TTL    time.Duration
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return time.Hour
	}
	return s.TTL
}

// Get returns the score for a domain, preferring a fresh cache row.
func (s *Service) Get(ctx context.Context, domainName string) (DomainScore, error) {
	domainName = strings.ToLower(strings.TrimSpace(domainName))
	if s == nil || domainName == "" {
		return DomainScore{DomainName: domainName}, nil
	}
	now := time.Now().UTC()

	if s.Repo != nil {
		cached, err := s.Repo.GetDomainScore(ctx, domainName)
		if err != nil && s.Logger != nil {
			s.Logger.Warn("score cache read failed", zap.String("domain", domainName), zap.Error(err))
		}
		if cached != nil && cached.ExpiresAt.After(now) {
			return DomainScore{
				DomainName: domainName,
				Score:      cached.Score,
				Confidence: cached.Confidence,
				Cached:     true,
				ScoredAt:   cached.ScoredAt,
			}, nil
		}
	}

	return s.Refresh(ctx, domainName)
}

// Refresh bypasses freshness and asks the oracle, updating the cache and the
// scoring audit trail. The zero-score fallback is returned on oracle failure.
func (s *Service) Refresh(ctx context.Context, domainName string) (DomainScore, error) {
	domainName = strings.ToLower(strings.TrimSpace(domainName))
	if s == nil || domainName == "" {
		return DomainScore{DomainName: domainName}, nil
	}
	now := time.Now().UTC()

	fetched, err := s.Oracle.Score(ctx, domainName)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("scoring oracle failed", zap.String("domain", domainName), zap.Error(err))
		}
		s.recordEvent(ctx, domainName, "", 0, "error")
		return DomainScore{DomainName: domainName, Score: 0, Cached: false}, nil
	}

	if s.Repo != nil {
		item := &models.DomainScoreCache{
			DomainName: domainName,
			TokenID:    fetched.TokenID,
			Score:      fetched.Score,
			Confidence: fetched.Confidence,
			Breakdown:  datatypes.JSON(fetched.Breakdown),
			ScoredAt:   now,
			ExpiresAt:  now.Add(s.ttl()),
		}
		if err := s.Repo.UpsertDomainScore(ctx, item); err != nil && s.Logger != nil {
			s.Logger.Warn("score cache write failed", zap.String("domain", domainName), zap.Error(err))
		}
	}
	s.recordEvent(ctx, domainName, fetched.TokenID, fetched.Score, "fetched")

	return DomainScore{
		DomainName: domainName,
		Score:      fetched.Score,
		Confidence: fetched.Confidence,
		Cached:     false,
		ScoredAt:   now,
	}, nil
}

// GetBatch resolves scores for many domains in one cache query, falling back
// per domain. Used by the aggregator's list enrichment.
func (s *Service) GetBatch(ctx context.Context, domainNames []string) map[string]DomainScore {
	out := map[string]DomainScore{}
	if s == nil || len(domainNames) == 0 {
		return out
	}
	now := time.Now().UTC()

	if s.Repo != nil {
		rows, err := s.Repo.ListDomainScores(ctx, domainNames)
		if err != nil && s.Logger != nil {
			s.Logger.Warn("score cache batch read failed", zap.Error(err))
		}
		for _, row := range rows {
			if row.ExpiresAt.After(now) {
				out[row.DomainName] = DomainScore{
					DomainName: row.DomainName,
					Score:      row.Score,
					Confidence: row.Confidence,
					Cached:     true,
					ScoredAt:   row.ScoredAt,
				}
			}
		}
	}
	for _, d := range domainNames {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, ok := out[d]; ok {
			continue
		}
		score, _ := s.Refresh(ctx, d)
		out[d] = score
	}
	return out
}

// SweepExpired removes stale cache rows; wired to a cron schedule.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	if s == nil || s.Repo == nil {
		return 0, nil
	}
	return s.Repo.DeleteExpiredDomainScores(ctx, time.Now().UTC())
}

func (s *Service) recordEvent(ctx context.Context, domainName, tokenID string, score int, outcome string) {
	if s.Repo == nil {
		return
	}
	err := s.Repo.InsertScoringEvent(ctx, &models.ScoringEvent{
		DomainName: domainName,
		TokenID:    tokenID,
		Score:      score,
		Source:     "oracle",
		Outcome:    outcome,
	})
	if err != nil && s.Logger != nil {
		s.Logger.Warn("scoring event insert failed", zap.String("domain", domainName), zap.Error(err))
	}
}
