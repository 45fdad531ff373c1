package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mfahriferdiansyah/domalend-sub001/internal/models"
	"github.com/mfahriferdiansyah/domalend-sub001/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetDomainScore(ctx context.Context, domainName string) (*models.DomainScoreCache, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	domainName = strings.ToLower(strings.TrimSpace(domainName))
	if domainName == "" {
		return nil, nil
	}
	var item models.DomainScoreCache
	err := s.db.WithContext(ctx).
		Where("domain_name = ?", domainName).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListDomainScores(ctx context.Context, domainNames []string) ([]models.DomainScoreCache, error) {
	if s == nil || s.db == nil || len(domainNames) == 0 {
		return nil, nil
	}
	lowered := make([]string, 0, len(domainNames))
	for _, d := range domainNames {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			lowered = append(lowered, d)
		}
	}
	var items []models.DomainScoreCache
	if err := s.db.WithContext(ctx).
		Where("domain_name IN ?", lowered).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpsertDomainScore(ctx context.Context, item *models.DomainScoreCache) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.DomainName = strings.ToLower(strings.TrimSpace(item.DomainName))
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "domain_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"token_id", "score", "confidence", "breakdown", "scored_at", "expires_at", "updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) DeleteExpiredDomainScores(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if before.IsZero() {
		before = time.Now().UTC()
	}
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&models.DomainScoreCache{})
	return res.RowsAffected, res.Error
}

func (s *Store) InsertScoringEvent(ctx context.Context, item *models.ScoringEvent) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListScoringEvents(ctx context.Context, params repository.ListScoringEventsParams) ([]models.ScoringEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.ScoringEvent{})
	if params.DomainName != nil && strings.TrimSpace(*params.DomainName) != "" {
		query = query.Where("domain_name = ?", strings.ToLower(strings.TrimSpace(*params.DomainName)))
	}
	if params.Outcome != nil && strings.TrimSpace(*params.Outcome) != "" {
		query = query.Where("outcome = ?", strings.TrimSpace(*params.Outcome))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	limit := params.Limit
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	var items []models.ScoringEvent
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
