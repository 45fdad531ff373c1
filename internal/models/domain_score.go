package models

import (
	"time"

	"gorm.io/datatypes"
)

// DomainScoreCache holds the latest composite AI score per domain name.
// The scoring oracle owns score production; this table is a read-through
// cache with TTL-based freshness.
type DomainScoreCache struct {
	DomainName string `gorm:"primaryKey;type:varchar(255)"`
	TokenID    string `gorm:"type:varchar(100);index"`

	Score      int            `gorm:"not null"`
	Confidence float64        `gorm:"not null;default:0"`
	Breakdown  datatypes.JSON `gorm:"type:jsonb"`

	ScoredAt  time.Time `gorm:"type:timestamptz;not null;index"`
	ExpiresAt time.Time `gorm:"type:timestamptz;not null;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (DomainScoreCache) TableName() string {
	return "domain_score_cache"
}
