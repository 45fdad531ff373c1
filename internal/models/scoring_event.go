package models

import (
	"time"

	"gorm.io/datatypes"
)

// ScoringEvent is an audit row recorded every time the remote oracle is
// consulted for a domain. A domain accumulates many scoring events over time.
type ScoringEvent struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	DomainName string `gorm:"type:varchar(255);not null;index"`
	TokenID    string `gorm:"type:varchar(100);index"`

	Score   int            `gorm:"not null"`
	Source  string         `gorm:"type:varchar(50);not null"`
	Outcome string         `gorm:"type:varchar(20);not null;index"`
	Detail  datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (ScoringEvent) TableName() string {
	return "scoring_events"
}
