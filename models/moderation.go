package models

import (
	"time"
)

// Enforcement layers.
const (
	LayerOne   = "L1" // hard-block prohibited content
	LayerTwo   = "L2" // soft-label sensitive content
	LayerThree = "L3" // behavioral throttling
)

// Enforcement actions.
const (
	ActionBlock    = "block"
	ActionLabel    = "label"
	ActionThrottle = "throttle"
)

// ContentClassification records which sensitivity labels applied to a
// content item as of a point in time. Rows are append-only; multiple
// rows per item accumulate over time and none is ever the "current" one.
type ContentClassification struct {
	ID           uint64             `gorm:"primaryKey"`
	ContentKind  string             `gorm:"not null;index:idx_classification_subject"`
	ContentID    uint64             `gorm:"not null;index:idx_classification_subject"`
	ModelVersion string             `gorm:"not null"`
	Labels       []string           `gorm:"serializer:json"`
	Confidences  map[string]float64 `gorm:"serializer:json"`
	Features     map[string]any     `gorm:"serializer:json"`
	ActorID      *uint64
	CreatedAt    time.Time `gorm:"not null"`
}

// ModerationAction is the append-only audit record of one enforcement
// decision. Subject columns are nullable for account-level actions.
type ModerationAction struct {
	ID          uint64  `gorm:"primaryKey"`
	ContentKind *string `gorm:"index:idx_action_subject"`
	ContentID   *uint64 `gorm:"index:idx_action_subject"`
	Layer       string  `gorm:"not null"`
	Action      string  `gorm:"not null"`
	ReasonCode  string  `gorm:"not null"`
	RuleRef     string
	ActorID     *uint64
	Metadata    map[string]any `gorm:"serializer:json"`
	CreatedAt   time.Time      `gorm:"not null"`
}

// Ref returns the content reference, or nil for account-level actions.
func (a *ModerationAction) Ref() *ContentRef {
	if a.ContentKind == nil || a.ContentID == nil {
		return nil
	}
	return &ContentRef{Kind: *a.ContentKind, ID: *a.ContentID}
}

// ComplianceLog is the legal-retention record written for every L1
// block. Append-only; kept independently of whether the offending
// content was ever stored (it never is).
type ComplianceLog struct {
	ID          uint64 `gorm:"primaryKey"`
	Layer       string `gorm:"not null"`
	Category    string `gorm:"not null"`
	ContentKind *string
	ContentID   *uint64
	Snippet     string         `gorm:"not null"` // first 500 chars of the offending text
	ContentHash string         `gorm:"not null"`
	Metadata    map[string]any `gorm:"serializer:json"`
	CreatedAt   time.Time      `gorm:"not null"`
}
