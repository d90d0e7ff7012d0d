package models

import (
	"time"
)

// UserFilterProfile is a named per-user bundle of content-visibility
// preferences. Name is unique within a user's profiles.
type UserFilterProfile struct {
	ID        uint64 `gorm:"primaryKey"`
	UserID    uint64 `gorm:"not null;uniqueIndex:idx_filter_profile_name"`
	Name      string `gorm:"not null;uniqueIndex:idx_filter_profile_name"`
	IsDefault bool

	// label -> enabled; a label toggled to false is hidden
	CategoryToggles        map[string]bool `gorm:"serializer:json"`
	AllowExplicitContent   bool
	BlurThumbnails         bool
	BlurExplicitThumbnails bool
	RedactProfanity        bool
	AgeGate                bool
	KeywordMutes           []string `gorm:"serializer:json"`
	AccountMutes           []uint64 `gorm:"serializer:json"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// UserFilterPreference points a user at their active profile. At most
// one row per user.
type UserFilterPreference struct {
	UserID          uint64 `gorm:"primaryKey"`
	ActiveProfileID *uint64
	UpdatedAt       time.Time `gorm:"not null"`
}
