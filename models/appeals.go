package models

import (
	"time"
)

type AppealStatus string

const (
	AppealPending  AppealStatus = "pending"
	AppealApproved AppealStatus = "approved"
	AppealRejected AppealStatus = "rejected"
)

// Terminal reports whether the status permits no further transitions.
func (s AppealStatus) Terminal() bool {
	return s == AppealApproved || s == AppealRejected
}

// Appeal is a user's challenge of one enforcement decision. Status
// moves pending -> approved or pending -> rejected, exactly once.
type Appeal struct {
	ID        uint64 `gorm:"primaryKey"`
	ActionID  uint64 `gorm:"not null;index"`
	UserID    uint64 `gorm:"not null;index"`
	Reason    string
	Status    AppealStatus `gorm:"not null;default:pending"`
	DecidedBy *uint64
	DecidedAt *time.Time
	CreatedAt time.Time `gorm:"not null"`
}
