package filter

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/porchlight-social/guardrail/models"
)

// CreateProfile stores a new filter profile. Profile names are unique
// per user; a collision surfaces as a duplicated-key error from the
// database.
func (eng *Engine) CreateProfile(ctx context.Context, prof *models.UserFilterProfile) error {
	if prof.UserID == 0 || prof.Name == "" {
		return fmt.Errorf("filter profile requires a user and a name")
	}
	return eng.DB.WithContext(ctx).Create(prof).Error
}

// UpdateProfile saves changes to an existing profile, scoped to its
// owner.
func (eng *Engine) UpdateProfile(ctx context.Context, prof *models.UserFilterProfile) error {
	var existing models.UserFilterProfile
	err := eng.DB.WithContext(ctx).First(&existing, "id = ? AND user_id = ?", prof.ID, prof.UserID).Error
	if err != nil {
		return err
	}
	return eng.DB.WithContext(ctx).Save(prof).Error
}

// DeleteProfile removes a profile and clears any preference pointing
// at it.
func (eng *Engine) DeleteProfile(ctx context.Context, userID, profileID uint64) error {
	return eng.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", profileID, userID).
			Delete(&models.UserFilterProfile{})
		if res.Error != nil {
			return res.Error
		}
		return tx.Model(&models.UserFilterPreference{}).
			Where("user_id = ? AND active_profile_id = ?", userID, profileID).
			Updates(map[string]any{"active_profile_id": nil, "updated_at": time.Now()}).Error
	})
}

// SetActiveProfile points the user's preference at a profile, or at
// none when profileID is nil.
func (eng *Engine) SetActiveProfile(ctx context.Context, userID uint64, profileID *uint64) error {
	if profileID != nil {
		var prof models.UserFilterProfile
		err := eng.DB.WithContext(ctx).First(&prof, "id = ? AND user_id = ?", *profileID, userID).Error
		if err != nil {
			return fmt.Errorf("resolving profile %d: %w", *profileID, err)
		}
	}
	pref := models.UserFilterPreference{
		UserID:          userID,
		ActiveProfileID: profileID,
		UpdatedAt:       time.Now(),
	}
	return eng.DB.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&pref).Error
}
