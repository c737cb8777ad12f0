package models

import "time"

// Badge is awarded when a user completes the course it is attached to.
type Badge struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	IconURL     string    `json:"iconUrl"`
	Criterion   string    `json:"criterion"`
	CourseID    *uint     `gorm:"uniqueIndex" json:"courseId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type UserBadge struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     uint      `gorm:"uniqueIndex:idx_user_badge;not null"`
	BadgeID    uint      `gorm:"uniqueIndex:idx_user_badge;not null"`
	Badge      Badge     `gorm:"constraint:OnDelete:CASCADE"`
	CourseID   *uint     `gorm:"index"`
	AssignedAt time.Time `gorm:"not null"`
}

// BadgeAward is the client view of a badge held by a user.
type BadgeAward struct {
	ID               uint      `json:"id"`
	UserID           uint      `json:"userId"`
	BadgeID          uint      `json:"badgeId"`
	CourseID         *uint     `json:"courseId"`
	BadgeName        string    `json:"badgeName"`
	BadgeDescription string    `json:"badgeDescription"`
	BadgeIconURL     string    `json:"badgeIconUrl"`
	AssignedAt       time.Time `json:"assignedAt"`
}

func NewBadgeAward(ub UserBadge) BadgeAward {
	return BadgeAward{
		ID:               ub.ID,
		UserID:           ub.UserID,
		BadgeID:          ub.BadgeID,
		CourseID:         ub.CourseID,
		BadgeName:        ub.Badge.Name,
		BadgeDescription: ub.Badge.Description,
		BadgeIconURL:     ub.Badge.IconURL,
		AssignedAt:       ub.AssignedAt,
	}
}
