package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleStudent    Role = "STUDENT"
	RoleInstructor Role = "INSTRUCTOR"
)

// RoleFromID maps the numeric role ids used by the web client.
func RoleFromID(id int) Role {
	switch id {
	case 1:
		return RoleAdmin
	case 3:
		return RoleInstructor
	default:
		return RoleStudent
	}
}

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent || r == RoleInstructor
}

// IsStaff reports whether the role may use the authoring studio.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleInstructor
}

type User struct {
	ID               uint       `gorm:"primaryKey" json:"userId"`
	FirstName        string     `gorm:"not null" json:"firstName"`
	LastName         string     `json:"lastName"`
	UserName         string     `gorm:"-" json:"userName"`
	Email            string     `gorm:"uniqueIndex;not null" json:"email"`
	IdentityDocument string     `json:"identityDocument"`
	BirthDate        string     `json:"birthDate"`
	Phone            string     `json:"phone"`
	Role             Role       `gorm:"type:varchar(20);not null" json:"role"`
	PasswordHash     string     `gorm:"not null" json:"-"`
	LastActiveAt     *time.Time `json:"lastActiveAt"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (u *User) AfterFind(tx *gorm.DB) error {
	u.UserName = u.FullName()
	return nil
}

func (u *User) AfterSave(tx *gorm.DB) error {
	u.UserName = u.FullName()
	return nil
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type LoginHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"userId"`
	LoginTime time.Time `json:"loginTime"`
}

// UserPreferences replaces the per-browser settings the client used to keep locally.
type UserPreferences struct {
	ID                   uint           `gorm:"primaryKey" json:"-"`
	UserID               uint           `gorm:"uniqueIndex;not null" json:"userId"`
	NotificationsEnabled bool           `json:"notificationsEnabled"`
	HighContrast         bool           `json:"highContrast"`
	FontSize             string         `gorm:"type:varchar(10)" json:"fontSize"`
	Interests            datatypes.JSON `json:"interests"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

func DefaultPreferences(userID uint) UserPreferences {
	return UserPreferences{
		UserID:               userID,
		NotificationsEnabled: true,
		FontSize:             "medium",
		Interests:            datatypes.JSON("[]"),
	}
}
