package models

import (
	"mime"
	"path/filepath"
	"strings"
	"time"
)

type NotificationType string

const (
	NotificationNewCourse NotificationType = "NEW_COURSE"
	NotificationBadge     NotificationType = "BADGE"
	NotificationReminder  NotificationType = "REMINDER"
)

type Notification struct {
	ID        string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    uint             `gorm:"index;not null" json:"userId"`
	Type      NotificationType `gorm:"type:varchar(20);index;not null" json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	ActionURL string           `json:"actionUrl,omitempty"`
	Read      bool             `gorm:"index" json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

type MaterialType string

const (
	MaterialVideo    MaterialType = "video"
	MaterialPDF      MaterialType = "pdf"
	MaterialDocument MaterialType = "document"
	MaterialImage    MaterialType = "image"
)

// MaterialTypeFor classifies an upload by content type, falling back to the
// file extension.
func MaterialTypeFor(fileName, contentType string) MaterialType {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName)))
	}
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return MaterialVideo
	case strings.HasPrefix(contentType, "image/"):
		return MaterialImage
	case contentType == "application/pdf":
		return MaterialPDF
	default:
		return MaterialDocument
	}
}

type Material struct {
	ID         string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name       string       `gorm:"not null" json:"name"`
	Type       MaterialType `gorm:"type:varchar(10)" json:"type"`
	Size       int64        `json:"size"`
	URL        string       `json:"url"`
	StorageKey string       `json:"-"`
	UploadedAt time.Time    `json:"uploadedAt"`
	UploadedBy uint         `gorm:"index" json:"uploadedBy"`
}

// ChapterNote is a learner's private note on a chapter.
type ChapterNote struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    uint      `gorm:"uniqueIndex:idx_note_user_chapter;not null" json:"userId"`
	ChapterID uint      `gorm:"uniqueIndex:idx_note_user_chapter;not null" json:"chapterId"`
	CourseID  uint      `gorm:"index;not null" json:"courseId"`
	Content   string    `gorm:"type:text" json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}
