package models

import (
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

type ContentType string

const (
	ContentVideo ContentType = "video"
	ContentPDF   ContentType = "pdf"
)

type Module struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Course struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ModuleID    uint           `gorm:"index;not null" json:"moduleId"`
	Module      Module         `json:"-"`
	ModuleName  string         `gorm:"-" json:"moduleName"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `json:"description"`
	Tags        string         `json:"tags"`
	Level       string         `json:"level,omitempty"`
	Published   bool           `gorm:"index" json:"published"`
	CoverURL    string         `json:"coverUrl"`
	AuthorID    uint           `gorm:"index" json:"authorId"`
	Chapters    []Chapter      `gorm:"constraint:OnDelete:CASCADE" json:"chapterList"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Prepare orders the chapter list and fills the derived fields before the
// course is written to a response.
func (c *Course) Prepare(filesURL string) {
	if c.Module.ID != 0 {
		c.ModuleName = c.Module.Name
	}
	SortChapters(c.Chapters)
	for i := range c.Chapters {
		c.Chapters[i].ContentURL = ContentURL(filesURL, c.Chapters[i].S3Key)
	}
}

// TagList splits the comma separated tags.
func (c *Course) TagList() []string {
	var out []string
	for _, t := range strings.Split(c.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

type Chapter struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	CourseID        uint        `gorm:"index;not null" json:"courseId"`
	Title           string      `gorm:"not null" json:"title"`
	OrderIndex      int         `json:"orderIndex"`
	FileName        string      `json:"fileName"`
	S3Key           string      `json:"s3Key"`
	ContentType     ContentType `gorm:"type:varchar(10)" json:"contentType"`
	DurationSeconds int         `json:"durationSeconds,omitempty"`
	PageCount       int         `json:"pageCount,omitempty"`
	ContentURL      string      `gorm:"-" json:"contentUrl"`
	CreatedAt       time.Time   `json:"-"`
	UpdatedAt       time.Time   `json:"-"`
}

func SortChapters(chapters []Chapter) {
	sort.SliceStable(chapters, func(i, j int) bool {
		if chapters[i].OrderIndex == chapters[j].OrderIndex {
			return chapters[i].ID < chapters[j].ID
		}
		return chapters[i].OrderIndex < chapters[j].OrderIndex
	})
}

// ContentURL resolves a stored key against the public files URL. Keys that
// are already absolute URLs are returned unchanged.
func ContentURL(base, key string) string {
	if key == "" {
		return ""
	}
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
