package models

import "time"

// Enrollment is a user's assignment to a course together with its progress.
type Enrollment struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"uniqueIndex:idx_enrollment_user_course;not null" json:"userId"`
	CourseID      uint       `gorm:"uniqueIndex:idx_enrollment_user_course;index;not null" json:"courseId"`
	Course        Course     `json:"-"`
	ProgressPct   int        `gorm:"not null;default:0" json:"progressPct"`
	CompletedAt   *time.Time `json:"completedAt"`
	LastChapterID *uint      `json:"lastChapterId"`
	LastWatchedAt *time.Time `json:"lastWatchedAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type ChapterCompletion struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"uniqueIndex:idx_completion_user_chapter;not null"`
	ChapterID   uint      `gorm:"uniqueIndex:idx_completion_user_chapter;index;not null"`
	CourseID    uint      `gorm:"index;not null"`
	CompletedAt time.Time `gorm:"not null"`
}

// ChapterPosition is the last viewer position reported for a chapter.
type ChapterPosition struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	UserID          uint      `gorm:"uniqueIndex:idx_position_user_chapter;not null" json:"userId"`
	ChapterID       uint      `gorm:"uniqueIndex:idx_position_user_chapter;not null" json:"chapterId"`
	CourseID        uint      `gorm:"index;not null" json:"courseId"`
	PositionSeconds float64   `json:"positionSeconds"`
	DurationSeconds float64   `json:"durationSeconds"`
	Page            int       `json:"page"`
	TotalPages      int       `json:"totalPages"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// CourseProgress is the summary row returned by the training endpoints.
type CourseProgress struct {
	CourseID    uint       `json:"courseId"`
	CourseTitle string     `json:"courseTitle"`
	ProgressPct int        `json:"progressPct"`
	CompletedAt *time.Time `json:"completedAt"`
}

type CompletedChapter struct {
	ChapterID    uint   `json:"chapterId"`
	ChapterTitle string `json:"chapterTitle"`
}

type DetailedCourseProgress struct {
	CourseProgress
	TotalChapters     int                `json:"totalChapters"`
	CompletedChapters []CompletedChapter `json:"completedChapters"`
	LastChapterID     *uint              `json:"lastChapterId"`
	LastWatchedAt     *time.Time         `json:"lastWatchedAt"`
	Positions         []ChapterPosition  `json:"positions"`
}

// CompletionResult describes the outcome of completing a chapter.
type CompletionResult struct {
	CourseID          uint        `json:"courseId"`
	ChapterID         uint        `json:"chapterId"`
	AlreadyCompleted  bool        `json:"alreadyCompleted"`
	ProgressPct       int         `json:"progressPct"`
	CompletedChapters int         `json:"completedChapters"`
	TotalChapters     int         `json:"totalChapters"`
	CourseCompleted   bool        `json:"courseCompleted"`
	Badge             *BadgeAward `json:"badge,omitempty"`
}

// PositionReport is what the video and PDF viewers send while a chapter is open.
type PositionReport struct {
	PositionSeconds float64 `json:"positionSeconds" validate:"gte=0"`
	DurationSeconds float64 `json:"durationSeconds" validate:"gte=0"`
	Page            int     `json:"page" validate:"gte=0"`
	TotalPages      int     `json:"totalPages" validate:"gte=0"`
}

// ProgressPercent is floor(done*100/total); it only reaches 100 when every
// chapter is done.
func ProgressPercent(done, total int) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return done * 100 / total
}

type DashboardOverview struct {
	Enrolled         int              `json:"enrolled"`
	InProgress       int              `json:"inProgress"`
	Completed        int              `json:"completed"`
	Badges           int              `json:"badges"`
	StreakDays       int              `json:"streakDays"`
	UnreadAlerts     int64            `json:"unreadNotifications"`
	ContinueLearning []CourseProgress `json:"continueLearning"`
	Recommended      []Course         `json:"recommended"`
}
