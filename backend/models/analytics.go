package models

type ChapterStat struct {
	ChapterID    uint   `json:"chapterId"`
	ChapterTitle string `json:"chapterTitle"`
	OrderIndex   int    `json:"orderIndex"`
	Completed    int64  `json:"completed"`
}

type CourseAnalytics struct {
	CourseID       uint          `json:"courseId"`
	CourseTitle    string        `json:"courseTitle"`
	Enrollments    int64         `json:"enrollments"`
	Completed      int64         `json:"completed"`
	AvgProgressPct float64       `json:"avgProgressPct"`
	BadgesAwarded  int64         `json:"badgesAwarded"`
	Chapters       []ChapterStat `json:"chapters"`
}

// All lists every table for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&LoginHistory{},
		&UserPreferences{},
		&Module{},
		&Course{},
		&Chapter{},
		&Enrollment{},
		&ChapterCompletion{},
		&ChapterPosition{},
		&Badge{},
		&UserBadge{},
		&Notification{},
		&Material{},
		&ChapterNote{},
	}
}
