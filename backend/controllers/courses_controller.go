package controllers

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"

	"learning-platform/backend/cache"
	"learning-platform/backend/config"
	"learning-platform/backend/models"
	"learning-platform/backend/services"
	"learning-platform/backend/storage"
	"learning-platform/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type CoursesController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Cache    cache.Store
	Storage  storage.Storage
	Training *services.TrainingService
	Notifier *services.Notifier
	Logger   *log.Logger
}

type ChapterRequest struct {
	Title           string             `json:"title" validate:"required,max=200"`
	OrderIndex      *int               `json:"orderIndex" validate:"omitempty,gte=0"`
	FileName        string             `json:"fileName"`
	S3Key           string             `json:"s3Key"`
	ContentType     models.ContentType `json:"contentType" validate:"omitempty,content_type"`
	DurationSeconds int                `json:"durationSeconds" validate:"gte=0"`
	PageCount       int                `json:"pageCount" validate:"gte=0"`
}

type CourseRequest struct {
	ModuleID    uint             `json:"moduleId" validate:"required"`
	Title       string           `json:"title" validate:"required,max=200"`
	Description string           `json:"description"`
	Tags        string           `json:"tags"`
	Level       string           `json:"level" validate:"omitempty,max=50"`
	Published   bool             `json:"published"`
	CoverURL    string           `json:"coverUrl"`
	Chapters    []ChapterRequest `json:"chapterList" validate:"dive"`
}

type ReorderRequest struct {
	ChapterIDs []uint `json:"chapterIds" validate:"required,min=1"`
}

func (r ChapterRequest) apply(ch *models.Chapter, fallbackOrder int) {
	ch.Title = strings.TrimSpace(r.Title)
	ch.OrderIndex = fallbackOrder
	if r.OrderIndex != nil {
		ch.OrderIndex = *r.OrderIndex
	}
	ch.FileName = r.FileName
	ch.S3Key = r.S3Key
	ch.ContentType = r.ContentType
	ch.DurationSeconds = r.DurationSeconds
	ch.PageCount = r.PageCount
}

func (r CourseRequest) apply(course *models.Course) {
	course.ModuleID = r.ModuleID
	course.Title = strings.TrimSpace(r.Title)
	course.Description = r.Description
	course.Tags = r.Tags
	course.Level = r.Level
	course.Published = r.Published
	course.CoverURL = r.CoverURL
}

// GetCourses godoc
// @Summary Course catalog
// @Description Published courses, optionally filtered. Staff may add includeDrafts=true.
// @Tags courses
// @Produce json
// @Param module query string false "Module id or name"
// @Param level query string false "Level"
// @Param q query string false "Text search in title and description"
// @Param tag query string false "Tag"
// @Param sortBy query string false "newest, title or popular"
// @Param includeDrafts query bool false "Staff only"
// @Success 200 {array} models.Course
// @Security ApiKeyAuth
// @Router /courses [get]
func (cc *CoursesController) GetCourses(c *fiber.Ctx) error {
	filter := catalogFilter{
		Module: strings.TrimSpace(c.Query("module")),
		Level:  strings.TrimSpace(c.Query("level")),
		Search: strings.TrimSpace(c.Query("q", c.Query("search"))),
		Tag:    strings.TrimSpace(c.Query("tag")),
		SortBy: c.Query("sortBy", "newest"),
		Drafts: c.QueryBool("includeDrafts") && callerRole(c).IsStaff(),
	}
	ctx := c.UserContext()

	key, err := cache.CatalogKey(ctx, cc.Cache, filter.key())
	if err == nil {
		if cached, ok, err := cc.Cache.Get(ctx, key); err == nil && ok {
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.SendString(cached)
		}
	}

	courses, err := cc.catalog(filter)
	if err != nil {
		return utils.HandleError(c, err)
	}
	body, err := json.Marshal(courses)
	if err != nil {
		return errors.Wrap(err, "encode catalog")
	}
	if key != "" {
		if err := cc.Cache.Set(ctx, key, string(body), cc.Cfg.CatalogCacheTTL); err != nil {
			cc.Logger.Printf("catalog cache set: %v", err)
		}
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

type catalogFilter struct {
	Module, Level, Search, Tag, SortBy string
	Drafts                             bool
}

func (f catalogFilter) key() string {
	return strings.Join([]string{
		"m=" + f.Module, "l=" + f.Level, "q=" + strings.ToLower(f.Search),
		"t=" + strings.ToLower(f.Tag), "s=" + f.SortBy, "d=" + strconv.FormatBool(f.Drafts),
	}, "&")
}

func (cc *CoursesController) catalog(f catalogFilter) ([]models.Course, error) {
	query := cc.DB.Model(&models.Course{}).Preload("Module").Preload("Chapters")
	if !f.Drafts {
		query = query.Where("courses.published = ?", true)
	}
	if f.Module != "" {
		if id, err := strconv.ParseUint(f.Module, 10, 64); err == nil {
			query = query.Where("courses.module_id = ?", id)
		} else {
			query = query.Where("courses.module_id IN (?)",
				cc.DB.Model(&models.Module{}).Select("id").Where("LOWER(name) = ?", strings.ToLower(f.Module)))
		}
	}
	if f.Level != "" {
		query = query.Where("LOWER(courses.level) = ?", strings.ToLower(f.Level))
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where("LOWER(courses.title) LIKE ? OR LOWER(courses.description) LIKE ?", like, like)
	}
	if f.Tag != "" {
		query = query.Where("LOWER(courses.tags) LIKE ?", "%"+strings.ToLower(f.Tag)+"%")
	}

	switch f.SortBy {
	case "title":
		query = query.Order("courses.title")
	case "popular":
		query = query.Order("(SELECT COUNT(*) FROM enrollments WHERE enrollments.course_id = courses.id) DESC").
			Order("courses.id DESC")
	case "newest", "":
		query = query.Order("courses.created_at DESC").Order("courses.id DESC")
	default:
		return nil, errors.Wrapf(utils.ErrInvalid, "unknown sortBy %q", f.SortBy)
	}

	courses := []models.Course{}
	if err := query.Find(&courses).Error; err != nil {
		return nil, errors.Wrap(err, "list courses")
	}
	// the LIKE on tags is loose; keep only exact tag matches
	if f.Tag != "" {
		filtered := courses[:0]
		for _, course := range courses {
			for _, t := range course.TagList() {
				if strings.EqualFold(t, f.Tag) {
					filtered = append(filtered, course)
					break
				}
			}
		}
		courses = filtered
	}
	for i := range courses {
		courses[i].Prepare(cc.Cfg.PublicFilesURL)
	}
	return courses, nil
}

// GetCourseDetails godoc
// @Summary Course with its ordered chapters
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} models.Course
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses/{id} [get]
func (cc *CoursesController) GetCourseDetails(c *fiber.Ctx) error {
	course, err := cc.loadCourse(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if !course.Published && !callerRole(c).IsStaff() {
		return utils.NotFound(c, "Course not found")
	}
	course.Prepare(cc.Cfg.PublicFilesURL)
	return c.JSON(course)
}

// CreateCourse godoc
// @Summary Create a course
// @Description Accepts JSON, or multipart with a "course" JSON part and "files" parts matched to chapters by fileName.
// @Tags courses
// @Accept json,mpfd
// @Produce json
// @Success 201 {object} models.Course
// @Failure 400 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /courses [post]
func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	var input CourseRequest
	form, err := c.MultipartForm()
	multipart := err == nil
	if multipart {
		raw := form.Value["course"]
		if len(raw) == 0 {
			return utils.BadRequest(c, "Missing course part")
		}
		if err := json.Unmarshal([]byte(raw[0]), &input); err != nil {
			return utils.BadRequest(c, "Cannot parse course JSON")
		}
		if fields := utils.Validate(&input); fields != nil {
			return utils.ValidationError(c, fields)
		}
	} else if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	if err := cc.DB.First(&models.Module{}, input.ModuleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ValidationError(c, map[string]string{"moduleId": "moduleId does not exist"})
		}
		return errors.Wrap(err, "load module")
	}

	for i, ch := range input.Chapters {
		if !keyAllowed(ch.S3Key, "") {
			return utils.ValidationError(c, map[string]string{
				"chapterList[" + strconv.Itoa(i) + "].s3Key": keyNotAllowed,
			})
		}
	}

	course := models.Course{AuthorID: callerID(c)}
	input.apply(&course)
	for i, ch := range input.Chapters {
		var chapter models.Chapter
		ch.apply(&chapter, i)
		course.Chapters = append(course.Chapters, chapter)
	}

	var stored []string
	if multipart {
		for _, fh := range form.File["files"] {
			idx := -1
			for i := range course.Chapters {
				if course.Chapters[i].FileName == fh.Filename && course.Chapters[i].S3Key == "" {
					idx = i
					break
				}
			}
			if idx < 0 {
				cc.removeKeys(stored)
				return utils.BadRequest(c, "File "+fh.Filename+" does not match any chapter")
			}
			up, err := saveUpload(cc.Storage, "courses", fh)
			if err != nil {
				cc.removeKeys(stored)
				return err
			}
			stored = append(stored, up.Key)
			fillChapterFile(cc.Storage, &course.Chapters[idx], fh.Filename, up)
		}
	}
	for i := range course.Chapters {
		if course.Chapters[i].ContentType == "" {
			course.Chapters[i].ContentType = models.ContentVideo
		}
	}

	if err := cc.DB.Create(&course).Error; err != nil {
		cc.removeKeys(stored)
		return utils.HandleError(c, err)
	}
	cc.invalidate(c.UserContext())
	if course.Published {
		cc.announce(c.UserContext(), &course)
	}

	if err := cc.DB.Preload("Module").Preload("Chapters").First(&course, course.ID).Error; err != nil {
		return errors.Wrap(err, "reload course")
	}
	course.Prepare(cc.Cfg.PublicFilesURL)
	return utils.Created(c, course)
}

// UpdateCourse changes the course fields. Chapters are managed through the
// chapter endpoints.
func (cc *CoursesController) UpdateCourse(c *fiber.Ctx) error {
	course, err := cc.ownedCourse(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input CourseRequest
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	if input.ModuleID != course.ModuleID {
		if err := cc.DB.First(&models.Module{}, input.ModuleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ValidationError(c, map[string]string{"moduleId": "moduleId does not exist"})
			}
			return errors.Wrap(err, "load module")
		}
	}

	wasPublished := course.Published
	input.apply(course)
	if err := cc.DB.Omit("Chapters", "Module").Save(course).Error; err != nil {
		return utils.HandleError(c, err)
	}
	cc.invalidate(c.UserContext())
	if course.Published && !wasPublished {
		cc.announce(c.UserContext(), course)
	}

	return cc.respondCourse(c, course.ID)
}

func (cc *CoursesController) DeleteCourse(c *fiber.Ctx) error {
	course, err := cc.ownedCourse(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	if err := cc.DB.Delete(course).Error; err != nil {
		return errors.Wrap(err, "delete course")
	}
	cc.invalidate(c.UserContext())
	return utils.NoContent(c)
}

// AddChapter godoc
// @Summary Add a chapter
// @Description JSON body, or multipart with a "chapter" JSON part and an optional "file".
// @Tags courses
// @Accept json,mpfd
// @Produce json
// @Param id path int true "Course ID"
// @Success 201 {object} models.Chapter
// @Security ApiKeyAuth
// @Router /courses/{id}/chapters [post]
func (cc *CoursesController) AddChapter(c *fiber.Ctx) error {
	course, err := cc.ownedCourse(c)
	if err != nil {
		return utils.HandleError(c, err)
	}

	var input ChapterRequest
	form, ferr := c.MultipartForm()
	if ferr == nil {
		raw := form.Value["chapter"]
		if len(raw) == 0 {
			return utils.BadRequest(c, "Missing chapter part")
		}
		if err := json.Unmarshal([]byte(raw[0]), &input); err != nil {
			return utils.BadRequest(c, "Cannot parse chapter JSON")
		}
		if fields := utils.Validate(&input); fields != nil {
			return utils.ValidationError(c, fields)
		}
	} else if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	var count int64
	if err := cc.DB.Model(&models.Chapter{}).Where("course_id = ?", course.ID).Count(&count).Error; err != nil {
		return errors.Wrap(err, "count chapters")
	}
	if !keyAllowed(input.S3Key, "") {
		return utils.ValidationError(c, map[string]string{"s3Key": keyNotAllowed})
	}
	chapter := models.Chapter{CourseID: course.ID}
	input.apply(&chapter, int(count))

	if ferr == nil {
		if files := form.File["file"]; len(files) > 0 {
			up, err := saveUpload(cc.Storage, "courses", files[0])
			if err != nil {
				return err
			}
			fillChapterFile(cc.Storage, &chapter, files[0].Filename, up)
		}
	}
	if chapter.ContentType == "" {
		chapter.ContentType = models.ContentVideo
	}

	if err := cc.DB.Create(&chapter).Error; err != nil {
		if isStoredKey(chapter.S3Key) {
			_ = cc.Storage.Delete(chapter.S3Key)
		}
		return errors.Wrap(err, "create chapter")
	}
	if err := cc.Training.RecalculateCourse(c.UserContext(), course.ID); err != nil {
		return err
	}
	cc.invalidate(c.UserContext())

	chapter.ContentURL = models.ContentURL(cc.Cfg.PublicFilesURL, chapter.S3Key)
	return utils.Created(c, chapter)
}

func (cc *CoursesController) UpdateChapter(c *fiber.Ctx) error {
	course, err := cc.ownedCourse(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	chapter, err := cc.chapterOf(c, course.ID)
	if err != nil {
		return utils.HandleError(c, err)
	}

	var input ChapterRequest
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}
	if !keyAllowed(input.S3Key, chapter.S3Key) {
		return utils.ValidationError(c, map[string]string{"s3Key": keyNotAllowed})
	}
	oldKey, oldName := chapter.S3Key, chapter.FileName
	input.apply(chapter, chapter.OrderIndex)
	if input.S3Key == "" {
		chapter.S3Key = oldKey
		if input.FileName == "" {
			chapter.FileName = oldName
		}
	}
	if chapter.ContentType == "" {
		chapter.ContentType = models.ContentVideo
	}
	if err := cc.DB.Save(chapter).Error; err != nil {
		return errors.Wrap(err, "update chapter")
	}
	if oldKey != chapter.S3Key && isStoredKey(oldKey) {
		if err := cc.Storage.Delete(oldKey); err != nil {
			cc.Logger.Printf("delete replaced chapter file %s: %v", oldKey, err)
		}
	}
	cc.invalidate(c.UserContext())

	chapter.ContentURL = models.ContentURL(cc.Cfg.PublicFilesURL, chapter.S3Key)
	return c.JSON(chapter)
}

// DeleteChapter removes the chapter with everything learners recorded on it
// and recomputes the course progress.
func (cc *CoursesController) DeleteChapter(c *fiber.Ctx) error {
	course, err := cc.ownedCourse(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	chapter, err := cc.chapterOf(c, course.ID)
	if err != nil {
		return utils.HandleError(c, err)
	}

	err = cc.DB.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.ChapterCompletion{}, &models.ChapterPosition{}, &models.ChapterNote{}} {
			if err := tx.Where("chapter_id = ?", chapter.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&models.Enrollment{}).Where("last_chapter_id = ?", chapter.ID).
			Update("last_chapter_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(chapter).Error
	})
	if err != nil {
		return errors.Wrap(err, "delete chapter")
	}
	if isStoredKey(chapter.S3Key) {
		if err := cc.Storage.Delete(chapter.S3Key); err != nil {
			cc.Logger.Printf("delete chapter file %s: %v", chapter.S3Key, err)
		}
	}
	if err := cc.Training.RecalculateCourse(c.UserContext(), course.ID); err != nil {
		return err
	}
	cc.invalidate(c.UserContext())
	return utils.NoContent(c)
}

// ReorderChapters sets orderIndex from the position of each id in the list,
// which must name every chapter of the course exactly once.
func (cc *CoursesController) ReorderChapters(c *fiber.Ctx) error {
	course, err := cc.ownedCourse(c)
	if err != nil {
		return utils.HandleError(c, err)
	}
	var input ReorderRequest
	if ok, err := utils.ParseAndValidate(c, &input); !ok {
		return err
	}

	var ids []uint
	if err := cc.DB.Model(&models.Chapter{}).Where("course_id = ?", course.ID).Pluck("id", &ids).Error; err != nil {
		return errors.Wrap(err, "list chapters")
	}
	known := make(map[uint]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	if len(input.ChapterIDs) != len(ids) {
		return utils.BadRequest(c, "chapterIds must list every chapter of the course")
	}
	for _, id := range input.ChapterIDs {
		if !known[id] {
			return utils.BadRequest(c, "chapterIds must list every chapter of the course exactly once")
		}
		delete(known, id)
	}

	err = cc.DB.Transaction(func(tx *gorm.DB) error {
		for i, id := range input.ChapterIDs {
			if err := tx.Model(&models.Chapter{}).Where("id = ?", id).Update("order_index", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "reorder chapters")
	}
	cc.invalidate(c.UserContext())
	return cc.respondCourse(c, course.ID)
}

func (cc *CoursesController) respondCourse(c *fiber.Ctx, id uint) error {
	var course models.Course
	if err := cc.DB.Preload("Module").Preload("Chapters").First(&course, id).Error; err != nil {
		return errors.Wrap(err, "reload course")
	}
	course.Prepare(cc.Cfg.PublicFilesURL)
	return c.JSON(course)
}

func (cc *CoursesController) loadCourse(c *fiber.Ctx) (*models.Course, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	var course models.Course
	if err := cc.DB.Preload("Module").Preload("Chapters").First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(utils.ErrNotFound, "course %d", id)
		}
		return nil, err
	}
	return &course, nil
}

// ownedCourse loads the course and checks the caller may modify it.
func (cc *CoursesController) ownedCourse(c *fiber.Ctx) (*models.Course, error) {
	course, err := cc.loadCourse(c)
	if err != nil {
		return nil, err
	}
	if callerRole(c) != models.RoleAdmin && course.AuthorID != callerID(c) {
		return nil, errors.Wrap(utils.ErrForbidden, "only the author or an admin may modify this course")
	}
	return course, nil
}

func (cc *CoursesController) chapterOf(c *fiber.Ctx, courseID uint) (*models.Chapter, error) {
	id, err := paramID(c, "chapterId")
	if err != nil {
		return nil, err
	}
	var chapter models.Chapter
	if err := cc.DB.Where("id = ? AND course_id = ?", id, courseID).First(&chapter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(utils.ErrNotFound, "chapter %d", id)
		}
		return nil, err
	}
	return &chapter, nil
}

func (cc *CoursesController) invalidate(ctx context.Context) {
	if err := cache.InvalidateCatalog(ctx, cc.Cache); err != nil {
		cc.Logger.Printf("catalog cache invalidate: %v", err)
	}
}

func (cc *CoursesController) announce(ctx context.Context, course *models.Course) {
	if _, err := cc.Notifier.NotifyNewCourse(ctx, course); err != nil {
		cc.Logger.Printf("notify new course %d: %v", course.ID, err)
	}
}

func (cc *CoursesController) removeKeys(keys []string) {
	for _, key := range keys {
		_ = cc.Storage.Delete(key)
	}
}
