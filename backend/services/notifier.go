package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"learning-platform/backend/config"
	"learning-platform/backend/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Notifier records in-app notifications and sends the matching e-mails.
type Notifier struct {
	db     *gorm.DB
	mailer Mailer
	logger *log.Logger
	cfg    *config.Config
	wg     sync.WaitGroup
}

func NewNotifier(db *gorm.DB, mailer Mailer, logger *log.Logger, cfg *config.Config) *Notifier {
	return &Notifier{db: db, mailer: mailer, logger: logger, cfg: cfg}
}

// Create stores a notification. tx may be an open transaction or nil.
func (n *Notifier) Create(tx *gorm.DB, userID uint, typ models.NotificationType, title, message, actionURL string) (*models.Notification, error) {
	if tx == nil {
		tx = n.db
	}
	notification := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		ActionURL: actionURL,
	}
	if err := tx.Create(notification).Error; err != nil {
		return nil, errors.Wrap(err, "create notification")
	}
	return notification, nil
}

// NotifyNewCourse tells every student that course was published.
func (n *Notifier) NotifyNewCourse(ctx context.Context, course *models.Course) (int, error) {
	var studentIDs []uint
	if err := n.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleStudent).
		Pluck("id", &studentIDs).Error; err != nil {
		return 0, errors.Wrap(err, "list students")
	}
	if len(studentIDs) == 0 {
		return 0, nil
	}

	notifications := make([]models.Notification, 0, len(studentIDs))
	for _, id := range studentIDs {
		notifications = append(notifications, models.Notification{
			ID:        uuid.NewString(),
			UserID:    id,
			Type:      models.NotificationNewCourse,
			Title:     "Nuevo curso disponible",
			Message:   fmt.Sprintf("%s ya está disponible", course.Title),
			ActionURL: fmt.Sprintf("/courses/%d", course.ID),
		})
	}
	if err := n.db.WithContext(ctx).CreateInBatches(notifications, 200).Error; err != nil {
		return 0, errors.Wrap(err, "create course notifications")
	}
	return len(notifications), nil
}

// SendBadgeEmail mails the user about a new badge in the background,
// unless the user turned notifications off.
func (n *Notifier) SendBadgeEmail(userID uint, course models.Course, badge models.Badge) {
	var user models.User
	if err := n.db.First(&user, userID).Error; err != nil {
		n.logger.Printf("badge email: load user %d: %v", userID, err)
		return
	}
	var prefs models.UserPreferences
	if err := n.db.Where("user_id = ?", userID).First(&prefs).Error; err == nil && !prefs.NotificationsEnabled {
		return
	}

	text, err := renderBadgeEmail(badgeEmailData{
		Name:        user.FullName(),
		Course:      course.Title,
		Badge:       badge.Name,
		Description: badge.Description,
		ProfileURL:  strings.TrimRight(n.cfg.FrontendURL, "/") + "/me/profile",
	})
	if err != nil {
		n.logger.Printf("badge email: render: %v", err)
		return
	}

	msg := EmailMessage{
		ToName:  user.FullName(),
		ToEmail: user.Email,
		Subject: "¡Insignia obtenida: " + badge.Name + "!",
		Text:    text,
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := n.mailer.Send(ctx, msg); err != nil {
			n.logger.Printf("badge email to %s: %v", msg.ToEmail, err)
		}
	}()
}

// Wait blocks until queued e-mails are sent.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
