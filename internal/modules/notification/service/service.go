package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/dulgistudio/dulgi/internal/entity"
	notifRepo "github.com/dulgistudio/dulgi/internal/modules/notification/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Hub receives notifications for live delivery (the websocket feed).
type Hub interface {
	Broadcast(userID string, payload []byte)
}

type NotificationService interface {
	// Deliver persists and fans out one milestone notification. Delivery is
	// best-effort by design: the ledger's notified markers are the source of
	// truth for idempotence, so a lost delivery is never re-fired.
	Deliver(ctx context.Context, notification *entity.Notification)

	GetNotifications(userID string, limit, offset int) ([]entity.Notification, error)
	MarkAsRead(id uuid.UUID) error
	MarkAllAsRead(userID string) error
	UnreadCount(userID string) (int64, error)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	redisClient *redis.Client
	hub         Hub
}

// NewNotificationService wires persistence, redis pub/sub and the live hub.
// Any of the three collaborators may be nil; the service degrades to the
// channels that are configured.
func NewNotificationService(repo notifRepo.NotificationRepository, redisClient *redis.Client, hub Hub) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
		hub:         hub,
	}
}

func (s *notificationService) Deliver(ctx context.Context, notification *entity.Notification) {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}

	if s.repo != nil {
		if err := s.repo.Create(notification); err != nil {
			log.Printf("❌ failed to persist notification for user %s: %v", notification.UserID, err)
		}
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		log.Printf("❌ failed to encode notification for user %s: %v", notification.UserID, err)
		return
	}

	if s.redisClient != nil {
		channel := fmt.Sprintf("user_notifications:%s", notification.UserID)
		s.redisClient.Publish(ctx, channel, payload)
	}

	if s.hub != nil {
		s.hub.Broadcast(notification.UserID, payload)
	}
}

func (s *notificationService) GetNotifications(userID string, limit, offset int) ([]entity.Notification, error) {
	if s.repo == nil {
		return []entity.Notification{}, nil
	}
	return s.repo.GetByUserID(userID, limit, offset)
}

func (s *notificationService) MarkAsRead(id uuid.UUID) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.MarkAsRead(id)
}

func (s *notificationService) MarkAllAsRead(userID string) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.MarkAllAsRead(userID)
}

func (s *notificationService) UnreadCount(userID string) (int64, error) {
	if s.repo == nil {
		return 0, nil
	}
	return s.repo.CountUnread(userID)
}
