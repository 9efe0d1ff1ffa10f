package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// notifyKeyPrefix 每个用户一个Redis列表
const notifyKeyPrefix = "notify:user:"

// maxNotifications 每用户保留的通知条数上限
const maxNotifications = 100

// notifyTTL 通知列表过期时间
const notifyTTL = 30 * 24 * time.Hour

// NotificationService 用户通知容器
// 会话期内由入站事件追加，由前端拉取和确认，显式注入而非全局状态
type NotificationService struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewNotificationService 创建通知服务
func NewNotificationService(rdb *redis.Client, logger *zap.Logger) *NotificationService {
	return &NotificationService{rdb: rdb, logger: logger}
}

func notifyKey(userID string) string {
	return notifyKeyPrefix + userID
}

// Push 追加一条通知
func (s *NotificationService) Push(ctx context.Context, userID, notifyType, message string, data interface{}) {
	var raw json.RawMessage
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			raw = b
		}
	}
	n := entity.Notification{
		ID:        uuid.New().String()[:32],
		Type:      notifyType,
		Message:   message,
		Data:      raw,
		CreatedAt: time.Now(),
	}
	b, err := json.Marshal(n)
	if err != nil {
		s.logger.Error("Marshal notification failed", zap.Error(err))
		return
	}

	key := notifyKey(userID)
	pipe := s.rdb.Pipeline()
	pipe.LPush(ctx, key, b)
	pipe.LTrim(ctx, key, 0, maxNotifications-1)
	pipe.Expire(ctx, key, notifyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("Push notification failed",
			zap.String("user_id", userID),
			zap.String("type", notifyType),
			zap.Error(err),
		)
	}
}

// List 拉取用户通知，最新在前
func (s *NotificationService) List(ctx context.Context, userID string) ([]entity.Notification, error) {
	items, err := s.rdb.LRange(ctx, notifyKey(userID), 0, maxNotifications-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]entity.Notification, 0, len(items))
	for _, item := range items {
		var n entity.Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// Remove 删除单条通知（确认消费）
func (s *NotificationService) Remove(ctx context.Context, userID, notificationID string) error {
	return s.rewrite(ctx, userID, func(n entity.Notification) (entity.Notification, bool) {
		if n.ID == notificationID {
			return n, false
		}
		return n, true
	})
}

// MarkAllRead 全部标记已读
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.rewrite(ctx, userID, func(n entity.Notification) (entity.Notification, bool) {
		n.Read = true
		return n, true
	})
}

// maxRewriteRetries WATCH冲突重试次数
const maxRewriteRetries = 3

// rewrite 重写整个列表，保持顺序
// 键上加WATCH，读到重写之间有新通知插入时整体重试
func (s *NotificationService) rewrite(ctx context.Context, userID string, apply func(entity.Notification) (entity.Notification, bool)) error {
	key := notifyKey(userID)
	txf := func(tx *redis.Tx) error {
		items, err := tx.LRange(ctx, key, 0, maxNotifications-1).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			// List最新在前，RPush按序恢复
			for _, item := range items {
				var n entity.Notification
				if err := json.Unmarshal([]byte(item), &n); err != nil {
					continue
				}
				updated, keep := apply(n)
				if !keep {
					continue
				}
				b, err := json.Marshal(updated)
				if err != nil {
					continue
				}
				pipe.RPush(ctx, key, b)
			}
			pipe.Expire(ctx, key, notifyTTL)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < maxRewriteRetries; i++ {
		err = s.rdb.Watch(ctx, txf, key)
		if err != redis.TxFailedErr {
			return err
		}
	}
	return err
}
