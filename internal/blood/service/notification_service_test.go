package service

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func setupNotificationTest(t *testing.T) *NotificationService {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewNotificationService(rdb, zap.NewNop())
}

func TestPushAndList(t *testing.T) {
	svc := setupNotificationTest(t)
	ctx := context.Background()

	svc.Push(ctx, "user-n1", entity.NotifyNewBloodRequest, "first", nil)
	svc.Push(ctx, "user-n1", entity.NotifyDonorAccepted, "second", map[string]string{"request_id": "req-1"})

	list, err := svc.List(ctx, "user-n1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(list))
	}
	// 最新在前
	if list[0].Message != "second" || list[1].Message != "first" {
		t.Errorf("Expected newest first, got %q then %q", list[0].Message, list[1].Message)
	}
	if list[0].Read {
		t.Error("New notification must start unread")
	}
}

func TestRemoveDropsSingleNotification(t *testing.T) {
	svc := setupNotificationTest(t)
	ctx := context.Background()

	svc.Push(ctx, "user-n2", entity.NotifyNewBloodRequest, "keep-old", nil)
	svc.Push(ctx, "user-n2", entity.NotifyDonorAccepted, "drop-me", nil)
	svc.Push(ctx, "user-n2", entity.NotifyDeliveryUpdated, "keep-new", nil)

	list, _ := svc.List(ctx, "user-n2")
	if err := svc.Remove(ctx, "user-n2", list[1].ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	after, err := svc.List(ctx, "user-n2")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(after) != 2 {
		t.Fatalf("Expected 2 notifications after remove, got %d", len(after))
	}
	if after[0].Message != "keep-new" || after[1].Message != "keep-old" {
		t.Errorf("Remove must keep order, got %q then %q", after[0].Message, after[1].Message)
	}
}

func TestMarkAllRead(t *testing.T) {
	svc := setupNotificationTest(t)
	ctx := context.Background()

	svc.Push(ctx, "user-n3", entity.NotifyNewBloodRequest, "a", nil)
	svc.Push(ctx, "user-n3", entity.NotifyDonorAccepted, "b", nil)

	if err := svc.MarkAllRead(ctx, "user-n3"); err != nil {
		t.Fatalf("MarkAllRead failed: %v", err)
	}
	list, _ := svc.List(ctx, "user-n3")
	for _, n := range list {
		if !n.Read {
			t.Errorf("Notification %s still unread", n.ID)
		}
	}
}

func TestConcurrentPushNotLostDuringRewrite(t *testing.T) {
	svc := setupNotificationTest(t)
	ctx := context.Background()

	const pushes = 20
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < pushes; i++ {
			svc.Push(ctx, "user-n4", entity.NotifyNewBloodRequest, "incoming", nil)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < pushes; i++ {
			if err := svc.MarkAllRead(ctx, "user-n4"); err != nil && err != redis.TxFailedErr {
				t.Errorf("MarkAllRead failed: %v", err)
			}
		}
	}()
	wg.Wait()

	list, err := svc.List(ctx, "user-n4")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != pushes {
		t.Errorf("Expected %d notifications to survive concurrent rewrites, got %d", pushes, len(list))
	}
}
