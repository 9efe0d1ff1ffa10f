package sse

import (
	"encoding/json"
	"testing"

	"go.uber.org/zap"
)

func newTestClient(id, userID string, buffer int) *Client {
	return &Client{ID: id, UserID: userID, Events: make(chan Event, buffer)}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c1 := newTestClient("c1", "user-a", 4)
	c2 := newTestClient("c2", "user-b", 4)
	hub.Register(c1)
	hub.Register(c2)

	hub.PublishDonorAccepted("req-1", "donor-1", "Alice", "recip-1")

	for _, c := range []*Client{c1, c2} {
		select {
		case ev := <-c.Events:
			if ev.EventType != "donor-accepted" {
				t.Errorf("Expected donor-accepted, got %s", ev.EventType)
			}
			var payload map[string]string
			if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
				t.Fatalf("Invalid event payload: %v", err)
			}
			if payload["requestId"] != "req-1" || payload["donorName"] != "Alice" {
				t.Errorf("Unexpected payload: %v", payload)
			}
		default:
			t.Errorf("Client %s did not receive broadcast", c.ID)
		}
	}
}

func TestSendToUserTargetsOnlyThatUser(t *testing.T) {
	hub := NewHub(zap.NewNop())
	donor := newTestClient("c1", "donor-1", 4)
	other := newTestClient("c2", "donor-2", 4)
	hub.Register(donor)
	hub.Register(other)

	hub.PublishNewBloodRequest([]string{"donor-1"}, "O+ needed", map[string]string{"id": "req-1"})

	select {
	case ev := <-donor.Events:
		if ev.EventType != "new-blood-request" {
			t.Errorf("Expected new-blood-request, got %s", ev.EventType)
		}
	default:
		t.Error("Target donor did not receive event")
	}

	select {
	case ev := <-other.Events:
		t.Errorf("Non-target client received event %s", ev.EventType)
	default:
	}
}

func TestFullBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := newTestClient("c1", "user-a", 1)
	hub.Register(c)

	// 第二条在缓冲满时被丢弃，调用不能阻塞
	hub.PublishRequestFulfilled("user-a", "req-1")
	hub.PublishRequestFulfilled("user-a", "req-2")

	if got := len(c.Events); got != 1 {
		t.Errorf("Expected 1 buffered event, got %d", got)
	}
}

func TestUnregisterClosesChannel(t *testing.T) {
	hub := NewHub(zap.NewNop())
	c := newTestClient("c1", "user-a", 1)
	hub.Register(c)
	hub.Unregister("c1")

	if _, open := <-c.Events; open {
		t.Error("Expected events channel to be closed")
	}

	// 注销后的推送不会panic
	hub.PublishRequestFulfilled("user-a", "req-1")
}
