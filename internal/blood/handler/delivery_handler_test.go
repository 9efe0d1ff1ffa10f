package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"github.com/bloodstream/bloodstream/internal/blood/service"
	"github.com/bloodstream/bloodstream/internal/blood/sse"
	"github.com/bloodstream/bloodstream/internal/blood/testutil"
	"github.com/bloodstream/bloodstream/internal/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func setupDeliveryTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	repos := repository.NewRepositories(db)
	logger := zap.NewNop()
	hub := sse.NewHub(logger)
	notifySvc := service.NewNotificationService(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), logger)
	svc := service.NewDeliveryService(repos.Delivery, repos.Request, repos.User, hub, notifySvc, logger)
	h := NewDeliveryHandler(svc)

	api := testutil.AuthGroup(router, "/api/v1")
	deliveries := api.Group("/deliveries")
	{
		deliveries.POST("", middleware.RequireRole(entity.RoleAdmin), h.Assign)
		deliveries.GET("", h.List)
		deliveries.GET("/:id", h.Get)
		deliveries.PUT("/:id/status", middleware.RequireRole(entity.RoleDelivery), h.UpdateStatus)
		deliveries.PUT("/:id/position", middleware.RequireRole(entity.RoleDelivery), h.UpdatePosition)
	}

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func seedFulfilledRequest(t *testing.T, env *testutil.TestEnv, reqID, recipientID string) {
	t.Helper()
	now := time.Now()
	req := testutil.SeedRequest(t, env.DB, reqID, recipientID, "A+", 1)
	req.Status = entity.RequestStatusFulfilled
	req.FulfilledAt = &now
	env.DB.Save(req)
}

func TestAssignAndProgressDelivery(t *testing.T) {
	env := setupDeliveryTest(t)

	testutil.SeedUser(t, env.DB, "recip-del", entity.RoleRecipient, "A+", nil)
	testutil.SeedUser(t, env.DB, "courier-1", entity.RoleDelivery, "", nil)
	seedFulfilledRequest(t, env, "req-del", "recip-del")

	adminToken := testutil.AdminTestToken()
	courierToken := testutil.GenerateTestToken("courier-1", "Courier", entity.RoleDelivery, "")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/deliveries", map[string]interface{}{
		"request_id":   "req-del",
		"courier_id":   "courier-1",
		"pickup_name":  "Central Blood Bank",
		"dropoff_name": "City Hospital",
	}, adminToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	deliveryID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	// assigned → picked-up → in-transit → delivered
	for _, status := range []string{
		entity.DeliveryStatusPickedUp,
		entity.DeliveryStatusInTransit,
		entity.DeliveryStatusDelivered,
	} {
		w2 := testutil.DoRequest(env.Router, "PUT", "/api/v1/deliveries/"+deliveryID+"/status",
			map[string]interface{}{"status": status}, courierToken)
		if w2.Code != http.StatusOK {
			t.Fatalf("Transition to %s: expected 200, got %d: %s", status, w2.Code, w2.Body.String())
		}
	}

	var delivery entity.Delivery
	env.DB.First(&delivery, "id = ?", deliveryID)
	if delivery.Status != entity.DeliveryStatusDelivered {
		t.Errorf("Expected delivered, got %s", delivery.Status)
	}
	if delivery.DeliveredAt == nil {
		t.Error("Expected delivered_at to be set")
	}
}

func TestInvalidTransitionRejected(t *testing.T) {
	env := setupDeliveryTest(t)

	testutil.SeedUser(t, env.DB, "recip-del2", entity.RoleRecipient, "A+", nil)
	testutil.SeedUser(t, env.DB, "courier-2", entity.RoleDelivery, "", nil)
	seedFulfilledRequest(t, env, "req-del2", "recip-del2")

	adminToken := testutil.AdminTestToken()
	courierToken := testutil.GenerateTestToken("courier-2", "Courier", entity.RoleDelivery, "")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/deliveries", map[string]interface{}{
		"request_id":   "req-del2",
		"courier_id":   "courier-2",
		"pickup_name":  "Bank",
		"dropoff_name": "Hospital",
	}, adminToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	deliveryID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	// assigned不能直接delivered
	w2 := testutil.DoRequest(env.Router, "PUT", "/api/v1/deliveries/"+deliveryID+"/status",
		map[string]interface{}{"status": entity.DeliveryStatusDelivered}, courierToken)
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for assigned->delivered, got %d: %s", w2.Code, w2.Body.String())
	}
}

func TestAssignRequiresFulfilledRequest(t *testing.T) {
	env := setupDeliveryTest(t)

	testutil.SeedUser(t, env.DB, "recip-del3", entity.RoleRecipient, "A+", nil)
	testutil.SeedUser(t, env.DB, "courier-3", entity.RoleDelivery, "", nil)
	testutil.SeedRequest(t, env.DB, "req-open", "recip-del3", "A+", 1)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/deliveries", map[string]interface{}{
		"request_id":   "req-open",
		"courier_id":   "courier-3",
		"pickup_name":  "Bank",
		"dropoff_name": "Hospital",
	}, testutil.AdminTestToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for open request, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStatusUpdateByWrongCourierRejected(t *testing.T) {
	env := setupDeliveryTest(t)

	testutil.SeedUser(t, env.DB, "recip-del4", entity.RoleRecipient, "A+", nil)
	testutil.SeedUser(t, env.DB, "courier-4", entity.RoleDelivery, "", nil)
	testutil.SeedUser(t, env.DB, "courier-5", entity.RoleDelivery, "", nil)
	seedFulfilledRequest(t, env, "req-del4", "recip-del4")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/deliveries", map[string]interface{}{
		"request_id":   "req-del4",
		"courier_id":   "courier-4",
		"pickup_name":  "Bank",
		"dropoff_name": "Hospital",
	}, testutil.AdminTestToken())
	deliveryID := testutil.ParseResponse(w)["data"].(map[string]interface{})["id"].(string)

	otherToken := testutil.GenerateTestToken("courier-5", "Other Courier", entity.RoleDelivery, "")
	w2 := testutil.DoRequest(env.Router, "PUT", "/api/v1/deliveries/"+deliveryID+"/status",
		map[string]interface{}{"status": entity.DeliveryStatusPickedUp}, otherToken)
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for wrong courier, got %d: %s", w2.Code, w2.Body.String())
	}
}
