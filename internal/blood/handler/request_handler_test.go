package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"github.com/bloodstream/bloodstream/internal/blood/service"
	"github.com/bloodstream/bloodstream/internal/blood/sse"
	"github.com/bloodstream/bloodstream/internal/blood/testutil"
	"github.com/bloodstream/bloodstream/internal/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupRequestTest(t *testing.T) (*testutil.TestEnv, *service.RequestService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	repos := repository.NewRepositories(db)
	logger := zap.NewNop()
	hub := sse.NewHub(logger)
	// 通知走Redis，测试环境不可达时Push只告警不失败
	notifySvc := service.NewNotificationService(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), logger)
	svc := service.NewRequestService(db, repos.Request, repos.User, hub, notifySvc, logger)
	h := NewRequestHandler(svc)

	api := testutil.AuthGroup(router, "/api/v1")
	api.POST("/requests", middleware.RequireRole(entity.RoleRecipient), h.Create)
	api.GET("/requests/mine", middleware.RequireRole(entity.RoleRecipient), h.ListMine)
	api.GET("/requests/available", middleware.RequireRole(entity.RoleDonor), h.ListForDonor)
	api.GET("/requests/:id", h.Get)
	api.POST("/requests/:id/accept", middleware.RequireRole(entity.RoleDonor), h.Accept)
	api.POST("/requests/:id/decline", middleware.RequireRole(entity.RoleDonor), h.Decline)
	api.POST("/requests/:id/cancel", middleware.RequireRole(entity.RoleRecipient), h.Cancel)

	return &testutil.TestEnv{DB: db, Router: router, T: t}, svc
}

func countMatchEntries(t *testing.T, db *gorm.DB, requestID string) int64 {
	t.Helper()
	var n int64
	db.Model(&entity.MatchEntry{}).Where("request_id = ?", requestID).Count(&n)
	return n
}

func TestCreateAndAcceptRequest(t *testing.T) {
	env, _ := setupRequestTest(t)

	testutil.SeedUser(t, env.DB, "recip-001", entity.RoleRecipient, "AB+", nil)
	// O-万能供血，60天前捐过，间隔已满
	testutil.SeedUser(t, env.DB, "donor-001", entity.RoleDonor, "O-", testutil.DaysAgo(60))

	recipToken := testutil.GenerateTestToken("recip-001", "Recipient", entity.RoleRecipient, "AB+")
	donorToken := testutil.GenerateTestToken("donor-001", "Donor", entity.RoleDonor, "O-")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/requests", map[string]interface{}{
		"blood_type": "AB+",
		"units":      2,
		"urgency":    "urgent",
	}, recipToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	requestID := resp["data"].(map[string]interface{})["id"].(string)

	// 捐献者能看到该请求
	w2 := testutil.DoRequest(env.Router, "GET", "/api/v1/requests/available", nil, donorToken)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
	items := testutil.ParseResponse(w2)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("Expected 1 available request, got %d", len(items))
	}

	// 接受
	w3 := testutil.DoRequest(env.Router, "POST", "/api/v1/requests/"+requestID+"/accept", nil, donorToken)
	if w3.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w3.Code, w3.Body.String())
	}
	entry := testutil.ParseResponse(w3)["data"].(map[string]interface{})
	if entry["status"] != entity.MatchStatusAccepted {
		t.Errorf("Expected accepted entry, got %v", entry["status"])
	}

	// units=2 只有1个接受，请求仍open
	var req entity.BloodRequest
	env.DB.First(&req, "id = ?", requestID)
	if req.Status != entity.RequestStatusOpen {
		t.Errorf("Expected request still open, got %s", req.Status)
	}
}

func TestAcceptFulfillsAtUnits(t *testing.T) {
	env, _ := setupRequestTest(t)

	testutil.SeedUser(t, env.DB, "recip-002", entity.RoleRecipient, "A+", nil)
	testutil.SeedUser(t, env.DB, "donor-a", entity.RoleDonor, "A-", nil)
	testutil.SeedUser(t, env.DB, "donor-b", entity.RoleDonor, "O+", nil)
	testutil.SeedRequest(t, env.DB, "req-fulfill", "recip-002", "A+", 2)

	tokenA := testutil.GenerateTestToken("donor-a", "Donor A", entity.RoleDonor, "A-")
	tokenB := testutil.GenerateTestToken("donor-b", "Donor B", entity.RoleDonor, "O+")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/requests/req-fulfill/accept", nil, tokenA)
	if w.Code != http.StatusOK {
		t.Fatalf("First accept: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var req entity.BloodRequest
	env.DB.First(&req, "id = ?", "req-fulfill")
	if req.Status != entity.RequestStatusOpen {
		t.Fatalf("Request fulfilled too early: %s", req.Status)
	}

	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/requests/req-fulfill/accept", nil, tokenB)
	if w2.Code != http.StatusOK {
		t.Fatalf("Second accept: expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
	env.DB.First(&req, "id = ?", "req-fulfill")
	if req.Status != entity.RequestStatusFulfilled {
		t.Errorf("Expected fulfilled after %d accepts, got %s", req.Units, req.Status)
	}
	if req.FulfilledAt == nil {
		t.Error("Expected fulfilled_at to be set")
	}
}

func TestDoubleRespondRejected(t *testing.T) {
	env, _ := setupRequestTest(t)

	testutil.SeedUser(t, env.DB, "recip-003", entity.RoleRecipient, "B+", nil)
	testutil.SeedUser(t, env.DB, "donor-c", entity.RoleDonor, "B-", nil)
	testutil.SeedRequest(t, env.DB, "req-double", "recip-003", "B+", 3)

	token := testutil.GenerateTestToken("donor-c", "Donor C", entity.RoleDonor, "B-")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/requests/req-double/accept", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 二次接受被拒，状态不变
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/requests/req-double/accept", nil, token)
	if w2.Code != http.StatusConflict {
		t.Fatalf("Expected 409 on double accept, got %d: %s", w2.Code, w2.Body.String())
	}
	// 接受后改拒绝同样被拒
	w3 := testutil.DoRequest(env.Router, "POST", "/api/v1/requests/req-double/decline", nil, token)
	if w3.Code != http.StatusConflict {
		t.Fatalf("Expected 409 on decline after accept, got %d: %s", w3.Code, w3.Body.String())
	}

	if n := countMatchEntries(t, env.DB, "req-double"); n != 1 {
		t.Errorf("Expected exactly 1 match entry, got %d", n)
	}
	var entry entity.MatchEntry
	env.DB.First(&entry, "request_id = ? AND donor_id = ?", "req-double", "donor-c")
	if entry.Status != entity.MatchStatusAccepted {
		t.Errorf("Entry status changed by rejected respond: %s", entry.Status)
	}
}

func TestIncompatibleDonorRejected(t *testing.T) {
	env, _ := setupRequestTest(t)

	testutil.SeedUser(t, env.DB, "recip-004", entity.RoleRecipient, "B+", nil)
	// A+不能供给B+
	testutil.SeedUser(t, env.DB, "donor-d", entity.RoleDonor, "A+", nil)
	testutil.SeedRequest(t, env.DB, "req-incompat", "recip-004", "B+", 1)

	token := testutil.GenerateTestToken("donor-d", "Donor D", entity.RoleDonor, "A+")
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/requests/req-incompat/accept", nil, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for incompatible donor, got %d: %s", w.Code, w.Body.String())
	}

	// 拒绝前没有落任何记录
	if n := countMatchEntries(t, env.DB, "req-incompat"); n != 0 {
		t.Errorf("Expected no match entries after rejected respond, got %d", n)
	}
}

func TestIneligibleDonorRejected(t *testing.T) {
	env, _ := setupRequestTest(t)

	testutil.SeedUser(t, env.DB, "recip-005", entity.RoleRecipient, "O+", nil)
	// 30天前捐过，未满56天
	testutil.SeedUser(t, env.DB, "donor-e", entity.RoleDonor, "O-", testutil.DaysAgo(30))
	testutil.SeedRequest(t, env.DB, "req-cooldown", "recip-005", "O+", 1)

	token := testutil.GenerateTestToken("donor-e", "Donor E", entity.RoleDonor, "O-")
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/requests/req-cooldown/accept", nil, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for ineligible donor, got %d: %s", w.Code, w.Body.String())
	}
	if n := countMatchEntries(t, env.DB, "req-cooldown"); n != 0 {
		t.Errorf("Expected no match entries, got %d", n)
	}

	// 拒绝不受间隔限制
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/requests/req-cooldown/decline", nil, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200 for decline during cooldown, got %d: %s", w2.Code, w2.Body.String())
	}
}

func TestAcceptAfterFulfilledRejected(t *testing.T) {
	env, _ := setupRequestTest(t)

	testutil.SeedUser(t, env.DB, "recip-006", entity.RoleRecipient, "A-", nil)
	testutil.SeedUser(t, env.DB, "donor-f", entity.RoleDonor, "A-", nil)
	testutil.SeedUser(t, env.DB, "donor-g", entity.RoleDonor, "O-", nil)
	testutil.SeedRequest(t, env.DB, "req-race", "recip-006", "A-", 1)

	tokenF := testutil.GenerateTestToken("donor-f", "Donor F", entity.RoleDonor, "A-")
	tokenG := testutil.GenerateTestToken("donor-g", "Donor G", entity.RoleDonor, "O-")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/requests/req-race/accept", nil, tokenF)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 请求已满足，后来者收到冲突
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/requests/req-race/accept", nil, tokenG)
	if w2.Code != http.StatusConflict {
		t.Fatalf("Expected 409 for fulfilled request, got %d: %s", w2.Code, w2.Body.String())
	}
	if n := countMatchEntries(t, env.DB, "req-race"); n != 1 {
		t.Errorf("Expected 1 match entry, got %d", n)
	}
}

func TestCancelledRequestRejectsResponses(t *testing.T) {
	env, _ := setupRequestTest(t)

	testutil.SeedUser(t, env.DB, "recip-007", entity.RoleRecipient, "O+", nil)
	testutil.SeedUser(t, env.DB, "donor-h", entity.RoleDonor, "O+", nil)
	testutil.SeedRequest(t, env.DB, "req-cancel", "recip-007", "O+", 1)

	recipToken := testutil.GenerateTestToken("recip-007", "Recipient", entity.RoleRecipient, "O+")
	donorToken := testutil.GenerateTestToken("donor-h", "Donor H", entity.RoleDonor, "O+")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/requests/req-cancel/cancel", nil, recipToken)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/requests/req-cancel/accept", nil, donorToken)
	if w2.Code != http.StatusConflict {
		t.Fatalf("Expected 409 for cancelled request, got %d: %s", w2.Code, w2.Body.String())
	}
}

func TestCancelByNonOwnerRejected(t *testing.T) {
	env, _ := setupRequestTest(t)

	testutil.SeedUser(t, env.DB, "recip-008", entity.RoleRecipient, "O+", nil)
	testutil.SeedUser(t, env.DB, "recip-009", entity.RoleRecipient, "O+", nil)
	testutil.SeedRequest(t, env.DB, "req-owner", "recip-008", "O+", 1)

	otherToken := testutil.GenerateTestToken("recip-009", "Other", entity.RoleRecipient, "O+")
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/requests/req-owner/cancel", nil, otherToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for non-owner cancel, got %d: %s", w.Code, w.Body.String())
	}
}

func TestApplyDonorAcceptedIdempotent(t *testing.T) {
	env, svc := setupRequestTest(t)

	testutil.SeedUser(t, env.DB, "recip-010", entity.RoleRecipient, "AB-", nil)
	testutil.SeedUser(t, env.DB, "donor-i", entity.RoleDonor, "B-", nil)
	testutil.SeedRequest(t, env.DB, "req-idem", "recip-010", "AB-", 2)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := svc.ApplyDonorAccepted(ctx, "req-idem", "donor-i"); err != nil {
			t.Fatalf("ApplyDonorAccepted attempt %d failed: %v", i+1, err)
		}
	}

	if n := countMatchEntries(t, env.DB, "req-idem"); n != 1 {
		t.Errorf("Expected 1 match entry after repeated apply, got %d", n)
	}
	var entry entity.MatchEntry
	env.DB.First(&entry, "request_id = ? AND donor_id = ?", "req-idem", "donor-i")
	if entry.Status != entity.MatchStatusAccepted {
		t.Errorf("Expected accepted, got %s", entry.Status)
	}
}

func TestInvalidBloodTypeRejected(t *testing.T) {
	env, _ := setupRequestTest(t)

	testutil.SeedUser(t, env.DB, "recip-011", entity.RoleRecipient, "O+", nil)
	token := testutil.GenerateTestToken("recip-011", "Recipient", entity.RoleRecipient, "O+")

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/requests", map[string]interface{}{
		"blood_type": "C+",
		"units":      1,
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for invalid blood type, got %d: %s", w.Code, w.Body.String())
	}
}

func TestDonorRoleRequiredForRespond(t *testing.T) {
	env, _ := setupRequestTest(t)

	testutil.SeedUser(t, env.DB, "recip-012", entity.RoleRecipient, "O+", nil)
	testutil.SeedRequest(t, env.DB, "req-role", "recip-012", "O+", 1)

	// 受血者不能接受请求
	token := testutil.GenerateTestToken("recip-012", "Recipient", entity.RoleRecipient, "O+")
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/requests/req-role/accept", nil, token)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for recipient accepting, got %d: %s", w.Code, w.Body.String())
	}
}
