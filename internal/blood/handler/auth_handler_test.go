package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/bloodstream/bloodstream/internal/blood/entity"
	"github.com/bloodstream/bloodstream/internal/blood/repository"
	"github.com/bloodstream/bloodstream/internal/blood/service"
	"github.com/bloodstream/bloodstream/internal/blood/testutil"
	"github.com/bloodstream/bloodstream/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func setupAuthTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	cfg := &config.Config{}
	cfg.JWT.Secret = testutil.JWTSecret
	cfg.JWT.AccessTokenExpire = 2 * time.Hour
	cfg.JWT.RefreshTokenExpire = 168 * time.Hour
	cfg.JWT.Issuer = "bloodstream"

	repos := repository.NewRepositories(db)
	svc := service.NewAuthService(repos.User, redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), cfg)
	h := NewAuthHandler(svc)

	auth := router.Group("/api/v1/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)

	userSvc := service.NewUserService(repos.User, zap.NewNop())
	uh := NewUserHandler(userSvc)
	router.GET("/api/v1/public/card/:cardNo", uh.PublicCard)
	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/users/me/card", uh.Card)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestRegisterAndLogin(t *testing.T) {
	env := setupAuthTest(t)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/register", map[string]interface{}{
		"name":       "Alice Donor",
		"email":      "Alice@Test.com",
		"password":   "secret123",
		"role":       entity.RoleDonor,
		"blood_type": "O-",
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	user := data["user"].(map[string]interface{})
	if user["email"] != "alice@test.com" {
		t.Errorf("Expected lowercased email, got %v", user["email"])
	}
	if user["card_no"] == "" {
		t.Error("Expected generated card number")
	}
	if _, hasPassword := user["password"]; hasPassword {
		t.Error("Password must not appear in response")
	}
	if data["tokens"].(map[string]interface{})["access_token"] == "" {
		t.Error("Expected access token")
	}

	// 重复注册被拒
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/register", map[string]interface{}{
		"name":       "Alice Again",
		"email":      "alice@test.com",
		"password":   "secret123",
		"role":       entity.RoleDonor,
		"blood_type": "O-",
	}, "")
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for duplicate email, got %d: %s", w2.Code, w2.Body.String())
	}

	// 登录
	w3 := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/login", map[string]interface{}{
		"email":    "alice@test.com",
		"password": "secret123",
	}, "")
	if w3.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w3.Code, w3.Body.String())
	}

	// 密码错误
	w4 := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/login", map[string]interface{}{
		"email":    "alice@test.com",
		"password": "wrong",
	}, "")
	if w4.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for wrong password, got %d: %s", w4.Code, w4.Body.String())
	}
}

func TestRegisterDonorRequiresBloodType(t *testing.T) {
	env := setupAuthTest(t)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/register", map[string]interface{}{
		"name":     "Bob Donor",
		"email":    "bob@test.com",
		"password": "secret123",
		"role":     entity.RoleDonor,
	}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for donor without blood type, got %d: %s", w.Code, w.Body.String())
	}

	// 配送员不需要血型
	w2 := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/register", map[string]interface{}{
		"name":     "Carol Courier",
		"email":    "carol@test.com",
		"password": "secret123",
		"role":     entity.RoleDelivery,
	}, "")
	if w2.Code != http.StatusCreated {
		t.Fatalf("Expected 201 for courier without blood type, got %d: %s", w2.Code, w2.Body.String())
	}
}

func TestRegisterAdminRoleRejected(t *testing.T) {
	env := setupAuthTest(t)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/register", map[string]interface{}{
		"name":     "Eve",
		"email":    "eve@test.com",
		"password": "secret123",
		"role":     entity.RoleAdmin,
	}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for admin self-registration, got %d: %s", w.Code, w.Body.String())
	}
}

func TestBloodCard(t *testing.T) {
	env := setupAuthTest(t)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/auth/register", map[string]interface{}{
		"name":       "Card Donor",
		"email":      "card@test.com",
		"password":   "secret123",
		"role":       entity.RoleDonor,
		"blood_type": "AB+",
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	user := data["user"].(map[string]interface{})
	cardNo := user["card_no"].(string)
	userID := user["id"].(string)

	token := testutil.GenerateTestToken(userID, "Card Donor", entity.RoleDonor, "AB+")
	w2 := testutil.DoRequest(env.Router, "GET", "/api/v1/users/me/card", nil, token)
	if w2.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w2.Code, w2.Body.String())
	}
	card := testutil.ParseResponse(w2)["data"].(map[string]interface{})
	if card["card_no"].(string) != cardNo {
		t.Errorf("Expected card_no %s, got %v", cardNo, card["card_no"])
	}
	if card["blood_type"].(string) != "AB+" {
		t.Errorf("Expected blood type AB+, got %v", card["blood_type"])
	}
	if card["badge_level"].(string) != "bronze" {
		t.Errorf("Expected bronze badge for new donor, got %v", card["badge_level"])
	}

	// 卡号公开可查，无需认证
	w3 := testutil.DoRequest(env.Router, "GET", "/api/v1/public/card/"+cardNo, nil, "")
	if w3.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w3.Code, w3.Body.String())
	}
	pub := testutil.ParseResponse(w3)["data"].(map[string]interface{})
	if pub["name"].(string) != "Card Donor" {
		t.Errorf("Expected donor name on public card, got %v", pub["name"])
	}

	// 不存在的卡号
	w4 := testutil.DoRequest(env.Router, "GET", "/api/v1/public/card/BS-NOPE", nil, "")
	if w4.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for unknown card, got %d: %s", w4.Code, w4.Body.String())
	}
}
