package api

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"craftcv/internal/auth"
	"craftcv/internal/database"
)

func newAuthTestService(t *testing.T) *auth.AuthService {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	service, err := auth.NewAuthService(privPEM, pubPEM, 15*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	return service
}

func newAuthTestEnv(t *testing.T, lockAfter int) (*AuthHandler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	h := &AuthHandler{
		db:       db,
		tokens:   newAuthTestService(t),
		throttle: newLoginThrottle(newFakeThrottleStore(), 100, lockAfter, 15*time.Minute),
		logger:   slog.Default(),
	}
	return h, db
}

func postAuthJSON(t *testing.T, handler func(*gin.Context), body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/v1/auth", bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")

	handler(c)
	return w
}

func seedAccount(t *testing.T, db *gorm.DB, username, password string) database.User {
	t.Helper()
	hashed, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := database.User{Username: username, PasswordHash: hashed}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestRegister_CreatesAccountAndReturnsIdentity(t *testing.T) {
	h, _ := newAuthTestEnv(t, 3)

	w := postAuthJSON(t, h.Register, registerRequest{Username: "alice", Password: "s3curepass"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}

	var created sessionUser
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == 0 || created.Username != "alice" {
		t.Fatalf("created = %+v", created)
	}

	// 重名注册冲突。
	if w := postAuthJSON(t, h.Register, registerRequest{Username: "alice", Password: "s3curepass"}); w.Code != http.StatusConflict {
		t.Fatalf("duplicate register expected 409 got %d", w.Code)
	}
}

func TestRegister_RejectsWeakPasswords(t *testing.T) {
	h, _ := newAuthTestEnv(t, 3)

	for _, password := range []string{"sh0rt", "allletters", "1234567890"} {
		w := postAuthJSON(t, h.Register, registerRequest{Username: "bob", Password: password})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("password %q expected 400 got %d", password, w.Code)
		}
	}
}

func TestLogin_ReturnsSessionEnvelope(t *testing.T) {
	h, db := newAuthTestEnv(t, 3)
	seedAccount(t, db, "alice", "s3curepass")

	w := postAuthJSON(t, h.Login, loginRequest{Username: "alice", Password: "s3curepass"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	var session sessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.AccessToken == "" || session.TokenType != "Bearer" {
		t.Fatalf("session = %+v", session)
	}
	if session.User.Username != "alice" || session.User.ID == 0 {
		t.Fatalf("session user = %+v", session.User)
	}

	claims, err := h.tokens.ValidateToken(session.AccessToken)
	if err != nil {
		t.Fatalf("validate issued access token: %v", err)
	}
	if claims.TokenType != "access" || claims.UserID != session.User.ID {
		t.Fatalf("claims = %+v", claims)
	}

	// 刷新令牌只经 Cookie 下发。
	setCookie := strings.Join(w.Header().Values("Set-Cookie"), "; ")
	if !strings.Contains(setCookie, refreshTokenCookieName+"=") {
		t.Fatalf("expected refresh cookie, headers=%q", setCookie)
	}
	if strings.Contains(w.Body.String(), "refresh_token") {
		t.Fatal("refresh token must not appear in the response body")
	}
}

func TestLogin_LockedAccountRejectsCorrectPassword(t *testing.T) {
	h, db := newAuthTestEnv(t, 2)
	seedAccount(t, db, "alice", "s3curepass")

	for i := 0; i < 2; i++ {
		if w := postAuthJSON(t, h.Login, loginRequest{Username: "alice", Password: "wrongpass1"}); w.Code != http.StatusUnauthorized {
			t.Fatalf("bad password attempt %d expected 401 got %d", i+1, w.Code)
		}
	}

	// 达到阈值后即便口令正确也处于锁定期。
	w := postAuthJSON(t, h.Login, loginRequest{Username: "alice", Password: "s3curepass"})
	if w.Code != http.StatusLocked {
		t.Fatalf("locked account expected 423 got %d body=%s", w.Code, w.Body.String())
	}
}
