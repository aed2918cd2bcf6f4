package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"craftcv/internal/api/middleware"
	"craftcv/internal/auth"
	"craftcv/internal/database"
)

const (
	refreshTokenCookieName         = "refresh_token"
	refreshTokenBlacklistKeyPrefix = "auth:refresh:blacklist:"
)

// AuthHandler 处理注册、登录、令牌刷新与改密。
// 刷新令牌走 HttpOnly Cookie，旋转后的旧 jti 进 Redis 黑名单。
type AuthHandler struct {
	db           *gorm.DB
	tokens       *auth.AuthService
	throttle     *loginThrottle
	redis        redis.UniversalClient
	logger       *slog.Logger
	cookieDomain string
}

// NewAuthHandler 构造认证处理器。
func NewAuthHandler(db *gorm.DB, authService *auth.AuthService, redisClient redis.UniversalClient, logger *slog.Logger, loginRateLimitPerHour int, loginLockThreshold int, loginLockTTL time.Duration, cookieDomain string) *AuthHandler {
	return &AuthHandler{
		db:           db,
		tokens:       authService,
		throttle:     newLoginThrottle(redisThrottleStore{client: redisClient}, loginRateLimitPerHour, loginLockThreshold, loginLockTTL),
		redis:        redisClient,
		logger:       logger,
		cookieDomain: strings.TrimSpace(cookieDomain),
	}
}

// sessionUser 是认证响应里携带的账号信息。
type sessionUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// sessionResponse 是登录/刷新/改密统一的会话响应。
// 刷新令牌不出现在响应体里，只通过 Cookie 下发。
type sessionResponse struct {
	AccessToken        string      `json:"access_token"`
	TokenType          string      `json:"token_type"`
	ExpiresIn          int         `json:"expires_in"`
	MustChangePassword bool        `json:"must_change_password"`
	User               sessionUser `json:"user"`
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required"`
}

// Register 创建新账号。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	log := h.requestLogger(c).With(slog.String("username", req.Username))

	var existing database.User
	err := h.db.WithContext(ctx).Where("username = ?", req.Username).First(&existing).Error
	switch {
	case err == nil:
		log.Info("register conflict: user already exists")
		Conflict(c, "username already taken")
		return
	case !errors.Is(err, gorm.ErrRecordNotFound):
		log.Error("register lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Error("hash password failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	user := database.User{Username: req.Username, PasswordHash: hashed}
	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		log.Error("create user failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	log.Info("user registered", slog.Uint64("user_id", uint64(user.ID)))
	c.JSON(http.StatusCreated, sessionUser{ID: user.ID, Username: user.Username})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 校验口令并下发会话。锁定与限流在口令校验之前生效，
// 锁定中的账号即便口令正确也拒绝。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	log := h.requestLogger(c).With(slog.String("username", req.Username))

	switch err := h.throttle.Reserve(ctx, c.ClientIP(), req.Username); {
	case errors.Is(err, errLoginRateLimited):
		Error(c, http.StatusTooManyRequests, "rate limit exceeded")
		return
	case errors.Is(err, errLoginLocked):
		Error(c, http.StatusLocked, "account temporarily locked")
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Info("login failed: user not found")
			h.throttle.NoteFailure(ctx, req.Username)
			Unauthorized(c)
			return
		}
		log.Error("login query failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		log.Info("login failed: password mismatch", slog.Uint64("user_id", uint64(user.ID)))
		h.throttle.NoteFailure(ctx, req.Username)
		Unauthorized(c)
		return
	}

	h.throttle.Reset(ctx, req.Username)
	h.issueSession(c, user)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh 旋转刷新令牌：校验、拉黑旧 jti、下发新会话。
func (h *AuthHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.requestLogger(c)

	claims, err := h.refreshClaims(c)
	if err != nil {
		log.Info("refresh rejected", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	revoked, err := h.refreshTokenRevoked(ctx, claims.ID)
	if err != nil {
		log.Error("refresh blacklist lookup failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	if revoked {
		log.Info("refresh token already revoked", slog.String("jti", claims.ID))
		Unauthorized(c)
		return
	}

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
		log.Info("refresh user not found", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	if err := h.revokeRefreshToken(ctx, claims.ID, claims.ExpiresAt); err != nil {
		log.Error("refresh revoke old token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.issueSession(c, user)
}

// Logout 拉黑当前刷新令牌并清除 Cookie。
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.requestLogger(c)

	claims, err := h.refreshClaims(c)
	if err != nil {
		log.Info("logout rejected", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	if err := h.revokeRefreshToken(ctx, claims.ID, claims.ExpiresAt); err != nil {
		log.Error("logout revoke token failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	h.writeRefreshCookie(c, "", -1)
	c.Status(http.StatusOK)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// ChangePassword 校验当前口令后更新密码，清掉 must_change_password
// 标记，并旋转会话（旧刷新令牌作废）。
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		BadRequest(c, "password confirmation does not match")
		return
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.NewPassword == req.CurrentPassword {
		BadRequest(c, "new password must be different from current password")
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	log := h.requestLogger(c).With(slog.Uint64("user_id", uint64(userID)))

	var user database.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		log.Info("change password: user not found", slog.Any("error", err))
		Unauthorized(c)
		return
	}

	if !auth.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		log.Info("change password: current password mismatch")
		Unauthorized(c)
		return
	}

	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		log.Error("change password: hash failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	if err := h.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"password_hash":        hashed,
		"must_change_password": false,
	}).Error; err != nil {
		log.Error("change password: update failed", slog.Any("error", err))
		Internal(c, "internal error")
		return
	}
	user.MustChangePassword = false

	// 旧刷新令牌随改密作废。
	if claims, err := h.refreshClaims(c); err == nil {
		if err := h.revokeRefreshToken(ctx, claims.ID, claims.ExpiresAt); err != nil {
			log.Error("change password: revoke refresh failed", slog.Any("error", err))
			Internal(c, "internal error")
			return
		}
	}

	h.issueSession(c, user)
}

// issueSession 生成令牌对并写出统一的会话响应。
func (h *AuthHandler) issueSession(c *gin.Context, user database.User) {
	pair, err := h.tokens.GenerateTokenPair(user.ID, user.MustChangePassword)
	if err != nil {
		h.requestLogger(c).Error("generate token pair failed",
			slog.Uint64("user_id", uint64(user.ID)), slog.Any("error", err))
		Internal(c, "internal error")
		return
	}

	maxAge := int(h.tokens.RefreshTokenTTL().Seconds())
	if maxAge <= 0 {
		maxAge = int(time.Hour.Seconds())
	}
	h.writeRefreshCookie(c, pair.RefreshToken, maxAge)

	c.JSON(http.StatusOK, sessionResponse{
		AccessToken:        pair.AccessToken,
		TokenType:          "Bearer",
		ExpiresIn:          int(h.tokens.AccessTokenTTL().Seconds()),
		MustChangePassword: user.MustChangePassword,
		User:               sessionUser{ID: user.ID, Username: user.Username},
	})
}

// refreshClaims 从 Cookie（或请求体兜底）取出刷新令牌并校验其声明。
func (h *AuthHandler) refreshClaims(c *gin.Context) (*auth.TokenClaims, error) {
	token, err := c.Cookie(refreshTokenCookieName)
	if err != nil || token == "" {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			token = req.RefreshToken
		}
	}
	if token == "" {
		return nil, errors.New("refresh token missing")
	}

	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "refresh" {
		return nil, errors.New("not a refresh token")
	}
	if claims.ID == "" {
		return nil, errors.New("refresh token missing jti")
	}
	return claims, nil
}

func (h *AuthHandler) refreshTokenRevoked(ctx context.Context, jti string) (bool, error) {
	err := h.redis.Get(ctx, refreshTokenBlacklistKeyPrefix+jti).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return false, err
}

// revokeRefreshToken 按剩余有效期把 jti 写入黑名单。
func (h *AuthHandler) revokeRefreshToken(ctx context.Context, jti string, expiresAt *jwt.NumericDate) error {
	ttl := h.tokens.RefreshTokenTTL()
	if expiresAt != nil {
		ttl = time.Until(expiresAt.Time)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return h.redis.Set(ctx, refreshTokenBlacklistKeyPrefix+jti, "revoked", ttl).Err()
}

func (h *AuthHandler) writeRefreshCookie(c *gin.Context, value string, maxAge int) {
	cookie := &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    value,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   requestIsHTTPS(c),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Domain:   h.cookieDomain,
	}
	if maxAge > 0 {
		cookie.Expires = time.Now().Add(time.Duration(maxAge) * time.Second)
	}
	http.SetCookie(c.Writer, cookie)
}

func (h *AuthHandler) requestLogger(c *gin.Context) *slog.Logger {
	if logger := middleware.LoggerFromContext(c); logger != nil {
		return logger
	}
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

func requestIsHTTPS(c *gin.Context) bool {
	if c.Request == nil {
		return false
	}
	if c.Request.TLS != nil {
		return true
	}
	return strings.EqualFold(c.Request.Header.Get("X-Forwarded-Proto"), "https")
}
