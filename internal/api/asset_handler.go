package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"craftcv/internal/database"
	"craftcv/internal/storage"
)

// assetStorage 抽象对象存储操作，测试中以内存实现替代。
type assetStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

type assetStore interface {
	Create(ctx context.Context, asset database.Asset) error
	CountByUser(ctx context.Context, userID uint) (int64, error)
	ListByUser(ctx context.Context, userID uint, limit int) ([]database.Asset, error)
	Exists(ctx context.Context, userID uint, objectKey string) (bool, error)
	Delete(ctx context.Context, userID uint, objectKey string) error
}

type gormAssetStore struct {
	db *gorm.DB
}

func newGormAssetStore(db *gorm.DB) *gormAssetStore {
	return &gormAssetStore{db: db}
}

func (s *gormAssetStore) Create(ctx context.Context, asset database.Asset) error {
	return s.db.WithContext(ctx).Create(&asset).Error
}

func (s *gormAssetStore) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&database.Asset{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (s *gormAssetStore) ListByUser(ctx context.Context, userID uint, limit int) ([]database.Asset, error) {
	var assets []database.Asset
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&assets).Error
	return assets, err
}

func (s *gormAssetStore) Exists(ctx context.Context, userID uint, objectKey string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&database.Asset{}).
		Where("user_id = ? AND object_key = ?", userID, objectKey).
		Count(&count).Error
	return count > 0, err
}

func (s *gormAssetStore) Delete(ctx context.Context, userID uint, objectKey string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND object_key = ?", userID, objectKey).
		Delete(&database.Asset{}).Error
}

// AssetHandler 负责头像等图片资产的上传与访问。
// 上传前做 MIME 白名单、大小限制、数量/频率限额与病毒扫描。
type AssetHandler struct {
	store            assetStore
	Storage          assetStorage
	Logger           *slog.Logger
	ClamdAddr        string
	MaxBytes         int64
	MIMEWhitelist    []string
	RedisClient      redis.UniversalClient
	maxAssetsPerUser int
	maxUploadsPerDay int
}

// NewAssetHandler 返回 AssetHandler 实例。
func NewAssetHandler(db *gorm.DB, storageClient *storage.Client, logger *slog.Logger, clamdAddr string, maxBytes int64, redisClient redis.UniversalClient, maxAssetsPerUser, maxUploadsPerDay int) *AssetHandler {
	return &AssetHandler{
		store:            newGormAssetStore(db),
		Storage:          storageClient,
		Logger:           logger,
		ClamdAddr:        clamdAddr,
		MaxBytes:         maxBytes,
		MIMEWhitelist:    []string{"image/png", "image/jpeg", "image/webp"},
		RedisClient:      redisClient,
		maxAssetsPerUser: maxAssetsPerUser,
		maxUploadsPerDay: maxUploadsPerDay,
	}
}

var extensionByMIME = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// UploadAsset 处理受保护的图片上传。
func (h *AssetHandler) UploadAsset(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}

	if h.MaxBytes > 0 && file.Size > h.MaxBytes {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	contentType, err := h.sniffContentType(file)
	if err != nil {
		Internal(c, "failed to read file")
		return
	}
	if !h.mimeAllowed(contentType) {
		BadRequest(c, "unsupported file type")
		return
	}

	ctx := c.Request.Context()

	if h.maxAssetsPerUser > 0 {
		count, err := h.store.CountByUser(ctx, userID)
		if err != nil {
			h.logError("count assets", err)
			Internal(c, "failed to count assets")
			return
		}
		if count >= int64(h.maxAssetsPerUser) {
			Forbidden(c, "asset limit reached")
			return
		}
	}

	if h.maxUploadsPerDay > 0 && h.RedisClient != nil {
		dayKey := fmt.Sprintf("rate:asset:upload:%d:%s", userID, time.Now().UTC().Format("20060102"))
		count, err := incrWithTTL(ctx, h.RedisClient, dayKey, 24*time.Hour)
		if err != nil {
			count = 0
		}
		if count > int64(h.maxUploadsPerDay) {
			TooManyRequests(c, "daily upload limit reached")
			return
		}
	}

	if h.ClamdAddr != "" {
		infected, err := h.scanForViruses(file)
		if err != nil {
			h.logError("scan file", err)
			Internal(c, "failed to scan file")
			return
		}
		if infected {
			BadRequest(c, "malicious file detected")
			return
		}
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	defer fileReader.Close()

	ext := extensionByMIME[contentType]
	objectKey := fmt.Sprintf("user-assets/%d/%s%s", userID, uuid.NewString(), ext)

	if _, err := h.Storage.UploadFile(ctx, objectKey, fileReader, file.Size, contentType); err != nil {
		h.logError("upload file", err)
		Internal(c, "failed to upload file")
		return
	}

	if err := h.store.Create(ctx, database.Asset{UserID: userID, ObjectKey: objectKey}); err != nil {
		// 入库失败时回收已上传对象，避免留下孤儿文件。
		_ = h.Storage.DeleteObject(ctx, objectKey)
		h.logError("record asset", err)
		Internal(c, "failed to record asset")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"objectKey": objectKey})
}

// ListAssets 列出用户上传的资产，附带限时预览链接。
func (h *AssetHandler) ListAssets(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	assets, err := h.store.ListByUser(ctx, userID, 200)
	if err != nil {
		h.logError("list assets", err)
		Internal(c, "failed to list assets")
		return
	}

	items := make([]gin.H, 0, len(assets))
	for _, asset := range assets {
		url, err := h.Storage.GeneratePresignedURL(ctx, asset.ObjectKey, 10*time.Minute)
		if err != nil {
			h.logError("generate asset url", err)
			continue
		}
		items = append(items, gin.H{
			"objectKey":  asset.ObjectKey,
			"previewUrl": url,
			"createdAt":  asset.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetAssetURL 返回资产的临时预签名 URL。
func (h *AssetHandler) GetAssetURL(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	objectKey := c.Query("key")
	if !isValidUserAssetObjectKey(userID, objectKey) {
		Forbidden(c, "access denied")
		return
	}

	signedURL, err := h.Storage.GeneratePresignedURL(c.Request.Context(), objectKey, 15*time.Minute)
	if err != nil {
		h.logError("generate presigned url", err)
		Internal(c, "failed to generate url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

// DeleteAsset 删除一个资产：先删记录，再尽力删除对象。
func (h *AssetHandler) DeleteAsset(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	objectKey := c.Query("key")
	if !isValidUserAssetObjectKey(userID, objectKey) {
		Forbidden(c, "access denied")
		return
	}

	ctx := c.Request.Context()
	exists, err := h.store.Exists(ctx, userID, objectKey)
	if err != nil {
		h.logError("lookup asset", err)
		Internal(c, "failed to lookup asset")
		return
	}
	if !exists {
		NotFound(c, "asset not found")
		return
	}

	if err := h.store.Delete(ctx, userID, objectKey); err != nil {
		h.logError("delete asset record", err)
		Internal(c, "failed to delete asset")
		return
	}
	if err := h.Storage.DeleteObject(ctx, objectKey); err != nil {
		h.logError("delete asset object", err)
	}

	c.Status(http.StatusNoContent)
}

func (h *AssetHandler) sniffContentType(file *multipart.FileHeader) (string, error) {
	reader, err := file.Open()
	if err != nil {
		return "", err
	}
	defer reader.Close()

	buf := make([]byte, 512)
	n, err := reader.Read(buf)
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(strings.Split(http.DetectContentType(buf[:n]), ";")[0])), nil
}

func (h *AssetHandler) mimeAllowed(contentType string) bool {
	for _, allowed := range h.MIMEWhitelist {
		if contentType == allowed {
			return true
		}
	}
	return false
}

func (h *AssetHandler) scanForViruses(file *multipart.FileHeader) (bool, error) {
	reader, err := file.Open()
	if err != nil {
		return false, err
	}
	defer reader.Close()

	clamdClient := clamd.NewClamd(h.ClamdAddr)
	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := clamdClient.ScanStream(reader, abortChan)
	if err != nil {
		return false, err
	}
	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return true, nil
		}
	}
	return false, nil
}

func (h *AssetHandler) logError(msg string, err error) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error(msg, slog.String("error", err.Error()))
}
