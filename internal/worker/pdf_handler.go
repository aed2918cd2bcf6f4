package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"craftcv/internal/database"
	"craftcv/internal/errcode"
	"craftcv/internal/notify"
	"craftcv/internal/pdf"
	"craftcv/internal/storage"
	"craftcv/internal/tasks"
)

// PDFTaskHandler 负责消费 PDF 导出任务。
type PDFTaskHandler struct {
	db                 *gorm.DB
	storage            *storage.Client
	redisClient        *redis.Client
	logger             *slog.Logger
	internalSecret     string
	internalAPIBaseURL string
}

// NewPDFTaskHandler 创建任务处理器。
func NewPDFTaskHandler(
	db *gorm.DB,
	storage *storage.Client,
	redisClient *redis.Client,
	logger *slog.Logger,
	internalSecret string,
	internalAPIBaseURL string,
) *PDFTaskHandler {
	return &PDFTaskHandler{
		db:                 db,
		storage:            storage,
		redisClient:        redisClient,
		logger:             logger,
		internalSecret:     internalSecret,
		internalAPIBaseURL: strings.TrimRight(strings.TrimSpace(internalAPIBaseURL), "/"),
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *PDFTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.PDFExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("resume_id", int(payload.ResumeID)),
	)
	log.Info("Starting resume PDF export task...")

	var record database.Resume
	if err := h.db.WithContext(ctx).First(&record, payload.ResumeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("resume not found, skipping task")
			return nil
		}
		log.Error("query resume failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.Uint64("user_id", uint64(record.UserID)))

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		msg := notify.ExportStatus{
			Status:        notify.StatusError,
			ResumeID:      record.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.publishExportNotify(ctx, record.UserID, msg); err != nil {
			log.Error("publish pdf error notification failed", slog.Any("error", err))
		}
	}()

	printData, err := fetchPrintData(ctx, h.internalAPIBaseURL, record.ID, h.internalSecret, payload.CorrelationID)
	if err != nil {
		log.Error("fetch print data failed", slog.Any("error", err))
		return err
	}
	missingKeys, resourceMissing := extractResourceMissingWarning(printData.Warnings)

	html, err := renderResumeHTML(printData)
	if err != nil {
		log.Error("render resume html failed", slog.Any("error", err))
		return err
	}

	result, err := pdf.RenderHTML(html)
	if err != nil {
		log.Error("render pdf failed", slog.Any("error", err))
		return err
	}

	objectName := fmt.Sprintf("%s%s.pdf", exportObjectPrefix(record.UserID, record.ID), uuid.NewString())
	if _, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(result.PDF), int64(len(result.PDF)), "application/pdf"); err != nil {
		log.Error("upload pdf to minio failed", slog.Any("error", err))
		return err
	}

	update := map[string]any{
		"pdf_url": objectName,
		"status":  "completed",
	}
	if err := h.db.WithContext(ctx).Model(&record).Updates(update).Error; err != nil {
		log.Error("update resume failed", slog.Any("error", err))
		return err
	}

	msg := notify.ExportStatus{
		Status:        notify.StatusCompleted,
		ResumeID:      record.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if resourceMissing {
		msg.ErrorCode = errcode.ResourceMissing
		msg.ErrorMessage = "部分资源缺失/无效，已自动跳过并继续生成"
		msg.MissingKeys = missingKeys
		log.Warn("pdf exported with missing assets",
			slog.Int("missing_count", len(missingKeys)),
			slog.Any("missing_keys", missingKeys),
		)
	}
	if err := h.publishExportNotify(ctx, record.UserID, msg); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	if err := h.storePreviewImage(ctx, &record, result.PreviewJPEG); err != nil {
		log.Warn("store resume preview failed", slog.Any("error", err))
	}

	// 每次导出生成新对象，旧导出失去引用后只会白占空间。
	if err := h.pruneStaleExports(ctx, record, objectName); err != nil {
		log.Warn("prune stale exports failed", slog.Any("error", err))
	}

	log.Info("PDF export task completed successfully.")
	return nil
}

// exportObjectPrefix 是单份简历的导出对象前缀，按用户/简历分层，
// 便于整体清理。
func exportObjectPrefix(userID, resumeID uint) string {
	return fmt.Sprintf("generated-resumes/%d/%d/", userID, resumeID)
}

// pruneStaleExports 删除该简历名下除最新导出外的所有历史对象。
func (h *PDFTaskHandler) pruneStaleExports(ctx context.Context, record database.Resume, keep string) error {
	objects, err := h.storage.ListObjects(ctx, exportObjectPrefix(record.UserID, record.ID), 100)
	if err != nil {
		return err
	}
	for _, object := range objects {
		if object.Key == keep {
			continue
		}
		if err := h.storage.DeleteObject(ctx, object.Key); err != nil {
			return err
		}
	}
	return nil
}

func (h *PDFTaskHandler) publishExportNotify(ctx context.Context, userID uint, msg notify.ExportStatus) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := notify.Channel(userID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

func (h *PDFTaskHandler) storePreviewImage(ctx context.Context, record *database.Resume, previewBytes []byte) error {
	const presignTTL = 7 * 24 * time.Hour

	if len(previewBytes) == 0 {
		return nil
	}

	objectName := fmt.Sprintf("thumbnails/resume/%d/preview.jpg", record.ID)
	if _, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(previewBytes), int64(len(previewBytes)), "image/jpeg"); err != nil {
		return fmt.Errorf("upload preview image: %w", err)
	}

	presignedURL, err := h.storage.GeneratePresignedURL(ctx, objectName, presignTTL)
	if err != nil {
		return fmt.Errorf("generate preview presigned url: %w", err)
	}

	if err := h.db.WithContext(ctx).Model(record).Updates(map[string]any{
		"preview_image_url":  presignedURL,
		"preview_object_key": objectName,
	}).Error; err != nil {
		return fmt.Errorf("update resume preview url: %w", err)
	}

	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}

func extractResourceMissingWarning(warnings []PrintWarning) (missingKeys []string, hasWarning bool) {
	uniq := make(map[string]struct{})
	var result []string
	for _, w := range warnings {
		if w.Code != errcode.ResourceMissing {
			continue
		}
		hasWarning = true
		for _, k := range w.MissingKeys {
			key := strings.TrimSpace(k)
			if key == "" {
				continue
			}
			if _, ok := uniq[key]; ok {
				continue
			}
			uniq[key] = struct{}{}
			result = append(result, key)
		}
	}
	return result, hasWarning
}
