package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"craftcv/internal/api/middleware"
	"craftcv/internal/database"
	"craftcv/internal/editor"
	"craftcv/internal/resume"
	"craftcv/internal/storage"
	"craftcv/internal/tasks"
)

// ResumeHandler 负责处理与简历相关的 API 请求。
type ResumeHandler struct {
	db          *gorm.DB
	asynqClient *asynq.Client
	storage     *storage.Client
	maxResumes  int
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(db *gorm.DB, asynqClient *asynq.Client, storageClient *storage.Client, maxResumes int) *ResumeHandler {
	return &ResumeHandler{
		db:          db,
		asynqClient: asynqClient,
		storage:     storageClient,
		maxResumes:  maxResumes,
	}
}

var errInvalidResumeID = errors.New("invalid resume id")

type createResumeRequest struct {
	Title string `json:"title" binding:"required,max=128"`
}

type updateResumeRequest struct {
	Title   string          `json:"title" binding:"required,max=128"`
	Content *resume.Content `json:"content"`
}

type resumeListItem struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	TemplateID      string    `json:"template_id"`
	PreviewImageURL string    `json:"preview_image_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type resumeResponse struct {
	ID              uint           `json:"id"`
	Title           string         `json:"title"`
	BlueprintID     string         `json:"blueprint_id"`
	TemplateID      string         `json:"template_id"`
	Content         datatypes.JSON `json:"content"`
	SectionConfig   datatypes.JSON `json:"section_config"`
	Design          datatypes.JSON `json:"design"`
	PreviewImageURL string         `json:"preview_image_url,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// CreateResume 基于默认蓝图与模板创建一份新简历，超过限额则拒绝。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	var req createResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()

	var count int64
	if err := h.db.WithContext(ctx).
		Model(&database.Resume{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		Internal(c, "failed to count resumes")
		return
	}

	if h.maxResumes > 0 && count >= int64(h.maxResumes) {
		Forbidden(c, "resume limit reached")
		return
	}

	record := database.Resume{
		Title:  req.Title,
		UserID: userID,
	}
	if err := editor.NewDocument().Store(&record); err != nil {
		Internal(c, "failed to build default resume")
		return
	}

	if err := h.db.WithContext(ctx).Create(&record).Error; err != nil {
		Internal(c, "failed to create resume")
		return
	}

	if err := h.setActiveResumeID(ctx, userID, &record.ID); err != nil {
		Internal(c, "failed to mark active resume")
		return
	}

	c.JSON(http.StatusCreated, newResumeResponse(record))
}

// GetLatestResume 返回用户当前正在编辑（或最近更新）的简历。
func (h *ResumeHandler) GetLatestResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	record, err := h.findActiveOrLatestResume(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "no resume yet")
			return
		}
		Internal(c, "failed to query latest resume")
		return
	}

	c.JSON(http.StatusOK, newResumeResponse(*record))
}

// ListResumes 列出用户全部简历。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	var resumes []database.Resume
	if err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&resumes).Error; err != nil {
		Internal(c, "failed to list resumes")
		return
	}

	items := make([]resumeListItem, 0, len(resumes))
	for _, r := range resumes {
		items = append(items, resumeListItem{
			ID:              r.ID,
			Title:           r.Title,
			TemplateID:      r.TemplateID,
			PreviewImageURL: r.PreviewImageURL,
			CreatedAt:       r.CreatedAt,
			UpdatedAt:       r.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, items)
}

// GetResume 返回指定 ID 的简历并标记为当前正在编辑。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	record, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyResumeLookupError(c, err)
		return
	}

	if err := h.setActiveResumeID(c.Request.Context(), userID, &record.ID); err != nil {
		Internal(c, "failed to mark active resume")
		return
	}

	c.JSON(http.StatusOK, newResumeResponse(*record))
}

// UpdateResume 覆盖简历标题与正文内容。
// 分区顺序、显隐与布局由 /sections 与 /template 接口单独维护。
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	var req updateResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	record, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyResumeLookupError(c, err)
		return
	}

	doc, err := editor.Load(*record)
	if err != nil {
		Internal(c, "failed to decode resume")
		return
	}
	if req.Content != nil {
		doc.Content = *req.Content
	}

	record.Title = req.Title
	if err := doc.Store(record); err != nil {
		Internal(c, "failed to encode resume")
		return
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Save(record).Error; err != nil {
		Internal(c, "failed to update resume")
		return
	}

	if err := h.setActiveResumeID(ctx, userID, &record.ID); err != nil {
		Internal(c, "failed to mark active resume")
		return
	}

	c.JSON(http.StatusOK, newResumeResponse(*record))
}

// DeleteResume 删除指定简历，并尝试回落到最近一份。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	record, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyResumeLookupError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Delete(&database.Resume{}, record.ID).Error; err != nil {
		Internal(c, "failed to delete resume")
		return
	}

	if err := h.assignLatestResumeAsActive(ctx, userID); err != nil {
		Internal(c, "failed to update active resume")
		return
	}

	// 行已删，存储清理尽力而为，失败不影响响应。
	if h.storage != nil {
		if err := h.storage.DeletePrefix(ctx, fmt.Sprintf("generated-resumes/%d/%d/", userID, record.ID)); err != nil {
			slog.Default().Warn("delete resume exports failed",
				slog.Uint64("resume_id", uint64(record.ID)), slog.Any("error", err))
		}
		if err := h.storage.DeletePrefix(ctx, fmt.Sprintf("thumbnails/resume/%d/", record.ID)); err != nil {
			slog.Default().Warn("delete resume thumbnails failed",
				slog.Uint64("resume_id", uint64(record.ID)), slog.Any("error", err))
		}
	}

	c.Status(http.StatusNoContent)
}

// ExportResume 将 PDF 导出任务入队并立即返回 202。
func (h *ResumeHandler) ExportResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	record, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyResumeLookupError(c, err)
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewPDFExportTask(record.ID, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	info, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5))
	if err != nil {
		Internal(c, "failed to enqueue pdf export")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "PDF export request accepted",
		"task_id": info.ID,
	})
}

// GetDownloadLink 生成简历 PDF 的预签名下载链接。
func (h *ResumeHandler) GetDownloadLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	record, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.replyResumeLookupError(c, err)
		return
	}

	if record.PdfUrl == "" {
		Conflict(c, "pdf not ready")
		return
	}

	// 下载时带上简历标题作为文件名。
	params := map[string]string{
		"response-content-disposition": fmt.Sprintf("attachment; filename=%q", downloadFilename(record.Title)),
	}
	signedURL, err := h.storage.GeneratePresignedURLWithParams(c.Request.Context(), record.PdfUrl, 5*time.Minute, params)
	if err != nil {
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

// downloadFilename 把简历标题整理成安全的下载文件名。
func downloadFilename(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == '"', r == '\\', r == '/':
			return -1
		default:
			return r
		}
	}, strings.TrimSpace(title))
	if cleaned == "" {
		cleaned = "resume"
	}
	return cleaned + ".pdf"
}

func (h *ResumeHandler) replyResumeLookupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidResumeID):
		BadRequest(c, "invalid resume id")
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, "resume not found")
	default:
		Internal(c, "failed to query resume")
	}
}

func (h *ResumeHandler) setActiveResumeID(ctx context.Context, userID uint, resumeID *uint) error {
	var value any
	if resumeID != nil {
		value = *resumeID
	} else {
		value = nil
	}
	return h.db.WithContext(ctx).Model(&database.User{}).
		Where("id = ?", userID).
		Update("active_resume_id", value).Error
}

func (h *ResumeHandler) assignLatestResumeAsActive(ctx context.Context, userID uint) error {
	var record database.Resume
	err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		First(&record).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return h.setActiveResumeID(ctx, userID, nil)
	case err != nil:
		return err
	default:
		return h.setActiveResumeID(ctx, userID, &record.ID)
	}
}

func (h *ResumeHandler) findActiveOrLatestResume(ctx context.Context, userID uint) (*database.Resume, error) {
	var user database.User
	if err := h.db.WithContext(ctx).
		Select("id", "active_resume_id").
		First(&user, userID).Error; err != nil {
		return nil, err
	}

	if user.ActiveResumeID != nil {
		var record database.Resume
		if err := h.db.WithContext(ctx).
			Where("id = ? AND user_id = ?", *user.ActiveResumeID, userID).
			First(&record).Error; err == nil {
			return &record, nil
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	var latest database.Resume
	err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		First(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = h.setActiveResumeID(ctx, userID, nil)
		}
		return nil, err
	}

	if err := h.setActiveResumeID(ctx, userID, &latest.ID); err != nil {
		return nil, err
	}
	return &latest, nil
}

func (h *ResumeHandler) getResumeForUser(ctx context.Context, idParam string, userID uint) (*database.Resume, error) {
	resumeID, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil {
		return nil, errInvalidResumeID
	}

	var record database.Resume
	if err := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", uint(resumeID), userID).
		First(&record).Error; err != nil {
		return nil, err
	}

	return &record, nil
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}

func newResumeResponse(record database.Resume) resumeResponse {
	return resumeResponse{
		ID:              record.ID,
		Title:           record.Title,
		BlueprintID:     record.BlueprintID,
		TemplateID:      record.TemplateID,
		Content:         record.Content,
		SectionConfig:   record.SectionConfig,
		Design:          record.Design,
		PreviewImageURL: record.PreviewImageURL,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}
