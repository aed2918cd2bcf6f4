package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"craftcv/internal/catalog"
	"craftcv/internal/database"
	"craftcv/internal/editor"
	"craftcv/internal/errcode"
	"craftcv/internal/resume"
	"craftcv/internal/sections"
	"craftcv/internal/storage"
)

type PrintWarning struct {
	Code        int      `json:"code"`
	Message     string   `json:"message"`
	MissingKeys []string `json:"missing_keys,omitempty"`
}

// PrintData 是 worker 渲染 PDF 所需的全部数据：已解析的分区序列、
// 栏位分配、正文内容与样式。头像在此内联为 data URI，worker 无需
// 再访问对象存储。
type PrintData struct {
	Title        string                      `json:"title"`
	Design       editor.Design               `json:"design"`
	Content      resume.Content              `json:"content"`
	Sections     []sections.ResolvedSection  `json:"sections"`
	Columns      []sections.ColumnAssignment `json:"columns"`
	PhotoDataURI string                      `json:"photo_data_uri,omitempty"`
	Warnings     []PrintWarning              `json:"warnings,omitempty"`
}

// PrintHandler 服务于 worker 的内部打印数据接口。
// 路由层以 InternalSecretMiddleware 鉴权，处理器本身不做用户归属检查。
type PrintHandler struct {
	db      *gorm.DB
	catalog *catalog.Service
	storage *storage.Client
}

func NewPrintHandler(db *gorm.DB, catalogService *catalog.Service, storageClient *storage.Client) *PrintHandler {
	return &PrintHandler{db: db, catalog: catalogService, storage: storageClient}
}

// GetPrintResumeData 返回渲染 PDF 所需的 JSON 数据。
func (h *PrintHandler) GetPrintResumeData(c *gin.Context) {
	resumeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid resume id")
		return
	}

	ctx := c.Request.Context()
	var record database.Resume
	if err := h.db.WithContext(ctx).First(&record, uint(resumeID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "resume not found")
			return
		}
		Internal(c, "failed to load resume")
		return
	}

	data, err := BuildPrintData(ctx, h.catalog, h.storage, record)
	if err != nil {
		Internal(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, data)
}

// BuildPrintData 把简历行展开为打印数据：解析分区、分配栏位、内联头像。
// 约定：
// - 头像对象不存在(NoSuchKey) => 跳过头像，记录 warning(4004)
// - Bucket 不存在(NoSuchBucket) => 视为系统错误，直接返回 error
func BuildPrintData(ctx context.Context, catalogService *catalog.Service, storageClient *storage.Client, record database.Resume) (PrintData, error) {
	doc, err := editor.Load(record)
	if err != nil {
		return PrintData{}, fmt.Errorf("decode resume %d: %w", record.ID, err)
	}

	bp := catalogService.ResolveBlueprint(ctx, doc.BlueprintID)
	resolved := sections.Resolve(&bp, doc.Config, &doc.Content)

	visible := make([]sections.ResolvedSection, 0, len(resolved))
	for _, section := range resolved {
		if section.Visible {
			visible = append(visible, section)
		}
	}

	tpl, err := catalogService.GetTemplate(ctx, doc.TemplateID)
	if err != nil {
		// 模板下架后简历仍要能导出，回落到默认模板的版式。
		tpl = catalog.FallbackTemplates()[0]
	}

	order := make([]string, 0, len(resolved))
	for _, section := range resolved {
		order = append(order, section.ID)
	}
	columns := sections.Assign(tpl.Layout, order, doc.Config.HiddenSet())

	data := PrintData{
		Title:    record.Title,
		Design:   doc.Design,
		Content:  doc.Content,
		Sections: visible,
		Columns:  columns,
	}

	photoKey := strings.TrimSpace(doc.Content.Basics.PhotoKey)
	if photoKey != "" {
		uri, err := inlinePhoto(ctx, storageClient, record.UserID, photoKey)
		switch {
		case err == nil:
			data.PhotoDataURI = uri
		case storage.IsNoSuchBucket(err):
			return PrintData{}, fmt.Errorf("minio bucket does not exist: %w", err)
		case storage.IsNoSuchKey(err) || errors.Is(err, errInvalidPhotoKey):
			data.Warnings = append(data.Warnings, PrintWarning{
				Code:        errcode.ResourceMissing,
				Message:     "头像资源缺失/无效，已跳过并继续生成",
				MissingKeys: []string{photoKey},
			})
		default:
			return PrintData{}, fmt.Errorf("inline photo: %w", err)
		}
	}

	return data, nil
}

var errInvalidPhotoKey = errors.New("invalid photo object key")

func inlinePhoto(ctx context.Context, storageClient *storage.Client, ownerID uint, objectKey string) (string, error) {
	if !isValidUserAssetObjectKey(ownerID, objectKey) {
		return "", errInvalidPhotoKey
	}

	obj, err := storageClient.GetObject(ctx, objectKey)
	if err != nil {
		return "", err
	}
	defer func() { _ = obj.Close() }()

	contentType := "image/png"
	if stat, err := obj.Stat(); err == nil && strings.TrimSpace(stat.ContentType) != "" {
		contentType = stat.ContentType
	} else if err != nil {
		return "", err
	}

	photoBytes, err := io.ReadAll(obj)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(photoBytes)), nil
}
