package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"craftcv/internal/catalog"
	"craftcv/internal/database"
	"craftcv/internal/editor"
	"craftcv/internal/sections"
)

// SectionHandler 处理分区编辑与版式解析相关的 API。
// 每个写操作都是 加载-纯变换-写回，随后返回最新的解析视图。
type SectionHandler struct {
	db      *gorm.DB
	catalog *catalog.Service
}

// NewSectionHandler 构造 SectionHandler。
func NewSectionHandler(db *gorm.DB, catalogService *catalog.Service) *SectionHandler {
	return &SectionHandler{db: db, catalog: catalogService}
}

type sectionIDRequest struct {
	SectionID string `json:"section_id" binding:"required"`
}

type renameSectionRequest struct {
	SectionID string `json:"section_id" binding:"required"`
	// 空标题是合法覆盖，表示隐藏该分区的标题栏。
	Title *string `json:"title" binding:"required"`
}

type reorderSectionsRequest struct {
	Order []string `json:"order" binding:"required"`
}

type addCustomSectionRequest struct {
	Title string `json:"title" binding:"required,max=128"`
	Type  string `json:"type"`
}

type setTemplateRequest struct {
	TemplateID string `json:"template_id" binding:"required"`
}

type setBlueprintRequest struct {
	BlueprintID string `json:"blueprint_id" binding:"required"`
}

// GetSections 返回简历的完整解析视图：含隐藏分区（供恢复入口）
// 以及按当前模板分配好的栏位。
func (h *SectionHandler) GetSections(c *gin.Context) {
	h.withDocument(c, func(doc editor.Document) (editor.Document, bool) {
		return doc, false
	})
}

// AddSection 恢复/添加一个分区。
func (h *SectionHandler) AddSection(c *gin.Context) {
	var req sectionIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	h.withDocument(c, func(doc editor.Document) (editor.Document, bool) {
		return doc.AddSection(req.SectionID), true
	})
}

// RemoveSection 隐藏一个分区，位置保留，可通过 AddSection 恢复。
func (h *SectionHandler) RemoveSection(c *gin.Context) {
	var req sectionIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	h.withDocument(c, func(doc editor.Document) (editor.Document, bool) {
		return doc.RemoveSection(req.SectionID), true
	})
}

// ToggleSection 切换分区可见性。
func (h *SectionHandler) ToggleSection(c *gin.Context) {
	var req sectionIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	h.withDocument(c, func(doc editor.Document) (editor.Document, bool) {
		return doc.ToggleSection(req.SectionID), true
	})
}

// RenameSection 覆盖分区标题。
func (h *SectionHandler) RenameSection(c *gin.Context) {
	var req renameSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	h.withDocument(c, func(doc editor.Document) (editor.Document, bool) {
		return doc.RenameSection(req.SectionID, *req.Title), true
	})
}

// ReorderSections 整体替换分区顺序。列表内容不做校验：
// 未知 ID 会被解析器自然忽略，遗漏的分区沉底。
func (h *SectionHandler) ReorderSections(c *gin.Context) {
	var req reorderSectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	h.withDocument(c, func(doc editor.Document) (editor.Document, bool) {
		return doc.ReorderSections(req.Order), true
	})
}

// AddCustomSection 新建自建分区并返回其 ID。
func (h *SectionHandler) AddCustomSection(c *gin.Context) {
	var req addCustomSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	var createdID string
	h.withDocumentExtra(c, func(doc editor.Document) (editor.Document, bool) {
		next, id := doc.AddCustomSection(strings.TrimSpace(req.Title), req.Type)
		createdID = id
		return next, true
	}, func(resp *gin.H) {
		(*resp)["section_id"] = createdID
	})
}

// SetTemplate 切换视觉模板。模板接管版式与样式，分区顺序整体重置。
func (h *SectionHandler) SetTemplate(c *gin.Context) {
	var req setTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	tpl, err := h.catalog.GetTemplate(c.Request.Context(), req.TemplateID)
	if err != nil {
		if errors.Is(err, catalog.ErrTemplateNotFound) {
			NotFound(c, "template not found")
			return
		}
		Internal(c, "failed to load template")
		return
	}

	h.withDocument(c, func(doc editor.Document) (editor.Document, bool) {
		return doc.SetTemplate(tpl), true
	})
}

// SetBlueprint 切换行业蓝图。只影响默认分区集，用户覆盖全部保留。
func (h *SectionHandler) SetBlueprint(c *gin.Context) {
	var req setBlueprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	h.withDocument(c, func(doc editor.Document) (editor.Document, bool) {
		return doc.SetBlueprint(req.BlueprintID), true
	})
}

// withDocument 封装 加载-变换-写回-解析 的通用流程。
// transform 返回 (新文档, 是否需要持久化)。
func (h *SectionHandler) withDocument(c *gin.Context, transform func(editor.Document) (editor.Document, bool)) {
	h.withDocumentExtra(c, transform, nil)
}

func (h *SectionHandler) withDocumentExtra(c *gin.Context, transform func(editor.Document) (editor.Document, bool), decorate func(*gin.H)) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	record, err := h.resumeForUser(c, userID)
	if err != nil {
		return
	}

	doc, err := editor.Load(*record)
	if err != nil {
		Internal(c, "failed to decode resume")
		return
	}

	next, dirty := transform(doc)
	if dirty {
		if err := next.Store(record); err != nil {
			Internal(c, "failed to encode resume")
			return
		}
		if err := h.db.WithContext(ctx).Save(record).Error; err != nil {
			Internal(c, "failed to save resume")
			return
		}
	}

	bp := h.catalog.ResolveBlueprint(ctx, next.BlueprintID)
	resolved := sections.Resolve(&bp, next.Config, &next.Content)

	tpl, err := h.catalog.GetTemplate(ctx, next.TemplateID)
	if err != nil {
		// 与打印链路保持同一兜底，编辑视图与导出看到的版式必须一致。
		tpl = catalog.FallbackTemplates()[0]
	}
	order := make([]string, 0, len(resolved))
	for _, section := range resolved {
		order = append(order, section.ID)
	}
	columns := sections.Assign(tpl.Layout, order, next.Config.HiddenSet())

	resp := gin.H{
		"sections": resolved,
		"columns":  columns,
	}
	if decorate != nil {
		decorate(&resp)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SectionHandler) resumeForUser(c *gin.Context, userID uint) (*database.Resume, error) {
	resumeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid resume id")
		return nil, errInvalidResumeID
	}
	record := &database.Resume{}

	err = h.db.WithContext(c.Request.Context()).
		Where("id = ? AND user_id = ?", uint(resumeID), userID).
		First(record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "resume not found")
		} else {
			Internal(c, "failed to query resume")
		}
		return nil, err
	}
	return record, nil
}
