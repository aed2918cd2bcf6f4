package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"craftcv/internal/catalog"
	"craftcv/internal/sections"
)

// CatalogHandler 对外暴露蓝图与模板目录（只读）。
type CatalogHandler struct {
	catalog *catalog.Service
}

func NewCatalogHandler(catalogService *catalog.Service) *CatalogHandler {
	return &CatalogHandler{catalog: catalogService}
}

type blueprintListItem struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Sections []string `json:"sections"`
}

type templateListItem struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	LayoutType string `json:"layout_type"`
	Columns    int    `json:"columns"`
}

// GET /v1/catalog/blueprints
func (h *CatalogHandler) ListBlueprints(c *gin.Context) {
	blueprints := h.catalog.ListBlueprints(c.Request.Context())

	items := make([]blueprintListItem, 0, len(blueprints))
	for _, bp := range blueprints {
		items = append(items, blueprintListItem{
			ID:       bp.ID,
			Label:    bp.Label,
			Sections: bp.DefaultSections,
		})
	}
	c.JSON(http.StatusOK, items)
}

// GET /v1/catalog/blueprints/:id
// 带分区默认标题的详情，供前端展示分区清单。
func (h *CatalogHandler) GetBlueprint(c *gin.Context) {
	bp := h.catalog.ResolveBlueprint(c.Request.Context(), c.Param("id"))

	titles := make(map[string]string, len(bp.DefaultSections))
	for _, id := range bp.DefaultSections {
		titles[id] = sections.DefaultTitle(id)
		if override, ok := bp.SectionOverrides[id]; ok && override.Title != "" {
			titles[id] = override.Title
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       bp.ID,
		"label":    bp.Label,
		"sections": bp.DefaultSections,
		"titles":   titles,
	})
}

// GET /v1/catalog/templates
func (h *CatalogHandler) ListTemplates(c *gin.Context) {
	templates := h.catalog.ListTemplates(c.Request.Context())

	items := make([]templateListItem, 0, len(templates))
	for _, tpl := range templates {
		items = append(items, templateListItem{
			ID:         tpl.ID,
			Label:      tpl.Label,
			LayoutType: tpl.Layout.Type,
			Columns:    len(tpl.Layout.Columns),
		})
	}
	c.JSON(http.StatusOK, items)
}

// GET /v1/catalog/templates/:id
func (h *CatalogHandler) GetTemplate(c *gin.Context) {
	tpl, err := h.catalog.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrTemplateNotFound) {
			NotFound(c, "template not found")
			return
		}
		Internal(c, "failed to query template")
		return
	}
	c.JSON(http.StatusOK, tpl)
}
