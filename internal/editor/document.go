package editor

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"craftcv/internal/catalog"
	"craftcv/internal/database"
	"craftcv/internal/resume"
	"craftcv/internal/sections"
)

// Design 是简历当前生效的版式与样式，来源于所选模板，随简历持久化。
type Design struct {
	LayoutType   string `json:"layout_type"`
	PrimaryColor string `json:"primary_color"`
	AccentColor  string `json:"accent_color"`
	FontFamily   string `json:"font_family"`
}

// Document 聚合一份简历的全部可编辑状态：内容、分区覆盖、版式。
// 值语义 + 纯变换：每个操作返回新 Document，存活实例就是数据库行，
// 处理器按 加载-变换-写回 使用。
type Document struct {
	Config      sections.Config
	Design      Design
	BlueprintID string
	TemplateID  string
	Content     resume.Content
}

// AddSection 恢复/添加一个分区。幂等。
func (d Document) AddSection(id string) Document {
	d.Config = d.Config.AddSection(id)
	return d
}

// RemoveSection 隐藏一个分区（位置保留，可恢复）。幂等。
func (d Document) RemoveSection(id string) Document {
	d.Config = d.Config.RemoveSection(id)
	return d
}

// ToggleSection 切换分区可见性。
func (d Document) ToggleSection(id string) Document {
	d.Config = d.Config.ToggleSection(id)
	return d
}

// RenameSection 覆盖分区标题。
func (d Document) RenameSection(id, title string) Document {
	d.Config = d.Config.RenameSection(id, title)
	return d
}

// ReorderSections 整体替换分区顺序。
func (d Document) ReorderSections(order []string) Document {
	d.Config = d.Config.ReorderSections(order)
	return d
}

// SetBlueprint 切换行业蓝图。蓝图只影响解析时的默认集，无需重置覆盖。
func (d Document) SetBlueprint(id string) Document {
	d.BlueprintID = id
	return d
}

// SetTemplate 切换视觉模板：接管版式与样式，并整体重置分区顺序为模板
// 声明的序列（破坏性，见 sections.Config.ApplyTemplate）。
func (d Document) SetTemplate(tpl catalog.Template) Document {
	d.TemplateID = tpl.ID
	d.Design = Design{
		LayoutType:   tpl.Layout.Type,
		PrimaryColor: tpl.Styles.PrimaryColor,
		AccentColor:  tpl.Styles.AccentColor,
		FontFamily:   tpl.Styles.FontFamily,
	}
	d.Config = d.Config.ApplyTemplate(tpl.SectionIDs())
	return d
}

// AddCustomSection 新建一个自建分区并使其可解析，返回新文档与分区 ID。
func (d Document) AddCustomSection(title, sectionType string) (Document, string) {
	id := sections.CustomSectionID(uuid.NewString())
	d.Content.CustomSections = append(
		append([]resume.CustomSection(nil), d.Content.CustomSections...),
		resume.CustomSection{ID: id, Title: title, Type: sectionType},
	)
	d.Config = d.Config.AddSection(id)
	return d, id
}

// NewDocument 基于兜底模板与标准蓝图构造初始文档。
func NewDocument() Document {
	tpl := catalog.FallbackTemplates()[0]
	doc := Document{
		BlueprintID: catalog.FallbackBlueprintID,
		Content: resume.Content{
			Basics: resume.Basics{Name: "Your Name", Label: "Your Title"},
		},
	}
	return doc.SetTemplate(tpl)
}

// Load 从数据库行反序列化文档。历史行缺失某些 JSONB 字段时取零值。
func Load(rec database.Resume) (Document, error) {
	doc := Document{
		BlueprintID: rec.BlueprintID,
		TemplateID:  rec.TemplateID,
	}
	if len(rec.Content) > 0 {
		if err := json.Unmarshal(rec.Content, &doc.Content); err != nil {
			return Document{}, fmt.Errorf("decode resume content: %w", err)
		}
	}
	if len(rec.SectionConfig) > 0 {
		if err := json.Unmarshal(rec.SectionConfig, &doc.Config); err != nil {
			return Document{}, fmt.Errorf("decode section config: %w", err)
		}
	}
	if len(rec.Design) > 0 {
		if err := json.Unmarshal(rec.Design, &doc.Design); err != nil {
			return Document{}, fmt.Errorf("decode design: %w", err)
		}
	}
	return doc, nil
}

// Store 把文档序列化回数据库行。
func (d Document) Store(rec *database.Resume) error {
	content, err := json.Marshal(d.Content)
	if err != nil {
		return fmt.Errorf("encode resume content: %w", err)
	}
	cfg, err := json.Marshal(d.Config)
	if err != nil {
		return fmt.Errorf("encode section config: %w", err)
	}
	design, err := json.Marshal(d.Design)
	if err != nil {
		return fmt.Errorf("encode design: %w", err)
	}
	rec.Content = datatypes.JSON(content)
	rec.SectionConfig = datatypes.JSON(cfg)
	rec.Design = datatypes.JSON(design)
	rec.BlueprintID = d.BlueprintID
	rec.TemplateID = d.TemplateID
	return nil
}
