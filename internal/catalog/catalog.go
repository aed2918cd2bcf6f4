package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"craftcv/internal/database"
)

// ErrTemplateNotFound 表示模板在目录与兜底集合中都不存在。
var ErrTemplateNotFound = errors.New("template not found")

// Service 提供蓝图/模板目录的读取，目录缺失时退回内置兜底数据。
type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewService 构造目录服务。
func NewService(db *gorm.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, logger: logger}
}

// ListBlueprints 返回目录中的全部蓝图；目录为空或查询失败时返回兜底集合。
func (s *Service) ListBlueprints(ctx context.Context) []Blueprint {
	var records []database.BlueprintRecord
	if err := s.db.WithContext(ctx).Order("blueprint_id").Find(&records).Error; err != nil {
		s.logger.Warn("list blueprints failed, using fallback", slog.Any("error", err))
		return FallbackBlueprints()
	}
	if len(records) == 0 {
		return FallbackBlueprints()
	}

	blueprints := make([]Blueprint, 0, len(records))
	for _, record := range records {
		bp, err := decodeBlueprint(record)
		if err != nil {
			s.logger.Warn("skip malformed blueprint record",
				slog.String("blueprint_id", record.BlueprintID),
				slog.Any("error", err),
			)
			continue
		}
		blueprints = append(blueprints, bp)
	}
	if len(blueprints) == 0 {
		return FallbackBlueprints()
	}
	return blueprints
}

// ResolveBlueprint 按 ID 查找蓝图。ID 为空、记录缺失或损坏时一律退回标准蓝图，
// 保证调用方总能拿到一份可解析的蓝图。
func (s *Service) ResolveBlueprint(ctx context.Context, id string) Blueprint {
	if id == "" {
		return FallbackBlueprint()
	}

	var record database.BlueprintRecord
	err := s.db.WithContext(ctx).Where("blueprint_id = ?", id).First(&record).Error
	switch {
	case err == nil:
		bp, decodeErr := decodeBlueprint(record)
		if decodeErr != nil {
			s.logger.Warn("blueprint record malformed, using fallback",
				slog.String("blueprint_id", id),
				slog.Any("error", decodeErr),
			)
			return FallbackBlueprint()
		}
		return bp
	case errors.Is(err, gorm.ErrRecordNotFound):
		// 目录未播种时仍然允许选择内置蓝图。
	default:
		s.logger.Warn("query blueprint failed, using fallback",
			slog.String("blueprint_id", id),
			slog.Any("error", err),
		)
	}

	for _, bp := range FallbackBlueprints() {
		if bp.ID == id {
			return bp
		}
	}
	return FallbackBlueprint()
}

// ListTemplates 返回目录中的全部模板；目录为空或查询失败时返回兜底集合。
func (s *Service) ListTemplates(ctx context.Context) []Template {
	var records []database.TemplateRecord
	if err := s.db.WithContext(ctx).Order("template_id").Find(&records).Error; err != nil {
		s.logger.Warn("list templates failed, using fallback", slog.Any("error", err))
		return FallbackTemplates()
	}
	if len(records) == 0 {
		return FallbackTemplates()
	}

	templates := make([]Template, 0, len(records))
	for _, record := range records {
		tpl, err := decodeTemplate(record)
		if err != nil {
			s.logger.Warn("skip malformed template record",
				slog.String("template_id", record.TemplateID),
				slog.Any("error", err),
			)
			continue
		}
		templates = append(templates, tpl)
	}
	if len(templates) == 0 {
		return FallbackTemplates()
	}
	return templates
}

// GetTemplate 按 ID 查找模板；目录中不存在时检查兜底集合。
// 与蓝图不同，切换模板必须命中真实模板，查不到返回 ErrTemplateNotFound。
func (s *Service) GetTemplate(ctx context.Context, id string) (Template, error) {
	var record database.TemplateRecord
	err := s.db.WithContext(ctx).Where("template_id = ?", id).First(&record).Error
	switch {
	case err == nil:
		tpl, decodeErr := decodeTemplate(record)
		if decodeErr == nil {
			return tpl, nil
		}
		s.logger.Warn("template record malformed",
			slog.String("template_id", id),
			slog.Any("error", decodeErr),
		)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		s.logger.Warn("query template failed, checking fallback",
			slog.String("template_id", id),
			slog.Any("error", err),
		)
	}

	for _, tpl := range FallbackTemplates() {
		if tpl.ID == id {
			return tpl, nil
		}
	}
	return Template{}, ErrTemplateNotFound
}

func decodeBlueprint(record database.BlueprintRecord) (Blueprint, error) {
	var bp Blueprint
	if err := json.Unmarshal(record.Content, &bp); err != nil {
		return Blueprint{}, err
	}
	// 列字段优先，Content 内的冗余值仅作兼容。
	bp.ID = record.BlueprintID
	if record.Label != "" {
		bp.Label = record.Label
	}
	if len(bp.DefaultSections) == 0 {
		return Blueprint{}, errors.New("blueprint has no default sections")
	}
	return bp, nil
}

func decodeTemplate(record database.TemplateRecord) (Template, error) {
	var tpl Template
	if err := json.Unmarshal(record.Content, &tpl); err != nil {
		return Template{}, err
	}
	tpl.ID = record.TemplateID
	if record.Label != "" {
		tpl.Label = record.Label
	}
	if len(tpl.Layout.Columns) == 0 {
		return Template{}, errors.New("template has no layout columns")
	}
	return tpl, nil
}
