package sections

import (
	"sort"

	"craftcv/internal/catalog"
	"craftcv/internal/resume"
)

// ResolvedSection 是解析器的输出行：最终标题与可见性已定。
// 临时数据，每次读取重算，不持久化。
type ResolvedSection struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Visible bool   `json:"visible"`
	Custom  bool   `json:"custom,omitempty"`
}

// Resolve 把蓝图默认、用户覆盖与简历内容合并成有序的分区列表。
//
// 候选集是蓝图 defaultSections 与 cfg.Order 的首次出现保序并集，
// 保证用户添加过的分区即使蓝图不认识也能被解析；标题按
// 用户覆盖 > 蓝图覆盖 > 内置默认 > 原始 ID 取值；自建分区逐条追加；
// cfg.Order 非空时按其下标稳定排序，不在 Order 中的排到末尾。
//
// 返回完整列表（含隐藏项），供分区管理界面展示恢复入口；
// 渲染场景用 Visible 过滤（见 VisibleIDs）。
func Resolve(bp *catalog.Blueprint, cfg Config, content *resume.Content) []ResolvedSection {
	blueprint := catalog.FallbackBlueprint()
	if bp != nil && len(bp.DefaultSections) > 0 {
		blueprint = *bp
	}

	inOrder := make(map[string]int, len(cfg.Order))
	for i, id := range cfg.Order {
		if _, ok := inOrder[id]; !ok {
			inOrder[id] = i
		}
	}

	// 候选集：defaultSections ∪ Order，重复 ID 在此处去重。
	seen := make(map[string]int, len(blueprint.DefaultSections)+len(cfg.Order))
	resolved := make([]ResolvedSection, 0, len(blueprint.DefaultSections)+len(cfg.Order)+4)
	appendCandidate := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = len(resolved)
		resolved = append(resolved, ResolvedSection{
			ID:      id,
			Title:   resolveTitle(blueprint, cfg, id),
			Visible: resolveVisibility(blueprint, cfg, id, inOrder),
		})
	}
	for _, id := range blueprint.DefaultSections {
		appendCandidate(id)
	}
	for _, id := range cfg.Order {
		appendCandidate(id)
	}

	if content != nil {
		for _, cs := range content.CustomSections {
			id := CustomSectionID(cs.ID)
			if idx, ok := seen[id]; ok {
				// 已在候选集（用户排过序）：补上自建标记与标题。
				resolved[idx].Custom = true
				if _, overridden := cfg.Titles[id]; !overridden && cs.Title != "" {
					resolved[idx].Title = cs.Title
				}
				continue
			}
			title := cs.Title
			if userTitle, ok := cfg.Titles[id]; ok {
				title = userTitle
			}
			seen[id] = len(resolved)
			// 自建分区同样尊重 Hidden：否则管理界面显示"可见"，
			// 而栏位分配却把它滤掉，两边口径不一致。
			resolved = append(resolved, ResolvedSection{
				ID:      id,
				Title:   title,
				Visible: !cfg.IsHidden(id),
				Custom:  true,
			})
		}
	}

	if len(cfg.Order) > 0 {
		sort.SliceStable(resolved, func(i, j int) bool {
			ii, iok := inOrder[resolved[i].ID]
			ji, jok := inOrder[resolved[j].ID]
			if iok && jok {
				return ii < ji
			}
			// 不在 Order 中的整体沉底，彼此保持候选集相对顺序。
			return iok && !jok
		})
	}

	return resolved
}

// VisibleIDs 返回解析结果中可见分区的 ID 序列（渲染用）。
func VisibleIDs(resolved []ResolvedSection) []string {
	ids := make([]string, 0, len(resolved))
	for _, section := range resolved {
		if section.Visible {
			ids = append(ids, section.ID)
		}
	}
	return ids
}

func resolveTitle(bp catalog.Blueprint, cfg Config, id string) string {
	if title, ok := cfg.Titles[id]; ok {
		return title
	}
	if override, ok := bp.SectionOverrides[id]; ok && override.Title != "" {
		return override.Title
	}
	return DefaultTitle(id)
}

// resolveVisibility：用户 Hidden 一票否决；蓝图的默认可见性只对用户
// 从未动过（不在 Order 中）的分区生效，保证 AddSection 总能让分区显形。
func resolveVisibility(bp catalog.Blueprint, cfg Config, id string, inOrder map[string]int) bool {
	if cfg.IsHidden(id) {
		return false
	}
	if _, touched := inOrder[id]; touched {
		return true
	}
	if override, ok := bp.SectionOverrides[id]; ok && override.Visible != nil {
		return *override.Visible
	}
	return true
}
