package sections

import (
	"sort"

	"craftcv/internal/catalog"
)

// ColumnAssignment 是单个物理栏位最终要渲染的分区序列。
type ColumnAssignment struct {
	Column     int      `json:"column"`
	Width      int      `json:"width"`
	SectionIDs []string `json:"section_ids"`
}

// Assign 把全局解析顺序分配到模板声明的栏位中。
//
// 两级优先：栏位归属由模板决定（兜底栏吸收模板不认识的孤儿分区，
// 保证任何可解析分区都不会因为模板没有槽位而静默丢失），
// 栏内先后由用户的全局顺序决定。一个分区只会出现在一个栏位里；
// 模板把同一分区声明进多个栏位时，先声明的栏位生效。
func Assign(layout catalog.Layout, resolvedOrder []string, hidden map[string]struct{}) []ColumnAssignment {
	if len(layout.Columns) == 0 {
		return nil
	}

	declared := make(map[string]struct{})
	for _, col := range layout.Columns {
		for _, id := range col.Sections {
			declared[id] = struct{}{}
		}
	}

	orderIndex := make(map[string]int, len(resolvedOrder))
	for i, id := range resolvedOrder {
		if _, ok := orderIndex[id]; !ok {
			orderIndex[id] = i
		}
	}

	overflow := layout.OverflowColumn()
	claimed := make(map[string]struct{})
	assignments := make([]ColumnAssignment, 0, len(layout.Columns))

	for colIdx, col := range layout.Columns {
		ids := make([]string, 0, len(col.Sections))
		claim := func(id string) {
			if _, ok := claimed[id]; ok {
				return
			}
			claimed[id] = struct{}{}
			ids = append(ids, id)
		}

		for _, id := range col.Sections {
			claim(id)
		}
		if colIdx == overflow {
			// 孤儿分区：在全局顺序里但不属于任何栏位声明。
			for _, id := range resolvedOrder {
				if _, ok := declared[id]; !ok {
					claim(id)
				}
			}
		}

		sort.SliceStable(ids, func(i, j int) bool {
			ii, iok := orderIndex[ids[i]]
			ji, jok := orderIndex[ids[j]]
			if iok && jok {
				return ii < ji
			}
			return iok && !jok
		})

		visible := ids[:0]
		for _, id := range ids {
			if _, isHidden := hidden[id]; !isHidden {
				visible = append(visible, id)
			}
		}

		assignments = append(assignments, ColumnAssignment{
			Column:     colIdx,
			Width:      col.Width,
			SectionIDs: visible,
		})
	}

	return assignments
}
