package sections

// Config 是用户对分区的个性化覆盖层，随简历以 JSONB 持久化。
// 所有变更操作都是纯函数：返回新值，从不原地修改，便于调用方按
// 读取-变换-写回 的方式使用。
//
// 不变量：Order 内 ID 不重复；Hidden 中的 ID 理论上应出现在 Order 中，
// 但解析器必须容忍游离的 Hidden 条目。
type Config struct {
	Order  []string          `json:"order"`
	Hidden []string          `json:"hidden"`
	Titles map[string]string `json:"titles"`
}

// AddSection 将分区加入用户视野：不在 Order 中则追加到末尾（已存在则不动，
// 幂等），并总是将其移出 Hidden。
func (c Config) AddSection(id string) Config {
	next := c.clone()
	found := false
	for _, existing := range next.Order {
		if existing == id {
			found = true
			break
		}
	}
	if !found {
		next.Order = append(next.Order, id)
	}
	next.Hidden = removeID(next.Hidden, id)
	return next
}

// RemoveSection 软删除：把分区放入 Hidden，但保留其在 Order 中的位置，
// 以便恢复时回到原位。幂等。
func (c Config) RemoveSection(id string) Config {
	next := c.clone()
	for _, hidden := range next.Hidden {
		if hidden == id {
			return next
		}
	}
	next.Hidden = append(next.Hidden, id)
	return next
}

// ToggleSection 对称切换分区的隐藏状态。
func (c Config) ToggleSection(id string) Config {
	next := c.clone()
	for _, hidden := range next.Hidden {
		if hidden == id {
			next.Hidden = removeID(next.Hidden, id)
			return next
		}
	}
	next.Hidden = append(next.Hidden, id)
	return next
}

// RenameSection 写入用户标题覆盖。空字符串也是合法覆盖；
// 恢复默认标题需要调用方显式删除覆盖（未提供该操作）。
func (c Config) RenameSection(id, title string) Config {
	next := c.clone()
	if next.Titles == nil {
		next.Titles = make(map[string]string, 1)
	}
	next.Titles[id] = title
	return next
}

// ReorderSections 整体替换排序。不校验 newOrder 是否为现有集合的排列，
// 非法输入依赖解析器的容错（游离 ID 会被并入候选集，缺失 ID 排在末尾）。
func (c Config) ReorderSections(newOrder []string) Config {
	next := c.clone()
	next.Order = append([]string(nil), newOrder...)
	return next
}

// ApplyTemplate 在切换模板时整体重置 Order 为模板声明的分区序列。
// 这是破坏性的：用户此前添加的、新模板不认识的分区会从 Order 中丢失，
// 只能依靠解析器的孤儿处理或重新添加找回。产品如此约定。
func (c Config) ApplyTemplate(sectionIDs []string) Config {
	next := c.clone()
	next.Order = append([]string(nil), sectionIDs...)
	return next
}

// IsHidden 判断分区当前是否被隐藏。
func (c Config) IsHidden(id string) bool {
	for _, hidden := range c.Hidden {
		if hidden == id {
			return true
		}
	}
	return false
}

// HiddenSet 以集合形式返回 Hidden。
func (c Config) HiddenSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Hidden))
	for _, id := range c.Hidden {
		set[id] = struct{}{}
	}
	return set
}

func (c Config) clone() Config {
	next := Config{
		Order:  append([]string(nil), c.Order...),
		Hidden: append([]string(nil), c.Hidden...),
	}
	if c.Titles != nil {
		next.Titles = make(map[string]string, len(c.Titles))
		for k, v := range c.Titles {
			next.Titles[k] = v
		}
	}
	return next
}

func removeID(ids []string, id string) []string {
	result := ids[:0:0]
	for _, existing := range ids {
		if existing != id {
			result = append(result, existing)
		}
	}
	return result
}
