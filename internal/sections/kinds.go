package sections

import "strings"

// 内置分区类型。分区 ID 是排序/可见性/标题解析的最小单元。
const (
	KindHeader       = "header"
	KindSummary      = "summary"
	KindWork         = "work"
	KindEducation    = "education"
	KindSkills       = "skills"
	KindProjects     = "projects"
	KindLanguages    = "languages"
	KindAwards       = "awards"
	KindVolunteer    = "volunteer"
	KindReferences   = "references"
	KindPublications = "publications"
)

// CustomPrefix 是自建分区 ID 的命名空间前缀，避免与内置分区冲突。
const CustomPrefix = "custom:"

var defaultTitles = map[string]string{
	KindHeader:       "Personal Details",
	KindSummary:      "Summary",
	KindWork:         "Work Experience",
	KindEducation:    "Education",
	KindSkills:       "Skills",
	KindProjects:     "Projects",
	KindLanguages:    "Languages",
	KindAwards:       "Awards",
	KindVolunteer:    "Volunteering",
	KindReferences:   "References",
	KindPublications: "Publications",
}

// DefaultTitle 返回分区的内置默认标题；未知分区退回原始 ID。
func DefaultTitle(id string) string {
	if title, ok := defaultTitles[id]; ok {
		return title
	}
	return id
}

// IsCustom 判断 ID 是否属于自建分区命名空间。
func IsCustom(id string) bool {
	return strings.HasPrefix(id, CustomPrefix)
}

// CustomSectionID 将自建分区 ID 归一化到 custom: 命名空间（幂等）。
func CustomSectionID(id string) string {
	if IsCustom(id) {
		return id
	}
	return CustomPrefix + id
}
