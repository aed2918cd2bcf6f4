package worker

import (
	"craftcv/internal/editor"
	"craftcv/internal/resume"
	"craftcv/internal/sections"
)

// PrintData 是内部打印接口返回的 JSON 结构，与 API 侧保持一致。
// Worker 只消费数据，不重复解析分区。
type PrintData struct {
	Title        string                      `json:"title"`
	Design       editor.Design               `json:"design"`
	Content      resume.Content              `json:"content"`
	Sections     []sections.ResolvedSection  `json:"sections"`
	Columns      []sections.ColumnAssignment `json:"columns"`
	PhotoDataURI string                      `json:"photo_data_uri,omitempty"`
	Warnings     []PrintWarning              `json:"warnings,omitempty"`
}

type PrintWarning struct {
	Code        int      `json:"code"`
	Message     string   `json:"message"`
	MissingKeys []string `json:"missing_keys,omitempty"`
}
