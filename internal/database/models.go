package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Username           string   `gorm:"uniqueIndex;size:64"`
	PasswordHash       string   `gorm:"size:255"`
	MustChangePassword bool     `gorm:"default:false"`
	ActiveResumeID     *uint    `gorm:"index"`
	Resumes            []Resume `gorm:"constraint:OnDelete:CASCADE"`
}

// Resume 表示用户创建的简历。
// Content 存放结构化的简历内容（basics/work/education/...），
// SectionConfig 存放用户对分区顺序、可见性与标题的个性化覆盖。
type Resume struct {
	gorm.Model
	Title            string         `gorm:"size:255"`
	Content          datatypes.JSON `gorm:"type:jsonb"`
	SectionConfig    datatypes.JSON `gorm:"type:jsonb"`
	Design           datatypes.JSON `gorm:"type:jsonb"`
	BlueprintID      string         `gorm:"size:64"`
	TemplateID       string         `gorm:"size:64"`
	UserID           uint           `gorm:"index"`
	User             User           `gorm:"constraint:OnDelete:CASCADE"`
	PdfUrl           string         `gorm:"size:512"`
	PreviewImageURL  string         `gorm:"size:1024"`
	PreviewObjectKey string         `gorm:"size:512"`
	Status           string         `gorm:"size:32"`
}

// BlueprintRecord 表示行业蓝图目录条目（只读目录，由 admin 工具播种）。
type BlueprintRecord struct {
	gorm.Model
	BlueprintID string         `gorm:"uniqueIndex;size:64"`
	Label       string         `gorm:"size:255"`
	Content     datatypes.JSON `gorm:"type:jsonb"` // defaultSections 与 sectionOverrides
}

// TemplateRecord 表示可选的视觉模板目录条目。
type TemplateRecord struct {
	gorm.Model
	TemplateID string         `gorm:"uniqueIndex;size:64"`
	Label      string         `gorm:"size:255"`
	Content    datatypes.JSON `gorm:"type:jsonb"` // layout 与 styles
}

// Asset 记录用户上传的图片资产（头像等）。
type Asset struct {
	gorm.Model
	UserID    uint   `gorm:"index"`
	ObjectKey string `gorm:"uniqueIndex;size:512"`
}
