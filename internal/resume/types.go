package resume

// Content 表示存储在简历 Content(JSONB) 中的结构化数据。
// 各分区的条目按用户编辑顺序保存；渲染顺序由 section config 决定。
type Content struct {
	Basics         Basics          `json:"basics"`
	Work           []Work          `json:"work,omitempty"`
	Education      []Education     `json:"education,omitempty"`
	Skills         []Skill         `json:"skills,omitempty"`
	Languages      []Language      `json:"languages,omitempty"`
	Projects       []Project       `json:"projects,omitempty"`
	Awards         []Award         `json:"awards,omitempty"`
	Volunteer      []Volunteer     `json:"volunteer,omitempty"`
	References     []Reference     `json:"references,omitempty"`
	Publications   []Publication   `json:"publications,omitempty"`
	CustomSections []CustomSection `json:"custom_sections,omitempty"`
}

// Basics 是头部分区的个人信息。
type Basics struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Website  string `json:"website,omitempty"`
	Location string `json:"location,omitempty"`
	Summary  string `json:"summary,omitempty"`
	// PhotoKey 指向 MinIO 中的头像对象（user-assets/<uid>/...），打印时内联。
	PhotoKey string `json:"photo_key,omitempty"`
}

// Work 表示一段工作经历。
type Work struct {
	Company    string   `json:"company"`
	Position   string   `json:"position,omitempty"`
	Location   string   `json:"location,omitempty"`
	StartDate  string   `json:"start_date,omitempty"`
	EndDate    string   `json:"end_date,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

// Education 表示一段教育经历。
type Education struct {
	Institution string `json:"institution"`
	Area        string `json:"area,omitempty"`
	StudyType   string `json:"study_type,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Score       string `json:"score,omitempty"`
}

// Skill 表示一项技能及熟练度。
type Skill struct {
	Name     string   `json:"name"`
	Level    string   `json:"level,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// Language 表示语言能力。
type Language struct {
	Language string `json:"language"`
	Fluency  string `json:"fluency,omitempty"`
}

// Project 表示个人/工作项目。
type Project struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
}

// Award 表示获得的奖项。
type Award struct {
	Title   string `json:"title"`
	Date    string `json:"date,omitempty"`
	Awarder string `json:"awarder,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Volunteer 表示志愿者经历。
type Volunteer struct {
	Organization string   `json:"organization"`
	Position     string   `json:"position,omitempty"`
	StartDate    string   `json:"start_date,omitempty"`
	EndDate      string   `json:"end_date,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	Highlights   []string `json:"highlights,omitempty"`
}

// Reference 表示推荐人。
type Reference struct {
	Name      string `json:"name"`
	Reference string `json:"reference,omitempty"`
}

// Publication 表示发表物。
type Publication struct {
	Name        string `json:"name"`
	Publisher   string `json:"publisher,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	URL         string `json:"url,omitempty"`
	Summary     string `json:"summary,omitempty"`
}

// CustomSection 是用户自建分区。
// ID 应当带有 custom: 前缀（见 sections.CustomSectionID），避免与内置分区冲突。
type CustomSection struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Type  string       `json:"type,omitempty"` // list | text
	Items []CustomItem `json:"items,omitempty"`
}

// CustomItem 是自建分区内的一条内容。
type CustomItem struct {
	Title       string `json:"title,omitempty"`
	Subtitle    string `json:"subtitle,omitempty"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
}
