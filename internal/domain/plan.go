package domain

// UnmatchedInput 是无法解析出 slug 的输入行。
type UnmatchedInput struct {
	Input string `json:"input"`
	// Kind: "no_match" 或 "foreign_host"
	Kind string `json:"kind"`
}

// Need 描述一个作者条目还需要写入哪些字段。
type Need struct {
	Description bool
	Photo       bool
}

// Any 表示至少还有一个字段需要处理。
func (n Need) Any() bool { return n.Description || n.Photo }

// ItemPlan 是单个作者的确定性执行计划（不包含任何网络结果）。
//
// - Candidates：按置信度排序、去重后的候选人名
// - DescriptionURLs：完整简介的尝试位置（页面直链优先，其次按 slug 拼出的地址）
// - ShortDescription：页面上的短简介原文，作为完整简介全部失败时的兜底
type ItemPlan struct {
	Target     Target
	PageURL    string
	Candidates []string

	DescriptionURLs  []string
	ShortDescription string
	PhotoURL         string

	Need Need
}
