package domain

// AuthorPage 是 provider 从来源站点解析出的作者信息（最小可用集）。
//
// 约束：
// - Names 按置信度排序：页面标题 > og:title > URL 推断
// - ShortDescription 已去掉“阅读全文”链接，但尚未做文本清洗
// - AboutURL 是页面上直接链接的详情页（可能为空）
type AuthorPage struct {
	PageURL string   `json:"page_url"`
	Names   []string `json:"names"`

	PhotoURL         string `json:"photo_url"`
	AboutURL         string `json:"about_url"`
	ShortDescription string `json:"short_description"`
}
