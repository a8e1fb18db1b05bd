package domain

// AuthorRecord 是 ABS 中的作者条目。
//
// 约束：
// - 身份只由 ID 决定；Name 可变，是名称匹配唯一消费的字段
// - 本地只读：任何修改都通过 ABS 写接口完成，不在内存里改
type AuthorRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImagePath   string `json:"imagePath,omitempty"`
	LibraryID   string `json:"libraryId,omitempty"`
}

// Library 是 ABS 的一个媒体库（作者目录的子集合）。
type Library struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MediaType string `json:"mediaType,omitempty"`
}
