package domain

// UpdateMethod 标记一次写入最终使用的请求形态。
type UpdateMethod string

const (
	// MethodNone 表示没有任何形态成功（或根本没有发出请求）。
	MethodNone UpdateMethod = "none"
	// MethodImageURL 是专用接口：POST /api/authors/{id}/image {url}。
	MethodImageURL UpdateMethod = "image_url"
	// MethodPatch 是通用局部更新：PATCH /api/authors/{id} {...}。
	MethodPatch UpdateMethod = "patch"
)

// WriteAttempt 记录一次写入尝试（用于解释回退原因）。
type WriteAttempt struct {
	Method UpdateMethod `json:"method"`
	Status int          `json:"status,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// UpdateOutcome 是单个字段（照片或简介）的写入结果；两个字段的结果互不影响。
type UpdateOutcome struct {
	Succeeded bool           `json:"succeeded"`
	Method    UpdateMethod   `json:"method"`
	Attempts  []WriteAttempt `json:"attempts,omitempty"`
}

// NoUpdate 是“没有成功/没有发出请求”的结果。
func NoUpdate() UpdateOutcome {
	return UpdateOutcome{Succeeded: false, Method: MethodNone}
}
