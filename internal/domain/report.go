package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusProcessed = "processed"
	StatusPartial   = "partial"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
	StatusUnmatched = "unmatched"
)

const (
	ErrCodeInvalidTarget        = "invalid_target"
	ErrCodeFetchFailed          = "fetch_failed"
	ErrCodeParseFailed          = "parse_failed"
	ErrCodeDirectoryUnavailable = "directory_unavailable"
	ErrCodeUnmatchedAuthor      = "unmatched_author"
	ErrCodeUpdateFailed         = "update_failed"
	ErrCodeConfigNotFound       = "config_not_found"
	ErrCodeConfigInvalid        = "config_invalid"
	ErrCodeConfigMissingBaseURL = "config_missing_base_url"
	ErrCodeConfigMissingToken   = "config_missing_token"
)

// DescriptionSource 标记最终采用的简介来源。
const (
	DescriptionFull  = "full"
	DescriptionShort = "short"
	DescriptionNone  = "none"
)

// RunReport 是对外稳定输出（report.json / stdout JSON|YAML）的结构。
type RunReport struct {
	RunID  string `json:"run_id" yaml:"run_id"`
	Server string `json:"server" yaml:"server"`
	DryRun bool   `json:"dry_run" yaml:"dry_run"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	Summary ReportSummary `json:"summary" yaml:"summary"`
	Items   []ItemResult  `json:"items" yaml:"items"`
}

type ReportSummary struct {
	Processed int `json:"processed" yaml:"processed"`
	Partial   int `json:"partial" yaml:"partial"`
	Skipped   int `json:"skipped" yaml:"skipped"`
	Failed    int `json:"failed" yaml:"failed"`
	Unmatched int `json:"unmatched" yaml:"unmatched"`
}

type ItemResult struct {
	Target       string `json:"target" yaml:"target"`
	Input        string `json:"input" yaml:"input"`
	ProviderUsed string `json:"provider_used" yaml:"provider_used"`
	PageURL      string `json:"page_url" yaml:"page_url"`

	Status    string `json:"status" yaml:"status"`
	ErrorCode string `json:"error_code" yaml:"error_code"`
	ErrorMsg  string `json:"error_msg" yaml:"error_msg"`
	Message   string `json:"message" yaml:"message"`

	Candidates []string     `json:"candidates" yaml:"candidates"`
	Author     *AuthorMatch `json:"author" yaml:"author"`

	Description   DescriptionResult `json:"description" yaml:"description"`
	PhotoURL      string            `json:"photo_url" yaml:"photo_url"`
	PhotoProvider string            `json:"photo_provider,omitempty" yaml:"photo_provider,omitempty"`
	Updates       ItemUpdates       `json:"updates" yaml:"updates"`

	// Attempts 记录 provider 回退链上失败的尝试（成功时通常为空）。
	Attempts []ProviderAttempt `json:"attempts,omitempty" yaml:"attempts,omitempty"`
}

type ProviderAttempt struct {
	Provider  string `json:"provider" yaml:"provider"`
	Stage     string `json:"stage" yaml:"stage"`
	ErrorCode string `json:"error_code" yaml:"error_code"`
	ErrorMsg  string `json:"error_msg" yaml:"error_msg"`
}

// AuthorMatch 描述命中的 ABS 作者以及命中方式。
type AuthorMatch struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Tier      string `json:"tier" yaml:"tier"`
	Candidate string `json:"candidate" yaml:"candidate"`
}

type DescriptionResult struct {
	Source string `json:"source" yaml:"source"`
	URL    string `json:"url,omitempty" yaml:"url,omitempty"`
	Length int    `json:"length" yaml:"length"`
}

type ItemUpdates struct {
	Description UpdateOutcome `json:"description" yaml:"description"`
	Photo       UpdateOutcome `json:"photo" yaml:"photo"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 target 字典序；target=="" 的条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Target
		b := r.Items[j].Target
		if a == "" && b == "" {
			return false
		}
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusProcessed:
			s.Processed++
		case StatusPartial:
			s.Partial++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		case StatusUnmatched:
			s.Unmatched++
		}
	}
	r.Summary = s
}

// OK 表示本次运行没有失败或未匹配的条目。
func (s ReportSummary) OK() bool {
	return s.Failed == 0 && s.Unmatched == 0
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
