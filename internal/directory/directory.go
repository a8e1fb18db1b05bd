// Package directory 把 ABS 各媒体库的作者列表合并为一份按 id 去重的作者目录。
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/absauthor/internal/domain"
)

// ErrNotConfigured 表示没有配置 ABS 服务地址。
var ErrNotConfigured = errors.New("directory: abs base url not configured")

// Catalog 是作者目录的数据来源（ABS 客户端实现它）。
type Catalog interface {
	ListLibraries(ctx context.Context) ([]domain.Library, error)
	ListLibraryAuthors(ctx context.Context, libraryID string) ([]domain.AuthorRecord, error)
}

// UnavailableError 表示无法枚举媒体库：目录整体不可用，本次解析终止。
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("directory unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// LibraryFailure 记录单个媒体库拉取失败；失败的库不参与合并，构建继续。
type LibraryFailure struct {
	LibraryID string
	Err       error
}

// Snapshot 是一次构建出的作者目录。
//
// 约束：
// - Authors 中每个 id 只出现一次，重复 id 以最先出现的库为准
// - Authors 按首次出现的顺序排列
type Snapshot struct {
	Authors  []domain.AuthorRecord
	Failures []LibraryFailure
}

// Degraded 表示至少有一个媒体库没能拉取，目录可能不完整。
func (s Snapshot) Degraded() bool { return len(s.Failures) > 0 }

// Len 返回目录中的作者数。
func (s Snapshot) Len() int { return len(s.Authors) }

// Build 枚举全部媒体库并合并作者。
func Build(ctx context.Context, c Catalog) (Snapshot, error) {
	if c == nil {
		return Snapshot{}, ErrNotConfigured
	}
	libs, err := c.ListLibraries(ctx)
	if err != nil {
		return Snapshot{}, &UnavailableError{Err: err}
	}

	var snap Snapshot
	seen := make(map[string]struct{})
	for _, lib := range libs {
		id := strings.TrimSpace(lib.ID)
		if id == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}
		authors, err := c.ListLibraryAuthors(ctx, id)
		if err != nil {
			snap.Failures = append(snap.Failures, LibraryFailure{LibraryID: id, Err: err})
			continue
		}
		for _, a := range authors {
			if strings.TrimSpace(a.ID) == "" {
				continue
			}
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			if a.LibraryID == "" {
				a.LibraryID = id
			}
			snap.Authors = append(snap.Authors, a)
		}
	}
	return snap, nil
}
