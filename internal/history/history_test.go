package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/John-Robertt/absauthor/internal/domain"
)

func TestStore_RecordAndList(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("Open() err=%v", err)
	}
	defer s.Close()
	base := time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)
	n := 0
	s.now = func() time.Time { n++; return base.Add(time.Duration(n) * time.Second) }

	items := []domain.ItemResult{
		{
			Target:      "boris-akunin",
			Status:      domain.StatusProcessed,
			Author:      &domain.AuthorMatch{ID: "a1", Name: "Акунин Борис"},
			Description: domain.DescriptionResult{Source: domain.DescriptionFull},
			PhotoURL:    "https://cdn.litres.ru/pub/authors/1.jpg",
			Updates: domain.ItemUpdates{
				Description: domain.UpdateOutcome{Succeeded: true, Method: domain.MethodPatch},
				Photo:       domain.UpdateOutcome{Succeeded: true, Method: domain.MethodImageURL},
			},
		},
		{Input: "https://example.com/x", Status: domain.StatusUnmatched, ErrorCode: domain.ErrCodeInvalidTarget},
	}
	for _, it := range items {
		if err := s.Record(ctx, "run-1", it); err != nil {
			t.Fatalf("Record() err=%v", err)
		}
	}

	got, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() err=%v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 条记录，实际 %d", len(got))
	}
	// 新的在前；没有 target 的条目用原始输入。
	if got[0].Target != "https://example.com/x" || got[1].Target != "boris-akunin" {
		t.Fatalf("排序不符合预期：%+v", got)
	}
	first := got[1]
	if first.AuthorID != "a1" || first.DescriptionMethod != "patch" || first.PhotoMethod != "image_url" || first.RunID != "run-1" {
		t.Fatalf("字段不符合预期：%+v", first)
	}
	if !first.CreatedAt.Equal(base.Add(time.Second)) {
		t.Fatalf("created_at 不符合预期：%v", first.CreatedAt)
	}

	got, err = s.List(ctx, 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("limit=1 应返回 1 条，实际 %d err=%v", len(got), err)
	}
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("Open() err=%v", err)
	}
	if err := s.Record(ctx, "r", domain.ItemResult{Target: "x", Status: domain.StatusSkipped}); err != nil {
		t.Fatalf("Record() err=%v", err)
	}
	_ = s.Close()

	s, err = Open(ctx, dir)
	if err != nil {
		t.Fatalf("重新打开不应报错：%v", err)
	}
	defer s.Close()
	got, err := s.List(ctx, 10)
	if err != nil || len(got) != 1 {
		t.Fatalf("重新打开后应保留数据：%v err=%v", got, err)
	}
}

func TestOpen_SchemaMismatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, dir)
	if err != nil {
		t.Fatalf("Open() err=%v", err)
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("修改版本失败：%v", err)
	}
	_ = s.Close()

	if _, err := Open(ctx, dir); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("期望 ErrSchemaMismatch，实际 %v", err)
	}
}

func TestLock_SecondHolderFailsFast(t *testing.T) {
	dir := t.TempDir()

	release, err := Lock(dir)
	if err != nil {
		t.Fatalf("首次加锁不应失败：%v", err)
	}
	if _, err := Lock(dir); !errors.Is(err, ErrLocked) {
		t.Fatalf("第二次加锁应返回 ErrLocked，实际 %v", err)
	}
	if err := release(); err != nil {
		t.Fatalf("解锁失败：%v", err)
	}
	release, err = Lock(dir)
	if err != nil {
		t.Fatalf("解锁后应能再次加锁：%v", err)
	}
	_ = release()
}
