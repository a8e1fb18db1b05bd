package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/John-Robertt/absauthor/internal/directory"
	"github.com/John-Robertt/absauthor/internal/domain"
	"github.com/John-Robertt/absauthor/internal/match"
)

func TestFind_ExactBeatsLooseRegardlessOfCandidateOrder(t *testing.T) {
	authors := []domain.AuthorRecord{
		{ID: "loose", Name: "Стивен Кинг младший"},
		{ID: "exact", Name: "Кинг Стивен"},
	}
	// 第一个候选只能宽松命中，第二个候选能精确命中：精确层必须胜出。
	m, ok := Find(authors, []string{"Кинг", "Стивен Кинг"})
	if !ok {
		t.Fatalf("期望命中")
	}
	if m.Record.ID != "exact" || m.Tier != match.TierExact || m.Candidate != "Стивен Кинг" {
		t.Fatalf("期望精确命中 exact，实际 %+v", m)
	}
}

func TestFind_CandidateMajorOrder(t *testing.T) {
	authors := []domain.AuthorRecord{
		{ID: "a1", Name: "Дина Рубина"},
		{ID: "a2", Name: "Борис Акунин"},
	}
	m, ok := Find(authors, []string{"Акунин Борис", "Дина Рубина"})
	if !ok || m.Record.ID != "a2" || m.Candidate != "Акунин Борис" {
		t.Fatalf("第一个候选应优先，实际 ok=%v %+v", ok, m)
	}
}

func TestFind_LooseFallback(t *testing.T) {
	authors := []domain.AuthorRecord{{ID: "a1", Name: "Stephen King"}}
	m, ok := Find(authors, []string{"  ", "King"})
	if !ok || m.Tier != match.TierLoose || m.Record.ID != "a1" {
		t.Fatalf("期望宽松命中，实际 ok=%v %+v", ok, m)
	}
}

func TestFind_NoMatch(t *testing.T) {
	authors := []domain.AuthorRecord{{ID: "a1", Name: "Stephen King"}}
	if _, ok := Find(authors, []string{"Anne Rice"}); ok {
		t.Fatalf("不应命中")
	}
	if _, ok := Find(nil, []string{"Stephen King"}); ok {
		t.Fatalf("空目录不应命中")
	}
	if _, ok := Find(authors, nil); ok {
		t.Fatalf("空候选不应命中")
	}
}

type stubCatalog struct {
	libs    []domain.Library
	libsErr error
	authors map[string][]domain.AuthorRecord
	builds  int
}

func (s *stubCatalog) ListLibraries(context.Context) ([]domain.Library, error) {
	s.builds++
	return s.libs, s.libsErr
}

func (s *stubCatalog) ListLibraryAuthors(_ context.Context, id string) ([]domain.AuthorRecord, error) {
	return s.authors[id], nil
}

func TestResolve_NotConfigured(t *testing.T) {
	r := Resolver{Catalog: &stubCatalog{}}
	if _, _, err := r.Resolve(context.Background(), []string{"x"}); !errors.Is(err, directory.ErrNotConfigured) {
		t.Fatalf("期望 ErrNotConfigured，实际 %v", err)
	}
}

func TestResolve_Unavailable(t *testing.T) {
	r := Resolver{BaseURL: "http://abs", Catalog: &stubCatalog{libsErr: errors.New("refused")}}
	_, _, err := r.Resolve(context.Background(), []string{"x"})
	var ue *directory.UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("期望 *directory.UnavailableError，实际 %v", err)
	}
}

func TestResolve_UsesSharedCache(t *testing.T) {
	c := &stubCatalog{
		libs:    []domain.Library{{ID: "lib1"}},
		authors: map[string][]domain.AuthorRecord{"lib1": {{ID: "a1", Name: "Борис Акунин"}}},
	}
	r := Resolver{BaseURL: "http://abs", Catalog: c, Cache: directory.NewCache()}

	m, ok, err := r.Resolve(context.Background(), []string{"Акунин Борис"})
	if err != nil || !ok || m.Record.ID != "a1" {
		t.Fatalf("期望命中 a1，实际 ok=%v err=%v %+v", ok, err, m)
	}
	_, ok, err = r.Resolve(context.Background(), []string{"Нет Такого"})
	if err != nil || ok {
		t.Fatalf("未命中应返回 false 且无错误，实际 ok=%v err=%v", ok, err)
	}
	if c.builds != 1 {
		t.Fatalf("同一会话内目录应只构建一次，实际 %d", c.builds)
	}
}

func TestRefresh_SeesNewAuthors(t *testing.T) {
	c := &stubCatalog{
		libs:    []domain.Library{{ID: "lib1"}},
		authors: map[string][]domain.AuthorRecord{"lib1": {{ID: "a1", Name: "Борис Акунин"}}},
	}
	r := Resolver{BaseURL: "http://abs", Catalog: c, Cache: directory.NewCache()}

	if _, ok, _ := r.Resolve(context.Background(), []string{"Виктор Пелевин"}); ok {
		t.Fatalf("新增前不应命中")
	}
	c.authors["lib1"] = append(c.authors["lib1"], domain.AuthorRecord{ID: "a2", Name: "Виктор Пелевин"})

	snap, err := r.Refresh(context.Background())
	if err != nil || snap.Len() != 2 {
		t.Fatalf("Refresh 应重新构建目录，实际 len=%d err=%v", snap.Len(), err)
	}
	m, ok, err := r.Resolve(context.Background(), []string{"Виктор Пелевин"})
	if err != nil || !ok || m.Record.ID != "a2" {
		t.Fatalf("刷新后应命中 a2，实际 ok=%v err=%v %+v", ok, err, m)
	}
	if c.builds != 2 {
		t.Fatalf("期望构建 2 次，实际 %d", c.builds)
	}

	if _, err := (Resolver{Catalog: c}).Refresh(context.Background()); !errors.Is(err, directory.ErrNotConfigured) {
		t.Fatalf("未配置地址时期望 ErrNotConfigured，实际 %v", err)
	}
}
