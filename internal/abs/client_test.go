package abs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/John-Robertt/absauthor/internal/directory"
	"github.com/John-Robertt/absauthor/internal/provider"
	"github.com/John-Robertt/absauthor/internal/update"
)

var (
	_ directory.Catalog = (*Client)(nil)
	_ update.Writer     = (*Client)(nil)
)

type recorded struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func newServer(t *testing.T, calls *[]recorded) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.EscapedPath(), auth: r.Header.Get("Authorization")}
		if r.Body != nil {
			b, _ := io.ReadAll(r.Body)
			if len(b) > 0 {
				_ = json.Unmarshal(b, &rec.body)
			}
		}
		*calls = append(*calls, rec)

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/libraries":
			_, _ = w.Write([]byte(`{"libraries":[{"id":"lib1","name":"Аудиокниги","mediaType":"book"},{"id":"lib2"}]}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/libraries/lib1/authors":
			_, _ = w.Write([]byte(`{"authors":[{"id":"a1","name":"Борис Акунин","libraryId":"lib1"}]}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/libraries/lib2/authors":
			_, _ = w.Write([]byte(`[{"id":"a2","name":"Дина Рубина"}]`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/authors/a1":
			_, _ = w.Write([]byte(`{"id":"a1","name":"Борис Акунин","imagePath":"/metadata/a1.jpg"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/authors/a1/image":
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodPatch && r.URL.Path == "/api/authors/a1":
			_, _ = w.Write([]byte(`{"updated":true}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
}

func TestClient_ListAndGet(t *testing.T) {
	var calls []recorded
	srv := newServer(t, &calls)
	defer srv.Close()

	c := New(srv.URL+"/", " secret ", srv.Client())
	ctx := context.Background()

	libs, err := c.ListLibraries(ctx)
	if err != nil || len(libs) != 2 || libs[0].Name != "Аудиокниги" {
		t.Fatalf("ListLibraries() = %+v err=%v", libs, err)
	}
	a1, err := c.ListLibraryAuthors(ctx, "lib1")
	if err != nil || len(a1) != 1 || a1[0].Name != "Борис Акунин" {
		t.Fatalf("包裹形态解析失败：%+v err=%v", a1, err)
	}
	a2, err := c.ListLibraryAuthors(ctx, "lib2")
	if err != nil || len(a2) != 1 || a2[0].ID != "a2" {
		t.Fatalf("裸数组形态解析失败：%+v err=%v", a2, err)
	}
	got, err := c.GetAuthor(ctx, "a1")
	if err != nil || got.ImagePath != "/metadata/a1.jpg" {
		t.Fatalf("GetAuthor() = %+v err=%v", got, err)
	}

	for _, rc := range calls {
		if rc.auth != "Bearer secret" {
			t.Fatalf("期望携带 Bearer token，实际 %q (%s %s)", rc.auth, rc.method, rc.path)
		}
	}
}

func TestClient_Writes(t *testing.T) {
	var calls []recorded
	srv := newServer(t, &calls)
	defer srv.Close()

	c := New(srv.URL, "", srv.Client())
	ctx := context.Background()

	status, err := c.PostAuthorImage(ctx, "a1", "https://cdn/x.jpg")
	if err != nil || status != http.StatusNotFound {
		t.Fatalf("PostAuthorImage() status=%d err=%v", status, err)
	}
	status, err = c.PatchAuthor(ctx, "a1", map[string]any{"imagePath": "https://cdn/x.jpg"})
	if err != nil || status != http.StatusOK {
		t.Fatalf("PatchAuthor() status=%d err=%v", status, err)
	}

	if calls[0].body["url"] != "https://cdn/x.jpg" || calls[1].body["imagePath"] != "https://cdn/x.jpg" {
		t.Fatalf("请求体不符合预期：%+v", calls)
	}
	if calls[0].auth != "" {
		t.Fatalf("未配置 token 时不应携带 Authorization")
	}

	// 与更新策略组合：image 接口 404 后回退 PATCH。
	out := update.Updater{W: c}.SetImage(ctx, "a1", "https://cdn/y.jpg")
	if !out.Succeeded || out.Method != "patch" {
		t.Fatalf("期望 {true, patch}，实际 %+v", out)
	}
}

func TestClient_EscapesPathSegments(t *testing.T) {
	var calls []recorded
	srv := newServer(t, &calls)
	defer srv.Close()

	c := New(srv.URL, "", srv.Client())
	_, _ = c.PatchAuthor(context.Background(), "a/b c", map[string]any{"description": "x"})
	if len(calls) != 1 || calls[0].path != "/api/authors/a%2Fb%20c" {
		t.Fatalf("路径未转义：%+v", calls)
	}
}

func TestClient_StatusErrorAndDirectory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "bad", srv.Client())
	_, err := c.ListLibraries(context.Background())
	var hs *provider.HTTPStatusError
	if !errors.As(err, &hs) || hs.StatusCode != http.StatusUnauthorized {
		t.Fatalf("期望 HTTP 401，实际 %v", err)
	}

	_, err = directory.Build(context.Background(), c)
	var ue *directory.UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("期望目录不可用，实际 %v", err)
	}
}

func TestDecodeList_NullAndMissingKey(t *testing.T) {
	var out []map[string]any
	if err := decodeList([]byte(`{"authors":null}`), "authors", &out); err != nil || out != nil {
		t.Fatalf("null 应视为空列表，实际 %v err=%v", out, err)
	}
	if err := decodeList([]byte(`{"other":[]}`), "authors", &out); err != nil {
		t.Fatalf("缺少 key 应视为空列表，实际 err=%v", err)
	}
	if err := decodeList([]byte(` `), "authors", &out); err == nil {
		t.Fatalf("空 body 应报错")
	}
}
