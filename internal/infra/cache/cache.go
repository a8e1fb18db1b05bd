package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/John-Robertt/absauthor/internal/infra/fsx"
)

// Kind 是缓存条目的文件类型（决定扩展名）。
type Kind string

const (
	KindHTML Kind = "html"
	KindJSON Kind = "json"
)

// Store 提供 <state_dir>/cache/ 下的来源页面缓存读写。
//
// 约束：
// - dry-run：只允许读（ReadOnly=true）
// - apply：允许写（ReadOnly=false）
type Store struct {
	Root     string // <state_dir>
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// Path 返回缓存条目的绝对路径：<root>/cache/providers/<provider>/<key>.<kind>。
func (s Store) Path(provider, key string, kind Kind) (string, error) {
	dir, name, err := s.locate(provider, key, kind)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// Read 读取缓存；未命中返回 (nil, false, nil)。
func (s Store) Read(provider, key string, kind Kind) ([]byte, bool, error) {
	path, err := s.Path(provider, key, kind)
	if err != nil {
		return nil, false, err
	}
	return fsx.ReadFileOptional(path)
}

// Write 原子写入缓存；只读模式返回 ErrReadOnly。
func (s Store) Write(provider, key string, kind Kind, body []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	dir, name, err := s.locate(provider, key, kind)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(dir, name, body)
}

// URLKey 把任意地址映射为定长缓存键（用于“关于作者”详情页这类按地址缓存的条目）。
func URLKey(u string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(u)))
	return hex.EncodeToString(sum[:12])
}

func (s Store) locate(provider, key string, kind Kind) (dir, name string, err error) {
	p, err := cleanProvider(provider)
	if err != nil {
		return "", "", err
	}
	k, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	switch kind {
	case KindHTML, KindJSON:
	default:
		return "", "", fmt.Errorf("未知缓存类型：%q", kind)
	}
	return filepath.Join(s.Root, "cache", "providers", p), k + "." + string(kind), nil
}

var providerNameRE = regexp.MustCompile(`^[a-z0-9_-]+$`)

func cleanProvider(p string) (string, error) {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return "", fmt.Errorf("provider 不能为空")
	}
	// 最小约束：避免路径穿越；provider 名称本身是枚举（litres/wikipedia-xx）。
	if !providerNameRE.MatchString(p) {
		return "", fmt.Errorf("非法 provider：%q", p)
	}
	return p, nil
}

// cleanKey 把 slug 或作者名转为安全文件名：路径分隔符等字符被百分号转义。
func cleanKey(k string) (string, error) {
	k = strings.TrimSpace(k)
	if k == "" {
		return "", fmt.Errorf("key 不能为空")
	}
	k = url.PathEscape(strings.ToLower(k))
	if k == "." || k == ".." || strings.HasPrefix(k, ".") {
		return "", fmt.Errorf("非法 key：%q", k)
	}
	return k, nil
}
