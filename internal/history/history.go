// Package history 持久化 apply 模式下的链接结果，并提供 state 目录的单实例锁。
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/John-Robertt/absauthor/internal/domain"
)

const (
	// DBFileName 位于 state_dir 下。
	DBFileName = "history.db"
	// LockFileName 位于 state_dir 下，apply 运行期间持有。
	LockFileName = "absauthor.lock"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion 变更时需要删除旧的 history.db。
const schemaVersion = 1

var (
	// ErrSchemaMismatch 表示数据库版本与当前程序不一致。
	ErrSchemaMismatch = errors.New("history schema version mismatch")
	// ErrLocked 表示另一个 apply 运行正在使用同一个 state 目录。
	ErrLocked = errors.New("state 目录已被另一个 apply 运行占用")
)

// Entry 是一条历史记录。
type Entry struct {
	ID                int64
	RunID             string
	Target            string
	PageURL           string
	AuthorID          string
	AuthorName        string
	Status            string
	ErrorCode         string
	DescriptionSource string
	DescriptionMethod string
	PhotoURL          string
	PhotoMethod       string
	CreatedAt         time.Time
}

// Store 是基于 SQLite 的历史记录。
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open 打开（必要时创建）<stateDir>/history.db。
func Open(ctx context.Context, stateDir string) (*Store, error) {
	if strings.TrimSpace(stateDir) == "" {
		return nil, errors.New("state_dir 不能为空")
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	dbPath := filepath.Join(stateDir, DBFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &Store{db: db, path: dbPath, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path 返回数据库文件路径。
func (s *Store) Path() string { return s.path }

// Close 关闭底层连接。
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d（请删除 %s）",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Record 写入一条处理结果。
func (s *Store) Record(ctx context.Context, runID string, item domain.ItemResult) error {
	var authorID, authorName string
	if item.Author != nil {
		authorID, authorName = item.Author.ID, item.Author.Name
	}
	target := item.Target
	if target == "" {
		target = item.Input
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO link_history (
    run_id, target, page_url, author_id, author_name, status, error_code,
    description_source, description_method, photo_url, photo_method, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, target, item.PageURL, authorID, authorName, item.Status, item.ErrorCode,
		item.Description.Source, string(item.Updates.Description.Method),
		item.PhotoURL, string(item.Updates.Photo.Method),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// List 返回最近的 limit 条记录（新的在前）；limit<=0 时返回全部。
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	q := `
SELECT id, run_id, target, page_url, author_id, author_name, status, error_code,
       description_source, description_method, photo_url, photo_method, created_at
FROM link_history ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, 32)
	for rows.Next() {
		var (
			e       Entry
			created string
		)
		if err := rows.Scan(
			&e.ID, &e.RunID, &e.Target, &e.PageURL, &e.AuthorID, &e.AuthorName, &e.Status, &e.ErrorCode,
			&e.DescriptionSource, &e.DescriptionMethod, &e.PhotoURL, &e.PhotoMethod, &created,
		); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if t, perr := time.Parse(time.RFC3339Nano, created); perr == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Lock 获取 <stateDir>/absauthor.lock。已被占用时立即返回 ErrLocked，不等待。
// 返回的 release 负责解锁；调用方应 defer 它。
func Lock(stateDir string) (release func() error, err error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	fl := flock.New(filepath.Join(stateDir, LockFileName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return fl.Unlock, nil
}
