package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/yukin371/seekchat/internal/adapters/deepseek"
	"github.com/yukin371/seekchat/internal/session"
	_ "modernc.org/sqlite"
)

// DBFileName 数据库文件名
const DBFileName = "seekchat.db"

// SQLiteStore SQLite 持久化存储实现
type SQLiteStore struct {
	db        *sql.DB
	encryptor Encryptor

	closed bool
	mu     sync.RWMutex
}

// Option 配置 SQLiteStore
type Option func(*SQLiteStore)

// WithEncryptor 加密消息内容。会话名称保持明文，搜索只匹配名称
func WithEncryptor(e Encryptor) Option {
	return func(s *SQLiteStore) {
		s.encryptor = e
	}
}

// NewSQLiteStore 创建 SQLite 存储
func NewSQLiteStore(dataDir string, opts ...Option) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, DBFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite 不支持并发写入
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// initSchema 初始化数据库表结构
func initSchema(db *sql.DB) error {
	schema := `
	-- 会话表
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		model TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		message_count INTEGER NOT NULL DEFAULT 0,
		encrypted INTEGER NOT NULL DEFAULT 0
	);

	-- 消息表，seq 为消息在对话中的位置
	CREATE TABLE IF NOT EXISTS messages (
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		PRIMARY KEY (session_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
	`
	_, err := db.Exec(schema)
	return err
}

// acquire 检查存储是否已关闭，返回时持有读锁
func (s *SQLiteStore) acquire() (func(), error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrStorageClosed
	}
	return s.mu.RUnlock, nil
}

// SaveSession 保存会话及其全部消息（覆盖已有记录）
func (s *SQLiteStore) SaveSession(ctx context.Context, sess *session.Session) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	snapshot := sess.Clone()
	messages := snapshot.Messages()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions
		(id, name, model, created_at, updated_at, message_count, encrypted)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		snapshot.ID,
		snapshot.Name,
		string(snapshot.Model),
		snapshot.CreatedAt,
		snapshot.UpdatedAt,
		len(messages),
		s.encryptor != nil,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, snapshot.ID); err != nil {
		return fmt.Errorf("failed to delete old messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (session_id, seq, role, content)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, msg := range messages {
		content, err := s.sealContent(msg.Content)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, snapshot.ID, i, string(msg.Role), content); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadSession 加载会话及其全部消息
func (s *SQLiteStore) LoadSession(ctx context.Context, sessionID string) (*session.Session, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, model, created_at, updated_at, message_count, encrypted
		FROM sessions
		WHERE id = ?
	`, sessionID)

	meta, err := scanMeta(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if meta.encrypted && s.encryptor == nil {
		return nil, fmt.Errorf("%w: session %s is encrypted but no key is configured", ErrInvalidData, sessionID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content
		FROM messages
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	messages := make([]deepseek.Message, 0, meta.count)
	for rows.Next() {
		var roleStr, content string
		if err := rows.Scan(&roleStr, &content); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		role, err := deepseek.ParseRole(roleStr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
		if meta.encrypted {
			if content, err = s.openContent(content); err != nil {
				return nil, err
			}
		}
		messages = append(messages, deepseek.NewMessage(role, content))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return meta.restore(messages), nil
}

// ListSessions 列出所有会话（不含消息）
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]*session.Session, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, model, created_at, updated_at, message_count, encrypted
		FROM sessions
		ORDER BY updated_at DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return collectMeta(rows)
}

// SearchSessions 按名称或消息内容搜索会话（加密的消息内容不参与匹配）
func (s *SQLiteStore) SearchSessions(ctx context.Context, query string) ([]*session.Session, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.model, s.created_at, s.updated_at, s.message_count, s.encrypted
		FROM sessions s
		WHERE s.name LIKE ? ESCAPE '\'
		   OR (s.encrypted = 0 AND EXISTS (
				SELECT 1 FROM messages m WHERE m.session_id = s.id AND m.content LIKE ? ESCAPE '\'
		   ))
		ORDER BY s.updated_at DESC, s.id ASC
	`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search sessions: %w", err)
	}
	return collectMeta(rows)
}

// escapeLike 转义 LIKE 通配符，查询按字面匹配
func escapeLike(query string) string {
	return likeEscaper.Replace(query)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// DeleteSession 删除会话及其消息
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return tx.Commit()
}

// Close 关闭数据库连接
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore) sealContent(content string) (string, error) {
	if s.encryptor == nil {
		return content, nil
	}
	sealed, err := s.encryptor.EncryptToString([]byte(content))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt message: %w", err)
	}
	return sealed, nil
}

func (s *SQLiteStore) openContent(content string) (string, error) {
	plain, err := s.encryptor.DecryptFromString(content)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// sessionMeta sessions 表中的一行
type sessionMeta struct {
	id        string
	name      string
	model     string
	createdAt int64
	updatedAt int64
	count     int
	encrypted bool
}

func (m sessionMeta) restore(messages []deepseek.Message) *session.Session {
	return session.Restore(m.id, m.name, deepseek.Model(m.model), m.createdAt, m.updatedAt, messages)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeta(row scanner) (sessionMeta, error) {
	var m sessionMeta
	err := row.Scan(&m.id, &m.name, &m.model, &m.createdAt, &m.updatedAt, &m.count, &m.encrypted)
	return m, err
}

func collectMeta(rows *sql.Rows) ([]*session.Session, error) {
	defer rows.Close()

	var sessions []*session.Session
	for rows.Next() {
		meta, err := scanMeta(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, meta.restore(nil))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}
