package session

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/yukin371/seekchat/internal/adapters/deepseek"
	"github.com/yukin371/seekchat/pkg/logger"
)

// Storage 定义会话存储接口
type Storage interface {
	// SaveSession 保存会话及其全部消息
	SaveSession(ctx context.Context, session *Session) error

	// LoadSession 加载会话及其全部消息
	LoadSession(ctx context.Context, sessionID string) (*Session, error)

	// ListSessions 列出所有会话（不含消息），按更新时间倒序
	ListSessions(ctx context.Context) ([]*Session, error)

	// DeleteSession 删除会话
	DeleteSession(ctx context.Context, sessionID string) error

	// SearchSessions 按名称或消息内容搜索会话
	SearchSessions(ctx context.Context, query string) ([]*Session, error)
}

// Manager 会话管理器，负责打开、保存和查询持久化的会话
type Manager struct {
	storage Storage
	log     *logger.Logger

	// 每个会话最近一次保存的消息数，避免乱序的后台保存用旧快照覆盖新数据
	saved map[string]int
	mu    sync.Mutex
}

// NewManager 创建会话管理器
func NewManager(storage Storage, log *logger.Logger) (*Manager, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if log == nil {
		log = logger.Default().With("session")
	}
	return &Manager{
		storage: storage,
		log:     log,
		saved:   make(map[string]int),
	}, nil
}

// Open 打开会话：resumeID 非空时从存储恢复，否则从种子文件创建新会话
func (m *Manager) Open(ctx context.Context, resumeID, seedPath string, model deepseek.Model) (*Session, error) {
	if resumeID != "" {
		sess, err := m.storage.LoadSession(ctx, resumeID)
		if err != nil {
			return nil, fmt.Errorf("failed to resume session %s: %w", resumeID, err)
		}
		m.mu.Lock()
		m.saved[sess.ID] = sess.Len()
		m.mu.Unlock()
		m.log.Info("resumed session %s (%d messages)", sess.ID, sess.Len())
		return sess, nil
	}

	sess, err := LoadOrSeed(seedPath, model)
	if err != nil {
		return nil, err
	}
	m.log.Info("new session %s seeded from %s", sess.ID, seedPath)
	return sess, nil
}

// SaveSession 保存会话快照，比已保存版本更旧的快照会被忽略
func (m *Manager) SaveSession(ctx context.Context, sess *Session) error {
	snapshot := sess.Clone()
	n := snapshot.Len()

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.saved[snapshot.ID]; ok && n < prev {
		m.log.Debug("skip stale snapshot of %s (%d < %d)", snapshot.ID, n, prev)
		return nil
	}
	if err := m.storage.SaveSession(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	m.saved[snapshot.ID] = n
	m.log.Debug("saved session %s (%d messages)", snapshot.ID, n)
	return nil
}

// Load 加载会话
func (m *Manager) Load(ctx context.Context, sessionID string) (*Session, error) {
	return m.storage.LoadSession(ctx, sessionID)
}

// List 列出所有会话
func (m *Manager) List(ctx context.Context) ([]*Session, error) {
	return m.storage.ListSessions(ctx)
}

// Search 搜索会话，空查询等同于 List
func (m *Manager) Search(ctx context.Context, query string) ([]*Session, error) {
	if query == "" {
		return m.storage.ListSessions(ctx)
	}
	return m.storage.SearchSessions(ctx, query)
}

// Delete 删除会话
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	if err := m.storage.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.saved, sessionID)
	m.mu.Unlock()
	return nil
}

// Export 以 YAML 导出会话
func (m *Manager) Export(ctx context.Context, sessionID string, w io.Writer) error {
	sess, err := m.storage.LoadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	return WriteYAML(w, sess)
}
