package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yukin371/seekchat/internal/adapters/deepseek"
	"github.com/yukin371/seekchat/pkg/utils"
)

// nameMaxLen 由首条用户消息生成会话名称时的最大长度
const nameMaxLen = 40

// Session 一段对话：按追加顺序排列的消息，只追加不修改
type Session struct {
	ID        string
	Name      string
	Model     deepseek.Model
	CreatedAt int64
	UpdatedAt int64

	messages []deepseek.Message
	mu       sync.RWMutex
}

// NewSession 创建新会话，ID 自动生成
func NewSession(name string, model deepseek.Model, messages ...deepseek.Message) *Session {
	now := time.Now().Unix()
	s := &Session{
		ID:        uuid.New().String(),
		Name:      name,
		Model:     model,
		CreatedAt: now,
		UpdatedAt: now,
		messages:  make([]deepseek.Message, 0, len(messages)+8),
	}
	s.messages = append(s.messages, messages...)
	return s
}

// Restore 用已持久化的数据重建会话
func Restore(id, name string, model deepseek.Model, createdAt, updatedAt int64, messages []deepseek.Message) *Session {
	return &Session{
		ID:        id,
		Name:      name,
		Model:     model,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		messages:  append([]deepseek.Message(nil), messages...),
	}
}

// Append 追加消息
func (s *Session) Append(msg deepseek.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)
	s.UpdatedAt = time.Now().Unix()

	if s.Name == "" && msg.Role == deepseek.RoleUser {
		s.Name = utils.TruncateString(utils.FirstLine(msg.Content), nameMaxLen)
	}
}

// Messages 返回消息副本
func (s *Session) Messages() []deepseek.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]deepseek.Message, len(s.messages))
	copy(messages, s.messages)
	return messages
}

// Len 消息数量
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Clone 深拷贝，用于在后台保存时不持有原会话的锁
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Session{
		ID:        s.ID,
		Name:      s.Name,
		Model:     s.Model,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		messages:  append([]deepseek.Message(nil), s.messages...),
	}
}
