package deepseek

import (
	"fmt"
)

// Model 模型标识（封闭枚举，未知标签解码失败）
type Model string

const (
	ChatDefault      Model = "deepseek-chat"
	ReasoningDefault Model = "deepseek-reasoner"
)

// ParseModel 解析模型标签
func ParseModel(s string) (Model, error) {
	switch m := Model(s); m {
	case ChatDefault, ReasoningDefault:
		return m, nil
	}
	return "", fmt.Errorf("unknown model %q", s)
}

// MarshalText 实现 encoding.TextMarshaler
func (m Model) MarshalText() ([]byte, error) {
	if _, err := ParseModel(string(m)); err != nil {
		return nil, err
	}
	return []byte(m), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (m *Model) UnmarshalText(text []byte) error {
	parsed, err := ParseModel(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Role 消息角色
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ParseRole 解析角色标签
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// MarshalText 实现 encoding.TextMarshaler
func (r Role) MarshalText() ([]byte, error) {
	if _, err := ParseRole(string(r)); err != nil {
		return nil, err
	}
	return []byte(r), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// FinishReason 结束原因
type FinishReason string

const (
	FinishStop                       FinishReason = "stop"
	FinishLength                     FinishReason = "length"
	FinishContentFilter              FinishReason = "content_filter"
	FinishToolCalls                  FinishReason = "tool_calls"
	FinishInsufficientSystemResource FinishReason = "insufficient_system_resource"
)

// ParseFinishReason 解析结束原因标签
func ParseFinishReason(s string) (FinishReason, error) {
	switch f := FinishReason(s); f {
	case FinishStop, FinishLength, FinishContentFilter, FinishToolCalls, FinishInsufficientSystemResource:
		return f, nil
	}
	return "", fmt.Errorf("unknown finish reason %q", s)
}

// MarshalText 实现 encoding.TextMarshaler
func (f FinishReason) MarshalText() ([]byte, error) {
	if _, err := ParseFinishReason(string(f)); err != nil {
		return nil, err
	}
	return []byte(f), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (f *FinishReason) UnmarshalText(text []byte) error {
	parsed, err := ParseFinishReason(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Message 对话中的一条消息，追加后不可变
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// NewMessage 创建指定角色的消息
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

func SystemMessage(content string) Message    { return NewMessage(RoleSystem, content) }
func UserMessage(content string) Message      { return NewMessage(RoleUser, content) }
func AssistantMessage(content string) Message { return NewMessage(RoleAssistant, content) }

// ChatRequest 请求体，每次调用时构造
type ChatRequest struct {
	Model    Model     `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// Usage token 用量（仅解码，不做统计）
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NonStreamingChoice 非流式响应中的选项
type NonStreamingChoice struct {
	Index        uint32       `json:"index"`
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
}

// Response 非流式响应
type Response struct {
	ID      string               `json:"id"`
	Model   string               `json:"model"`
	Choices []NonStreamingChoice `json:"choices"`
	Usage   *Usage               `json:"usage,omitempty"`
}

// Content 返回第一个选项的内容
func (r *Response) Content() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Delta 流式增量。content 缺失时为空串，保证首个只带 role 的增量也能直接拼接
type Delta struct {
	Role    *Role  `json:"role,omitempty"`
	Content string `json:"content"`
}

// StreamingDelta 流式响应中的单个选项
type StreamingDelta struct {
	Index        uint32        `json:"index"`
	Delta        Delta         `json:"delta"`
	FinishReason *FinishReason `json:"finish_reason"`
}

// Finished 该增量是否为终止增量
func (d StreamingDelta) Finished() bool {
	return d.FinishReason != nil
}

// Chunk 流式响应中的一个事件
type Chunk struct {
	ID      string           `json:"id"`
	Model   string           `json:"model"`
	Choices []StreamingDelta `json:"choices"`
}
