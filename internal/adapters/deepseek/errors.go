package deepseek

import (
	"errors"
	"fmt"
)

// 错误分类。具体错误类型都能用 errors.Is 匹配到对应的哨兵错误
var (
	// ErrTransport 连接、TLS、DNS 失败或非 2xx 状态
	ErrTransport = errors.New("transport error")

	// ErrDecode 响应内容无法解码
	ErrDecode = errors.New("decode error")

	// ErrProtocolViolation 上游违反单选项等协议假设
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrNoMessages 请求中没有任何消息
	ErrNoMessages = errors.New("at least one message is required")
)

// TransportError 传输层错误
type TransportError struct {
	StatusCode int    // 0 表示未收到响应
	Message    string // 从错误响应体中提取的信息
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("transport error: status %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("transport error: status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("transport error: %v", e.Err)
	}
	return "transport error"
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// DecodeKind 解码错误种类
type DecodeKind int

const (
	KindInvalidUTF8 DecodeKind = iota // 事件不是合法 UTF-8
	KindFraming                       // 缺少或过短的字段前缀
	KindJSON                          // JSON 与预期结构不符
)

func (k DecodeKind) String() string {
	switch k {
	case KindInvalidUTF8:
		return "invalid utf-8"
	case KindFraming:
		return "framing"
	case KindJSON:
		return "json"
	}
	return "unknown"
}

// DecodeError 解码错误
type DecodeError struct {
	Kind    DecodeKind
	Payload string // 出错的原始片段（已截断）
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode error (%s): %v", e.Kind, e.Err)
	}
	if e.Payload != "" {
		return fmt.Sprintf("decode error (%s): %q", e.Kind, e.Payload)
	}
	return fmt.Sprintf("decode error (%s)", e.Kind)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// ProtocolError 协议假设被违反
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol violation: " + e.Reason
}

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocolViolation }

// IsDecodeKind 判断 err 是否为指定种类的解码错误
func IsDecodeKind(err error, kind DecodeKind) bool {
	var de *DecodeError
	return errors.As(err, &de) && de.Kind == kind
}

// newDecodeError 创建解码错误，payload 超长时截断
func newDecodeError(kind DecodeKind, payload []byte, err error) *DecodeError {
	const maxPayload = 120
	p := string(payload)
	if len(p) > maxPayload {
		p = p[:maxPayload] + "..."
	}
	return &DecodeError{Kind: kind, Payload: p, Err: err}
}
