package deepseek

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

const (
	// FieldPrefix SSE 数据字段前缀
	FieldPrefix = "data: "

	// DoneSentinel 流结束标记
	DoneSentinel = "[DONE]"
)

var eventSeparator = []byte("\n\n")

// Framer 把传输层字节块切分为事件并解码为 StreamingDelta
//
// 传输块不保证与事件边界对齐，未结束的半个事件保留在 carry 中，
// 与下一个块拼接后再解析。收到 [DONE] 后忽略之后的所有输入。
type Framer struct {
	carry []byte
	done  bool
}

// NewFramer 创建事件切分器
func NewFramer() *Framer {
	return &Framer{}
}

// Done 是否已收到结束标记
func (f *Framer) Done() bool {
	return f.done
}

// Feed 输入一个传输块，返回其中完整事件解码出的增量（按顺序）
//
// 返回错误时，错误之前已解码的增量仍然一并返回。
func (f *Framer) Feed(p []byte) ([]StreamingDelta, error) {
	if f.done {
		return nil, nil
	}
	f.carry = append(f.carry, p...)

	var out []StreamingDelta
	for !f.done {
		idx := bytes.Index(f.carry, eventSeparator)
		if idx < 0 {
			break
		}
		event := f.carry[:idx]
		f.carry = f.carry[idx+len(eventSeparator):]

		deltas, err := f.decodeEvent(event)
		out = append(out, deltas...)
		if err != nil {
			f.carry = nil
			return out, err
		}
	}

	if f.done || len(f.carry) == 0 {
		f.carry = nil
	}
	return out, nil
}

// Flush 传输结束时调用，解析残留的最后一个事件（可能缺少结尾的空行）
func (f *Framer) Flush() ([]StreamingDelta, error) {
	if f.done {
		return nil, nil
	}
	rest := f.carry
	f.carry = nil
	if len(bytes.TrimSpace(rest)) == 0 {
		return nil, nil
	}
	return f.decodeEvent(rest)
}

// decodeEvent 解析单个事件
func (f *Framer) decodeEvent(raw []byte) ([]StreamingDelta, error) {
	event := bytes.TrimSpace(raw)
	if len(event) == 0 {
		return nil, nil
	}
	if !utf8.Valid(event) {
		return nil, newDecodeError(KindInvalidUTF8, event, nil)
	}
	// SSE 注释行（如 ": keep-alive"）
	if event[0] == ':' {
		return nil, nil
	}
	if len(event) <= len(FieldPrefix) {
		return nil, newDecodeError(KindFraming, event, fmt.Errorf("event shorter than %q prefix", FieldPrefix))
	}
	if !bytes.HasPrefix(event, []byte(FieldPrefix)) {
		return nil, newDecodeError(KindFraming, event, fmt.Errorf("missing %q prefix", FieldPrefix))
	}

	payload := event[len(FieldPrefix):]
	if string(payload) == DoneSentinel {
		f.done = true
		return nil, nil
	}

	var chunk Chunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, newDecodeError(KindJSON, payload, err)
	}
	if len(chunk.Choices) != 1 {
		return nil, &ProtocolError{Reason: fmt.Sprintf("chunk %q has %d choices, want 1", chunk.ID, len(chunk.Choices))}
	}
	return chunk.Choices, nil
}
