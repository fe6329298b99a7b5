package deepseek

import (
	"errors"
	"io"
)

const readBufferSize = 4096

// Stream 流式响应的拉取式迭代器：有限、不可重启
type Stream struct {
	body    io.ReadCloser
	framer  *Framer
	buf     []byte
	pending []StreamingDelta
	err     error
}

// NewStream 基于响应体创建 Stream
func NewStream(body io.ReadCloser) *Stream {
	return &Stream{
		body:   body,
		framer: NewFramer(),
		buf:    make([]byte, readBufferSize),
	}
}

// Next 返回下一个增量。流正常结束（[DONE] 或响应体 EOF）时返回 io.EOF
func (s *Stream) Next() (StreamingDelta, error) {
	for {
		if len(s.pending) > 0 {
			d := s.pending[0]
			s.pending = s.pending[1:]
			return d, nil
		}
		if s.err != nil {
			return StreamingDelta{}, s.err
		}
		if s.framer.Done() {
			s.err = io.EOF
			continue
		}
		s.fill()
	}
}

// fill 读取一个传输块并交给 framer
func (s *Stream) fill() {
	n, readErr := s.body.Read(s.buf)
	if n > 0 {
		deltas, err := s.framer.Feed(s.buf[:n])
		s.pending = append(s.pending, deltas...)
		if err != nil {
			s.err = err
			return
		}
	}

	switch {
	case readErr == nil:
	case errors.Is(readErr, io.EOF):
		deltas, err := s.framer.Flush()
		s.pending = append(s.pending, deltas...)
		if err != nil {
			s.err = err
		} else {
			s.err = io.EOF
		}
	default:
		s.err = &TransportError{Err: readErr}
	}
}

// Close 关闭响应体
func (s *Stream) Close() error {
	return s.body.Close()
}
