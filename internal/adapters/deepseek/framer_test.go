package deepseek

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chunkA = `data: {"id":"x","model":"deepseek-chat","choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"},"finish_reason":null}]}` + "\n\n" +
		`data: {"id":"x","model":"deepseek-chat","choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":null}]}` + "\n\n"
	chunkB = `data: {"id":"x","model":"deepseek-chat","choices":[{"index":0,"delta":{"content":"!"},"finish_reason":"stop"}]}` + "\n\n" +
		"data: [DONE]\n\n"
)

// chunkedReader 按给定切分返回数据，模拟传输层分块
type chunkedReader struct {
	chunks []string
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func (r *chunkedReader) Close() error { return nil }

func collect(t *testing.T, chunks ...string) ([]StreamingDelta, error) {
	t.Helper()
	s := NewStream(&chunkedReader{chunks: chunks})
	defer s.Close()

	var out []StreamingDelta
	for {
		d, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, d)
	}
}

func contents(deltas []StreamingDelta) []string {
	out := make([]string, len(deltas))
	for i, d := range deltas {
		out[i] = d.Delta.Content
	}
	return out
}

func TestFramerHappyStreaming(t *testing.T) {
	deltas, err := collect(t, chunkA, chunkB)
	require.NoError(t, err)

	assert.Equal(t, []string{"Hel", "lo", "!"}, contents(deltas))
	assert.False(t, deltas[0].Finished())
	assert.False(t, deltas[1].Finished())
	require.True(t, deltas[2].Finished())
	assert.Equal(t, FinishStop, *deltas[2].FinishReason)
}

func TestFramerSentinelOnly(t *testing.T) {
	deltas, err := collect(t, "data: [DONE]\n\n")
	require.NoError(t, err)
	assert.Empty(t, deltas)
}

func TestFramerIgnoresInputAfterSentinel(t *testing.T) {
	f := NewFramer()
	deltas, err := f.Feed([]byte("data: [DONE]\n\n" + chunkA))
	require.NoError(t, err)
	assert.Empty(t, deltas)
	assert.True(t, f.Done())

	deltas, err = f.Feed([]byte(chunkB))
	require.NoError(t, err)
	assert.Empty(t, deltas)

	deltas, err = f.Flush()
	require.NoError(t, err)
	assert.Empty(t, deltas)
}

func TestFramerRoleOnlyFirstDelta(t *testing.T) {
	deltas, err := collect(t, `data: {"id":"z","model":"deepseek-chat","choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":null}]}`+"\n\n")
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, "", deltas[0].Delta.Content)
	assert.False(t, deltas[0].Finished())
}

func TestFramerMalformedJSON(t *testing.T) {
	_, err := collect(t, "data: {not-json}\n\n")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
	assert.True(t, IsDecodeKind(err, KindJSON))
}

func TestFramerUnknownFinishReason(t *testing.T) {
	_, err := collect(t, `data: {"id":"x","model":"m","choices":[{"index":0,"delta":{"content":"a"},"finish_reason":"exploded"}]}`+"\n\n")
	assert.True(t, IsDecodeKind(err, KindJSON))
}

func TestFramerFramingErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"too short", "data:\n\n"},
		{"exactly prefix", "data: x\n\n"[:6] + "\n\n"},
		{"missing prefix", `{"id":"x"}` + "\n\n"},
		{"event field", "event: message\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := collect(t, tt.input)
			require.Error(t, err)
			assert.True(t, IsDecodeKind(err, KindFraming), "got %v", err)
		})
	}
}

func TestFramerInvalidUTF8(t *testing.T) {
	_, err := collect(t, "data: {\"a\":\"\xff\xfe\"}\n\n")
	require.Error(t, err)
	assert.True(t, IsDecodeKind(err, KindInvalidUTF8))
}

func TestFramerProtocolViolation(t *testing.T) {
	twoChoices := `data: {"id":"x","model":"m","choices":[` +
		`{"index":0,"delta":{"content":"a"},"finish_reason":null},` +
		`{"index":1,"delta":{"content":"b"},"finish_reason":null}]}` + "\n\n"

	_, err := collect(t, twoChoices)
	assert.ErrorIs(t, err, ErrProtocolViolation)

	_, err = collect(t, `data: {"id":"x","model":"m","choices":[]}`+"\n\n")
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestFramerSkipsComments(t *testing.T) {
	deltas, err := collect(t, ": keep-alive\n\n"+chunkA+": keep-alive\n\n"+chunkB)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo", "!"}, contents(deltas))
}

func TestFramerCarryOverAtEverySplit(t *testing.T) {
	full := chunkA + chunkB
	for i := 1; i < len(full); i++ {
		deltas, err := collect(t, full[:i], full[i:])
		require.NoError(t, err, "split at %d", i)
		require.Equal(t, []string{"Hel", "lo", "!"}, contents(deltas), "split at %d", i)
	}
}

func TestFramerMultiByteSplit(t *testing.T) {
	event := `data: {"id":"x","model":"m","choices":[{"index":0,"delta":{"content":"你好"},"finish_reason":null}]}` + "\n\n"
	split := strings.Index(event, "你") + 1

	deltas, err := collect(t, event[:split], event[split:])
	require.NoError(t, err)
	assert.Equal(t, []string{"你好"}, contents(deltas))
}

func TestFramerEndsWithoutSentinel(t *testing.T) {
	deltas, err := collect(t, chunkA)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, contents(deltas))
}

func TestFramerFlushesUnterminatedEvent(t *testing.T) {
	deltas, err := collect(t, strings.TrimSuffix(chunkA, "\n\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, contents(deltas))
}

func TestFramerDeltasBeforeErrorAreDelivered(t *testing.T) {
	s := NewStream(&chunkedReader{chunks: []string{chunkA + "data: {not-json}\n\n"}})

	d, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, "Hel", d.Delta.Content)

	d, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, "lo", d.Delta.Content)

	_, err = s.Next()
	assert.True(t, IsDecodeKind(err, KindJSON))

	// 错误是终态
	_, err = s.Next()
	assert.True(t, IsDecodeKind(err, KindJSON))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset by peer") }
func (failingReader) Close() error             { return nil }

func TestStreamReadErrorIsTransport(t *testing.T) {
	s := NewStream(failingReader{})
	_, err := s.Next()
	assert.ErrorIs(t, err, ErrTransport)
}
