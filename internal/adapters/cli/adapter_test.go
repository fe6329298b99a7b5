package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukin371/seekchat/internal/core"
)

// scriptedBridge 每次 Dispatch 后按帧返回预设的增量
type scriptedBridge struct {
	replies  map[string][][]core.ReceivedDelta
	frames   [][]core.ReceivedDelta
	prompts  []string
	chatting bool
}

func (b *scriptedBridge) Dispatch(prompt core.SendPrompt) bool {
	if b.chatting {
		return false
	}
	b.prompts = append(b.prompts, string(prompt))
	b.frames = b.replies[string(prompt)]
	b.chatting = true
	return true
}

func (b *scriptedBridge) Drain() []core.ReceivedDelta {
	if len(b.frames) == 0 {
		return nil
	}
	out := b.frames[0]
	b.frames = b.frames[1:]
	for _, d := range out {
		if d.Finished {
			b.chatting = false
		}
	}
	return out
}

func (b *scriptedBridge) Chatting() bool   { return b.chatting }
func (b *scriptedBridge) LastError() error { return nil }

func run(t *testing.T, bridge core.ChatBridge, input string) string {
	t.Helper()
	var out bytes.Buffer
	a := NewAdapter(bridge, strings.NewReader(input), &out,
		WithTickInterval(time.Millisecond), WithPrompt("> "))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Run(ctx))
	return out.String()
}

func TestAdapterStreamsReply(t *testing.T) {
	bridge := &scriptedBridge{replies: map[string][][]core.ReceivedDelta{
		"hi": {
			{{Content: "Hel"}},
			nil,
			{{Content: "lo"}, {Finished: true}},
		},
	}}

	out := run(t, bridge, "hi\n")

	assert.Equal(t, []string{"hi"}, bridge.prompts)
	assert.Contains(t, out, "Hello\n")
}

func TestAdapterPrintsError(t *testing.T) {
	bridge := &scriptedBridge{replies: map[string][][]core.ReceivedDelta{
		"hi": {{{Content: "par"}, {Finished: true, Err: errors.New("HTTP 500")}}},
	}}

	out := run(t, bridge, "hi\n")

	assert.Contains(t, out, "par\n")
	assert.Contains(t, out, "[error] HTTP 500")
}

func TestAdapterSkipsBlankAndStopsOnExit(t *testing.T) {
	bridge := &scriptedBridge{replies: map[string][][]core.ReceivedDelta{
		"one": {{{Content: "1"}, {Finished: true}}},
		"two": {{{Content: "2"}, {Finished: true}}},
	}}

	run(t, bridge, "\n  \none\nexit\ntwo\n")

	assert.Equal(t, []string{"one"}, bridge.prompts)
}

func TestAdapterSequentialTurns(t *testing.T) {
	bridge := &scriptedBridge{replies: map[string][][]core.ReceivedDelta{
		"one": {{{Content: "1"}, {Finished: true}}},
		"two": {{{Content: "2"}, {Finished: true}}},
	}}

	out := run(t, bridge, "one\ntwo\n")

	assert.Equal(t, []string{"one", "two"}, bridge.prompts)
	assert.Contains(t, out, "1\n")
	assert.Contains(t, out, "2\n")
}

func TestAdapterStopsOnCancel(t *testing.T) {
	// 永不结束的回复
	bridge := &scriptedBridge{replies: map[string][][]core.ReceivedDelta{}}
	var out bytes.Buffer
	a := NewAdapter(bridge, strings.NewReader("hang\n"), &out, WithTickInterval(time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.NoError(t, a.Run(ctx))
	assert.True(t, bridge.Chatting())
}

func TestIsExit(t *testing.T) {
	for _, s := range []string{"quit", "EXIT", "/quit"} {
		assert.True(t, isExit(s), s)
	}
	assert.False(t, isExit("quite"))
}
