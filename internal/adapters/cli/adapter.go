// Package cli 提供行模式的终端界面，适用于不支持 TUI 的环境或管道输入
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yukin371/seekchat/internal/core"
)

// DefaultTickInterval 默认轮询间隔
const DefaultTickInterval = 50 * time.Millisecond

// Adapter 逐行读取输入并把回复流式写到输出
type Adapter struct {
	bridge core.ChatBridge
	in     io.Reader
	out    io.Writer
	tick   time.Duration
	prompt string
}

// Option 配置 Adapter
type Option func(*Adapter)

// WithTickInterval 设置轮询间隔
func WithTickInterval(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.tick = d
		}
	}
}

// WithPrompt 设置输入提示符
func WithPrompt(p string) Option {
	return func(a *Adapter) { a.prompt = p }
}

// NewAdapter creates a new CLI adapter
func NewAdapter(bridge core.ChatBridge, in io.Reader, out io.Writer, opts ...Option) *Adapter {
	a := &Adapter{
		bridge: bridge,
		in:     in,
		out:    out,
		tick:   DefaultTickInterval,
		prompt: "> ",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// isExit 是否为退出命令
func isExit(line string) bool {
	switch strings.ToLower(line) {
	case "quit", "exit", "/quit", "/exit":
		return true
	}
	return false
}

// Run 读取输入直到 EOF、退出命令或 ctx 取消
func (a *Adapter) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(a.in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(a.out, a.prompt)

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(a.out)
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}
		if isExit(line) {
			return nil
		}
		if !a.bridge.Dispatch(core.SendPrompt(line)) {
			continue
		}
		if err := a.stream(ctx); err != nil {
			return err
		}
	}
}

// stream 轮询 bridge 直到本轮结束
func (a *Adapter) stream(ctx context.Context) error {
	ticker := time.NewTicker(a.tick)
	defer ticker.Stop()

	for {
		for _, d := range a.bridge.Drain() {
			fmt.Fprint(a.out, d.Content)
			if !d.Finished {
				continue
			}
			fmt.Fprintln(a.out)
			if d.Err != nil {
				fmt.Fprintf(a.out, "[error] %v\n", d.Err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			fmt.Fprintln(a.out)
			return nil
		case <-ticker.C:
		}
	}
}
