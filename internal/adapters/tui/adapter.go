package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yukin371/seekchat/internal/core"
)

// Adapter 运行 Bubble Tea 程序，把终端输入接到 ChatBridge
type Adapter struct {
	model       *Model
	programOpts []tea.ProgramOption
}

// NewAdapter 创建新的 TUI 适配器
func NewAdapter(bridge core.ChatBridge, opts ...Option) *Adapter {
	return &Adapter{model: NewModel(bridge, opts...)}
}

// WithIO 替换终端输入输出（测试或非标准终端使用）
func (a *Adapter) WithIO(in io.Reader, out io.Writer) *Adapter {
	a.programOpts = append(a.programOpts, tea.WithInput(in), tea.WithOutput(out))
	return a
}

// Model 返回底层 Model
func (a *Adapter) Model() *Model {
	return a.model
}

// Run 阻塞运行直到用户退出或 ctx 取消
//
// 不使用 AltScreen，退出后对话仍留在终端里，便于复制。
func (a *Adapter) Run(ctx context.Context) error {
	opts := append([]tea.ProgramOption{tea.WithContext(ctx)}, a.programOpts...)
	program := tea.NewProgram(a.model, opts...)

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("TUI 错误: %w", err)
	}
	return nil
}
