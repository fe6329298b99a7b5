// Package tui 提供可复用的终端界面组件
//
// Viewport 组件复用自开源项目 opencode-ai/opencode（已归档）
// 原始代码: https://github.com/opencode-ai/opencode
// 许可证: MIT License
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// minWrapWidth 换行宽度下限
const minWrapWidth = 20

// ViewportComponent 对话消息视口
//
// 已完成的消息按顺序排列，live 是正在流式接收的尾部内容，
// 单独保存以便每帧替换而不重建整个列表。内容变化时总是滚动到底部。
type ViewportComponent struct {
	viewport viewport.Model
	width    int
	height   int
	style    lipgloss.Style
	messages []string
	live     string
}

// NewViewportComponent 创建新的 Viewport 组件
func NewViewportComponent() *ViewportComponent {
	vp := viewport.New(80, 20)
	return &ViewportComponent{
		viewport: vp,
		width:    80,
		height:   20,
		style:    lipgloss.NewStyle().Padding(0, 1),
	}
}

// SetSize 设置视口尺寸
func (v *ViewportComponent) SetSize(width, height int) {
	if width == v.width && height == v.height {
		return
	}
	v.width = width
	v.height = height
	v.viewport.Width = width
	v.viewport.Height = height
	v.updateContent()
}

// AddMessage 追加一条已完成的消息
func (v *ViewportComponent) AddMessage(message string) {
	v.messages = append(v.messages, message)
	v.updateContent()
}

// SetMessages 替换全部消息
func (v *ViewportComponent) SetMessages(messages []string) {
	v.messages = append([]string(nil), messages...)
	v.updateContent()
}

// SetLive 设置正在接收的尾部内容，空字符串表示没有
func (v *ViewportComponent) SetLive(content string) {
	if content == v.live {
		return
	}
	v.live = content
	v.updateContent()
}

// wrapWidth 计算换行宽度（去掉左右边距）
func (v *ViewportComponent) wrapWidth() int {
	w := v.width - 4
	if w < minWrapWidth {
		w = minWrapWidth
	}
	return w
}

func (v *ViewportComponent) updateContent() {
	blocks := v.messages
	if v.live != "" {
		blocks = append(blocks[:len(blocks):len(blocks)], v.live)
	}

	if len(blocks) == 0 {
		v.viewport.SetContent("")
		return
	}

	width := v.wrapWidth()
	rendered := make([]string, 0, len(blocks))
	for _, msg := range blocks {
		wrapped := wordwrap.String(msg, width)
		wrapped = strings.Trim(wrapped, "\n")
		rendered = append(rendered, v.style.Render(wrapped))
	}

	v.viewport.SetContent(strings.Join(rendered, "\n\n"))
	v.viewport.GotoBottom()
}

// GotoTop 跳转到顶部
func (v *ViewportComponent) GotoTop() {
	v.viewport.GotoTop()
}

// GotoBottom 跳转到底部
func (v *ViewportComponent) GotoBottom() {
	v.viewport.GotoBottom()
}

// LineUp 向上滚动 n 行
func (v *ViewportComponent) LineUp(n int) {
	v.viewport.LineUp(n)
}

// LineDown 向下滚动 n 行
func (v *ViewportComponent) LineDown(n int) {
	v.viewport.LineDown(n)
}

// Messages 返回已完成的消息
func (v *ViewportComponent) Messages() []string {
	return v.messages
}

// View 渲染视口
func (v *ViewportComponent) View() string {
	return v.viewport.View()
}

// Update 处理滚动按键
func (v *ViewportComponent) Update(msg tea.Msg) (*ViewportComponent, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+up", "ctrl+k":
			v.LineUp(1)
			return v, nil
		case "ctrl+down", "ctrl+j":
			v.LineDown(1)
			return v, nil
		case "ctrl+home":
			v.GotoTop()
			return v, nil
		case "ctrl+end":
			v.GotoBottom()
			return v, nil
		case "pgup":
			v.viewport.ViewUp()
			return v, nil
		case "pgdown":
			v.viewport.ViewDown()
			return v, nil
		}
		// 其余按键交给输入框
		return v, nil
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// SyncSize 按窗口尺寸和底部组件高度调整视口
func (v *ViewportComponent) SyncSize(width, height, bottomHeight int) {
	available := height - bottomHeight
	if available < 5 {
		available = 5
	}
	v.SetSize(width, available)
}
