package tui

import (
	"strings"

	lipgloss "github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// ModalType Modal 类型
type ModalType int

const (
	ModalError ModalType = iota // 请求失败
	ModalInfo                   // 普通提示
)

// ModalState Modal 状态
type ModalState struct {
	Type    ModalType
	Title   string
	Content string
	Visible bool
}

// ModalStyle Modal 样式
type ModalStyle struct {
	Border  lipgloss.Style
	Title   lipgloss.Style
	Error   lipgloss.Style
	Content lipgloss.Style
	Hint    lipgloss.Style
}

// ModalComponent 居中显示的提示框，按 Enter/Esc 关闭
type ModalComponent struct {
	state ModalState
	style ModalStyle
}

// NewModalComponent 创建新的 Modal 组件
func NewModalComponent() *ModalComponent {
	return &ModalComponent{style: DefaultModalStyle()}
}

// DefaultModalStyle 创建默认 Modal 样式（Tokyo Night 主题）
func DefaultModalStyle() ModalStyle {
	return ModalStyle{
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7aa2f7")).
			Padding(1, 2),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7aa2f7")),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#f7768e")),
		Content: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#c0caf5")),
		Hint: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89")),
	}
}

// Show 显示 Modal
func (m *ModalComponent) Show(modalType ModalType, title, content string) {
	m.state = ModalState{
		Type:    modalType,
		Title:   title,
		Content: content,
		Visible: true,
	}
}

// Hide 隐藏 Modal
func (m *ModalComponent) Hide() {
	m.state.Visible = false
}

// IsVisible Modal 是否可见
func (m *ModalComponent) IsVisible() bool {
	return m.state.Visible
}

// State 获取 Modal 状态
func (m *ModalComponent) State() ModalState {
	return m.state
}

// Render 在 width x height 区域内居中渲染
func (m *ModalComponent) Render(width, height int) string {
	if !m.state.Visible {
		return ""
	}

	boxWidth := width * 2 / 3
	if boxWidth < 30 {
		boxWidth = 30
	}
	if boxWidth > 80 {
		boxWidth = 80
	}

	title := m.style.Title.Render(m.state.Title)
	if m.state.Type == ModalError {
		title = m.style.Error.Render("✗ " + m.state.Title)
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(m.style.Content.Render(wordwrap.String(m.state.Content, boxWidth-6)))
	b.WriteString("\n\n")
	b.WriteString(m.style.Hint.Render("[Enter/Esc:关闭]"))

	box := m.style.Border.Width(boxWidth).Render(b.String())
	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
