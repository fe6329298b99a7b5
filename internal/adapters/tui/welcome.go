package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// WelcomeComponent 启动时显示的欢迎面板，任意键关闭
type WelcomeComponent struct {
	visible bool
	logo    []string
	model   string
	session string
	tips    []string
	styles  WelcomeStyle
}

// WelcomeStyle 欢迎界面样式
type WelcomeStyle struct {
	Container lipgloss.Style
	Logo      lipgloss.Style
	Subtitle  lipgloss.Style
	Info      lipgloss.Style
	Tip       lipgloss.Style
	KeyHint   lipgloss.Style
}

// NewWelcomeComponent 创建欢迎界面组件，model/session 为空时不显示
func NewWelcomeComponent(model, session string) *WelcomeComponent {
	return &WelcomeComponent{
		visible: true,
		logo:    seekchatLogo(),
		model:   model,
		session: session,
		tips: []string{
			"Enter 发送消息，回复会逐字显示",
			"Ctrl+↑/↓ 滚动查看历史消息",
			"Ctrl+C 退出，对话会自动保存",
		},
		styles: DefaultWelcomeStyle(),
	}
}

// DefaultWelcomeStyle 创建默认欢迎界面样式（Tokyo Night 主题）
func DefaultWelcomeStyle() WelcomeStyle {
	return WelcomeStyle{
		Container: lipgloss.NewStyle().
			Padding(1, 4).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7aa2f7")),
		Logo: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#bb9af7")),
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9aa5ce")),
		Info: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#73daca")),
		Tip: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#565f89")).
			Italic(true),
		KeyHint: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e0af68")),
	}
}

func seekchatLogo() []string {
	return []string{
		"  ___          _      ___ _         _   ",
		" / __| ___ ___| |__  / __| |_  __ _| |_ ",
		" \\__ \\/ -_) -_) / / | (__| ' \\/ _` |  _|",
		" |___/\\___\\___|_\\_\\  \\___|_||_\\__,_|\\__|",
	}
}

// Update 处理按键，返回 false 表示欢迎界面已关闭
func (w *WelcomeComponent) Update(msg tea.Msg) bool {
	if _, ok := msg.(tea.KeyMsg); ok {
		w.visible = false
	}
	return w.visible
}

// Render 渲染欢迎界面
func (w *WelcomeComponent) Render(width, height int) string {
	var b strings.Builder
	b.WriteString(w.styles.Logo.Render(strings.Join(w.logo, "\n")))
	b.WriteString("\n\n")
	b.WriteString(w.styles.Subtitle.Render("DeepSeek streaming chat"))
	b.WriteString("\n\n")

	if w.model != "" {
		b.WriteString(w.styles.Info.Render(fmt.Sprintf("模型: %s", w.model)))
		b.WriteString("\n")
	}
	if w.session != "" {
		b.WriteString(w.styles.Info.Render(fmt.Sprintf("会话: %s", w.session)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, tip := range w.tips {
		b.WriteString(w.styles.Tip.Render("• " + tip))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(w.styles.KeyHint.Render("[按任意键开始]"))

	content := w.styles.Container.Render(b.String())
	if width <= 0 || height <= 0 {
		return content
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// IsVisible 欢迎界面是否可见
func (w *WelcomeComponent) IsVisible() bool {
	return w.visible
}

// Hide 隐藏欢迎界面
func (w *WelcomeComponent) Hide() {
	w.visible = false
}
