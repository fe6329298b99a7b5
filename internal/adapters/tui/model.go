package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/yukin371/seekchat/internal/adapters/deepseek"
	"github.com/yukin371/seekchat/internal/core"
	"github.com/yukin371/seekchat/internal/tui"
)

// DefaultTickInterval 默认帧间隔
const DefaultTickInterval = 100 * time.Millisecond

// ========== 状态定义 ==========

// StatusState 状态栏状态
type StatusState int

const (
	StatusIdle      StatusState = iota // 空闲
	StatusStreaming                    // 正在接收回复
	StatusSuccess                      // 本轮完成
	StatusError                        // 本轮失败
)

// ========== 消息类型 ==========

// TickMsg 帧定时器消息，每帧从 bridge 取一次增量
type TickMsg time.Time

// ResetStatusMsg 临时状态（成功/错误）到期
type ResetStatusMsg struct{}

// entry 视口中的一条对话
type entry struct {
	role    deepseek.Role
	content string
}

// ========== 样式定义 ==========

// Styles TUI 样式集合
type Styles struct {
	App       lipgloss.Style
	StatusBar lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Error     lipgloss.Style
	Help      lipgloss.Style
}

// Tokyo Night 配色
var (
	colorForeground = lipgloss.Color("#c0caf5")
	colorPrimary    = lipgloss.Color("#7aa2f7")
	colorSuccess    = lipgloss.Color("#9ece6a")
	colorWarning    = lipgloss.Color("#e0af68")
	colorError      = lipgloss.Color("#f7768e")
	colorMuted      = lipgloss.Color("#565f89")
	colorBorder     = lipgloss.Color("#414868")
)

// DefaultStyles 创建默认样式（Tokyo Night 主题）
func DefaultStyles() Styles {
	return Styles{
		App: lipgloss.NewStyle().
			Foreground(colorForeground),
		StatusBar: lipgloss.NewStyle().
			Foreground(colorPrimary).
			Background(colorBorder).
			Padding(0, 1),
		User: lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true),
		Assistant: lipgloss.NewStyle().
			Foreground(colorForeground),
		System: lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(colorError),
		Help: lipgloss.NewStyle().
			Foreground(colorMuted),
	}
}

func colorForState(state StatusState) lipgloss.Color {
	switch state {
	case StatusStreaming:
		return colorWarning
	case StatusSuccess:
		return colorSuccess
	case StatusError:
		return colorError
	default:
		return colorMuted
	}
}

// ========== Model ==========

// Model Bubble Tea 模型
//
// 所有 bridge 调用都在 Update 中进行，即 UI goroutine。
type Model struct {
	bridge core.ChatBridge
	info   core.SessionInfo

	tick     time.Duration
	markdown bool
	renderer *glamour.TermRenderer

	entries  []entry
	live     strings.Builder
	viewport *tui.ViewportComponent

	textInput textinput.Model
	spinner   spinner.Model
	modal     *ModalComponent
	welcome   *WelcomeComponent

	status        StatusState
	statusMessage string
	width         int
	height        int
	styles        Styles
}

// Option 配置 Model
type Option func(*Model)

// WithTickInterval 设置帧间隔
func WithTickInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.tick = d
		}
	}
}

// WithMarkdown 回复完成后是否用 glamour 渲染
func WithMarkdown(enabled bool) Option {
	return func(m *Model) { m.markdown = enabled }
}

// WithSessionInfo 在欢迎界面和状态栏显示模型与会话
func WithSessionInfo(info core.SessionInfo) Option {
	return func(m *Model) { m.info = info }
}

// WithHistory 预先显示已有的对话
func WithHistory(messages []deepseek.Message) Option {
	return func(m *Model) {
		for _, msg := range messages {
			m.entries = append(m.entries, entry{role: msg.Role, content: msg.Content})
		}
	}
}

// WithoutWelcome 跳过欢迎界面
func WithoutWelcome() Option {
	return func(m *Model) { m.welcome.Hide() }
}

// NewModel 创建新的 Model
func NewModel(bridge core.ChatBridge, opts ...Option) *Model {
	ti := textinput.New()
	ti.Placeholder = "输入消息..."
	ti.Focus()
	ti.CharLimit = 4000
	ti.Width = 50

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorWarning)

	m := &Model{
		bridge:        bridge,
		tick:          DefaultTickInterval,
		viewport:      tui.NewViewportComponent(),
		textInput:     ti,
		spinner:       sp,
		modal:         NewModalComponent(),
		welcome:       NewWelcomeComponent("", ""),
		statusMessage: "准备就绪",
		styles:        DefaultStyles(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.info != nil && m.welcome.IsVisible() {
		m.welcome = NewWelcomeComponent(m.info.Model(), m.info.SessionID())
	}
	if m.markdown {
		m.renderer = newRenderer(80)
	}
	m.refresh()
	return m
}

// newRenderer 创建 Markdown 渲染器，失败时返回 nil 并退回纯文本
func newRenderer(width int) *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// ========== Bubble Tea 接口实现 ==========

// Init 启动帧定时器
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.tickCmd())
}

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update 处理消息
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		return m, tea.Batch(m.pump(), m.tickCmd())

	case spinner.TickMsg:
		if !m.bridge.Chatting() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ResetStatusMsg:
		if m.status == StatusSuccess || m.status == StatusError {
			m.setStatus(StatusIdle, "准备就绪")
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// View 渲染视图
func (m *Model) View() string {
	if m.welcome.IsVisible() {
		return m.welcome.Render(m.width, m.height)
	}
	if m.modal.IsVisible() {
		return m.modal.Render(m.width, m.height)
	}

	input := m.renderInputArea()
	statusBar := m.renderStatusBar()
	help := m.styles.Help.Render(m.renderHelpText())

	bottom := lipgloss.Height(input) + lipgloss.Height(statusBar) + lipgloss.Height(help)
	if m.height > 0 {
		m.viewport.SyncSize(m.width, m.height, bottom)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		input,
		statusBar,
		help,
	)
}

// ========== 消息处理方法 ==========

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.welcome.IsVisible() {
		m.welcome.Update(msg)
		return m, nil
	}

	if m.modal.IsVisible() {
		switch msg.String() {
		case "enter", "esc", " ":
			m.modal.Hide()
		}
		return m, nil
	}

	switch msg.String() {
	case "enter":
		return m, m.submit()
	case "ctrl+up", "ctrl+k", "ctrl+down", "ctrl+j", "ctrl+home", "ctrl+end", "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// submit 发送输入框内容，上一轮未结束时保留输入
func (m *Model) submit() tea.Cmd {
	prompt := m.textInput.Value()
	if strings.TrimSpace(prompt) == "" {
		return nil
	}
	if !m.bridge.Dispatch(core.SendPrompt(prompt)) {
		m.statusMessage = "等待回复完成..."
		return nil
	}

	m.textInput.Reset()
	m.entries = append(m.entries, entry{role: deepseek.RoleUser, content: prompt})
	m.viewport.AddMessage(m.renderEntry(m.entries[len(m.entries)-1]))
	m.setStatus(StatusStreaming, "正在回复...")
	return m.spinner.Tick
}

// pump 取出本帧到达的增量并更新视图
func (m *Model) pump() tea.Cmd {
	deltas := m.bridge.Drain()
	if len(deltas) == 0 {
		return nil
	}

	var cmd tea.Cmd
	for _, d := range deltas {
		m.live.WriteString(d.Content)
		if d.Finished {
			cmd = m.finishTurn(d.Err)
		}
	}
	if m.live.Len() > 0 {
		m.viewport.SetLive(m.styles.Assistant.Render(m.live.String()))
	}
	return cmd
}

// finishTurn 把流式内容固定为一条回复；失败时弹出错误框
func (m *Model) finishTurn(err error) tea.Cmd {
	if m.live.Len() > 0 {
		m.entries = append(m.entries, entry{role: deepseek.RoleAssistant, content: m.live.String()})
		m.viewport.AddMessage(m.renderEntry(m.entries[len(m.entries)-1]))
	}
	m.live.Reset()
	m.viewport.SetLive("")

	if err != nil {
		m.modal.Show(ModalError, "请求失败", err.Error())
		m.setStatus(StatusError, "请求失败")
	} else {
		m.setStatus(StatusSuccess, "回复完成")
	}
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return ResetStatusMsg{}
	})
}

func (m *Model) setStatus(state StatusState, message string) {
	m.status = state
	m.statusMessage = message
}

// resize 调整尺寸并按新宽度重新渲染
func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.textInput.Width = max(width-6, 10)
	if m.markdown {
		m.renderer = newRenderer(max(width-4, 20))
	}
	m.refresh()
}

// refresh 重建视口内容
func (m *Model) refresh() {
	rendered := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		rendered = append(rendered, m.renderEntry(e))
	}
	m.viewport.SetMessages(rendered)
}

// ========== 渲染辅助方法 ==========

func (m *Model) renderEntry(e entry) string {
	switch e.role {
	case deepseek.RoleUser:
		return m.styles.User.Render("❯ " + e.content)
	case deepseek.RoleSystem:
		return m.styles.System.Render("[system] " + e.content)
	case deepseek.RoleAssistant:
		return m.renderMarkdown(e.content)
	default:
		return e.content
	}
}

// renderMarkdown 渲染 Markdown，失败时返回原文
func (m *Model) renderMarkdown(content string) string {
	if m.renderer == nil {
		return m.styles.Assistant.Render(content)
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return m.styles.Assistant.Render(content)
	}
	return strings.Trim(rendered, "\n")
}

func (m *Model) renderInputArea() string {
	return m.styles.App.Render(">> " + m.textInput.View())
}

func (m *Model) renderStatusBar() string {
	var text string
	switch m.status {
	case StatusStreaming:
		text = fmt.Sprintf("%s %s", m.spinner.View(), m.statusMessage)
	case StatusSuccess:
		text = "✓ " + m.statusMessage
	case StatusError:
		text = "✗ " + m.statusMessage
	default:
		text = "○ " + m.statusMessage
	}

	if m.info != nil {
		text += fmt.Sprintf("  │ %s │ %s", m.info.Model(), shortID(m.info.SessionID()))
	}

	colored := lipgloss.NewStyle().Foreground(colorForState(m.status)).Render(text)
	return m.styles.StatusBar.Width(m.width).Render(colored)
}

func (m *Model) renderHelpText() string {
	return " [Enter:发送] [Ctrl+↑/↓:滚动] [PgUp/PgDn:翻页] [Ctrl+C:退出] "
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
