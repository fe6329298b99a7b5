// Package main 是 seekchat 的入口点
//
// seekchat 是 DeepSeek 流式对话的终端客户端：回复逐字显示，
// 对话保存在本地 SQLite 数据库中，可以随时恢复、搜索和导出。
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yukin371/seekchat/internal/adapters/cli"
	"github.com/yukin371/seekchat/internal/adapters/deepseek"
	"github.com/yukin371/seekchat/internal/adapters/tui"
	"github.com/yukin371/seekchat/internal/chat"
	"github.com/yukin371/seekchat/internal/session"
	"github.com/yukin371/seekchat/pkg/utils"
)

// version is set by build flags during release
var version = "dev"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "seekchat",
	Short: "Streaming DeepSeek chat in the terminal",
	Long: `seekchat is a terminal client for the DeepSeek chat API.

Replies stream in as they are generated. Conversations are seeded from a
YAML dialog file, saved to a local SQLite database after every turn, and
can be resumed, searched and exported later.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	chatUI     string
	chatResume string
)

// chatCmd starts an interactive chat session
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

// askCmd sends a single prompt without streaming
var askCmd = &cobra.Command{
	Use:   "ask <prompt>",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

// historyCmd lists or searches saved sessions
var historyCmd = &cobra.Command{
	Use:   "history [query]",
	Short: "List saved sessions, optionally filtered by a search query",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

var exportOutput string

// exportCmd writes a saved session as a YAML dialog file
var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a saved session as YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "seekchat version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/seekchat/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	chatCmd.Flags().StringVarP(&chatUI, "ui", "u", "", "UI mode: tui or cli (default from config)")
	chatCmd.Flags().StringVarP(&chatResume, "resume", "r", "", "resume a saved session by ID")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")

	rootCmd.AddCommand(chatCmd, askCmd, historyCmd, exportCmd, deleteCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	mode := chatUI

	// TUI 占用终端，日志只写文件
	a, err := openApp(mode != "cli")
	if err != nil {
		return err
	}
	defer a.Close()

	if mode == "" {
		mode = a.cfg.UI.Mode
	}
	if mode != "tui" && mode != "cli" {
		return fmt.Errorf("未知的 UI 模式: %s", mode)
	}
	if !a.cfg.HasAPIKey() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: no API key configured, edit %s or set SEEKCHAT_LLM_API_KEY\n", a.configPath)
	}

	ctx := cmd.Context()
	dialog, err := a.openSession(ctx, chatResume)
	if err != nil {
		return err
	}

	provider := a.newProvider(dialog.Model)
	opts := []chat.Option{
		chat.WithQueueSize(a.cfg.LLM.QueueSize),
		chat.WithLogger(a.log.With("chat")),
	}
	if a.sessions != nil {
		opts = append(opts, chat.WithRecorder(a.sessions))
	}
	dispatcher := chat.NewDispatcher(provider, dialog, opts...)
	defer dispatcher.Close()

	a.log.Info("chat started: mode=%s session=%s model=%s", mode, dispatcher.SessionID(), dispatcher.Model())

	if mode == "cli" {
		out := cmd.OutOrStdout()
		printHistory(out, dialog.Messages())
		return cli.NewAdapter(dispatcher, cmd.InOrStdin(), out,
			cli.WithTickInterval(a.cfg.UI.TickInterval),
		).Run(ctx)
	}

	return tui.NewAdapter(dispatcher,
		tui.WithTickInterval(a.cfg.UI.TickInterval),
		tui.WithMarkdown(a.cfg.UI.Markdown),
		tui.WithSessionInfo(dispatcher),
		tui.WithHistory(dialog.Messages()),
	).Run(ctx)
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.HasAPIKey() {
		return fmt.Errorf("no API key configured, edit %s or set SEEKCHAT_LLM_API_KEY", a.configPath)
	}

	model, err := deepseek.ParseModel(a.cfg.LLM.Model)
	if err != nil {
		return err
	}
	dialog, err := session.LoadOrSeed(a.cfg.DialogPath(), model)
	if err != nil {
		return err
	}
	dialog.Append(deepseek.UserMessage(strings.Join(args, " ")))

	resp, err := a.newProvider(dialog.Model).Chat(cmd.Context(), dialog.Messages())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.Content())
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.sessions == nil {
		return fmt.Errorf("storage is disabled")
	}

	query := ""
	if len(args) > 0 {
		query = args[0]
	}
	sessions, err := a.sessions.Search(cmd.Context(), query)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "no sessions")
		return nil
	}
	for _, s := range sessions {
		updated := time.Unix(s.UpdatedAt, 0).Format("2006-01-02 15:04")
		fmt.Fprintf(out, "%s  %s  %-17s  %s\n", s.ID, updated, s.Model, utils.TruncateString(s.Name, 40))
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.sessions == nil {
		return fmt.Errorf("storage is disabled")
	}

	if exportOutput == "" {
		return a.sessions.Export(cmd.Context(), args[0], cmd.OutOrStdout())
	}

	// 先完整导出，会话不存在时不留下空文件
	var buf bytes.Buffer
	if err := a.sessions.Export(cmd.Context(), args[0], &buf); err != nil {
		return err
	}
	if err := os.WriteFile(exportOutput, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOutput, err)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.sessions == nil {
		return fmt.Errorf("storage is disabled")
	}
	if err := a.sessions.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}

// printHistory 在行模式下回显已有对话
func printHistory(w io.Writer, messages []deepseek.Message) {
	for _, m := range messages {
		if m.Role == deepseek.RoleSystem {
			continue
		}
		fmt.Fprintf(w, "[%s] %s\n", m.Role, m.Content)
	}
}
