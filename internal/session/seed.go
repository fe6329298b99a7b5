package session

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yukin371/seekchat/internal/adapters/deepseek"
	"go.yaml.in/yaml/v3"
)

// DefaultSystemPrompt 默认系统提示
const DefaultSystemPrompt = "你是一个智能助手。"

// DefaultGreeting 默认首条用户消息
const DefaultGreeting = "你好！"

// DialogFile 对话种子文件格式
type DialogFile struct {
	Name     string             `yaml:"name,omitempty"`
	Model    deepseek.Model     `yaml:"model,omitempty"`
	Messages []deepseek.Message `yaml:"messages"`
}

// DefaultDialog 默认种子对话：一条系统提示加一条问候
//
// 不写入 model，配置中的模型始终生效，除非用户在文件里指定。
func DefaultDialog() DialogFile {
	return DialogFile{
		Messages: []deepseek.Message{
			deepseek.SystemMessage(DefaultSystemPrompt),
			deepseek.UserMessage(DefaultGreeting),
		},
	}
}

// LoadOrSeed 从 YAML 文件读取种子对话，文件不存在时写入默认对话
//
// 文件中的 model 为空时使用 model 参数。
func LoadOrSeed(path string, model deepseek.Model) (*Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		dialog := DefaultDialog()
		if err := writeDialogFile(path, dialog); err != nil {
			return nil, err
		}
		dialog.Model = model
		return fromDialog(dialog), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dialog file: %w", err)
	}

	var dialog DialogFile
	if err := yaml.Unmarshal(data, &dialog); err != nil {
		return nil, fmt.Errorf("failed to parse dialog file %s: %w", path, err)
	}
	if dialog.Model == "" {
		dialog.Model = model
	}

	return fromDialog(dialog), nil
}

func fromDialog(dialog DialogFile) *Session {
	sess := NewSession(dialog.Name, dialog.Model)
	for _, m := range dialog.Messages {
		sess.Append(m)
	}
	return sess
}

// WriteYAML 以种子文件格式导出会话，导出结果可再次作为种子载入
func WriteYAML(w io.Writer, s *Session) error {
	s.mu.RLock()
	dialog := DialogFile{
		Name:     s.Name,
		Model:    s.Model,
		Messages: append([]deepseek.Message(nil), s.messages...),
	}
	s.mu.RUnlock()

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(dialog); err != nil {
		return fmt.Errorf("failed to encode dialog: %w", err)
	}
	return enc.Close()
}

func writeDialogFile(path string, dialog DialogFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create dialog directory: %w", err)
	}
	data, err := yaml.Marshal(dialog)
	if err != nil {
		return fmt.Errorf("failed to encode dialog: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write dialog file: %w", err)
	}
	return nil
}
