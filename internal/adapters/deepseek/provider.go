// Package deepseek 提供 DeepSeek 对话补全 API 的客户端
// 支持一次性请求和按 SSE 事件逐块解析的流式响应
package deepseek

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"github.com/yukin371/seekchat/pkg/logger"
)

// DefaultEndpoint 默认请求地址
const DefaultEndpoint = "https://api.deepseek.com/chat/completions"

// maxErrorBody 读取错误响应体的上限
const maxErrorBody = 64 * 1024

// Provider DeepSeek API 客户端
type Provider struct {
	apiKey   string
	endpoint string
	model    Model
	client   *http.Client
	log      *logger.Logger
}

// Option 配置 Provider
type Option func(*Provider)

// WithEndpoint 自定义请求地址（代理或测试服务器）
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) {
		if endpoint != "" {
			p.endpoint = endpoint
		}
	}
}

// WithHTTPClient 使用自定义 http.Client
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		if client != nil {
			p.client = client
		}
	}
}

// WithResponseTimeout 限制等待响应头的时间，不限制流式响应体的读取时长
func WithResponseTimeout(d time.Duration) Option {
	return func(p *Provider) {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = d
		p.client = &http.Client{Transport: transport}
	}
}

// WithLogger 设置日志
func WithLogger(l *logger.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.log = l
		}
	}
}

// NewProvider 创建 Provider
//
// 默认不设置整体超时：流式响应可能持续很久，整体超时会截断回复。
func NewProvider(apiKey string, model Model, opts ...Option) *Provider {
	p := &Provider{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		model:    model,
		client:   &http.Client{},
		log:      logger.Default().With("deepseek"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetModel 返回当前模型
func (p *Provider) GetModel() Model {
	return p.model
}

// Endpoint 返回请求地址
func (p *Provider) Endpoint() string {
	return p.endpoint
}

// Chat 发起非流式请求，等待完整响应体并解码
func (p *Provider) Chat(ctx context.Context, messages []Message) (*Response, error) {
	resp, err := p.post(ctx, messages, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: err}
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, newDecodeError(KindJSON, body, err)
	}
	return &out, nil
}

// StreamChat 发起流式请求，收到响应头后返回 Stream
//
// 调用方负责 Close 返回的 Stream。
func (p *Provider) StreamChat(ctx context.Context, messages []Message) (*Stream, error) {
	resp, err := p.post(ctx, messages, true)
	if err != nil {
		return nil, err
	}
	return NewStream(resp.Body), nil
}

// post 构建并发送请求，非 2xx 状态转换为 TransportError
func (p *Provider) post(ctx context.Context, messages []Message, stream bool) (*http.Response, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	body, err := json.Marshal(ChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   stream,
	})
	if err != nil {
		return nil, fmt.Errorf("构建请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	p.log.Debug("POST %s model=%s messages=%d stream=%t", p.endpoint, p.model, len(messages), stream)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := errorMessage(resp.StatusCode, raw)
		p.log.Warn("API 返回错误 %d: %s", resp.StatusCode, msg)
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: msg}
	}

	return resp, nil
}

// errorMessage 从错误响应体中提取可读信息
func errorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, "error.message"); msg.Exists() && msg.String() != "" {
			return msg.String()
		}
		if msg := gjson.GetBytes(body, "message"); msg.Exists() && msg.String() != "" {
			return msg.String()
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", status)
}
