package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// =============================================================================
// NotifyClient — 站内外通知客户端
// 通过webhook向主管群和个人推送消息卡片，所有业务通知共用一个客户端
// =============================================================================

// NotifyClient 通知客户端
type NotifyClient struct {
	webhookURL string       // 默认接收地址（主管群webhook）
	httpClient *http.Client // HTTP客户端
	enabled    bool         // 未配置地址时降级为no-op
}

// NewClient 创建通知客户端实例
func NewClient(webhookURL string) *NotifyClient {
	return &NotifyClient{
		webhookURL: webhookURL,
		enabled:    webhookURL != "",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled 是否已配置通知通道
func (c *NotifyClient) Enabled() bool {
	return c.enabled
}

// Message 通知消息
type Message struct {
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	JobCode string            `json:"job_code,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Send 向默认地址发送通知
func (c *NotifyClient) Send(ctx context.Context, msg Message) error {
	return c.SendTo(ctx, c.webhookURL, msg)
}

// SendTo 向指定webhook地址发送通知
// url为空时回退到默认地址，均未配置则静默跳过
func (c *NotifyClient) SendTo(ctx context.Context, url string, msg Message) error {
	if url == "" {
		url = c.webhookURL
	}
	if url == "" {
		return nil
	}

	bodyBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化通知消息失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("创建通知请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("推送通知失败: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("通知服务返回异常状态: %d", resp.StatusCode)
	}
	return nil
}
