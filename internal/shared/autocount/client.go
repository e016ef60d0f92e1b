package autocount

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
// AutoCountClient — AutoCount会计桥接客户端
// 通过桥接服务的HTTP接口推送销售发票，桥接服务负责写入AutoCount本体
// =============================================================================

// AutoCountClient AutoCount桥接客户端
type AutoCountClient struct {
	baseURL    string       // 桥接服务地址
	apiKey     string       // 桥接服务API密钥
	httpClient *http.Client // HTTP客户端
	enabled    bool         // 未配置地址时降级为离线模式（仅生成XLSX）
}

// NewClient 创建AutoCount桥接客户端实例
func NewClient(baseURL, apiKey string) *AutoCountClient {
	return &AutoCountClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		enabled: baseURL != "",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Enabled 桥接服务是否可用
func (c *AutoCountClient) Enabled() bool {
	return c.enabled
}

// InvoiceLine 发票明细行
type InvoiceLine struct {
	ItemCode    string  `json:"item_code"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

// Invoice 销售发票推送载荷
// DocNo由本系统生成并作为幂等键，桥接侧按DocNo去重
type Invoice struct {
	DocNo       string        `json:"doc_no"`
	DebtorCode  string        `json:"debtor_code"`
	DebtorName  string        `json:"debtor_name"`
	InvoiceDate time.Time     `json:"invoice_date"`
	Description string        `json:"description"`
	Lines       []InvoiceLine `json:"lines"`
	Total       float64       `json:"total"`
}

// pushResponse 桥接服务统一响应
type pushResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	DocKey  string `json:"doc_key"`
}

// PushInvoice 推送销售发票到AutoCount
// 返回桥接侧的单据键，可用于对账
func (c *AutoCountClient) PushInvoice(ctx context.Context, inv Invoice) (string, error) {
	if !c.enabled {
		return "", fmt.Errorf("AutoCount桥接服务未配置")
	}
	if inv.DocNo == "" {
		return "", fmt.Errorf("发票缺少单据号")
	}
	if inv.DebtorCode == "" {
		return "", fmt.Errorf("发票缺少客户账户代码")
	}

	var resp pushResponse
	if err := c.doRequest(ctx, "POST", "/api/v1/invoices", inv, &resp); err != nil {
		return "", fmt.Errorf("推送发票失败: %w", err)
	}
	return resp.DocKey, nil
}

// doRequest 执行桥接服务API请求
// 自动添加API密钥头，处理桥接服务统一错误码
func (c *AutoCountClient) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应体失败: %w", err)
	}

	var base pushResponse
	if err := json.Unmarshal(respBody, &base); err != nil {
		return fmt.Errorf("解析响应基础结构失败: %w", err)
	}
	if base.Code != 0 {
		return fmt.Errorf("AutoCount桥接错误[%d]: %s (path=%s)", base.Code, base.Message, path)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("解析响应体失败: %w", err)
		}
	}
	return nil
}
