// Package sheets 实现Google表格镜像后端
//
// 店主在表格里维护货架,订单与日报也镜像回表格。
// 所有表格调用都是尽力而为:失败只进日志与指标,
// 永远不把表格故障传导进下单与配送主流程。
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tilmanziegler21-create/boyboy/internal/infrastructure/config"
	"github.com/tilmanziegler21-create/boyboy/pkg/circuitbreaker"
	apperrors "github.com/tilmanziegler21-create/boyboy/pkg/errors"
	"github.com/tilmanziegler21-create/boyboy/pkg/logger"
	"github.com/tilmanziegler21-create/boyboy/pkg/metrics"
)

// ValuesAPI 表格Values接口
// Backend依赖本接口而非具体Client,测试用内存实现替换
type ValuesAPI interface {
	// GetValues 读取一个A1区间,返回字符串行
	GetValues(ctx context.Context, rangeA1 string) ([][]string, error)

	// AppendValues 向区间末尾追加行
	AppendValues(ctx context.Context, rangeA1 string, rows [][]interface{}) error

	// UpdateValues 覆盖写入区间
	UpdateValues(ctx context.Context, rangeA1 string, rows [][]interface{}) error
}

// Client Google Sheets Values API客户端
// 设计说明:
// 1. 直接走HTTP + Bearer Token,不引入完整SDK
//    (只用到values三个端点,SDK的依赖面远大于收益)
// 2. 熔断器包裹全部调用:表格服务抖动时快速失败,
//    不让每次镜像都等满一个超时
type Client struct {
	httpClient    *http.Client
	baseURL       string
	spreadsheetID string
	token         string
	cb            *circuitbreaker.CircuitBreaker
}

// NewClient 创建表格客户端
func NewClient(cfg *config.Config) *Client {
	cb := circuitbreaker.NewCircuitBreaker("sheets", circuitbreaker.Config{
		MaxRequests: 2,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
	})
	cb.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		logger.Warn().Str("breaker", name).
			Str("from", from.String()).Str("to", to.String()).Msg("表格熔断器状态切换")
		metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	})

	return &Client{
		httpClient:    &http.Client{Timeout: cfg.Sheets.Timeout},
		baseURL:       cfg.Sheets.BaseURL,
		spreadsheetID: cfg.Sheets.SpreadsheetID,
		token:         cfg.Sheets.Token,
		cb:            cb,
	}
}

// valueRange Values API的请求/响应体
type valueRange struct {
	Range          string          `json:"range,omitempty"`
	MajorDimension string          `json:"majorDimension,omitempty"`
	Values         [][]interface{} `json:"values"`
}

// GetValues 读取一个A1区间
func (c *Client) GetValues(ctx context.Context, rangeA1 string) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/%s/values/%s", c.baseURL, c.spreadsheetID, url.PathEscape(rangeA1))

	var vr valueRange
	if err := c.do(ctx, "get", http.MethodGet, endpoint, nil, &vr); err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(vr.Values))
	for _, raw := range vr.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, fmt.Sprintf("%v", cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// AppendValues 向区间末尾追加行
func (c *Client) AppendValues(ctx context.Context, rangeA1 string, rows [][]interface{}) error {
	endpoint := fmt.Sprintf("%s/%s/values/%s:append?valueInputOption=USER_ENTERED",
		c.baseURL, c.spreadsheetID, url.PathEscape(rangeA1))
	return c.do(ctx, "append", http.MethodPost, endpoint, &valueRange{Values: rows}, nil)
}

// UpdateValues 覆盖写入区间
func (c *Client) UpdateValues(ctx context.Context, rangeA1 string, rows [][]interface{}) error {
	endpoint := fmt.Sprintf("%s/%s/values/%s?valueInputOption=USER_ENTERED",
		c.baseURL, c.spreadsheetID, url.PathEscape(rangeA1))
	return c.do(ctx, "update", http.MethodPut, endpoint, &valueRange{Values: rows}, nil)
}

// do 执行一次API调用(熔断器 + 指标包裹)
func (c *Client) do(ctx context.Context, op, method, endpoint string, body *valueRange, out interface{}) error {
	start := time.Now()

	err := c.cb.Execute(func() error {
		var reader io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return err
			}
			reader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return fmt.Errorf("表格API返回%d: %s", resp.StatusCode, string(data))
		}

		if out != nil {
			return json.NewDecoder(resp.Body).Decode(out)
		}
		return nil
	})

	metrics.SheetsRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SheetsRequestsTotal.WithLabelValues(op, "error").Inc()
		return apperrors.New(apperrors.ErrCodeSheetsError, "表格服务不可用").WithCause(err)
	}
	metrics.SheetsRequestsTotal.WithLabelValues(op, "success").Inc()
	return nil
}
