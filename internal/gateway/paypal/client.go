// Package paypal PayPal Orders v2 的最小客户端：创建订单与捕获
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/example/embutidos/internal/config"
	"github.com/example/embutidos/internal/gateway"
)

const (
	name = "paypal"

	// StatusCompleted 捕获成功
	StatusCompleted = "COMPLETED"
)

// Capture 捕获结果；Amount 在网关未返回金额时无效
type Capture struct {
	OrderID       string
	Status        string
	TransactionID string
	Amount        decimal.NullDecimal
}

// Client PayPal REST 客户端。http 由 clientcredentials 包装，
// access token 在过期前复用，过期后自动重新获取
type Client struct {
	baseURL  string
	currency string
	http     *http.Client
}

type options struct {
	baseURL string
	http    *http.Client
}

// Option 客户端可选项
type Option func(*options)

// WithBaseURL 覆盖 API 地址，测试时指向 httptest.Server
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient 自定义底层 http.Client，取 token 与调用 API 共用
func WithHTTPClient(h *http.Client) Option {
	return func(o *options) { o.http = h }
}

// New 根据配置创建客户端
func New(cfg *config.PayPalConfig, opts ...Option) *Client {
	o := options{
		baseURL: cfg.BaseURL(),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, fn := range opts {
		fn(&o)
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.Secret,
		TokenURL:     o.baseURL + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	base := context.WithValue(context.Background(), oauth2.HTTPClient, o.http)
	authed := cc.Client(base)
	authed.Timeout = o.http.Timeout

	c := &Client{
		baseURL:  o.baseURL,
		currency: cfg.Currency,
		http:     authed,
	}
	if c.currency == "" {
		c.currency = "USD"
	}
	return c
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type createOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type purchaseUnit struct {
	Amount amount `json:"amount"`
}

type orderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string  `json:"id"`
				Status string  `json:"status"`
				Amount *amount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CreateOrder 以 CAPTURE 意图创建订单，返回 PayPal 订单号
func (c *Client) CreateOrder(ctx context.Context, total decimal.Decimal) (string, error) {
	body, err := json.Marshal(createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount: amount{CurrencyCode: c.currency, Value: total.StringFixed(2)},
		}},
	})
	if err != nil {
		return "", err
	}

	var out orderResponse
	if err := c.call(ctx, "create_order", "/v2/checkout/orders", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &gateway.Error{Gateway: name, Op: "create_order", StatusCode: http.StatusOK, Body: "missing order id"}
	}
	return out.ID, nil
}

// CaptureOrder 捕获已批准的订单
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Capture, error) {
	var out orderResponse
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	if err := c.call(ctx, "capture_order", path, []byte("{}"), &out); err != nil {
		return nil, err
	}

	res := &Capture{OrderID: out.ID, Status: out.Status}
	if res.OrderID == "" {
		res.OrderID = orderID
	}
	if len(out.PurchaseUnits) > 0 && len(out.PurchaseUnits[0].Payments.Captures) > 0 {
		cp := out.PurchaseUnits[0].Payments.Captures[0]
		res.TransactionID = cp.ID
		if cp.Amount != nil && cp.Amount.Value != "" {
			if v, err := decimal.NewFromString(cp.Amount.Value); err == nil {
				res.Amount = decimal.NewNullDecimal(v)
			}
		}
	}
	if res.TransactionID == "" {
		res.TransactionID = res.OrderID
	}
	return res, nil
}

func (c *Client) call(ctx context.Context, op, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("PayPal-Request-Id", uuid.NewString())
	return c.do(req, op, out)
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		// 取 token 失败时带上 OAuth 端点的状态码与响应
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return &gateway.Error{Gateway: name, Op: "token", StatusCode: re.Response.StatusCode, Body: gateway.Truncate(re.Body)}
		}
		return &gateway.Error{Gateway: name, Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &gateway.Error{Gateway: name, Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &gateway.Error{Gateway: name, Op: op, StatusCode: resp.StatusCode, Body: gateway.Truncate(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &gateway.Error{Gateway: name, Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}
