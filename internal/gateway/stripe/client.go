// Package stripe 基于 stripe-go 的 Checkout Session 封装
package stripe

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	stripego "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"

	"github.com/example/embutidos/internal/config"
	"github.com/example/embutidos/internal/gateway"
)

const (
	name = "stripe"

	// PaymentStatusPaid 会话已付款
	PaymentStatusPaid = string(stripego.CheckoutSessionPaymentStatusPaid)

	// SessionIDPlaceholder Stripe 在跳转时替换为真实 session id
	SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"
)

// LineItem 结算明细，UnitAmount 为带小数的金额
type LineItem struct {
	Name       string
	UnitAmount decimal.Decimal
	Quantity   int64
}

// SessionParams 创建会话参数
type SessionParams struct {
	Lines      []LineItem
	SuccessURL string
	CancelURL  string
}

// Session checkout session，AmountTotal 单位为分
type Session struct {
	ID            string
	URL           string
	PaymentStatus string
	AmountTotal   int64
	PaymentIntent string
}

// Amount 把分换算成金额
func (s *Session) Amount() decimal.Decimal {
	return decimal.New(s.AmountTotal, -2)
}

// Paid 是否已付款
func (s *Session) Paid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

// Client Stripe 客户端，每个实例持有自己的 key 与 backend
type Client struct {
	api      *client.API
	currency string
}

type options struct {
	baseURL string
	http    *http.Client
}

// Option 客户端可选项
type Option func(*options)

// WithBaseURL 覆盖 API 地址
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient 自定义 http.Client
func WithHTTPClient(h *http.Client) Option {
	return func(o *options) { o.http = h }
}

// New 根据配置创建客户端
func New(cfg *config.StripeConfig, opts ...Option) *Client {
	o := options{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, fn := range opts {
		fn(&o)
	}

	// 付款相关请求不自动重试，失败直接交给调用方
	bc := &stripego.BackendConfig{
		HTTPClient:        o.http,
		LeveledLogger:     zap.S().Named(name),
		MaxNetworkRetries: stripego.Int64(0),
	}
	if o.baseURL != "" {
		bc.URL = stripego.String(o.baseURL)
	}
	backends := &stripego.Backends{
		API:     stripego.GetBackendWithConfig(stripego.APIBackend, bc),
		Connect: stripego.GetBackend(stripego.ConnectBackend),
		Uploads: stripego.GetBackend(stripego.UploadsBackend),
	}

	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = "usd"
	}
	return &Client{api: client.New(cfg.SecretKey, backends), currency: currency}
}

// cents 金额转为最小货币单位
func cents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// CreateCheckoutSession 创建一次性付款会话
func (c *Client) CreateCheckoutSession(ctx context.Context, p SessionParams) (*Session, error) {
	params := &stripego.CheckoutSessionParams{
		Mode:               stripego.String(string(stripego.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripego.StringSlice([]string{"card"}),
		SuccessURL:         stripego.String(p.SuccessURL),
		CancelURL:          stripego.String(p.CancelURL),
	}
	params.Context = ctx
	for _, l := range p.Lines {
		params.LineItems = append(params.LineItems, &stripego.CheckoutSessionLineItemParams{
			PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
				Currency: stripego.String(c.currency),
				ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripego.String(l.Name),
				},
				UnitAmount: stripego.Int64(cents(l.UnitAmount)),
			},
			Quantity: stripego.Int64(l.Quantity),
		})
	}

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, wrap("create_session", err)
	}
	return toSession("create_session", s)
}

// GetSession 查询会话状态，用于成功回跳后的确认
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	params := &stripego.CheckoutSessionParams{}
	params.Context = ctx
	s, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, wrap("get_session", err)
	}
	return toSession("get_session", s)
}

func toSession(op string, s *stripego.CheckoutSession) (*Session, error) {
	if s == nil || s.ID == "" {
		return nil, &gateway.Error{Gateway: name, Op: op, StatusCode: http.StatusOK, Body: "missing session id"}
	}
	out := &Session{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
	}
	// 未展开时 stripe-go 也会把字符串 id 填进 PaymentIntent.ID
	if s.PaymentIntent != nil {
		out.PaymentIntent = s.PaymentIntent.ID
	}
	return out, nil
}

// wrap 把 stripe-go 的错误转成统一的网关错误
func wrap(op string, err error) error {
	var se *stripego.Error
	if errors.As(err, &se) {
		return &gateway.Error{Gateway: name, Op: op, StatusCode: se.HTTPStatusCode, Body: se.Msg, Err: err}
	}
	return &gateway.Error{Gateway: name, Op: op, Err: err}
}
