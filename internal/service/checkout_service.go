package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/embutidos/internal/datamodels/cart"
	"github.com/example/embutidos/internal/datamodels/order"
	"github.com/example/embutidos/internal/datamodels/payment"
	"github.com/example/embutidos/internal/datamodels/product"
	"github.com/example/embutidos/internal/gateway/paypal"
	"github.com/example/embutidos/internal/gateway/stripe"
	"github.com/example/embutidos/internal/infra/mq"
)

// PayPalGateway PayPal 订单创建与捕获
type PayPalGateway interface {
	CreateOrder(ctx context.Context, total decimal.Decimal) (string, error)
	CaptureOrder(ctx context.Context, orderID string) (*paypal.Capture, error)
}

// StripeGateway Stripe checkout session
type StripeGateway interface {
	CreateCheckoutSession(ctx context.Context, p stripe.SessionParams) (*stripe.Session, error)
	GetSession(ctx context.Context, sessionID string) (*stripe.Session, error)
}

// OrderPlacedEvent 落单成功后发布到 MQ 的消息
type OrderPlacedEvent struct {
	OrderID  int64           `json:"order_id"`
	UserID   *int64          `json:"user_id"`
	Channel  payment.Channel `json:"channel"`
	Total    decimal.Decimal `json:"total"`
	PlacedAt time.Time       `json:"placed_at"`
}

// settlement 网关确认的付款；现金路径为 nil
type settlement struct {
	channel        payment.Channel
	gatewayOrderID string
	transactionID  string
	status         string
	amount         decimal.NullDecimal
}

// StripeCheckout 创建会话后返回给前端的跳转信息
type StripeCheckout struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// CheckoutService 把会话购物车和一次付款落成订单
type CheckoutService struct {
	db       *gorm.DB
	carts    cart.Repository
	payments payment.Repository
	orders   order.Repository
	pricer   *CartService
	paypal   PayPalGateway
	stripe   StripeGateway
	events   mq.Publisher
	now      func() time.Time
}

// NewCheckoutService 创建结算服务；paypal/stripe 可以为 nil，对应渠道不可用
func NewCheckoutService(
	db *gorm.DB,
	carts cart.Repository,
	payments payment.Repository,
	orders order.Repository,
	pricer *CartService,
	pp PayPalGateway,
	st StripeGateway,
	events mq.Publisher,
) *CheckoutService {
	if events == nil {
		events = mq.NopPublisher{}
	}
	return &CheckoutService{
		db:       db,
		carts:    carts,
		payments: payments,
		orders:   orders,
		pricer:   pricer,
		paypal:   pp,
		stripe:   st,
		events:   events,
		now:      time.Now,
	}
}

// PayCash 现金/其他渠道：直接按已付款落单，不写支付记录
func (s *CheckoutService) PayCash(ctx context.Context, sessionID string, userID int64) (*order.Order, error) {
	GetMonitor().RecordCheckoutRequest()
	return s.reconcile(ctx, sessionID, &userID, nil)
}

// CreatePayPalOrder 按当前购物车总额在 PayPal 建单
func (s *CheckoutService) CreatePayPalOrder(ctx context.Context, sessionID string) (string, error) {
	if s.paypal == nil {
		return "", fmt.Errorf("paypal disabled: %w", ErrGateway)
	}
	priced, err := s.pricer.Read(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if priced.Empty() {
		return "", ErrEmptyCart
	}
	id, err := s.paypal.CreateOrder(ctx, priced.Total)
	if err != nil {
		GetMonitor().RecordGatewayError(payment.ChannelPayPal)
		zap.L().Error("paypal create order failed", zap.String("session_id", sessionID), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrGateway, err)
	}
	return id, nil
}

// CapturePayPalOrder 捕获 PayPal 订单并落单；同一 PayPal 订单重复提交返回已有订单
func (s *CheckoutService) CapturePayPalOrder(ctx context.Context, sessionID string, userID int64, paypalOrderID string) (*order.Order, error) {
	if paypalOrderID == "" {
		return nil, &ValidationError{Fields: map[string]string{"order_id": "requerido"}}
	}
	if s.paypal == nil {
		return nil, fmt.Errorf("paypal disabled: %w", ErrGateway)
	}
	GetMonitor().RecordCheckoutRequest()

	if o, err := s.existing(ctx, payment.ChannelPayPal, paypalOrderID); err != nil || o != nil {
		return o, err
	}

	res, err := s.paypal.CaptureOrder(ctx, paypalOrderID)
	if err != nil {
		GetMonitor().RecordGatewayError(payment.ChannelPayPal)
		GetMonitor().RecordCheckoutFailed(payment.ChannelPayPal)
		zap.L().Error("paypal capture failed",
			zap.String("session_id", sessionID),
			zap.String("paypal_order_id", paypalOrderID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	if res.Status != paypal.StatusCompleted {
		GetMonitor().RecordCheckoutFailed(payment.ChannelPayPal)
		return nil, fmt.Errorf("paypal status %q: %w", res.Status, ErrPaymentNotCompleted)
	}

	return s.reconcile(ctx, sessionID, &userID, &settlement{
		channel:        payment.ChannelPayPal,
		gatewayOrderID: paypalOrderID,
		transactionID:  res.TransactionID,
		status:         res.Status,
		amount:         res.Amount,
	})
}

// CreateStripeSession 用购物车明细创建 Stripe 会话，domain 用于拼回跳地址
func (s *CheckoutService) CreateStripeSession(ctx context.Context, sessionID, domain string) (*StripeCheckout, error) {
	if s.stripe == nil {
		return nil, fmt.Errorf("stripe disabled: %w", ErrGateway)
	}
	priced, err := s.pricer.Read(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if priced.Empty() {
		return nil, ErrEmptyCart
	}

	params := stripe.SessionParams{
		SuccessURL: domain + "/checkout/stripe/success?session_id=" + stripe.SessionIDPlaceholder,
		CancelURL:  domain + "/cart",
	}
	for _, l := range priced.Lines {
		params.Lines = append(params.Lines, stripe.LineItem{
			Name:       l.Product.Name,
			UnitAmount: l.Product.SalePrice,
			Quantity:   l.Quantity,
		})
	}

	sess, err := s.stripe.CreateCheckoutSession(ctx, params)
	if err != nil {
		GetMonitor().RecordGatewayError(payment.ChannelStripe)
		zap.L().Error("stripe create session failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	return &StripeCheckout{SessionID: sess.ID, URL: sess.URL}, nil
}

// CompleteStripeSession 成功回跳后确认会话已付款并落单
func (s *CheckoutService) CompleteStripeSession(ctx context.Context, sessionID string, userID int64, stripeSessionID string) (*order.Order, error) {
	if stripeSessionID == "" {
		return nil, &ValidationError{Fields: map[string]string{"session_id": "requerido"}}
	}
	if s.stripe == nil {
		return nil, fmt.Errorf("stripe disabled: %w", ErrGateway)
	}
	GetMonitor().RecordCheckoutRequest()

	if o, err := s.existing(ctx, payment.ChannelStripe, stripeSessionID); err != nil || o != nil {
		return o, err
	}

	sess, err := s.stripe.GetSession(ctx, stripeSessionID)
	if err != nil {
		GetMonitor().RecordGatewayError(payment.ChannelStripe)
		GetMonitor().RecordCheckoutFailed(payment.ChannelStripe)
		zap.L().Error("stripe get session failed",
			zap.String("session_id", sessionID),
			zap.String("stripe_session_id", stripeSessionID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	if !sess.Paid() {
		GetMonitor().RecordCheckoutFailed(payment.ChannelStripe)
		return nil, fmt.Errorf("stripe payment_status %q: %w", sess.PaymentStatus, ErrPaymentNotCompleted)
	}

	st := &settlement{
		channel:        payment.ChannelStripe,
		gatewayOrderID: sess.ID,
		transactionID:  sess.PaymentIntent,
		status:         sess.PaymentStatus,
	}
	if sess.AmountTotal > 0 {
		st.amount = decimal.NewNullDecimal(sess.Amount())
	}
	if st.transactionID == "" {
		st.transactionID = sess.ID
	}
	return s.reconcile(ctx, sessionID, &userID, st)
}

// existing 已记录过的网关单号直接返回原订单
func (s *CheckoutService) existing(ctx context.Context, ch payment.Channel, gatewayOrderID string) (*order.Order, error) {
	rec, err := s.payments.GetByGatewayOrder(ctx, ch, gatewayOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	o, err := s.orders.GetWithLines(ctx, rec.OrderID)
	if err != nil {
		return nil, notFound(err, "order", rec.OrderID)
	}
	zap.L().Info("gateway payment already reconciled",
		zap.String("channel", string(ch)),
		zap.String("gateway_order_id", gatewayOrderID),
		zap.Int64("order_id", o.ID))
	return o, nil
}

// reconcile 在一个事务里完成：建订单、写明细、扣库存、写支付记录
func (s *CheckoutService) reconcile(ctx context.Context, sessionID string, userID *int64, st *settlement) (*order.Order, error) {
	channel := payment.ChannelCash
	if st != nil {
		channel = st.channel
	}

	// 先原子地取走购物车，同一会话的并发结算只有一个能拿到明细
	lines, err := s.carts.Take(ctx, sessionID)
	if err != nil {
		GetMonitor().RecordRedisError()
		return nil, err
	}

	var (
		result   *order.Order
		replayed bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 并发重复回调：网关单号已落库则直接返回原订单
		if st != nil {
			var rec payment.Record
			err := tx.Where("channel = ? AND gateway_order_id = ?", st.channel, st.gatewayOrderID).First(&rec).Error
			if err == nil {
				var o order.Order
				if err := tx.Preload("Lines").First(&o, rec.OrderID).Error; err != nil {
					return err
				}
				result, replayed = &o, true
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		if len(lines) == 0 {
			return ErrEmptyCart
		}

		// 2) 锁定商品行，按当前售价生成明细
		ids := make([]int64, 0, len(lines))
		for _, l := range lines {
			ids = append(ids, l.ProductID)
		}
		var products []*product.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", ids).
			Order("id").
			Find(&products).Error; err != nil {
			return err
		}
		byID := make(map[int64]*product.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		orderLines := make([]order.Line, 0, len(lines))
		for _, l := range lines {
			p, ok := byID[l.ProductID]
			if !ok || l.Quantity <= 0 {
				continue
			}
			orderLines = append(orderLines, order.Line{
				ProductID: p.ID,
				Quantity:  l.Quantity,
				UnitPrice: p.SalePrice,
			})
		}
		if len(orderLines) == 0 {
			return ErrEmptyCart
		}

		// 3) 订单与明细一起写入，总额即明细之和
		o := order.Order{
			UserID:   userID,
			Status:   order.StatusPaid,
			PlacedAt: s.now(),
			Total:    order.LinesTotal(orderLines),
		}
		if err := tx.Omit("Lines").Create(&o).Error; err != nil {
			return err
		}
		for i := range orderLines {
			orderLines[i].OrderID = o.ID
		}
		if err := tx.Create(&orderLines).Error; err != nil {
			return err
		}
		o.Lines = orderLines

		// 4) 扣库存，最低到 0
		for _, l := range orderLines {
			p := byID[l.ProductID]
			left := p.Stock - l.Quantity
			if left < 0 {
				left = 0
			}
			if err := tx.Model(&product.Product{}).
				Where("id = ?", p.ID).
				Update("stock", left).Error; err != nil {
				return err
			}
			p.Stock = left
		}

		// 5) 网关付款写支付记录，金额缺失时用订单总额
		if st != nil {
			amount := o.Total
			if st.amount.Valid {
				amount = st.amount.Decimal
			}
			if err := tx.Create(&payment.Record{
				OrderID:        o.ID,
				Channel:        st.channel,
				GatewayOrderID: st.gatewayOrderID,
				TransactionID:  st.transactionID,
				Amount:         amount,
				Status:         st.status,
				PaidAt:         o.PlacedAt,
			}).Error; err != nil {
				return err
			}
		}

		result = &o
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrEmptyCart) {
			GetMonitor().RecordDBError()
			GetMonitor().RecordCheckoutFailed(channel)
			zap.L().Error("order reconcile failed",
				zap.String("session_id", sessionID),
				zap.String("channel", string(channel)),
				zap.Error(err))
		}
		s.restoreCart(ctx, sessionID, lines)
		return nil, err
	}

	// 6) 购物车已在开头取走，提交成功即视为清空
	if replayed {
		return result, nil
	}

	total, _ := result.Total.Float64()
	GetMonitor().RecordCheckoutSuccess(channel, total)
	zap.L().Info("order placed",
		zap.Int64("order_id", result.ID),
		zap.String("channel", string(channel)),
		zap.String("total", result.Total.StringFixed(2)),
		zap.String("session_id", sessionID))

	if err := s.events.Publish(ctx, &OrderPlacedEvent{
		OrderID:  result.ID,
		UserID:   result.UserID,
		Channel:  channel,
		Total:    result.Total,
		PlacedAt: result.PlacedAt,
	}); err != nil {
		GetMonitor().RecordMQError()
		zap.L().Warn("publish order.placed failed", zap.Int64("order_id", result.ID), zap.Error(err))
	}
	return result, nil
}

// restoreCart 事务失败时把取走的购物车放回，会话里已有新内容则不覆盖
func (s *CheckoutService) restoreCart(ctx context.Context, sessionID string, lines []cart.Line) {
	if len(lines) == 0 {
		return
	}
	current, err := s.carts.Load(ctx, sessionID)
	if err == nil && len(current) > 0 {
		zap.L().Warn("cart changed during checkout, keep newer cart", zap.String("session_id", sessionID))
		return
	}
	if err == nil {
		err = s.carts.Save(ctx, sessionID, lines)
	}
	if err != nil {
		GetMonitor().RecordRedisError()
		zap.L().Warn("restore cart failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}
