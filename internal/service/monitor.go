package service

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/example/embutidos/internal/datamodels/payment"
)

var (
	checkoutTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "embutidos",
		Name:      "checkout_total",
		Help:      "Checkout attempts by payment channel and result.",
	}, []string{"channel", "result"})

	checkoutAmount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "embutidos",
		Name:      "checkout_amount_total",
		Help:      "Sum of reconciled order totals by payment channel.",
	}, []string{"channel"})

	infraErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "embutidos",
		Name:      "infra_errors_total",
		Help:      "Errors talking to backing services.",
	}, []string{"component"})

	notifierTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "embutidos",
		Name:      "notifier_messages_total",
		Help:      "order.placed messages handled by the notifier.",
	}, []string{"result"})
)

// Monitor 监控服务，进程内计数供 /api/monitor 展示，同时写入 prometheus
type Monitor struct {
	mu sync.RWMutex

	// 错误统计
	RedisErrors   int64
	MQErrors      int64
	DBErrors      int64
	GatewayErrors int64

	// 结算统计
	CheckoutRequests int64
	CheckoutSuccess  int64
	CheckoutFailed   int64
	ByChannel        map[payment.Channel]int64

	// 通知统计
	NotifierProcessed int64
	NotifierFailed    int64

	LastDBError      time.Time
	LastGatewayError time.Time
	LastCheckoutTime time.Time
}

var globalMonitor = &Monitor{ByChannel: map[payment.Channel]int64{}}

// GetMonitor 获取全局监控实例
func GetMonitor() *Monitor {
	return globalMonitor
}

func (m *Monitor) RecordRedisError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RedisErrors++
	infraErrors.WithLabelValues("redis").Inc()
}

func (m *Monitor) RecordMQError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MQErrors++
	infraErrors.WithLabelValues("mq").Inc()
}

func (m *Monitor) RecordDBError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DBErrors++
	m.LastDBError = time.Now()
	infraErrors.WithLabelValues("db").Inc()
}

func (m *Monitor) RecordGatewayError(ch payment.Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GatewayErrors++
	m.LastGatewayError = time.Now()
	infraErrors.WithLabelValues(string(ch)).Inc()
}

// RecordCheckoutRequest 记录一次结算尝试
func (m *Monitor) RecordCheckoutRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CheckoutRequests++
	m.LastCheckoutTime = time.Now()
}

// RecordCheckoutSuccess 记录成功落单
func (m *Monitor) RecordCheckoutSuccess(ch payment.Channel, total float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CheckoutSuccess++
	m.ByChannel[ch]++
	checkoutTotal.WithLabelValues(string(ch), "ok").Inc()
	checkoutAmount.WithLabelValues(string(ch)).Add(total)
}

// RecordCheckoutFailed 记录结算失败
func (m *Monitor) RecordCheckoutFailed(ch payment.Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CheckoutFailed++
	checkoutTotal.WithLabelValues(string(ch), "error").Inc()
}

func (m *Monitor) RecordNotifierProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifierProcessed++
	notifierTotal.WithLabelValues("ok").Inc()
}

func (m *Monitor) RecordNotifierFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifierFailed++
	notifierTotal.WithLabelValues("error").Inc()
}

// GetStats 获取统计信息
func (m *Monitor) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	successRate := float64(0)
	if m.CheckoutRequests > 0 {
		successRate = float64(m.CheckoutSuccess) / float64(m.CheckoutRequests) * 100
	}
	channels := make(map[string]int64, len(m.ByChannel))
	for ch, n := range m.ByChannel {
		channels[ch.Label()] = n
	}

	return map[string]interface{}{
		"errors": map[string]interface{}{
			"redis":   m.RedisErrors,
			"mq":      m.MQErrors,
			"db":      m.DBErrors,
			"gateway": m.GatewayErrors,
		},
		"checkout": map[string]interface{}{
			"requests":     m.CheckoutRequests,
			"success":      m.CheckoutSuccess,
			"failed":       m.CheckoutFailed,
			"success_rate": successRate,
			"by_channel":   channels,
		},
		"notifier": map[string]interface{}{
			"processed": m.NotifierProcessed,
			"failed":    m.NotifierFailed,
		},
		"last_events": map[string]interface{}{
			"db_error":      m.LastDBError,
			"gateway_error": m.LastGatewayError,
			"last_checkout": m.LastCheckoutTime,
		},
	}
}

// Reset 重置进程内统计，prometheus 计数不受影响
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RedisErrors = 0
	m.MQErrors = 0
	m.DBErrors = 0
	m.GatewayErrors = 0
	m.CheckoutRequests = 0
	m.CheckoutSuccess = 0
	m.CheckoutFailed = 0
	m.ByChannel = map[payment.Channel]int64{}
	m.NotifierProcessed = 0
	m.NotifierFailed = 0
}
