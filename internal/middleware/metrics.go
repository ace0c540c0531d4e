package middleware

import (
	"strconv"
	"time"

	"github.com/kataras/iris/v12"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "embutidos",
		Name:      "http_requests_total",
		Help:      "HTTP requests by server, method, route and status.",
	}, []string{"server", "method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "embutidos",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"server", "method", "route"})
)

// Metrics 记录请求数与耗时，route 使用路由模板避免标签爆炸
func Metrics(server string) iris.Handler {
	return func(ctx iris.Context) {
		start := time.Now()
		ctx.Next()

		route := "unmatched"
		if r := ctx.GetCurrentRoute(); r != nil {
			route = r.Path()
		}
		method := ctx.Method()
		httpRequests.WithLabelValues(server, method, route, strconv.Itoa(ctx.GetStatusCode())).Inc()
		httpDuration.WithLabelValues(server, method, route).Observe(time.Since(start).Seconds())
	}
}

// MetricsHandler 暴露 /metrics
func MetricsHandler() iris.Handler {
	return iris.FromStd(promhttp.Handler())
}
