package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	marketRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	marketRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "market_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	marketTasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_tasks_total",
		Help: "Total queue tasks processed by type and outcome.",
	}, []string{"type", "status"})

	marketBotDispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_bot_dispatches_total",
		Help: "Total bot-seller dispatch attempts by result.",
	}, []string{"result"})

	marketWebhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "market_webhook_deliveries_total",
		Help: "Total webhook deliveries by success status.",
	}, []string{"status"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		marketRequestsTotal.WithLabelValues(method, path, status).Inc()
		marketRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordTask records one processed queue task.
func RecordTask(taskType string, success bool) {
	status := "ok"
	if !success {
		status = "error"
	}
	marketTasksTotal.WithLabelValues(taskType, status).Inc()
}

// RecordBotDispatch records a bot-seller dispatch attempt.
func RecordBotDispatch(offered bool) {
	if offered {
		marketBotDispatchesTotal.WithLabelValues("offer").Inc()
	} else {
		marketBotDispatchesTotal.WithLabelValues("no_offer").Inc()
	}
}

// RecordWebhookDelivery records a webhook delivery attempt.
func RecordWebhookDelivery(success bool) {
	if success {
		marketWebhookDeliveriesTotal.WithLabelValues("success").Inc()
	} else {
		marketWebhookDeliveriesTotal.WithLabelValues("failure").Inc()
	}
}
