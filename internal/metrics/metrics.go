package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const prefix = "assetadmin"

var (
	// ResolutionsTotal считает исходы разрешения набора полей
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_resolutions_total",
			Help: "Field-set resolutions by outcome (restricted, unrestricted, fail_open)",
		},
		[]string{"outcome"},
	)

	// SubmissionsTotal считает отправки форм
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_submissions_total",
			Help: "Form submissions by result (ok, invalid, failed)",
		},
		[]string{"result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Исходы разрешения
const (
	OutcomeRestricted   = "restricted"
	OutcomeUnrestricted = "unrestricted"
	OutcomeFailOpen     = "fail_open"
)

func ObserveResolution(outcome string) { ResolutionsTotal.WithLabelValues(outcome).Inc() }

func ObserveSubmission(result string) { SubmissionsTotal.WithLabelValues(result).Inc() }

// Middleware пишет счётчик и длительность по шаблону маршрута (не по сырому пути)
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler: /metrics
func Handler() http.Handler { return promhttp.Handler() }
