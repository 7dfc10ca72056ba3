package kit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelService = "service"
	labelMethod  = "method"
	labelPath    = "path"
	labelStatus  = "status"
	labelOp      = "op"
	labelResult  = "result"

	defaultStatusCode = http.StatusOK
)

type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{labelService, labelMethod, labelPath, labelStatus},
		),
		Latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP latency",
			},
			[]string{labelService, labelMethod, labelPath},
		),
	}

	reg.MustRegister(m.Requests, m.Latency)
	return m
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (m *Metrics) Middleware(service string, pathLabel func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{
				ResponseWriter: w,
				status:         defaultStatusCode,
			}

			start := time.Now()
			next.ServeHTTP(sw, r)

			path := pathLabel(r)
			m.Latency.WithLabelValues(service, r.Method, path).
				Observe(time.Since(start).Seconds())

			m.Requests.WithLabelValues(service, r.Method, path, strconv.Itoa(sw.status)).
				Inc()
		})
	}
}

// RoutePattern is the chi route pattern for r, falling back to the raw path
// outside a chi router. Use it as the path label to keep cardinality bounded.
func RoutePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if rp := rc.RoutePattern(); rp != "" {
			return rp
		}
	}
	return r.URL.Path
}

// InventoryMetrics counts store operations by outcome.
type InventoryMetrics struct {
	Operations           *prometheus.CounterVec
	CopiesSold           prometheus.Counter
	FailedPurchaseCopies prometheus.Counter
	CopiesAdded          prometheus.Counter
}

func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	m := &InventoryMetrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookstore_operations_total",
				Help: "Inventory operations by name and result kind",
			},
			[]string{labelOp, labelResult},
		),
		CopiesSold: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookstore_copies_sold_total",
			Help: "Copies sold by successful purchases",
		}),
		FailedPurchaseCopies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookstore_failed_purchase_copies_total",
			Help: "Copies requested by purchases rejected for insufficient stock",
		}),
		CopiesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookstore_copies_added_total",
			Help: "Copies added by restocks",
		}),
	}

	reg.MustRegister(m.Operations, m.CopiesSold, m.FailedPurchaseCopies, m.CopiesAdded)
	return m
}

// Observe records one operation. result is "ok" or an error kind.
func (m *InventoryMetrics) Observe(op, result string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, result).Inc()
}
