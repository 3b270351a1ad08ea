package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odyssey-erp/backoffice/internal/events"
)

// Metrics collects Prometheus metrics for the API process.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	eventsTotal     *prometheus.CounterVec
	paymentsAmount  *prometheus.CounterVec
	deliveredValue  prometheus.Counter
}

// NewMetrics initialises the registry with HTTP and document metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	evts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_domain_events_total",
		Help: "Domain events published by name.",
	}, []string{"event"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_payments_amount_total",
		Help: "Sum of recorded payment amounts per ledger.",
	}, []string{"ledger"})
	delivered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odyssey_purchase_orders_delivered_value_total",
		Help: "Total value of purchase orders that reached DELIVERED.",
	})
	registry.MustRegister(requests, duration, evts, payments, delivered)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		eventsTotal:     evts,
		paymentsAmount:  payments,
		deliveredValue:  delivered,
	}
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Subscribe attaches the document counters to the bus.
func (m *Metrics) Subscribe(bus *events.Bus) {
	if m == nil || bus == nil {
		return
	}
	for _, name := range []string{
		events.NameQuotationConverted,
		events.NamePurchaseOrderDelivered,
		events.NameBillPaid,
		events.NamePaymentRecorded,
	} {
		bus.Subscribe(name, m.record)
	}
}

func (m *Metrics) record(_ context.Context, evt events.Event) error {
	m.eventsTotal.WithLabelValues(evt.EventName()).Inc()
	switch e := evt.(type) {
	case events.PaymentRecorded:
		m.paymentsAmount.WithLabelValues(string(e.Ledger)).Add(e.Amount.InexactFloat64())
	case events.PurchaseOrderDelivered:
		m.deliveredValue.Add(e.TotalValue.InexactFloat64())
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
