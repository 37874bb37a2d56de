package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const metricsNamespace = "buildgov"

// Metrics holds the engine's Prometheus collectors. Each Metrics owns its
// registry, so several engines can live in one process.
type Metrics struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	budget     prometheus.Gauge
	payments   prometheus.Counter
	paid       prometheus.Counter
}

// NewMetrics creates and registers the engine collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Processed invocations by action and output case.",
		}, []string{"action", "outcome"}),
		budget: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "budget_remaining",
			Help:      "Budget left in custody after the last committed operation.",
		}),
		payments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "payments_total",
			Help:      "Committed transfers out of budget custody.",
		}),
		paid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "paid_amount_total",
			Help:      "Sum of committed transfer amounts.",
		}),
	}
	m.registry.MustRegister(m.operations, m.budget, m.payments, m.paid)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observe(action, outcome string) {
	m.operations.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) setBudget(budget uint64) {
	m.budget.Set(float64(budget))
}

func (m *Metrics) transfer(amount int64) {
	m.payments.Inc()
	m.paid.Add(float64(amount))
}

// WriteTextfile writes the current metrics in the text exposition format,
// for pickup by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// OperationCount is one series of buildgov_operations_total.
type OperationCount struct {
	Action  string
	Outcome string
	Count   uint64
}

// Operations gathers buildgov_operations_total, sorted by action then
// outcome.
func (m *Metrics) Operations() ([]OperationCount, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	var out []OperationCount
	for _, mf := range families {
		if mf.GetName() != metricsNamespace+"_operations_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			out = append(out, OperationCount{
				Action:  labelValue(metric, "action"),
				Outcome: labelValue(metric, "outcome"),
				Count:   uint64(metric.GetCounter().GetValue()),
			})
		}
	}
	slices.SortFunc(out, func(a, b OperationCount) int {
		if c := strings.Compare(a.Action, b.Action); c != 0 {
			return c
		}
		return strings.Compare(a.Outcome, b.Outcome)
	})
	return out, nil
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
