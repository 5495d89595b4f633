package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics owns the Prometheus registry and the application counters.
type Metrics struct {
	registry *prometheus.Registry

	mutationsTotal *prometheus.CounterVec
	eventsTotal    *prometheus.CounterVec
	rejectedTotal  *prometheus.CounterVec
}

// New creates a registry with the application counters registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	mutationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskledger_task_mutations_total",
			Help: "Total successful task mutations by operation",
		},
		[]string{"operation"},
	)

	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskledger_activity_events_total",
			Help: "Total recorded activity events by type",
		},
		[]string{"type"},
	)

	rejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskledger_rejected_mutations_total",
			Help: "Total rejected task mutations by reason",
		},
		[]string{"reason"},
	)

	registry.MustRegister(mutationsTotal, eventsTotal, rejectedTotal)

	return &Metrics{
		registry:       registry,
		mutationsTotal: mutationsTotal,
		eventsTotal:    eventsTotal,
		rejectedTotal:  rejectedTotal,
	}
}

// ObserveMutation counts one successful mutation and its event.
func (m *Metrics) ObserveMutation(operation, eventType string) {
	m.mutationsTotal.WithLabelValues(operation).Inc()
	m.eventsTotal.WithLabelValues(eventType).Inc()
}

// ObserveRejection counts one rejected mutation.
func (m *Metrics) ObserveRejection(reason string) {
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

// Snapshot gathers the registry and flattens counter values into
// "name{label="value"}" keys, for the demo dump.
func (m *Metrics) Snapshot() (map[string]float64, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	snapshot := make(map[string]float64)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, pair := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", pair.GetName(), pair.GetValue()))
			}
			sort.Strings(labels)

			key := family.GetName()
			if len(labels) > 0 {
				key = fmt.Sprintf("%s{%s}", key, strings.Join(labels, ","))
			}
			snapshot[key] = metric.GetCounter().GetValue()
		}
	}
	return snapshot, nil
}

// Registry returns the underlying registry for exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
