package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// StockMetrics records reservation lifecycle outcomes. The shortfall counter
// tracks operator-confirmed over-reservations, the standing design risk
// around negative availability.
type StockMetrics struct {
	operations         *prometheus.CounterVec
	shortfallConfirmed prometheus.Counter
	settledLines       *prometheus.CounterVec
}

// NewStockMetrics registers the reservation metrics on the provided registerer.
func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_operations_total",
		Help: "Reservation service operations by kind and outcome.",
	}, []string{"operation", "outcome"})
	shortfall := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_shortfall_confirmed_total",
		Help: "Reservations confirmed past available stock.",
	})
	settled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_settled_lines_total",
		Help: "Lines settled at intervention completion, by role.",
	}, []string{"role"})
	reg.MustRegister(operations, shortfall, settled)
	return &StockMetrics{
		operations:         operations,
		shortfallConfirmed: shortfall,
		settledLines:       settled,
	}
}

// IncOperation counts one reserve/settle/release attempt with its outcome.
func (s *StockMetrics) IncOperation(operation, outcome string) {
	if s == nil || s.operations == nil {
		return
	}
	s.operations.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// IncShortfallConfirmed counts a reservation confirmed past availability.
func (s *StockMetrics) IncShortfallConfirmed() {
	if s == nil || s.shortfallConfirmed == nil {
		return
	}
	s.shortfallConfirmed.Inc()
}

// IncSettledLines counts settled lines by role.
func (s *StockMetrics) IncSettledLines(role string, count int) {
	if s == nil || s.settledLines == nil || count <= 0 {
		return
	}
	s.settledLines.WithLabelValues(normalizeLabel(role)).Add(float64(count))
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}
