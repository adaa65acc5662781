package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messengerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_operations_total",
			Help: "Total number of messenger store operations",
		},
		[]string{"operation", "status"},
	)

	messengerOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "messenger_operation_duration_seconds",
			Help:    "Duration of messenger store operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	messengerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_errors_total",
			Help: "Total number of messenger operation errors",
		},
		[]string{"operation", "error_code"},
	)
)

// RecordOperation фиксирует метрики одной операции над хранилищем сообщений
func RecordOperation(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	messengerOperationsTotal.WithLabelValues(operation, status).Inc()
	messengerOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordOperationError фиксирует ошибку операции с кодом из errs
func RecordOperationError(operation, errorCode string) {
	messengerErrors.WithLabelValues(operation, errorCode).Inc()
}
