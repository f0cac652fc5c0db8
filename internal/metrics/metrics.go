package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ForwardTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attention_forward_total",
		Help: "The total number of forward passes computed",
	})

	ForwardDuration = promauto.NewSummary(prometheus.SummaryOpts{
		Name: "attention_forward_duration_seconds",
		Help: "Duration of forward passes",
	})

	ContextLengthHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "attention_context_length_tokens",
		Help:    "Distribution of sequence lengths processed",
		Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
	})

	BatchSizeHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "attention_batch_size",
		Help:    "Distribution of batch sizes processed",
		Buckets: []float64{1, 2, 4, 8, 16, 32},
	})

	ValidationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "validation_errors_total",
		Help: "Total number of validation errors",
	}, []string{"operation", "error_type"})

	NumericalInstability = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "numerical_instability_total",
		Help: "Total number of NaN/Inf values detected",
	}, []string{"tensor", "type"})

	RowSumDeviation = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "attention_row_sum_deviation",
		Help:    "Absolute deviation of attention weight row sums from 1.0",
		Buckets: []float64{1e-8, 1e-7, 1e-6, 1e-5, 1e-4, 1e-3, 1e-2},
	})

	CausalLeaks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attention_causal_leaks_total",
		Help: "Count of nonzero weights found above the causal diagonal",
	})

	LongbowPutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "longbow_puts_total",
		Help: "Total number of context batches pushed to Longbow",
	})

	LongbowPutErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "longbow_put_errors_total",
		Help: "Total number of failed Longbow pushes",
	})
)

// RecordForward records one completed forward pass over a (batch, seqLen) input
func RecordForward(batch, seqLen int, duration time.Duration) {
	ForwardTotal.Inc()
	ForwardDuration.Observe(duration.Seconds())
	ContextLengthHistogram.Observe(float64(seqLen))
	BatchSizeHistogram.Observe(float64(batch))
}

// RecordValidationError records a rejected input
func RecordValidationError(operation, errorType string) {
	ValidationErrors.WithLabelValues(operation, errorType).Inc()
}

// RecordNumericalInstability records NaN/Inf counts observed in a tensor
func RecordNumericalInstability(tensor string, nans, infs int) {
	if nans > 0 {
		NumericalInstability.WithLabelValues(tensor, "nan").Add(float64(nans))
	}
	if infs > 0 {
		NumericalInstability.WithLabelValues(tensor, "inf").Add(float64(infs))
	}
}

// RecordRowSumDeviation records how far a weight row sum strayed from 1.0
func RecordRowSumDeviation(dev float64) {
	if dev < 0 {
		dev = -dev
	}
	RowSumDeviation.Observe(dev)
}

// RecordCausalLeaks records nonzero weights found above the diagonal
func RecordCausalLeaks(n int) {
	if n > 0 {
		CausalLeaks.Add(float64(n))
	}
}

// RecordLongbowPut records the outcome of a Flight DoPut
func RecordLongbowPut(err error) {
	if err != nil {
		LongbowPutErrors.Inc()
		return
	}
	LongbowPutsTotal.Inc()
}
