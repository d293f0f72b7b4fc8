// Package metrics holds the Prometheus collectors for training and for the
// compression codec. Collectors are registered on the registerer passed to
// New so tests and the serve command can each use their own registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "baler"

// #region training
// Training tracks the epoch loop.
type Training struct {
	EpochsTotal  prometheus.Counter
	TrainLoss    prometheus.Gauge
	ValLoss      prometheus.Gauge
	LearningRate prometheus.Gauge
	RateDecays   prometheus.Counter
	EarlyStops   prometheus.Counter
	EpochSeconds prometheus.Histogram
}

// #endregion training

// #region codec
// Codec tracks compress and decompress calls. Labels: op (compress, decompress).
type Codec struct {
	RowsTotal     *prometheus.CounterVec
	RequestsTotal *prometheus.CounterVec // op, status (ok, error)
	Seconds       *prometheus.HistogramVec
}

// #endregion codec

// #region set
// Set bundles both groups.
type Set struct {
	Training *Training
	Codec    *Codec
}

// New registers every collector on reg. Passing nil uses a private registry
// that is never exposed.
func New(reg prometheus.Registerer) *Set {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	t := &Training{
		EpochsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "training", Name: "epochs_total",
			Help: "Completed training epochs",
		}),
		TrainLoss: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "training", Name: "train_loss",
			Help: "Mean training loss of the last epoch",
		}),
		ValLoss: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "training", Name: "val_loss",
			Help: "Mean validation loss of the last epoch",
		}),
		LearningRate: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "training", Name: "learning_rate",
			Help: "Learning rate in effect",
		}),
		RateDecays: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "training", Name: "lr_decays_total",
			Help: "Learning rate reductions on plateau",
		}),
		EarlyStops: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "training", Name: "early_stops_total",
			Help: "Runs ended by early stopping",
		}),
		EpochSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "training", Name: "epoch_duration_seconds",
			Help:    "Wall time per epoch",
			Buckets: []float64{0.001, 0.01, 0.1, 1, 10, 60},
		}),
	}

	c := &Codec{
		RowsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "codec", Name: "rows_total",
			Help: "Rows encoded or decoded",
		}, []string{"op"}),
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "codec", Name: "requests_total",
			Help: "Codec operations by outcome",
		}, []string{"op", "status"}),
		Seconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "codec", Name: "duration_seconds",
			Help:    "Codec operation duration",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		}, []string{"op"}),
	}
	return &Set{Training: t, Codec: c}
}

// #endregion set

// #region recorders
// ObserveEpoch records one finished epoch.
func (t *Training) ObserveEpoch(trainLoss, valLoss, lr, seconds float64) {
	t.EpochsTotal.Inc()
	t.TrainLoss.Set(trainLoss)
	t.ValLoss.Set(valLoss)
	t.LearningRate.Set(lr)
	t.EpochSeconds.Observe(seconds)
}

// Record counts one codec operation over rows.
func (c *Codec) Record(op string, rows int, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.RequestsTotal.WithLabelValues(op, status).Inc()
	if err == nil {
		c.RowsTotal.WithLabelValues(op).Add(float64(rows))
	}
	c.Seconds.WithLabelValues(op).Observe(seconds)
}

// #endregion recorders
