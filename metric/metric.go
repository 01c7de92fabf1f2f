// Package metric exports decoder and publisher counters to Prometheus.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rtl5800"

type Metrics struct {
	Pulses        prometheus.Counter
	Preambles     prometheus.Counter
	FramingErrors prometheus.Counter

	// Frames by outcome: accepted, rejected or malformed.
	Frames *prometheus.CounterVec
	// Messages by outcome: emitted, deduplicated, filtered or dropped.
	Messages *prometheus.CounterVec

	QueueDepth    prometheus.Gauge
	Published     prometheus.Counter
	PublishErrors prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Pulses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "pulses_total",
			Help:      "Total number of pulses timed",
		}),
		Preambles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "preambles_total",
			Help:      "Total number of preambles matched",
		}),
		FramingErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "framing_errors_total",
			Help:      "Total number of frames abandoned on an unclassifiable pulse",
		}),
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decoder",
			Name:      "frames_total",
			Help:      "Total number of assembled frames by validation outcome",
		}, []string{"status"}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messages",
			Name:      "total",
			Help:      "Total number of decoded messages by outcome",
		}, []string{"status"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "queue_depth",
			Help:      "Messages waiting to be published",
		}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "published_total",
			Help:      "Total number of messages published",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "errors_total",
			Help:      "Total number of failed publishes",
		}),
	}
}

// Register adds every collector to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.Pulses, m.Preambles, m.FramingErrors,
		m.Frames, m.Messages,
		m.QueueDepth, m.Published, m.PublishErrors,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
