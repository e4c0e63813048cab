package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "floodgen_build_info",
			Help: "Build information of floodgen",
		},
		[]string{"version", "commit", "date"},
	)

	DatagramsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floodgen_datagrams_sent_total",
		Help: "Total number of datagrams sent",
	})

	BytesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floodgen_bytes_sent_total",
		Help: "Total number of payload bytes sent",
	})

	BurstsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floodgen_bursts_total",
		Help: "Total number of completed bursts",
	})

	SendErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "floodgen_send_errors_total",
		Help: "Total number of failed datagram sends",
	})

	BurstDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "floodgen_burst_duration_seconds",
		Help:    "Duration of the send phase of each burst",
		Buckets: prometheus.ExponentialBuckets(0.00001, 2.5, 12), // ~10µs .. ~0.6s
	})
)
