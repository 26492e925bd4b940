package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	opmetrics "github.com/mantlenetworkio/op-archiver/op-service/metrics"
)

const Namespace = "op_archiver"

type Metrics struct {
	ns       string
	registry *prometheus.Registry
	factory  opmetrics.Factory

	opmetrics.RefMetrics

	blockHeight          prometheus.Gauge
	unverifiedDataHeight prometheus.Gauge
	l1Cursor             *prometheus.GaugeVec
	decodeErrors         *prometheus.CounterVec
	sequenceGaps         prometheus.Counter
	transportErrors      *prometheus.CounterVec
	streamSyncs          *prometheus.CounterVec
	streamSyncDuration   *prometheus.HistogramVec
	l1Requests           *prometheus.CounterVec
	l1RequestDuration    *prometheus.HistogramVec

	info prometheus.GaugeVec
	up   prometheus.Gauge
}

var _ Metricer = (*Metrics)(nil)

func NewMetrics(procName string) *Metrics {
	return newMetrics(procName, opmetrics.NewRegistry())
}

func newMetrics(procName string, registry *prometheus.Registry) *Metrics {
	if procName == "" {
		procName = "default"
	}
	ns := Namespace + "_" + procName

	factory := opmetrics.With(registry)
	return &Metrics{
		ns:       ns,
		registry: registry,
		factory:  factory,

		info: *factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "info",
			Help:      "Pseudo-metric tracking version and config info",
		}, []string{
			"version",
		}),
		up: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "up",
			Help:      "1 if op-archiver has finished starting up",
		}),

		RefMetrics: opmetrics.MakeRefMetrics(ns, factory),

		blockHeight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "block_height",
			Help:      "Number of contiguous L2 blocks archived",
		}),
		unverifiedDataHeight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "unverified_data_block_number",
			Help:      "Highest L2 block number with archived unverified data",
		}),
		l1Cursor: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "l1_cursor",
			Help:      "Next L1 block to scan, per event stream",
		}, []string{"stream"}),
		decodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "decode_errors_total",
			Help:      "Count of logs skipped because they could not be decoded",
		}, []string{"stream"}),
		sequenceGaps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "sequence_gaps_total",
			Help:      "Count of L2 blocks dropped because they did not extend the archived chain",
		}),
		transportErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "transport_errors_total",
			Help:      "Count of stream syncs aborted by an L1 transport error",
		}, []string{"stream"}),
		streamSyncs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "stream_syncs_total",
			Help:      "Count of stream sync procedures",
		}, []string{"stream", "err"}),
		streamSyncDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "stream_sync_duration_seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			Help:      "Duration of a stream sync procedure",
		}, []string{"stream"}),
		l1Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "l1_requests_total",
			Help:      "Count of L1 RPC requests",
		}, []string{"method", "err"}),
		l1RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "l1_request_duration_seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			Help:      "Duration of L1 RPC requests",
		}, []string{"method"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Document() []opmetrics.DocumentedMetric {
	return m.factory.Document()
}

// RecordInfo sets a pseudo-metric that contains versioning and config info.
func (m *Metrics) RecordInfo(version string) {
	m.info.WithLabelValues(version).Set(1)
}

// RecordUp sets the up metric to 1.
func (m *Metrics) RecordUp() {
	m.up.Set(1)
}

func (m *Metrics) RecordBlockHeight(height uint64) {
	m.blockHeight.Set(float64(height))
}

func (m *Metrics) RecordUnverifiedDataHeight(num uint64) {
	m.unverifiedDataHeight.Set(float64(num))
}

func (m *Metrics) RecordL1Cursor(stream string, next uint64) {
	m.l1Cursor.WithLabelValues(stream).Set(float64(next))
}

func (m *Metrics) RecordDecodeError(stream string) {
	m.decodeErrors.WithLabelValues(stream).Inc()
}

func (m *Metrics) RecordSequenceGap() {
	m.sequenceGaps.Inc()
}

func (m *Metrics) RecordTransportError(stream string) {
	m.transportErrors.WithLabelValues(stream).Inc()
}

func (m *Metrics) RecordStreamSync(stream string) (onDone func(err error)) {
	timer := prometheus.NewTimer(m.streamSyncDuration.WithLabelValues(stream))
	return func(err error) {
		timer.ObserveDuration()
		m.streamSyncs.WithLabelValues(stream, errLabel(err)).Inc()
	}
}

func (m *Metrics) RecordL1Request(method string) (onDone func(err error)) {
	timer := prometheus.NewTimer(m.l1RequestDuration.WithLabelValues(method))
	return func(err error) {
		timer.ObserveDuration()
		m.l1Requests.WithLabelValues(method, errLabel(err)).Inc()
	}
}

func errLabel(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}
