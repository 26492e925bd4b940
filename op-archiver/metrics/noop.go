package metrics

import (
	opmetrics "github.com/mantlenetworkio/op-archiver/op-service/metrics"
)

type NoopMetrics struct {
	opmetrics.NoopRefMetrics
}

func (n *NoopMetrics) RecordInfo(version string) {}

func (n *NoopMetrics) RecordUp() {}

func (n *NoopMetrics) RecordBlockHeight(uint64) {}

func (n *NoopMetrics) RecordUnverifiedDataHeight(uint64) {}

func (n *NoopMetrics) RecordL1Cursor(string, uint64) {}

func (n *NoopMetrics) RecordDecodeError(string) {}

func (n *NoopMetrics) RecordSequenceGap() {}

func (n *NoopMetrics) RecordTransportError(string) {}

func (n *NoopMetrics) RecordStreamSync(string) (onDone func(err error)) {
	return func(err error) {}
}

func (n *NoopMetrics) RecordL1Request(string) (onDone func(err error)) {
	return func(err error) {}
}

var NoopMetricsImpl Metricer = new(NoopMetrics)
