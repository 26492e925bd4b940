package metrics

import (
	opmetrics "github.com/mantlenetworkio/op-archiver/op-service/metrics"
)

type Metricer interface {
	RecordInfo(version string)
	RecordUp()

	RecordBlockHeight(height uint64)
	RecordUnverifiedDataHeight(num uint64)
	RecordL1Cursor(stream string, next uint64)

	RecordDecodeError(stream string)
	RecordSequenceGap()
	RecordTransportError(stream string)

	RecordStreamSync(stream string) (onDone func(err error))
	RecordL1Request(method string) (onDone func(err error))

	opmetrics.RefMetricer
}
