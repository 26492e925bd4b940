package metrics

import (
	"encoding/binary"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
)

type RefMetricer interface {
	RecordRef(layer string, name string, num uint64, h common.Hash)
}

// RefMetrics provides block reference metrics. It's a metrics module that's
// supposed to be embedded into a service metrics type. The service metrics type
// should set the full namespace and create the factory before calling
// MakeRefMetrics.
type RefMetrics struct {
	RefsNumber *prometheus.GaugeVec
	RefsHash   *prometheus.GaugeVec
	mu         *sync.Mutex // by pointer reference, since RefMetrics is copied
}

var _ RefMetricer = (*RefMetrics)(nil)

// MakeRefMetrics returns a new RefMetrics, initializing its prometheus fields
// using factory.
//
// ns is the fully qualified namespace, e.g. "op_archiver_default".
func MakeRefMetrics(ns string, factory Factory) RefMetrics {
	labels := []string{"layer", "type"}
	return RefMetrics{
		RefsNumber: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "refs_number",
			Help:      "Gauge representing the different L1/L2 reference block numbers",
		}, labels),
		RefsHash: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "refs_hash",
			Help:      "Gauge representing the hash of the L1 transaction or block behind a reference, truncated to float values",
		}, labels),
		mu: new(sync.Mutex),
	}
}

// RecordRef records the number of a reference, and the hash behind it if it is known.
func (m *RefMetrics) RecordRef(layer string, name string, num uint64, h common.Hash) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RefsNumber.WithLabelValues(layer, name).Set(float64(num))
	if h != (common.Hash{}) {
		// we map the first 8 bytes to a float64, so we can graph changes of the hash to find divergences visually.
		m.RefsHash.WithLabelValues(layer, name).Set(float64(binary.LittleEndian.Uint64(h[:])))
	}
}

// NoopRefMetrics can be embedded in a noop version of a metric implementation
// to have a noop RefMetricer.
type NoopRefMetrics struct{}

func (*NoopRefMetrics) RecordRef(string, string, uint64, common.Hash) {}
