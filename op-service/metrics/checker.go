package metrics

import (
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"
	gocl "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// MetricFamiliesChecker searches a gathered snapshot of a registry. Lookups fail the test
// when nothing, or more than one thing, matches.
type MetricFamiliesChecker struct {
	families []*gocl.MetricFamily
	t        require.TestingT
}

type MetricFamilyChecker struct {
	fam *gocl.MetricFamily
	t   require.TestingT
}

// NewMetricChecker gathers the registry once; create a new checker to observe later updates.
func NewMetricChecker(t require.TestingT, reg *prometheus.Registry) *MetricFamiliesChecker {
	families, err := reg.Gather()
	require.NoError(t, err, "must gather metrics")
	return &MetricFamiliesChecker{families: families, t: t}
}

// FindByName finds a metric family by its fully qualified name.
func (m *MetricFamiliesChecker) FindByName(name string) *MetricFamilyChecker {
	var found []*gocl.MetricFamily
	for _, f := range m.families {
		if f.GetName() == name {
			found = append(found, f)
		}
	}
	require.Len(m.t, found, 1, "expected exactly one metric family named %q", name)
	return &MetricFamilyChecker{fam: found[0], t: m.t}
}

// Dump prints indented json-formatted metrics info, for easy debugging
func (m *MetricFamiliesChecker) Dump() string {
	outStr, _ := json.MarshalIndent(m.families, "  ", "  ")
	return string(outStr)
}

// FindByLabels finds the metric that carries all the given labels.
func (f *MetricFamilyChecker) FindByLabels(labels map[string]string) *gocl.Metric {
	var found []*gocl.Metric
	for _, m := range f.fam.Metric {
		if matchLabels(m, labels) {
			found = append(found, m)
		}
	}
	require.Len(f.t, found, 1, "expected exactly one metric with labels %v", labels)
	return found[0]
}

func matchLabels(m *gocl.Metric, labels map[string]string) bool {
	have := make(map[string]string, len(m.Label))
	for _, lab := range m.Label {
		have[lab.GetName()] = lab.GetValue()
	}
	for k, v := range labels {
		if got, ok := have[k]; !ok || got != v {
			return false
		}
	}
	return true
}
