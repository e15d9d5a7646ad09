package metrics

import (
	"fmt"

	dto "github.com/prometheus/client_model/go"
)

func series(mfs []*dto.MetricFamily, name string, labels map[string]string) (*dto.Metric, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if hasLabels(m.GetLabel(), labels) {
				return m, nil
			}
		}
		return nil, fmt.Errorf("%s has no series %v", name, labels)
	}
	return nil, fmt.Errorf("%s not gathered", name)
}

func hasLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, p := range pairs {
		if v, ok := want[p.GetName()]; ok {
			if v != p.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(want)
}

func counterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	m, err := series(mfs, name, labels)
	if err != nil {
		return 0, err
	}
	return m.GetCounter().GetValue(), nil
}

func histogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	m, err := series(mfs, name, labels)
	if err != nil {
		return 0, err
	}
	return m.GetHistogram().GetSampleSum(), nil
}

func gaugeValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	m, err := series(mfs, name, labels)
	if err != nil {
		return 0, err
	}
	return m.GetGauge().GetValue(), nil
}
