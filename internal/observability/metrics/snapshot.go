package metrics

import (
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Snapshot is a compact read of the desk's own counters for the /stats view.
type Snapshot struct {
	Operations map[string]map[string]float64 `json:"operations"`
	Turns      map[string]float64            `json:"turns"`
	Rejected   float64                       `json:"rejected_turns"`
	SeededSlot float64                       `json:"seeded_slots"`
	TurnP95Ms  float64                       `json:"turn_p95_ms"`
}

const (
	operationsFamily = "klinik_scheduling_operations_total"
	seededFamily     = "klinik_scheduling_seeded_slots_total"
	turnsFamily      = "klinik_assistant_turns_total"
	rejectedFamily   = "klinik_assistant_rejected_total"
	turnLatency      = "klinik_assistant_turn_seconds"
)

// Read gathers from g and folds the klinik families into a Snapshot.
func Read(g prometheus.Gatherer) (Snapshot, error) {
	snap := Snapshot{
		Operations: map[string]map[string]float64{},
		Turns:      map[string]float64{},
	}
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	families, err := g.Gather()
	if err != nil {
		return snap, err
	}

	for _, mf := range families {
		switch mf.GetName() {
		case operationsFamily:
			for _, m := range mf.GetMetric() {
				op, outcome := label(m, "operation"), label(m, "outcome")
				if snap.Operations[op] == nil {
					snap.Operations[op] = map[string]float64{}
				}
				snap.Operations[op][outcome] += m.GetCounter().GetValue()
			}
		case turnsFamily:
			for _, m := range mf.GetMetric() {
				snap.Turns[label(m, "outcome")] += m.GetCounter().GetValue()
			}
		case rejectedFamily:
			snap.Rejected = sumCounters(mf)
		case seededFamily:
			snap.SeededSlot = sumCounters(mf)
		case turnLatency:
			snap.TurnP95Ms = quantile(0.95, mf) * 1000
		}
	}
	return snap, nil
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func sumCounters(mf *dto.MetricFamily) float64 {
	var total float64
	for _, m := range mf.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	return total
}

// quantile estimates q from histogram buckets merged across label values,
// returning the upper bound of the bucket that crosses the rank.
func quantile(q float64, mf *dto.MetricFamily) float64 {
	cumulative := map[float64]uint64{}
	var total uint64
	for _, m := range mf.GetMetric() {
		h := m.GetHistogram()
		if h == nil {
			continue
		}
		total += h.GetSampleCount()
		for _, b := range h.GetBucket() {
			cumulative[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}
	if total == 0 {
		return 0
	}

	uppers := make([]float64, 0, len(cumulative))
	for upper := range cumulative {
		uppers = append(uppers, upper)
	}
	sort.Float64s(uppers)

	rank := q * float64(total)
	var last float64
	for _, upper := range uppers {
		if float64(cumulative[upper]) >= rank {
			return upper
		}
		last = upper
	}
	// Rank falls in the implicit +Inf bucket.
	return last
}
