package performance

import "math"

// LabTimings are raw lab measurements in milliseconds (CLS is unitless).
// Zero timings are treated as not measured.
type LabTimings struct {
	FCP, SI, LCP, TBT float64
	CLS               float64
	HasCLS            bool
}

type scoreWeight struct {
	weight     float64
	good, poor float64
}

// Lighthouse v10 mobile weights and thresholds.
var (
	fcpWeight = scoreWeight{10, 1800, 3000}
	siWeight  = scoreWeight{10, 3400, 5800}
	lcpWeight = scoreWeight{25, 2500, 4000}
	tbtWeight = scoreWeight{30, 200, 600}
	clsWeight = scoreWeight{25, 0.1, 0.25}
)

// LabScore computes a 0-100 score, renormalizing weights over the metrics
// that were measured. Each metric scores 1 at or below its good threshold,
// 0 at or above its poor threshold, linearly in between.
func LabScore(t LabTimings) int {
	var total, weights float64
	add := func(value float64, measured bool, w scoreWeight) {
		if !measured {
			return
		}
		total += w.weight * metricScore(value, w)
		weights += w.weight
	}
	add(t.FCP, t.FCP > 0, fcpWeight)
	add(t.SI, t.SI > 0, siWeight)
	add(t.LCP, t.LCP > 0, lcpWeight)
	add(t.TBT, t.LCP > 0 || t.FCP > 0, tbtWeight)
	add(t.CLS, t.HasCLS, clsWeight)
	if weights == 0 {
		return 0
	}
	return int(math.Round(total / weights * 100))
}

func metricScore(value float64, w scoreWeight) float64 {
	switch {
	case value <= w.good:
		return 1
	case value >= w.poor:
		return 0
	}
	return (w.poor - value) / (w.poor - w.good)
}
