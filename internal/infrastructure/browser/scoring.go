package browser

import (
	"fmt"
	"math"
)

// Audit ids, matching the keys a Lighthouse report uses.
const (
	MetricFCP = "first-contentful-paint"
	MetricLCP = "largest-contentful-paint"
	MetricTBT = "total-blocking-time"
	MetricCLS = "cumulative-layout-shift"
	MetricTTI = "interactive"
	MetricSRT = "server-response-time"
)

// Curve is a log-normal scoring curve: a value at P10 scores 0.9 and a value
// at Median scores 0.5.
type Curve struct {
	P10    float64
	Median float64
}

// MetricSpec describes how one audit is scored and displayed.
type MetricSpec struct {
	ID     string
	Title  string
	Unit   string
	Curve  Curve
	Weight float64
}

// serverResponseBudget is the pass threshold for root document latency.
const serverResponseBudget = 600

// Metrics lists the scored audits in display order. Desktop curves; speed
// index is not measured so the remaining weights are renormalized.
var Metrics = []MetricSpec{
	{ID: MetricFCP, Title: "First Contentful Paint", Unit: "millisecond", Curve: Curve{P10: 934, Median: 1600}, Weight: 10},
	{ID: MetricLCP, Title: "Largest Contentful Paint", Unit: "millisecond", Curve: Curve{P10: 1200, Median: 2400}, Weight: 25},
	{ID: MetricTBT, Title: "Total Blocking Time", Unit: "millisecond", Curve: Curve{P10: 150, Median: 350}, Weight: 30},
	{ID: MetricCLS, Title: "Cumulative Layout Shift", Unit: "unitless", Curve: Curve{P10: 0.1, Median: 0.25}, Weight: 25},
	{ID: MetricTTI, Title: "Time to Interactive", Unit: "millisecond", Curve: Curve{P10: 2468, Median: 4500}},
	{ID: MetricSRT, Title: "Initial server response time was short", Unit: "millisecond"},
}

const inverseErfcOneFifth = 0.9061938024368232

// LogNormalScore scores value against c, clamped so that the P10 and median
// control points stay on the right side of 0.9 and 0.5.
func LogNormalScore(c Curve, value float64) float64 {
	if c.Median <= 0 || c.P10 <= 0 || c.P10 >= c.Median {
		return 0
	}
	if value <= 0 {
		return 1
	}

	xLogRatio := math.Log(math.Max(math.SmallestNonzeroFloat64, value/c.Median))
	p10LogRatio := -math.Log(math.Max(math.SmallestNonzeroFloat64, c.P10/c.Median))
	standardized := xLogRatio * inverseErfcOneFifth / p10LogRatio
	complementary := (1 - math.Erf(standardized)) / 2

	var score float64
	switch {
	case value <= c.P10:
		score = math.Max(0.9, math.Min(1, complementary))
	case value <= c.Median:
		score = math.Max(0.5, math.Min(0.8999999999999999, complementary))
	default:
		score = math.Max(0, math.Min(0.49999999999999994, complementary))
	}
	return score
}

// Score returns the 0..1 score of a metric, rounded to two decimals.
func (m MetricSpec) Score(value float64) float64 {
	if m.ID == MetricSRT {
		if value <= serverResponseBudget {
			return 1
		}
		return 0
	}
	return round2(LogNormalScore(m.Curve, value))
}

// Display formats value the way audit reports show it.
func (m MetricSpec) Display(value float64) string {
	switch {
	case m.Unit == "unitless":
		return fmt.Sprintf("%.3f", value)
	case m.ID == MetricTBT || m.ID == MetricSRT:
		return fmt.Sprintf("%d ms", int64(math.Round(value/10)*10))
	default:
		return fmt.Sprintf("%.1f s", value/1000)
	}
}

// PerformanceScore is the weighted mean of the metric scores, rounded to two
// decimals. Metrics missing from scores are left out of the weighting.
func PerformanceScore(scores map[string]float64) float64 {
	var total, weights float64
	for _, m := range Metrics {
		if m.Weight == 0 {
			continue
		}
		s, ok := scores[m.ID]
		if !ok {
			continue
		}
		total += s * m.Weight
		weights += m.Weight
	}
	if weights == 0 {
		return 0
	}
	return round2(total / weights)
}

// Value returns the raw measurement for a metric id.
func (r *RawAudit) Value(id string) (float64, bool) {
	switch id {
	case MetricFCP:
		return r.FirstContentfulPaint, r.FirstContentfulPaint > 0
	case MetricLCP:
		return r.LargestContentfulPaint, r.LargestContentfulPaint > 0
	case MetricTBT:
		return r.TotalBlockingTime, r.FirstContentfulPaint > 0
	case MetricCLS:
		return r.CumulativeLayoutShift, r.FirstContentfulPaint > 0
	case MetricTTI:
		return r.TimeToInteractive, r.TimeToInteractive > 0
	case MetricSRT:
		return r.ServerResponseTime, r.ServerResponseTime > 0
	}
	return 0, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
