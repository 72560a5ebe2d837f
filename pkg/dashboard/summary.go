// Package dashboard derives the portal's summary view from the polled
// metrics report. All aggregation is client-side, purely a function of
// the latest fetch result.
package dashboard

import (
	"time"

	"github.com/verdantops/esgportal/pkg/models"
)

// The three business rules embedded in the presentation layer. The
// comparisons are strict: a value exactly at the threshold is fine.
const (
	pueCriticalAbove         = 2.0
	wueCriticalAbove         = 2.0
	utilizationCriticalBelow = 30.0
)

// Summary holds everything the dashboard renders from one report.
type Summary struct {
	CarbonTotal       float64
	WaterTotal        float64
	PUE               *models.Metric
	Utilization       *models.Metric
	CarbonIntensity   *models.Metric
	LatestObservation *time.Time
	Critical          bool
}

// BuildSummary aggregates one metrics report.
func BuildSummary(report *models.MetricsReport) Summary {
	var s Summary

	if report == nil {
		return s
	}

	for _, m := range report.Carbon {
		s.CarbonTotal += m.Value
	}

	for _, m := range report.Water {
		s.WaterTotal += m.Value
	}

	s.PUE = findMetric(report.Efficiency, "pue")
	s.Utilization = findMetric(report.Hardware, "utilization_pct")
	s.CarbonIntensity = findMetric(report.Carbon, "carbon_intensity")
	s.LatestObservation = latestObservation(report)

	if s.PUE != nil && IsCritical(*s.PUE) {
		s.Critical = true
	}

	if s.Utilization != nil && IsCritical(*s.Utilization) {
		s.Critical = true
	}

	if wue := findMetric(report.Water, "wue"); wue != nil && IsCritical(*wue) {
		s.Critical = true
	}

	return s
}

// IsCritical applies the per-metric critical-condition predicate:
// PUE > 2.0, WUE > 2.0, utilization below 30 percent.
func IsCritical(m models.Metric) bool {
	switch m.MetricType {
	case "pue":
		return m.Value > pueCriticalAbove
	case "wue":
		return m.Value > wueCriticalAbove
	case "utilization_pct":
		return m.Value < utilizationCriticalBelow
	}

	return false
}

// findMetric returns the first metric with the given type, or nil.
func findMetric(metrics []models.Metric, metricType string) *models.Metric {
	for i := range metrics {
		if metrics[i].MetricType == metricType {
			return &metrics[i]
		}
	}

	return nil
}

// latestObservation returns the maximum timestamp_utc across every
// category, or nil when no metric carries one.
func latestObservation(report *models.MetricsReport) *time.Time {
	var latest *time.Time

	for _, group := range [][]models.Metric{
		report.Carbon, report.Water, report.Efficiency, report.Hardware, report.DataQuality,
	} {
		for _, m := range group {
			if m.TimestampUTC == "" {
				continue
			}

			ts, err := time.Parse(time.RFC3339, m.TimestampUTC)
			if err != nil {
				continue
			}

			if latest == nil || ts.After(*latest) {
				t := ts
				latest = &t
			}
		}
	}

	return latest
}
