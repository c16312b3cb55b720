package dashboard

import (
	"time"

	"organlink/pkg/types"
)

const (
	TrendDays = 7

	trendDateLayout  = "2006-01-02"
	trendLabelLayout = "02 Jan"
)

// TrendStart is UTC midnight of the first day in the trend window ending on now.
func TrendStart(now time.Time) time.Time {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -(TrendDays - 1))
}

// BuildTrend returns one point per day for the trailing week including the
// day of now, oldest first. counts is keyed by UTC date; missing days are 0.
func BuildTrend(now time.Time, counts map[string]int) []types.TrendPoint {
	start := TrendStart(now)

	points := make([]types.TrendPoint, 0, TrendDays)
	for i := range TrendDays {
		day := start.AddDate(0, 0, i)
		key := day.Format(trendDateLayout)
		points = append(points, types.TrendPoint{
			Label: day.Format(trendLabelLayout),
			Date:  key,
			Value: counts[key],
		})
	}

	return points
}
