package attendance

import (
	"math"
	"time"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance/internal/domain/officehours"
)

// PolicyLookup returns the policy that applies to a record's employee.
type PolicyLookup func(record attendance.Record) (officehours.Policy, bool)

// Summarize aggregates the records of a single civil date. Records
// dated otherwise are ignored. Records whose duration cannot be computed
// are left out of the average.
func Summarize(date time.Time, records []attendance.Record, totalEmployees int, policyOf PolicyLookup, loc *time.Location) attendance.DailySummaryResponse {
	summary := attendance.DailySummaryResponse{
		Date:           date.Format(attendance.DateLayout),
		TotalEmployees: totalEmployees,
	}

	present := make(map[string]struct{})
	var worked time.Duration
	var completed int

	for _, rec := range records {
		if !rec.Date.Equal(date) {
			continue
		}
		present[rec.EmployeeID] = struct{}{}

		policy, ok := policyOf(rec)
		if ClassifyCheckIn(rec, policy, ok, loc) == attendance.StatusLate {
			summary.LateArrivals++
		}
		if ClassifyCheckOut(rec, policy, ok, loc) == attendance.CheckOutEarly {
			summary.EarlyDepartures++
		}

		if rec.IsActive() {
			summary.StillActive++
			continue
		}
		if d, ok, err := WorkDuration(rec); err == nil && ok {
			worked += d
			completed++
		}
	}

	summary.PresentToday = len(present)
	summary.AbsentToday = max(totalEmployees-summary.PresentToday, 0)
	if completed > 0 {
		summary.AverageWorkHours = roundHours(worked / time.Duration(completed))
	}
	return summary
}

// roundHours converts d to hours with two decimals.
func roundHours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}
