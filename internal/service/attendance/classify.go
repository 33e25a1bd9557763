package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance/internal/domain/officehours"
)

const secondsPerDay = 24 * 60 * 60

// Classify derives the status of record under policy. ok reports whether
// a policy applies; without one no check-in is ever late.
func Classify(record attendance.Record, policy officehours.Policy, ok bool, loc *time.Location) attendance.Status {
	late := ClassifyCheckIn(record, policy, ok, loc) == attendance.StatusLate

	switch {
	case record.IsActive():
		return attendance.StatusActive
	case late:
		return attendance.StatusCompletedLate
	default:
		return attendance.StatusCompletedOnTime
	}
}

// ClassifyCheckIn returns StatusOnTime when the check-in time of day is at
// or before the policy deadline, StatusLate otherwise. Comparison is at
// second precision.
func ClassifyCheckIn(record attendance.Record, policy officehours.Policy, ok bool, loc *time.Location) attendance.Status {
	if !ok {
		return attendance.StatusOnTime
	}
	if secondOfDay(record.CheckInTime, loc) > policy.CheckInDeadline() {
		return attendance.StatusLate
	}
	return attendance.StatusOnTime
}

// ClassifyCheckOut applies the inclusive rule to the check-out against
// end minus grace. A check-out on a later civil date than the record is
// never early.
func ClassifyCheckOut(record attendance.Record, policy officehours.Policy, ok bool, loc *time.Location) attendance.CheckOutStatus {
	if record.CheckOutTime == nil {
		return attendance.CheckOutPending
	}
	if !ok {
		return attendance.CheckOutOnTime
	}

	days := int(attendance.CivilDate(*record.CheckOutTime, loc).Sub(record.Date) / (24 * time.Hour))
	second := days*secondsPerDay + secondOfDay(*record.CheckOutTime, loc)
	if second < policy.CheckOutThreshold() {
		return attendance.CheckOutEarly
	}
	return attendance.CheckOutOnTime
}

// WorkDuration returns check-out minus check-in. ok is false while the
// session is open; a check-out before the check-in is an error, never a
// negative duration.
func WorkDuration(record attendance.Record) (time.Duration, bool, error) {
	if record.CheckOutTime == nil {
		return 0, false, nil
	}
	d := record.CheckOutTime.Sub(record.CheckInTime)
	if d < 0 {
		return 0, false, attendance.ErrNegativeDuration
	}
	return d, true, nil
}

func secondOfDay(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*3600 + local.Minute()*60 + local.Second()
}
