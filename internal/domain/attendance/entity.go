package attendance

import (
	"time"
)

const DateLayout = "2006-01-02"

// Coordinates is a single device location reading.
type Coordinates struct {
	Latitude  float64
	Longitude float64
	Accuracy  *float64 // meters, when the device reports it
}

// Location is a reading plus its address label. AddressResolved is false
// when the label is the coordinate fallback.
type Location struct {
	Coordinates
	Address         string
	AddressResolved bool
}

// Evidence is the location and photo captured with one check action.
type Evidence struct {
	Location Location
	PhotoRef string
}

// Record is one employee's attendance for one civil date. Status is not
// stored; see Classify.
type Record struct {
	ID               string
	EmployeeID       string
	Date             time.Time // civil date at 00:00 UTC, fixed at check-in
	CheckInTime      time.Time
	CheckOutTime     *time.Time
	CheckInEvidence  Evidence
	CheckOutEvidence *Evidence
	WorkSummary      string // set at check-out
	WorkReportRef    string // optional document stored at check-out
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsActive reports whether the session is still open.
func (r Record) IsActive() bool {
	return r.CheckOutTime == nil
}

// CivilDate returns the calendar day of t in loc, as midnight UTC so
// dates compare and store without a zone.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Status is the derived state of a record. Open records are Active;
// OnTime and Late qualify the check-in alone.
type Status string

const (
	StatusActive          Status = "active"
	StatusOnTime          Status = "on_time"
	StatusLate            Status = "late"
	StatusCompletedOnTime Status = "completed_on_time"
	StatusCompletedLate   Status = "completed_late"
)

// CheckOutStatus is informational; it does not feed Status.
type CheckOutStatus string

const (
	CheckOutPending CheckOutStatus = "pending"
	CheckOutOnTime  CheckOutStatus = "on_time"
	CheckOutEarly   CheckOutStatus = "early"
)
