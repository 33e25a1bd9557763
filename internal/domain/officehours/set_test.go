package officehours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDepartment(t *testing.T) {
	assert.Equal(t, "engineering", NormalizeDepartment("  ENGINEERING "))
	assert.Equal(t, NormalizeDepartment("Équipe"), NormalizeDepartment("ÉQUIPE"))
	assert.Equal(t, "", NormalizeDepartment(" \t"))
}

func TestScopeFor(t *testing.T) {
	assert.True(t, ScopeFor("").IsGlobal())
	assert.True(t, ScopeFor("   ").IsGlobal())
	s := ScopeFor(" Ops ")
	assert.Equal(t, ScopeDepartment, s.Kind)
	assert.Equal(t, "Ops", s.Department)
	assert.Equal(t, "ops", s.Key())
}

func TestParseClockTime(t *testing.T) {
	c, err := ParseClockTime("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9*3600+30*60, c.SecondOfDay())
	assert.Equal(t, "09:30", c.String())

	_, err = ParseClockTime("24:00")
	assert.ErrorIs(t, err, ErrInvalidClockTime)
}

func TestPolicy_Deadlines(t *testing.T) {
	p := Policy{
		StartTime:            ClockTime{Hour: 23, Minute: 30},
		EndTime:              ClockTime{Hour: 0, Minute: 5},
		CheckInGraceMinutes:  45,
		CheckOutGraceMinutes: 10,
	}
	assert.Equal(t, 24*3600+15*60, p.CheckInDeadline())
	assert.Equal(t, -5*60, p.CheckOutThreshold())
}

func TestPolicySet_Resolve(t *testing.T) {
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	set := NewPolicySet([]Policy{
		{ID: "g", Scope: GlobalScope(), UpdatedAt: older},
		{ID: "ops-old", Scope: DepartmentScope("Ops"), UpdatedAt: older},
		{ID: "ops-new", Scope: DepartmentScope("OPS "), UpdatedAt: newer},
	})
	assert.Equal(t, 2, set.Len())

	p, ok := set.Resolve("ops")
	require.True(t, ok)
	assert.Equal(t, "ops-new", p.ID)

	p, ok = set.Resolve("Finance")
	require.True(t, ok)
	assert.Equal(t, "g", p.ID)

	_, ok = NewPolicySet(nil).Resolve("Ops")
	assert.False(t, ok)

	// Zero value resolves nothing.
	_, ok = PolicySet{}.Resolve("Ops")
	assert.False(t, ok)
}
