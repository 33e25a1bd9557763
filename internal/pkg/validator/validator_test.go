package validator

import (
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31"}
	invalid := []string{"2023-13-01", "2023-01-32", "2023/01/01", "01-01-2023", ""}
	for _, s := range valid {
		_, ok := IsValidDate(s)
		if !ok {
			t.Errorf("IsValidDate(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		_, ok := IsValidDate(s)
		if ok {
			t.Errorf("IsValidDate(%q) = true, want false", s)
		}
	}
}

func TestIsValidClockTime(t *testing.T) {
	valid := []string{"09:30", "00:00", "23:59"}
	invalid := []string{"24:00", "9:3", "09:60", "0930", "", "09:30:00"}
	for _, s := range valid {
		if !IsValidClockTime(s) {
			t.Errorf("IsValidClockTime(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if IsValidClockTime(s) {
			t.Errorf("IsValidClockTime(%q) = true, want false", s)
		}
	}
}

func TestIsInRange(t *testing.T) {
	cases := []struct {
		v, min, max int
		want        bool
	}{
		{0, 0, 180, true},
		{180, 0, 180, true},
		{-1, 0, 180, false},
		{181, 0, 180, false},
	}
	for _, c := range cases {
		if got := IsInRange(c.v, c.min, c.max); got != c.want {
			t.Errorf("IsInRange(%d, %d, %d) = %v, want %v", c.v, c.min, c.max, got, c.want)
		}
	}
}

func TestCoordinateBounds(t *testing.T) {
	if !IsValidLatitude(-90) || !IsValidLatitude(90) || IsValidLatitude(90.0001) {
		t.Errorf("IsValidLatitude bounds are wrong")
	}
	if !IsValidLongitude(-180) || !IsValidLongitude(180) || IsValidLongitude(-180.5) {
		t.Errorf("IsValidLongitude bounds are wrong")
	}
}

func TestIsInSlice(t *testing.T) {
	slice := []string{"a", "b", "c"}
	if !IsInSlice("a", slice) {
		t.Errorf("IsInSlice('a') = false, want true")
	}
	if IsInSlice("d", slice) {
		t.Errorf("IsInSlice('d') = true, want false")
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "start_time", Message: "invalid"},
		{Field: "latitude", Message: "required"},
	}
	got := errs.Error()
	want := "start_time: invalid; latitude: required"
	if got != want {
		t.Errorf("ValidationErrors.Error() = %q, want %q", got, want)
	}
}

func TestValidationErrors_ToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "start_time", Message: "invalid"},
		{Field: "latitude", Message: "required"},
	}
	got := errs.ToMap()
	want := map[string]string{"start_time": "invalid", "latitude": "required"}
	if len(got) != len(want) {
		t.Errorf("ValidationErrors.ToMap() length = %d, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ValidationErrors.ToMap()[%q] = %q, want %q", k, got[k], v)
		}
	}
}
