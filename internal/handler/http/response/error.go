package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance/internal/domain/officehours"
	"github.com/cmlabs-hris/hris-attendance/internal/domain/user"
	"github.com/cmlabs-hris/hris-attendance/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-attendance/internal/pkg/validator"
	"github.com/cmlabs-hris/hris-attendance/internal/service/evidence"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrEmployeeClaimMissing):
		Forbidden(w, err.Error())
	case errors.Is(err, user.ErrInsufficientPermissions):
		Forbidden(w, err.Error())

	// Attendance domain errors
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		Conflict(w, err.Error())
	case errors.Is(err, attendance.ErrNoActiveSession):
		Conflict(w, err.Error())
	case errors.Is(err, attendance.ErrInvalidTimestamp):
		UnprocessableEntity(w, "INVALID_TIMESTAMP", err.Error())
	case errors.Is(err, attendance.ErrEvidenceUnavailable):
		UnprocessableEntity(w, "EVIDENCE_UNAVAILABLE", err.Error())
	case errors.Is(err, evidence.ErrInvalidPhoto):
		UnprocessableEntity(w, "INVALID_PHOTO", err.Error())
	case errors.Is(err, evidence.ErrInvalidWorkReport):
		UnprocessableEntity(w, "INVALID_WORK_REPORT", err.Error())
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")

	// Office hours domain errors
	case errors.Is(err, officehours.ErrPolicyNotConfigured):
		NotFound(w, err.Error())
	case errors.Is(err, officehours.ErrPolicyNotFound):
		NotFound(w, "Office hours policy not found")

	// Employee domain errors
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")

	// Geocoding
	case errors.Is(err, evidence.ErrNoAddress):
		NotFound(w, err.Error())
	case errors.Is(err, evidence.ErrGeocoderDisabled):
		ServiceUnavailable(w, err.Error())

	// Storage errors
	case errors.Is(err, storage.ErrFileNotFound):
		NotFound(w, "File not found")
	case errors.Is(err, storage.ErrInvalidPath):
		BadRequest(w, "Invalid file path", nil)

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
