package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance/internal/domain/user"
	"github.com/cmlabs-hris/hris-attendance/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-attendance/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-attendance/internal/pkg/validator"
	"github.com/cmlabs-hris/hris-attendance/internal/service/evidence"
	"github.com/go-chi/chi/v5"
)

// maxFormBytes bounds the multipart body kept in memory.
const maxFormBytes = 10 << 20

type AttendanceHandler interface {
	CheckIn(w http.ResponseWriter, r *http.Request)
	CheckOut(w http.ResponseWriter, r *http.Request)
	GetMyAttendance(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Status(w http.ResponseWriter, r *http.Request)
	Summary(w http.ResponseWriter, r *http.Request)
	ReverseGeocode(w http.ResponseWriter, r *http.Request)
	Photo(w http.ResponseWriter, r *http.Request)
}

// EvidenceRecorder builds capturers from request payloads.
type EvidenceRecorder interface {
	Capturer(employeeID string, action evidence.Action, payload attendance.LocationPayload, photo *evidence.Photo) attendance.Capturer
	WorkReport(employeeID string, doc *evidence.Document) attendance.Attachment
	Lookup(ctx context.Context, lat, lon float64) (evidence.Place, error)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
	recorder          EvidenceRecorder
	photos            storage.FileStorage
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService, recorder EvidenceRecorder, photos storage.FileStorage) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		recorder:          recorder,
		photos:            photos,
	}
}

// CheckIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckIn(w http.ResponseWriter, r *http.Request) {
	input, cleanup, ok := h.readAction(w, r, evidence.ActionCheckIn)
	if !ok {
		return
	}
	defer cleanup()

	result, err := h.attendanceService.CheckIn(r.Context(), attendance.CheckInRequest{
		EmployeeID: input.employeeID,
		Evidence:   input.capturer,
	})
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Check in successful", result)
}

// CheckOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckOut(w http.ResponseWriter, r *http.Request) {
	input, cleanup, ok := h.readAction(w, r, evidence.ActionCheckOut)
	if !ok {
		return
	}
	defer cleanup()

	req := attendance.CheckOutRequest{
		EmployeeID:  input.employeeID,
		WorkSummary: input.workSummary,
		Evidence:    input.capturer,
	}
	if input.workReport != nil {
		req.WorkReport = h.recorder.WorkReport(input.employeeID, input.workReport)
	}

	result, err := h.attendanceService.CheckOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Check out successful", result)
}

// actionData is the JSON body, or the multipart 'data' field, of a check
// action.
type actionData struct {
	attendance.LocationPayload
	WorkSummary string `json:"work_summary,omitempty"`
}

type actionInput struct {
	employeeID  string
	capturer    attendance.Capturer
	workSummary string
	workReport  *evidence.Document
}

// readAction parses a check-in/out body. Multipart bodies carry the JSON
// payload in the 'data' field and the picture in 'photo'; check-outs may
// add 'work_summary' and a 'work_report' file. A JSON body is accepted
// for devices reporting a capture error. It writes the error response
// itself and reports ok=false when the request cannot proceed.
func (h *attendanceHandlerImpl) readAction(w http.ResponseWriter, r *http.Request, action evidence.Action) (actionInput, func(), bool) {
	noop := func() {}

	employeeID, err := middleware.EmployeeID(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return actionInput{}, noop, false
	}

	var data actionData
	var photo *evidence.Photo
	var report *evidence.Document
	cleanup := noop

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormBytes); err != nil {
			slog.Error("Failed to parse multipart form", "error", err)
			response.BadRequest(w, "Failed to parse form data", nil)
			return actionInput{}, noop, false
		}
		cleanup = func() { _ = r.MultipartForm.RemoveAll() }

		dataJSON := r.FormValue("data")
		if dataJSON == "" {
			cleanup()
			response.BadRequest(w, "Field 'data' is required", nil)
			return actionInput{}, noop, false
		}
		if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
			cleanup()
			response.BadRequest(w, "Invalid request format", nil)
			return actionInput{}, noop, false
		}

		file, fileHeader, err := r.FormFile("photo")
		switch {
		case err == nil:
			photo = &evidence.Photo{File: file, Filename: fileHeader.Filename}
			prev := cleanup
			cleanup = func() {
				file.Close()
				prev()
			}
		case errors.Is(err, http.ErrMissingFile):
			// Capture reports the missing photo as unavailable evidence.
		default:
			cleanup()
			slog.Error("Failed to get file from form", "error", err)
			response.BadRequest(w, "Invalid file upload", nil)
			return actionInput{}, noop, false
		}

		if action == evidence.ActionCheckOut {
			if data.WorkSummary == "" {
				data.WorkSummary = r.FormValue("work_summary")
			}

			file, fileHeader, err := r.FormFile("work_report")
			switch {
			case err == nil:
				report = &evidence.Document{File: file, Filename: fileHeader.Filename}
				prev := cleanup
				cleanup = func() {
					file.Close()
					prev()
				}
			case errors.Is(err, http.ErrMissingFile):
			default:
				cleanup()
				slog.Error("Failed to get work report from form", "error", err)
				response.BadRequest(w, "Invalid file upload", nil)
				return actionInput{}, noop, false
			}
		}

	default:
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			response.BadRequest(w, "Invalid request format", nil)
			return actionInput{}, noop, false
		}
	}

	if err := data.LocationPayload.Validate(); err != nil {
		cleanup()
		response.HandleError(w, err)
		return actionInput{}, noop, false
	}

	return actionInput{
		employeeID:  employeeID,
		capturer:    h.recorder.Capturer(employeeID, action, data.LocationPayload, photo),
		workSummary: data.WorkSummary,
		workReport:  report,
	}, cleanup, true
}

// GetMyAttendance implements AttendanceHandler.
func (h *attendanceHandlerImpl) GetMyAttendance(w http.ResponseWriter, r *http.Request) {
	employeeID, err := middleware.EmployeeID(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	results, err := h.attendanceService.GetMyAttendance(r.Context(), employeeID, parseListFilter(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, results, listMeta(results))
}

// List implements AttendanceHandler.
func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := parseListFilter(r)

	if employeeID := r.URL.Query().Get("employee_id"); employeeID != "" {
		filter.EmployeeID = &employeeID
	}
	if department := r.URL.Query().Get("department"); department != "" {
		filter.Department = &department
	}

	results, err := h.attendanceService.ListAttendance(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, results, listMeta(results))
}

func listMeta(results attendance.ListAttendanceResponse) *response.Meta {
	return &response.Meta{
		Page:       results.Page,
		Limit:      results.Limit,
		TotalItems: results.TotalCount,
		TotalPages: results.TotalPages,
	}
}

// parseListFilter reads the date range, pagination and sorting shared by
// both list endpoints. Malformed numbers are passed through as invalid so
// that ListFilter.Validate reports them.
func parseListFilter(r *http.Request) attendance.ListFilter {
	q := r.URL.Query()
	filter := attendance.ListFilter{}

	if startDate := q.Get("start_date"); startDate != "" {
		filter.StartDate = &startDate
	}
	if endDate := q.Get("end_date"); endDate != "" {
		filter.EndDate = &endDate
	}

	if p := q.Get("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil {
			filter.Page = pageNum
		} else {
			filter.Page = -1
		}
	}
	if l := q.Get("limit"); l != "" {
		if limitNum, err := strconv.Atoi(l); err == nil {
			filter.Limit = limitNum
		} else {
			filter.Limit = -1
		}
	}

	filter.SortOrder = q.Get("sort_order")
	return filter
}

// Status implements AttendanceHandler.
func (h *attendanceHandlerImpl) Status(w http.ResponseWriter, r *http.Request) {
	employeeID, err := middleware.EmployeeID(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.attendanceService.GetSessionStatus(r.Context(), employeeID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Summary implements AttendanceHandler.
func (h *attendanceHandlerImpl) Summary(w http.ResponseWriter, r *http.Request) {
	req := attendance.DailySummaryRequest{Date: r.URL.Query().Get("date")}
	if department := r.URL.Query().Get("department"); department != "" {
		req.Department = &department
	}

	result, err := h.attendanceService.GetDailySummary(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

type reverseGeocodeRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type reverseGeocodeResponse struct {
	Address   string `json:"address"`
	PlaceName string `json:"place_name,omitempty"`
}

// ReverseGeocode implements AttendanceHandler.
func (h *attendanceHandlerImpl) ReverseGeocode(w http.ResponseWriter, r *http.Request) {
	var req reverseGeocodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	payload := attendance.LocationPayload{Latitude: req.Latitude, Longitude: req.Longitude}
	if err := payload.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	place, err := h.recorder.Lookup(r.Context(), *req.Latitude, *req.Longitude)
	if err != nil {
		if !errors.Is(err, evidence.ErrNoAddress) && !errors.Is(err, evidence.ErrGeocoderDisabled) {
			slog.Warn("Reverse geocoding failed", "error", err)
			response.ServiceUnavailable(w, "Geocoding service unavailable")
			return
		}
		response.HandleError(w, err)
		return
	}

	response.Success(w, reverseGeocodeResponse{Address: place.Address, PlaceName: place.PlaceName})
}

// Photo implements AttendanceHandler. Photos and work reports live under
// attendance/{employee_id}/...; callers without attendance.view_all may
// only read their own.
func (h *attendanceHandlerImpl) Photo(w http.ResponseWriter, r *http.Request) {
	photoPath := chi.URLParam(r, "*")

	parts := strings.Split(photoPath, "/")
	if len(parts) < 3 || parts[0] != "attendance" || validator.IsEmpty(parts[1]) {
		response.NotFound(w, "File not found")
		return
	}

	role, _ := middleware.Role(r.Context())
	if !user.HasPermission(role, user.PermissionAttendanceViewAll) {
		employeeID, err := middleware.EmployeeID(r.Context())
		if err != nil {
			response.HandleError(w, err)
			return
		}
		if parts[1] != employeeID {
			response.HandleError(w, user.ErrInsufficientPermissions)
			return
		}
	}

	file, err := h.photos.Download(r.Context(), photoPath)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	defer file.Close()

	contentType := mime.TypeByExtension(path.Ext(photoPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, file); err != nil {
		slog.Warn("Failed to stream attendance photo", "path", photoPath, "error", err)
	}
}
