package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/hris-attendance/internal/domain/officehours"
	"github.com/cmlabs-hris/hris-attendance/internal/handler/http/response"
)

type OfficeHoursHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Effective(w http.ResponseWriter, r *http.Request)
	Upsert(w http.ResponseWriter, r *http.Request)
	Patch(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type officeHoursHandlerImpl struct {
	officeHoursService officehours.Service
}

func NewOfficeHoursHandler(officeHoursService officehours.Service) OfficeHoursHandler {
	return &officeHoursHandlerImpl{
		officeHoursService: officeHoursService,
	}
}

// List implements OfficeHoursHandler.
func (h *officeHoursHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	policies, err := h.officeHoursService.List(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, policies)
}

// Effective implements OfficeHoursHandler. A blank department resolves
// the global policy.
func (h *officeHoursHandlerImpl) Effective(w http.ResponseWriter, r *http.Request) {
	policy, err := h.officeHoursService.Effective(r.Context(), r.URL.Query().Get("department"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, policy)
}

// Upsert implements OfficeHoursHandler.
func (h *officeHoursHandlerImpl) Upsert(w http.ResponseWriter, r *http.Request) {
	var req officehours.UpsertPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	policy, err := h.officeHoursService.Upsert(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Office hours policy saved", policy)
}

// Patch implements OfficeHoursHandler.
func (h *officeHoursHandlerImpl) Patch(w http.ResponseWriter, r *http.Request) {
	var req officehours.PatchPolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	policy, err := h.officeHoursService.Patch(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Office hours policy updated", policy)
}

// Delete implements OfficeHoursHandler. Without ?department= it removes
// the global policy.
func (h *officeHoursHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.officeHoursService.Remove(r.Context(), r.URL.Query().Get("department")); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Office hours policy removed", nil)
}
