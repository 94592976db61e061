package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-change-api/internal/dto"
	"github.com/noah-isme/timetable-change-api/internal/models"
	appErrors "github.com/noah-isme/timetable-change-api/pkg/errors"
	"github.com/noah-isme/timetable-change-api/pkg/response"
)

// LeaveRequestHandler exposes the leave request workflow.
type LeaveRequestHandler struct {
	service changeRequestService
}

// NewLeaveRequestHandler constructs the handler.
func NewLeaveRequestHandler(service changeRequestService) *LeaveRequestHandler {
	return &LeaveRequestHandler{service: service}
}

// Create godoc
// @Summary Create a leave request and analyse its impact
// @Tags LeaveRequests
// @Accept json
// @Produce json
// @Param payload body dto.LeaveRequestPayload true "Leave payload"
// @Success 201 {object} response.Envelope
// @Router /leave-requests [post]
func (h *LeaveRequestHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload dto.LeaveRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid leave payload"))
		return
	}
	request, report, err := h.service.CreateLeave(c.Request.Context(), payload, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	resp := dto.CreateLeaveResponse{ID: request.ID, Status: request.Status}
	if report != nil {
		resp.Recommendation = report.Recommendation
	}
	if request.Leave != nil && request.Leave.RemediationPlan != nil {
		resp.RemediationPlan = request.Leave.RemediationPlan
		resp.ImpactAnalysis = request.Leave.RemediationPlan.Summary
	}
	response.Created(c, resp)
}

// Update godoc
// @Summary Move a leave request through its lifecycle
// @Tags LeaveRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.UpdateLeaveRequest true "Target status and notes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leave-requests/{id} [put]
func (h *LeaveRequestHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid leave update payload"))
		return
	}
	resp, err := h.service.UpdateLeave(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Validate godoc
// @Summary Re-run impact analysis for a leave request
// @Tags LeaveRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /leave-requests/{id}/validate [post]
func (h *LeaveRequestHandler) Validate(c *gin.Context) {
	validateStored(c, h.service, models.RequestKindLeave)
}

// Get godoc
// @Summary Get a leave request
// @Tags LeaveRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /leave-requests/{id} [get]
func (h *LeaveRequestHandler) Get(c *gin.Context) {
	getStored(c, h.service, models.RequestKindLeave)
}

// List godoc
// @Summary List leave requests
// @Tags LeaveRequests
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param facultyId query string false "Faculty ID (admins only)"
// @Success 200 {object} response.Envelope
// @Router /leave-requests [get]
func (h *LeaveRequestHandler) List(c *gin.Context) {
	listStored(c, h.service, models.RequestKindLeave)
}

// RequestHandler serves the combined request listing.
type RequestHandler struct {
	service changeRequestService
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(service changeRequestService) *RequestHandler {
	return &RequestHandler{service: service}
}

// ListDetailed godoc
// @Summary List swap and leave requests with display details
// @Tags Requests
// @Produce json
// @Param kind query string false "SWAP or LEAVE"
// @Param status query string false "Comma separated statuses"
// @Param facultyId query string false "Faculty ID (admins only)"
// @Success 200 {object} response.Envelope
// @Router /requests/detailed [get]
func (h *RequestHandler) ListDetailed(c *gin.Context) {
	listStored(c, h.service, "")
}
