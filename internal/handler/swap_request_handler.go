package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-change-api/internal/dto"
	"github.com/noah-isme/timetable-change-api/internal/models"
	"github.com/noah-isme/timetable-change-api/internal/service"
	appErrors "github.com/noah-isme/timetable-change-api/pkg/errors"
	"github.com/noah-isme/timetable-change-api/pkg/response"
)

type changeRequestService interface {
	ValidateSwapPayload(ctx context.Context, payload dto.SwapRequestPayload, actor *models.JWTClaims) (*models.ValidationReport, error)
	CreateSwap(ctx context.Context, payload dto.SwapRequestPayload, actor *models.JWTClaims) (*models.ChangeRequest, error)
	CreateLeave(ctx context.Context, payload dto.LeaveRequestPayload, actor *models.JWTClaims) (*models.ChangeRequest, *models.ValidationReport, error)
	Validate(ctx context.Context, kind models.RequestKind, id string, actor *models.JWTClaims) (*models.ChangeRequest, *models.ValidationReport, error)
	Submit(ctx context.Context, kind models.RequestKind, id string, actor *models.JWTClaims) (*models.ChangeRequest, error)
	Approve(ctx context.Context, kind models.RequestKind, id, notes string, actor *models.JWTClaims) (*service.ApplyResult, error)
	Reject(ctx context.Context, kind models.RequestKind, id, notes string, actor *models.JWTClaims) (*models.ChangeRequest, error)
	UpdateLeave(ctx context.Context, id string, req dto.UpdateLeaveRequest, actor *models.JWTClaims) (*dto.UpdateLeaveResponse, error)
	List(ctx context.Context, query dto.ChangeRequestQuery, actor *models.JWTClaims) ([]models.RequestView, error)
	Get(ctx context.Context, kind models.RequestKind, id string, actor *models.JWTClaims) (*models.RequestView, error)
}

// SwapRequestHandler exposes the swap request workflow.
type SwapRequestHandler struct {
	service changeRequestService
}

// NewSwapRequestHandler constructs the handler.
func NewSwapRequestHandler(service changeRequestService) *SwapRequestHandler {
	return &SwapRequestHandler{service: service}
}

// ValidatePayload godoc
// @Summary Validate a proposed swap without storing it
// @Tags SwapRequests
// @Accept json
// @Produce json
// @Param payload body dto.SwapRequestPayload true "Swap payload"
// @Success 200 {object} response.Envelope
// @Router /swap-requests/validate [post]
func (h *SwapRequestHandler) ValidatePayload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload dto.SwapRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid swap payload"))
		return
	}
	report, err := h.service.ValidateSwapPayload(c.Request.Context(), payload, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Create godoc
// @Summary Create a swap request
// @Tags SwapRequests
// @Accept json
// @Produce json
// @Param payload body dto.SwapRequestPayload true "Swap payload"
// @Success 201 {object} response.Envelope
// @Router /swap-requests [post]
func (h *SwapRequestHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload dto.SwapRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid swap payload"))
		return
	}
	request, err := h.service.CreateSwap(c.Request.Context(), payload, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.CreateSwapResponse{ID: request.ID, Status: request.Status})
}

// Validate godoc
// @Summary Re-validate a stored swap request
// @Tags SwapRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /swap-requests/{id}/validate [post]
func (h *SwapRequestHandler) Validate(c *gin.Context) {
	validateStored(c, h.service, models.RequestKindSwap)
}

// Submit godoc
// @Summary Submit a validated swap request for approval
// @Tags SwapRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /swap-requests/{id}/submit [post]
func (h *SwapRequestHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Submit(c.Request.Context(), models.RequestKindSwap, c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.CreateSwapResponse{ID: request.ID, Status: request.Status}, nil)
}

// Approve godoc
// @Summary Approve and apply a swap request
// @Tags SwapRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ReviewRequest false "Admin notes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /swap-requests/{id}/approve [post]
func (h *SwapRequestHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	review, ok := bindReview(c)
	if !ok {
		return
	}
	result, err := h.service.Approve(c.Request.Context(), models.RequestKindSwap, c.Param("id"), review.AdminNotes, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	resp := dto.ApproveSwapResponse{ID: result.Request.ID, Status: result.Request.Status}
	if s := result.UpdatedSession; s != nil {
		resp.UpdatedSession = dto.SessionPlacement{ID: s.ID, Day: s.DayOfWeek, TimeSlot: s.TimeSlot, FacultyID: s.FacultyID, RoomID: s.RoomID}
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Reject godoc
// @Summary Reject a swap request
// @Tags SwapRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ReviewRequest true "Admin notes"
// @Success 200 {object} response.Envelope
// @Router /swap-requests/{id}/reject [post]
func (h *SwapRequestHandler) Reject(c *gin.Context) {
	rejectStored(c, h.service, models.RequestKindSwap)
}

// Get godoc
// @Summary Get a swap request
// @Tags SwapRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /swap-requests/{id} [get]
func (h *SwapRequestHandler) Get(c *gin.Context) {
	getStored(c, h.service, models.RequestKindSwap)
}

// ListDetailed godoc
// @Summary List swap requests with faculty names and session details
// @Tags SwapRequests
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param facultyId query string false "Faculty ID (admins only)"
// @Success 200 {object} response.Envelope
// @Router /swap-requests/detailed [get]
func (h *SwapRequestHandler) ListDetailed(c *gin.Context) {
	listStored(c, h.service, models.RequestKindSwap)
}

func bindReview(c *gin.Context) (dto.ReviewRequest, bool) {
	var review dto.ReviewRequest
	if c.Request.ContentLength == 0 {
		return review, true
	}
	if err := c.ShouldBindJSON(&review); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid review payload"))
		return review, false
	}
	return review, true
}

func validateStored(c *gin.Context, svc changeRequestService, kind models.RequestKind) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, report, err := svc.Validate(c.Request.Context(), kind, c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ValidateRequestResponse{ID: request.ID, Status: request.Status, Report: report}, nil)
}

func rejectStored(c *gin.Context, svc changeRequestService, kind models.RequestKind) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	review, ok := bindReview(c)
	if !ok {
		return
	}
	request, err := svc.Reject(c.Request.Context(), kind, c.Param("id"), review.AdminNotes, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.CreateSwapResponse{ID: request.ID, Status: request.Status}, nil)
}

func getStored(c *gin.Context, svc changeRequestService, kind models.RequestKind) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	view, err := svc.Get(c.Request.Context(), kind, c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

func listStored(c *gin.Context, svc changeRequestService, kind models.RequestKind) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := requestQueryFromContext(c, kind)
	views, err := svc.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	page := &models.Pagination{Limit: query.Limit, Offset: query.Offset, Count: len(views)}
	response.JSON(c, http.StatusOK, views, page, map[string]interface{}{"count": len(views)})
}
