package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-change-api/internal/dto"
	"github.com/noah-isme/timetable-change-api/internal/models"
	"github.com/noah-isme/timetable-change-api/pkg/response"
)

type timetableService interface {
	FacultyTimetable(ctx context.Context, facultyID, year string) (*dto.TimetableView, error)
	SectionTimetable(ctx context.Context, batch, section, year string) (*dto.TimetableView, error)
	SessionSuggestions(ctx context.Context, sessionID, facultyID string, limit int) ([]models.SlotSuggestion, error)
}

// TimetableHandler serves timetable reads.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(service timetableService) *TimetableHandler {
	return &TimetableHandler{service: service}
}

// Faculty godoc
// @Summary Weekly timetable of a faculty member
// @Tags Timetable
// @Produce json
// @Param facultyId path string true "Faculty ID"
// @Param academicYear query string false "Academic year"
// @Success 200 {object} response.Envelope
// @Router /timetable/faculty/{facultyId} [get]
func (h *TimetableHandler) Faculty(c *gin.Context) {
	view, err := h.service.FacultyTimetable(c.Request.Context(), c.Param("facultyId"), c.Query("academicYear"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Section godoc
// @Summary Weekly timetable of a batch section
// @Tags Timetable
// @Produce json
// @Param batch path string true "Batch"
// @Param section path string true "Section"
// @Param academicYear query string false "Academic year"
// @Success 200 {object} response.Envelope
// @Router /timetable/section/{batch}/{section} [get]
func (h *TimetableHandler) Section(c *gin.Context) {
	view, err := h.service.SectionTimetable(c.Request.Context(), c.Param("batch"), c.Param("section"), c.Query("academicYear"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Suggestions godoc
// @Summary Ranked alternative slots for a session
// @Tags Timetable
// @Produce json
// @Param id path string true "Session ID"
// @Param facultyId query string false "Faculty who would teach the session"
// @Param limit query int false "Maximum suggestions"
// @Success 200 {object} response.Envelope
// @Router /timetable/sessions/{id}/suggestions [get]
func (h *TimetableHandler) Suggestions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	sessionID := c.Param("id")
	suggestions, err := h.service.SessionSuggestions(c.Request.Context(), sessionID, c.Query("facultyId"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.SuggestionsResponse{SessionID: sessionID, Suggestions: suggestions}, nil)
}
