package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-change-api/internal/dto"
	"github.com/noah-isme/timetable-change-api/internal/middleware"
	"github.com/noah-isme/timetable-change-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// requestQueryFromContext reads ?status=a,b&facultyId=&limit=&offset=.
func requestQueryFromContext(c *gin.Context, kind models.RequestKind) dto.ChangeRequestQuery {
	query := dto.ChangeRequestQuery{
		Kind:      kind,
		FacultyID: strings.TrimSpace(c.Query("facultyId")),
	}
	if raw := c.Query("kind"); raw != "" && kind == "" {
		query.Kind = models.RequestKind(strings.ToUpper(strings.TrimSpace(raw)))
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.RequestStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			statuses = append(statuses, models.RequestStatus(part))
		}
		query.Status = statuses
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		query.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil {
		query.Offset = offset
	}
	return query
}
