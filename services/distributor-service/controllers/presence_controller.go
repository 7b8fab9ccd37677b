package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yashrajoria/distributor-backend/services/common/errors"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/middleware"
	"github.com/yashrajoria/distributor-backend/services/distributor-service/models"
)

type PresenceController struct {
	presence PresenceTracker
}

func NewPresenceController(presence PresenceTracker) *PresenceController {
	return &PresenceController{presence: presence}
}

// Statuses returns the presence map of every known user
// GET /user-status
func (pc *PresenceController) Statuses(c *gin.Context) {
	statuses, err := pc.presence.Statuses(c.Request.Context())
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	apperrors.OK(c, http.StatusOK, statuses)
}

// Touch records an action for the caller
// POST /user-status
func (pc *PresenceController) Touch(c *gin.Context) {
	var req models.TouchRequest
	if !bindJSON(c, &req) {
		return
	}

	username := c.GetString(middleware.UserContextKey)
	if err := pc.presence.Touch(c.Request.Context(), username, req.Action); err != nil {
		apperrors.Respond(c, err)
		return
	}
	apperrors.OK(c, http.StatusOK, gin.H{"username": username, "action": req.Action})
}
