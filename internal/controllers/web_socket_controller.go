package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bus_ticketing/internal/models"
)

// HandleBookingWebSocket streams booking events to an operator dashboard.
// Browsers cannot set headers on websocket requests, so the access token
// comes in the token query parameter.
// @Router /ws/bookings [get]
// @Param token query string true "JWT token for authentication"
func (ctl *Controller) HandleBookingWebSocket(c *gin.Context) {
	if ctl.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live updates are disabled"})
		return
	}

	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authentication token"})
		return
	}
	claims, err := ctl.auth.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	if claims.Role != models.RoleOperator {
		c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized role for WebSocket connection"})
		return
	}

	var op models.Operator
	if err := ctl.db.WithContext(c.Request.Context()).Where("user_id = ?", claims.UserID).First(&op).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "No operator profile for this account"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	defer conn.Close()

	logrus.WithField("operator_id", op.ID).Info("Operator dashboard connected")
	ctl.hub.Serve(conn, op.ID)
	logrus.WithField("operator_id", op.ID).Info("Operator dashboard disconnected")
}
