package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bus_ticketing/internal/middleware"
	"bus_ticketing/internal/models"
)

// GetMyOperator returns the caller's operator profile.
func (ctl *Controller) GetMyOperator(c *gin.Context) {
	op, ok := ctl.currentOperator(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"operator": op})
}

// ListOperators lists operators, optionally filtered by ?status=.
func (ctl *Controller) ListOperators(c *gin.Context) {
	q := ctl.db.WithContext(c.Request.Context()).Order("id asc")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var operators []models.Operator
	if err := q.Find(&operators).Error; err != nil {
		logrus.WithError(err).Error("ListOperators: database error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch operators"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": operators})
}

// UpdateOperatorStatus approves or suspends an operator. Suspension
// deactivates its routes so they leave the public listing.
func (ctl *Controller) UpdateOperatorStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var input struct {
		Status string `json:"status" binding:"required,oneof=pending active suspended"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var op models.Operator
	err := ctl.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&op, id).Error; err != nil {
			return err
		}
		op.Status = input.Status
		if err := tx.Model(&op).Update("status", input.Status).Error; err != nil {
			return err
		}
		if input.Status == models.OperatorSuspended {
			return tx.Model(&models.Route{}).Where("operator_id = ?", op.ID).Update("active", false).Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Operator not found"})
			return
		}
		logrus.WithError(err).WithField("operator_id", id).Error("UpdateOperatorStatus failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update operator"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"operator_id": op.ID,
		"status":      op.Status,
		"admin_id":    middleware.UserID(c),
	}).Info("Operator status changed")
	c.JSON(http.StatusOK, gin.H{"operator": op})
}
