package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bus_ticketing/internal/middleware"
	"bus_ticketing/internal/models"
	"bus_ticketing/internal/store"
)

type onboardInput struct {
	OperatorName string `json:"operator_name" binding:"required"`
	ContactName  string `json:"contact_name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
}

// OnboardOperator lets a field agent sign up an operator: the operator's
// login and its pending operator record are created together.
func (ctl *Controller) OnboardOperator(c *gin.Context) {
	agentID := middleware.UserID(c)

	var input onboardInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	input.Email = normalizeEmail(input.Email)

	hashedPassword, err := HashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash password"})
		return
	}

	var op models.Operator
	err = ctl.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		user := models.User{
			Name:     input.ContactName,
			Email:    input.Email,
			Password: hashedPassword,
			Phone:    input.Phone,
			Role:     models.RoleOperator,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		op = models.Operator{
			UserID:      &user.ID,
			Name:        strings.TrimSpace(input.OperatorName),
			Email:       input.Email,
			Phone:       input.Phone,
			Address:     input.Address,
			Status:      models.OperatorPending,
			OnboardedBy: &agentID,
		}
		return tx.Create(&op).Error
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
			return
		}
		logrus.WithError(err).WithField("agent_id", agentID).Error("OnboardOperator: could not create operator")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not onboard operator"})
		return
	}

	logrus.WithFields(logrus.Fields{
		"agent_id":    agentID,
		"operator_id": op.ID,
	}).Info("Operator onboarded by agent")
	c.JSON(http.StatusCreated, gin.H{"operator": op})
}

// ListOnboardedOperators returns the operators the calling agent onboarded.
func (ctl *Controller) ListOnboardedOperators(c *gin.Context) {
	var operators []models.Operator
	err := ctl.db.WithContext(c.Request.Context()).
		Where("onboarded_by = ?", middleware.UserID(c)).
		Order("id asc").
		Find(&operators).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch operators"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": operators})
}
