package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bus_ticketing/internal/models"
	"bus_ticketing/internal/store"
)

type busInput struct {
	PlateNumber string `json:"plate_number" binding:"required"`
	Capacity    int    `json:"capacity" binding:"required,gt=0,lte=120"`
	Make        string `json:"make"`
}

// CreateBus adds a bus to the caller's fleet.
func (ctl *Controller) CreateBus(c *gin.Context) {
	op, ok := ctl.currentOperator(c)
	if !ok {
		return
	}

	var input busInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bus input: " + err.Error()})
		return
	}

	bus := models.Bus{
		OperatorID:  op.ID,
		PlateNumber: input.PlateNumber,
		Capacity:    input.Capacity,
		Make:        input.Make,
		InService:   true,
	}
	if err := ctl.db.WithContext(c.Request.Context()).Create(&bus).Error; err != nil {
		if store.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "A bus with this plate number already exists"})
			return
		}
		logrus.WithError(err).WithField("operator_id", op.ID).Error("CreateBus: insert failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create bus"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"bus": bus})
}

func (ctl *Controller) GetMyBuses(c *gin.Context) {
	op, ok := ctl.currentOperator(c)
	if !ok {
		return
	}

	var buses []models.Bus
	if err := ctl.db.WithContext(c.Request.Context()).Where("operator_id = ?", op.ID).Order("id asc").Find(&buses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching buses"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": buses})
}

// UpdateBus changes capacity, make or service state of one of the
// caller's buses.
func (ctl *Controller) UpdateBus(c *gin.Context) {
	op, ok := ctl.currentOperator(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	db := ctl.db.WithContext(c.Request.Context())
	var bus models.Bus
	if err := db.Where("id = ? AND operator_id = ?", id, op.ID).First(&bus).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bus not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	var input struct {
		Capacity  *int    `json:"capacity" binding:"omitempty,gt=0,lte=120"`
		Make      *string `json:"make"`
		InService *bool   `json:"in_service"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update: " + err.Error()})
		return
	}

	if input.Capacity != nil {
		bus.Capacity = *input.Capacity
	}
	if input.Make != nil {
		bus.Make = *input.Make
	}
	if input.InService != nil {
		bus.InService = *input.InService
	}
	if err := db.Save(&bus).Error; err != nil {
		logrus.WithError(err).WithField("bus_id", bus.ID).Error("UpdateBus: save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update bus"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bus": bus})
}

// ListBuses is the admin view of every fleet.
func (ctl *Controller) ListBuses(c *gin.Context) {
	var buses []models.Bus
	if err := ctl.db.WithContext(c.Request.Context()).Order("id asc").Find(&buses).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing buses"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": buses})
}
