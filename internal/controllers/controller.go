package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"bus_ticketing/internal/fares"
	"bus_ticketing/internal/middleware"
	"bus_ticketing/internal/models"
	"bus_ticketing/internal/store"
	"bus_ticketing/internal/tickets"
)

// Controller holds what the HTTP handlers share.
type Controller struct {
	db      *gorm.DB
	store   *store.Store
	fares   *fares.Calculator
	auth    *middleware.Auth
	tickets *tickets.Signer
	hub     *BookingHub
}

// New wires a Controller. hub may be nil when no live dashboard is served.
func New(st *store.Store, calc *fares.Calculator, auth *middleware.Auth, signer *tickets.Signer, hub *BookingHub) *Controller {
	return &Controller{
		db:      st.DB(),
		store:   st,
		fares:   calc,
		auth:    auth,
		tickets: signer,
		hub:     hub,
	}
}

// parseID reads a numeric path parameter, answering 400 when it is not one.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// currentOperator loads the operator record of the authenticated user.
func (ctl *Controller) currentOperator(c *gin.Context) (models.Operator, bool) {
	userID := middleware.UserID(c)
	var op models.Operator
	if err := ctl.db.WithContext(c.Request.Context()).Where("user_id = ?", userID).First(&op).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "No operator profile for this account"})
			return models.Operator{}, false
		}
		logrus.WithError(err).WithField("user_id", userID).Error("currentOperator: database error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return models.Operator{}, false
	}
	return op, true
}

// ownedRoute loads a route and checks the caller may manage it. Admins
// manage every route; operators only their own.
func (ctl *Controller) ownedRoute(c *gin.Context, routeID uint) (models.Route, bool) {
	var route models.Route
	if err := ctl.db.WithContext(c.Request.Context()).First(&route, routeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
			return models.Route{}, false
		}
		logrus.WithError(err).WithField("route_id", routeID).Error("ownedRoute: database error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return models.Route{}, false
	}

	if c.GetString(middleware.ContextRole) == models.RoleAdmin {
		return route, true
	}
	op, ok := ctl.currentOperator(c)
	if !ok {
		return models.Route{}, false
	}
	if route.OperatorID != op.ID {
		// Do not reveal other operators' routes.
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		return models.Route{}, false
	}
	return route, true
}
