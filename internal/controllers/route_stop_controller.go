package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bus_ticketing/internal/middleware"
)

// GetRouteStops returns the persisted stops of a route in travel order.
func (ctl *Controller) GetRouteStops(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	stops, err := ctl.fares.Stops(c.Request.Context(), id)
	if err != nil {
		fareError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stops})
}

// GetBoardingStops lists where a passenger may board: every stop but the last.
func (ctl *Controller) GetBoardingStops(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	names, err := ctl.fares.BoardingStops(c.Request.Context(), id)
	if err != nil {
		fareError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": names})
}

// GetAlightingStops lists the stops after :boardingStop.
func (ctl *Controller) GetAlightingStops(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	names, err := ctl.fares.AlightingStops(c.Request.Context(), id, c.Param("boardingStop"))
	if err != nil {
		fareError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": names})
}

// CalculatePrice prices ?boardingStop= to ?alightingStop= on a route.
func (ctl *Controller) CalculatePrice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var q struct {
		BoardingStop  string `form:"boardingStop" binding:"required"`
		AlightingStop string `form:"alightingStop" binding:"required"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "boardingStop and alightingStop are required"})
		return
	}

	fare, err := ctl.fares.CalculatePrice(c.Request.Context(), id, q.BoardingStop, q.AlightingStop)
	if err != nil {
		fareError(c, id, err)
		return
	}
	c.JSON(http.StatusOK, fare)
}

// ReplaceRouteStops swaps a route's whole stop ledger in one transaction.
func (ctl *Controller) ReplaceRouteStops(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	route, ok := ctl.ownedRoute(c, id)
	if !ok {
		return
	}

	var input struct {
		Stops []stopInput `json:"stops" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	records, err := stopRecords(input.Stops)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := ctl.store.ReplaceStops(c.Request.Context(), route.ID, records)
	// The write may have committed even if re-reading failed.
	ctl.fares.Invalidate(route.ID)
	if err != nil {
		ingestError(c, route.ID, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"route_id": route.ID,
		"stops":    len(rows),
		"user_id":  middleware.UserID(c),
	}).Info("Route stops replaced")
	c.JSON(http.StatusOK, gin.H{"data": rows})
}
