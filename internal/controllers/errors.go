package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bus_ticketing/internal/fares"
	"bus_ticketing/internal/store"
	"bus_ticketing/internal/telemetry"
)

// fareError answers a failed read against a route's stop ledger.
// A ledger that breaks its invariants on the read path is a data
// integrity fault, not a client error.
func fareError(c *gin.Context, routeID uint, err error) {
	var seqErr *fares.SequenceError
	switch {
	case errors.Is(err, fares.ErrRouteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	case errors.Is(err, fares.ErrUnknownStop):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, fares.ErrInvalidSegment):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &seqErr):
		logrus.WithError(err).WithFields(logrus.Fields{
			"route_id":  routeID,
			"violation": seqErr.Violation,
			"stop":      seqErr.Stop,
		}).Error("Stop ledger integrity failure on read")
		telemetry.RecordIntegrityFailure(c.Request.Context(), "read", string(seqErr.Violation))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Route stop data is inconsistent"})
	default:
		logrus.WithError(err).WithField("route_id", routeID).Error("Fare lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// ingestError answers a rejected ledger write.
func ingestError(c *gin.Context, routeID uint, err error) {
	var seqErr *fares.SequenceError
	switch {
	case errors.Is(err, fares.ErrRouteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	case errors.As(err, &seqErr):
		logrus.WithFields(logrus.Fields{
			"route_id":  routeID,
			"violation": seqErr.Violation,
		}).Warn("Rejected stop ledger")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     err.Error(),
			"violation": seqErr.Violation,
			"index":     seqErr.Index,
		})
	case store.IsUniqueViolation(err):
		c.JSON(http.StatusConflict, gin.H{"error": "Stop names and orders must be unique within a route"})
	default:
		logrus.WithError(err).WithField("route_id", routeID).Error("Stop ledger write failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save stops"})
	}
}
