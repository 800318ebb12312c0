package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bus_ticketing/internal/fares"
	"bus_ticketing/internal/models"
)

// RouteResponse is models.Route with its geometry rendered as GeoJSON.
type RouteResponse struct {
	ID               uint               `json:"ID"`
	CreatedAt        time.Time          `json:"CreatedAt"`
	UpdatedAt        time.Time          `json:"UpdatedAt"`
	Origin           string             `json:"origin"`
	Destination      string             `json:"destination"`
	Via              string             `json:"via,omitempty"`
	Distance         float64            `json:"distance"`
	Price            int64              `json:"price"`
	DepartureTime    string             `json:"departure_time"`
	Active           bool               `json:"active"`
	OperatorID       uint               `json:"operator_id"`
	BusID            uint               `json:"bus_id"`
	Bus              *models.Bus        `json:"bus,omitempty"`
	Geometry         json.RawMessage    `json:"geometry,omitempty"`
	GeometryLengthKm float64            `json:"geometry_length_km,omitempty"`
	Stops            []models.RouteStop `json:"stops,omitempty"`
}

func toRouteResponse(route models.Route) RouteResponse {
	resp := RouteResponse{
		ID:            route.ID,
		CreatedAt:     route.CreatedAt,
		UpdatedAt:     route.UpdatedAt,
		Origin:        route.Origin,
		Destination:   route.Destination,
		Via:           route.Via,
		Distance:      route.Distance,
		Price:         route.Price,
		DepartureTime: route.DepartureTime,
		Active:        route.Active,
		OperatorID:    route.OperatorID,
		BusID:         route.BusID,
		Stops:         route.Stops,
	}
	if route.Bus.ID != 0 {
		bus := route.Bus
		resp.Bus = &bus
	}
	if jsonGeom, err := convertWKBToGeoJSON(route.Geometry); err != nil {
		logrus.WithError(err).WithField("route_id", route.ID).Warn("Stored route geometry is not valid WKB")
	} else if jsonGeom != "" {
		resp.Geometry = json.RawMessage(jsonGeom)
		resp.GeometryLengthKm = lineLengthKm(route.Geometry)
	}
	return resp
}

func toRouteResponses(routes []models.Route) []RouteResponse {
	out := make([]RouteResponse, 0, len(routes))
	for _, r := range routes {
		out = append(out, toRouteResponse(r))
	}
	return out
}

// stopInput is a stop as clients send it. Prices may arrive with decimals
// and are rounded to whole minor units here.
type stopInput struct {
	StopName           string  `json:"stop_name"`
	Order              int     `json:"order"`
	DistanceFromOrigin float64 `json:"distance_from_origin"`
	PriceFromOrigin    float64 `json:"price_from_origin"`
	EstimatedTime      string  `json:"estimated_time"`
	Lat                float64 `json:"lat"`
	Lng                float64 `json:"lng"`
}

func stopRecords(in []stopInput) ([]models.RouteStop, error) {
	rows := make([]models.RouteStop, 0, len(in))
	for _, s := range in {
		price, err := fares.MinorUnits(s.PriceFromOrigin)
		if err != nil {
			return nil, fmt.Errorf("stop %q: %w", s.StopName, err)
		}
		rows = append(rows, models.RouteStop{
			StopName:           s.StopName,
			Order:              s.Order,
			DistanceFromOrigin: s.DistanceFromOrigin,
			PriceFromOrigin:    price,
			EstimatedTime:      s.EstimatedTime,
			Lat:                s.Lat,
			Lng:                s.Lng,
		})
	}
	return rows, nil
}

func validDepartureTime(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

// CreateRoute lets an active operator publish a route on one of its buses,
// optionally with a GeoJSON LineString and its initial stops.
func (ctl *Controller) CreateRoute(c *gin.Context) {
	var input struct {
		Origin        string      `json:"origin" binding:"required"`
		Destination   string      `json:"destination" binding:"required"`
		Via           string      `json:"via"`
		Distance      float64     `json:"distance" binding:"required,gt=0"`
		Price         float64     `json:"price" binding:"required,gt=0,lte=1000000000000"`
		DepartureTime string      `json:"departure_time" binding:"required"`
		BusID         uint        `json:"bus_id" binding:"required"`
		Geometry      string      `json:"geometry"`
		Stops         []stopInput `json:"stops"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	if !validDepartureTime(input.DepartureTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "departure_time must be HH:MM"})
		return
	}
	price, err := fares.MinorUnits(input.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stops, err := stopRecords(input.Stops)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	op, ok := ctl.currentOperator(c)
	if !ok {
		return
	}
	if op.Status != models.OperatorActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Operator account is not active"})
		return
	}

	ctx := c.Request.Context()
	var bus models.Bus
	if err := ctl.db.WithContext(ctx).Where("id = ? AND operator_id = ?", input.BusID, op.ID).First(&bus).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown bus"})
		return
	}
	if !bus.InService {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bus is not in service"})
		return
	}

	wkbGeom, err := parseAndConvertGeometry(input.Geometry)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid geometry: " + err.Error()})
		return
	}

	route := models.Route{
		Origin:        input.Origin,
		Destination:   input.Destination,
		Via:           input.Via,
		Distance:      input.Distance,
		Price:         price,
		DepartureTime: input.DepartureTime,
		Active:        true,
		OperatorID:    op.ID,
		BusID:         bus.ID,
		Geometry:      wkbGeom,
	}
	if err := ctl.store.CreateRouteWithStops(ctx, &route, stops); err != nil {
		ingestError(c, route.ID, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"route_id":    route.ID,
		"operator_id": op.ID,
		"stops":       len(input.Stops),
	}).Info("Route created")

	ctl.db.WithContext(ctx).Preload("Bus").Preload("Stops", orderedStops).First(&route, route.ID)
	c.JSON(http.StatusCreated, gin.H{"route": toRouteResponse(route)})
}

func orderedStops(db *gorm.DB) *gorm.DB {
	return db.Order("stop_order asc")
}

// ListMyRoutes returns the caller's routes, inactive ones included.
func (ctl *Controller) ListMyRoutes(c *gin.Context) {
	op, ok := ctl.currentOperator(c)
	if !ok {
		return
	}

	var routes []models.Route
	err := ctl.db.WithContext(c.Request.Context()).
		Preload("Bus").
		Preload("Stops", orderedStops).
		Where("operator_id = ?", op.ID).
		Order("id asc").
		Find(&routes).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching routes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toRouteResponses(routes)})
}

// ListAllRoutes is the admin view of every route.
func (ctl *Controller) ListAllRoutes(c *gin.Context) {
	var routes []models.Route
	if err := ctl.db.WithContext(c.Request.Context()).Order("id asc").Find(&routes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing routes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toRouteResponses(routes)})
}

// SearchRoutes lists active routes. With ?origin= and/or ?destination= it
// keeps routes that serve that segment, either end to end or between two
// of their stops in travel order.
func (ctl *Controller) SearchRoutes(c *gin.Context) {
	origin, destination := c.Query("origin"), c.Query("destination")

	q := ctl.db.WithContext(c.Request.Context()).
		Preload("Bus").
		Where("routes.active = ?", true)

	switch {
	case origin != "" && destination != "":
		q = q.Where(`((routes.origin = ? AND routes.destination = ?) OR EXISTS (
			SELECT 1 FROM route_stops a JOIN route_stops b ON a.route_id = b.route_id
			WHERE a.route_id = routes.id AND a.deleted_at IS NULL AND b.deleted_at IS NULL
			AND a.stop_name = ? AND b.stop_name = ? AND a.stop_order < b.stop_order))`,
			origin, destination, origin, destination)
	case origin != "":
		q = q.Where(`(routes.origin = ? OR EXISTS (
			SELECT 1 FROM route_stops a WHERE a.route_id = routes.id AND a.deleted_at IS NULL AND a.stop_name = ?))`,
			origin, origin)
	case destination != "":
		q = q.Where(`(routes.destination = ? OR EXISTS (
			SELECT 1 FROM route_stops a WHERE a.route_id = routes.id AND a.deleted_at IS NULL AND a.stop_name = ?))`,
			destination, destination)
	}

	var routes []models.Route
	if err := q.Order("routes.departure_time asc, routes.id asc").Find(&routes).Error; err != nil {
		logrus.WithError(err).Error("SearchRoutes: database error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error searching routes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toRouteResponses(routes)})
}

// GetRoute returns one route with its stops.
func (ctl *Controller) GetRoute(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var route models.Route
	err := ctl.db.WithContext(c.Request.Context()).
		Preload("Bus").
		Preload("Stops", orderedStops).
		First(&route, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

// UpdateRoute edits route metadata. While a route has stops its totals
// must keep matching the final stop, so distance and price changes are
// refused unless they do; replace the stops first.
func (ctl *Controller) UpdateRoute(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	route, ok := ctl.ownedRoute(c, id)
	if !ok {
		return
	}

	var input struct {
		Via           *string  `json:"via"`
		Distance      *float64 `json:"distance" binding:"omitempty,gt=0"`
		Price         *float64 `json:"price" binding:"omitempty,gt=0,lte=1000000000000"`
		DepartureTime *string  `json:"departure_time"`
		BusID         *uint    `json:"bus_id"`
		Geometry      *string  `json:"geometry"`
		Active        *bool    `json:"active"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	if input.Via != nil {
		route.Via = *input.Via
	}
	if input.DepartureTime != nil {
		if !validDepartureTime(*input.DepartureTime) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "departure_time must be HH:MM"})
			return
		}
		route.DepartureTime = *input.DepartureTime
	}
	if input.BusID != nil {
		var bus models.Bus
		if err := ctl.db.WithContext(ctx).Where("id = ? AND operator_id = ?", *input.BusID, route.OperatorID).First(&bus).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown bus"})
			return
		}
		route.BusID = bus.ID
	}
	if input.Geometry != nil {
		wkbGeom, err := parseAndConvertGeometry(*input.Geometry)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid geometry: " + err.Error()})
			return
		}
		route.Geometry = wkbGeom
	}
	if input.Active != nil {
		route.Active = *input.Active
	}

	totalsChanged := false
	if input.Distance != nil && *input.Distance != route.Distance {
		route.Distance = *input.Distance
		totalsChanged = true
	}
	if input.Price != nil {
		price, err := fares.MinorUnits(*input.Price)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if price != route.Price {
			route.Price = price
			totalsChanged = true
		}
	}
	if totalsChanged {
		stops, err := ctl.store.LoadStops(ctx, route.ID)
		if err != nil {
			fareError(c, route.ID, err)
			return
		}
		if len(stops) > 0 {
			last := stops[len(stops)-1]
			if last.DistanceFromOrigin != route.Distance || last.PriceFromOrigin != route.Price {
				c.JSON(http.StatusConflict, gin.H{"error": "Route totals must match the final stop; replace the stops first"})
				return
			}
		}
	}

	if err := ctl.db.WithContext(ctx).Omit(clause.Associations).Save(&route).Error; err != nil {
		logrus.WithError(err).WithField("route_id", route.ID).Error("UpdateRoute: save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update route"})
		return
	}
	ctl.fares.Invalidate(route.ID)

	ctl.db.WithContext(ctx).Preload("Bus").Preload("Stops", orderedStops).First(&route, route.ID)
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

// DeactivateRoute withdraws a route from sale. Routes are never deleted.
func (ctl *Controller) DeactivateRoute(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	route, ok := ctl.ownedRoute(c, id)
	if !ok {
		return
	}

	if err := ctl.db.WithContext(c.Request.Context()).Model(&route).Update("active", false).Error; err != nil {
		logrus.WithError(err).WithField("route_id", route.ID).Error("DeactivateRoute failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate route"})
		return
	}
	ctl.fares.Invalidate(route.ID)

	logrus.WithField("route_id", route.ID).Info("Route deactivated")
	c.JSON(http.StatusOK, gin.H{"message": "Route deactivated"})
}
