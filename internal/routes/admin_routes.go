package routes

import (
	"github.com/gin-gonic/gin"

	"bus_ticketing/internal/models"
)

func AdminRoutes(r *gin.Engine, d Deps) {
	admin := r.Group("/admin")
	admin.Use(d.Auth.RequireRole(models.RoleAdmin))
	{
		admin.GET("/users", d.Controller.ListUsers)
		admin.GET("/operators", d.Controller.ListOperators)
		admin.PATCH("/operators/:id/status", d.Controller.UpdateOperatorStatus)
		admin.GET("/buses", d.Controller.ListBuses)

		admin.GET("/routes", d.Controller.ListAllRoutes)
		admin.PUT("/routes/:id", d.Controller.UpdateRoute)
		admin.DELETE("/routes/:id", d.Controller.DeactivateRoute)
		admin.PUT("/routes/:id/stops", d.Controller.ReplaceRouteStops)
		admin.GET("/routes/:id/bookings", d.Controller.ListRouteBookings)
	}
}
