package routes

import (
	"github.com/gin-gonic/gin"

	"bus_ticketing/internal/models"
)

func OperatorRoutes(r *gin.Engine, d Deps) {
	operator := r.Group("/operator")
	operator.Use(d.Auth.RequireRole(models.RoleOperator))
	{
		operator.GET("/profile", d.Controller.GetMyOperator)

		operator.POST("/buses", d.Controller.CreateBus)
		operator.GET("/buses", d.Controller.GetMyBuses)
		operator.PUT("/buses/:id", d.Controller.UpdateBus)

		operator.POST("/routes", d.Controller.CreateRoute)
		operator.GET("/routes", d.Controller.ListMyRoutes)
		operator.PUT("/routes/:id", d.Controller.UpdateRoute)
		operator.DELETE("/routes/:id", d.Controller.DeactivateRoute)
		operator.PUT("/routes/:id/stops", d.Controller.ReplaceRouteStops)
		operator.GET("/routes/:id/bookings", d.Controller.ListRouteBookings)

		operator.POST("/tickets/validate", d.Controller.ValidateTicket)
	}
}
