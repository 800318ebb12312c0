package routes

import (
	"github.com/gin-gonic/gin"

	"bus_ticketing/internal/models"
)

func BookingRoutes(r *gin.Engine, d Deps) {
	bookings := r.Group("/bookings")
	bookings.Use(d.Auth.RequireRole(models.RolePassenger, models.RoleAdmin))
	{
		bookings.POST("", d.Controller.CreateBooking)
		bookings.GET("", d.Controller.ListMyBookings)
		bookings.GET("/:id", d.Controller.GetBooking)
		bookings.POST("/:id/cancel", d.Controller.CancelBooking)
		bookings.POST("/:id/ticket", d.Controller.IssueTicket)
	}
}
