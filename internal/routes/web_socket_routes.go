package routes

import (
	"github.com/gin-gonic/gin"
)

// WebSocketRoutes authenticates inside the handler; browsers cannot send
// an Authorization header on the upgrade request.
func WebSocketRoutes(r *gin.Engine, d Deps) {
	ws := r.Group("/ws")
	{
		ws.GET("/bookings", d.Controller.HandleBookingWebSocket)
	}
}
