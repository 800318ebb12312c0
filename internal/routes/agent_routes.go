package routes

import (
	"github.com/gin-gonic/gin"

	"bus_ticketing/internal/models"
)

func AgentRoutes(r *gin.Engine, d Deps) {
	agent := r.Group("/agent")
	agent.Use(d.Auth.RequireRole(models.RoleAgent))
	{
		agent.POST("/operators", d.Controller.OnboardOperator)
		agent.GET("/operators", d.Controller.ListOnboardedOperators)
	}
}
