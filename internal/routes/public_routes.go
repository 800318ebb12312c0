package routes

import (
	"github.com/gin-gonic/gin"
)

// PublicRoutes serves route search and fare lookups without a login.
func PublicRoutes(r *gin.Engine, d Deps) {
	public := r.Group("/routes")
	if d.FareLimiter != nil {
		public.Use(d.FareLimiter.Handler())
	}
	{
		public.GET("", d.Controller.SearchRoutes)
		public.GET("/:id", d.Controller.GetRoute)
		public.GET("/:id/stops", d.Controller.GetRouteStops)
		public.GET("/:id/boarding-stops", d.Controller.GetBoardingStops)
		public.GET("/:id/alighting-stops/:boardingStop", d.Controller.GetAlightingStops)
		public.GET("/:id/stops/calculate-price", d.Controller.CalculatePrice)
	}
}
