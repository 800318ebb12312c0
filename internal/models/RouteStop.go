package models

import (
	"gorm.io/gorm"
)

// RouteStop is one point along a route with its cumulative distance and
// price from the origin. (route_id, stop_order) and (route_id, stop_name)
// are unique.
type RouteStop struct {
	gorm.Model

	RouteID            uint    `json:"route_id" gorm:"uniqueIndex:idx_route_stop_order;uniqueIndex:idx_route_stop_name;not null"`
	StopName           string  `json:"stop_name" gorm:"uniqueIndex:idx_route_stop_name;not null"`
	Order              int     `json:"order" gorm:"column:stop_order;uniqueIndex:idx_route_stop_order;not null"`
	DistanceFromOrigin float64 `json:"distance_from_origin"`
	PriceFromOrigin    int64   `json:"price_from_origin"`
	EstimatedTime      string  `json:"estimated_time"`
	Lat                float64 `json:"lat"`
	Lng                float64 `json:"lng"`
}
