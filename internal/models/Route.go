package models

import (
	"gorm.io/gorm"
)

// Route is a sellable origin -> destination service run by one operator
// with one bus. Routes are deactivated, never deleted, when withdrawn
// from sale.
type Route struct {
	gorm.Model

	Origin        string  `json:"origin" gorm:"index;not null"`
	Destination   string  `json:"destination" gorm:"index;not null"`
	Via           string  `json:"via"`
	Distance      float64 `json:"distance"`       // km
	Price         int64   `json:"price"`          // minor currency units
	DepartureTime string  `json:"departure_time"` // "15:04", local to the operator
	Active        bool    `json:"active" gorm:"default:true;index"`

	OperatorID uint `json:"operator_id" gorm:"index"`
	BusID      uint `json:"bus_id" gorm:"index"`
	Bus        Bus  `gorm:"foreignKey:BusID" json:"bus,omitempty"`

	// Geometry stored as WKB; the API speaks GeoJSON LineStrings.
	Geometry []byte `gorm:"type:bytea" json:"-"`

	Stops []RouteStop `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"stops,omitempty"`
}
