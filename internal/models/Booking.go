package models

import (
	"time"

	"gorm.io/gorm"
)

// Booking states.
const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingBoarded   = "boarded"
)

// Booking is a passenger's reservation of seats on one segment of a route
// for a travel date. Prices are in minor currency units.
type Booking struct {
	gorm.Model
	Reference     string `json:"reference" gorm:"uniqueIndex;not null"`
	PassengerID   uint   `json:"passenger_id" gorm:"index"`
	RouteID       uint   `json:"route_id" gorm:"index:idx_booking_route_date"`
	Route         Route  `gorm:"foreignKey:RouteID" json:"route,omitempty"`
	TravelDate    string `json:"travel_date" gorm:"index:idx_booking_route_date"` // "2006-01-02"
	BoardingStop  string `json:"boarding_stop"`
	AlightingStop string `json:"alighting_stop"`

	Seats    int     `json:"seats"`
	Distance float64 `json:"distance"`
	Fare     int64   `json:"fare"`  // per seat
	Total    int64   `json:"total"` // fare * seats
	Status   string  `json:"status" gorm:"index"`

	TicketID  string     `json:"ticket_id,omitempty" gorm:"index"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	BoardedAt *time.Time `json:"boarded_at,omitempty"`
}
