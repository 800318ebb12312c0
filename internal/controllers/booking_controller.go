package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bus_ticketing/internal/middleware"
	"bus_ticketing/internal/models"
	"bus_ticketing/internal/telemetry"
	"bus_ticketing/internal/tickets"
)

const dateLayout = "2006-01-02"

var (
	errRouteClosed  = errors.New("route is not open for booking")
	errBusMissing   = errors.New("route has no bus in service")
	errSeatsSoldOut = errors.New("not enough seats left")
)

// seatsTaken counts the seats held on a route for a travel date.
func seatsTaken(tx *gorm.DB, routeID uint, travelDate string) (int, error) {
	var taken int64
	err := tx.Model(&models.Booking{}).
		Where("route_id = ? AND travel_date = ? AND status IN ?", routeID, travelDate,
			[]string{models.BookingConfirmed, models.BookingBoarded}).
		Select("COALESCE(SUM(seats), 0)").
		Scan(&taken).Error
	return int(taken), err
}

func newReference() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "BK-" + id[:10]
}

func bookingEvent(typ string, operatorID uint, b models.Booking) BookingEvent {
	return BookingEvent{
		Type:          typ,
		OperatorID:    operatorID,
		BookingID:     b.ID,
		Reference:     b.Reference,
		RouteID:       b.RouteID,
		TravelDate:    b.TravelDate,
		BoardingStop:  b.BoardingStop,
		AlightingStop: b.AlightingStop,
		Seats:         b.Seats,
		Total:         b.Total,
		Status:        b.Status,
	}
}

// CreateBooking reserves seats on a segment of an active route. The price
// per seat comes from the route's stop ledger; payment is collected
// outside this service, so the booking is confirmed straight away.
func (ctl *Controller) CreateBooking(c *gin.Context) {
	var input struct {
		RouteID       uint   `json:"route_id" binding:"required"`
		TravelDate    string `json:"travel_date" binding:"required"`
		BoardingStop  string `json:"boarding_stop" binding:"required"`
		AlightingStop string `json:"alighting_stop" binding:"required"`
		Seats         int    `json:"seats" binding:"required,gt=0,lte=10"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	day, err := time.Parse(dateLayout, input.TravelDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "travel_date must be YYYY-MM-DD"})
		return
	}
	if day.Before(time.Now().UTC().Truncate(24 * time.Hour)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "travel_date is in the past"})
		return
	}

	ctx := c.Request.Context()
	fare, err := ctl.fares.CalculatePrice(ctx, input.RouteID, input.BoardingStop, input.AlightingStop)
	if err != nil {
		fareError(c, input.RouteID, err)
		return
	}

	passengerID := middleware.UserID(c)
	booking := models.Booking{
		Reference:     newReference(),
		PassengerID:   passengerID,
		RouteID:       input.RouteID,
		TravelDate:    input.TravelDate,
		BoardingStop:  input.BoardingStop,
		AlightingStop: input.AlightingStop,
		Seats:         input.Seats,
		Distance:      fare.Distance,
		Fare:          fare.Price,
		Total:         fare.Price * int64(input.Seats),
		Status:        models.BookingConfirmed,
	}

	var route models.Route
	seatsLeft := 0
	err = ctl.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the route row so concurrent bookings for it serialize.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&route, input.RouteID).Error; err != nil {
			return err
		}
		if !route.Active {
			return errRouteClosed
		}
		var bus models.Bus
		if err := tx.First(&bus, route.BusID).Error; err != nil || !bus.InService {
			return errBusMissing
		}

		taken, err := seatsTaken(tx, route.ID, input.TravelDate)
		if err != nil {
			return err
		}
		seatsLeft = bus.Capacity - taken
		if input.Seats > seatsLeft {
			return errSeatsSoldOut
		}
		return tx.Create(&booking).Error
	})
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		return
	case errors.Is(err, errRouteClosed), errors.Is(err, errBusMissing):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, errSeatsSoldOut):
		if seatsLeft < 0 {
			seatsLeft = 0
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "seats_left": seatsLeft})
		return
	default:
		logrus.WithError(err).WithField("route_id", input.RouteID).Error("CreateBooking: transaction failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create booking"})
		return
	}

	telemetry.RecordBooking(ctx, booking.Seats)
	ctl.hub.Publish(bookingEvent(EventBookingCreated, route.OperatorID, booking))
	logrus.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"reference":    booking.Reference,
		"route_id":     booking.RouteID,
		"passenger_id": passengerID,
		"seats":        booking.Seats,
		"total":        booking.Total,
	}).Info("Booking confirmed")

	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

// ListMyBookings returns the caller's bookings, newest first.
func (ctl *Controller) ListMyBookings(c *gin.Context) {
	var bookings []models.Booking
	err := ctl.db.WithContext(c.Request.Context()).
		Preload("Route").
		Where("passenger_id = ?", middleware.UserID(c)).
		Order("id desc").
		Find(&bookings).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching bookings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": bookings})
}

// ownBooking loads :id if it belongs to the caller. Admins see every booking.
func (ctl *Controller) ownBooking(c *gin.Context) (models.Booking, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return models.Booking{}, false
	}

	var b models.Booking
	if err := ctl.db.WithContext(c.Request.Context()).Preload("Route").First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
			return models.Booking{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return models.Booking{}, false
	}
	if b.PassengerID != middleware.UserID(c) && c.GetString(middleware.ContextRole) != models.RoleAdmin {
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return models.Booking{}, false
	}
	return b, true
}

func (ctl *Controller) GetBooking(c *gin.Context) {
	b, ok := ctl.ownBooking(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// CancelBooking releases the seats of a confirmed booking.
func (ctl *Controller) CancelBooking(c *gin.Context) {
	b, ok := ctl.ownBooking(c)
	if !ok {
		return
	}

	res := ctl.db.WithContext(c.Request.Context()).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", b.ID, models.BookingConfirmed).
		Update("status", models.BookingCancelled)
	if res.Error != nil {
		logrus.WithError(res.Error).WithField("booking_id", b.ID).Error("CancelBooking failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not cancel booking"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Only confirmed bookings can be cancelled"})
		return
	}

	b.Status = models.BookingCancelled
	ctl.hub.Publish(bookingEvent(EventBookingCancelled, b.Route.OperatorID, b))
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

// IssueTicket signs a ticket code for a confirmed booking. Issuing again
// replaces the ticket id, which voids earlier codes.
func (ctl *Controller) IssueTicket(c *gin.Context) {
	b, ok := ctl.ownBooking(c)
	if !ok {
		return
	}
	if b.Status != models.BookingConfirmed {
		c.JSON(http.StatusConflict, gin.H{"error": "Tickets are only issued for confirmed bookings"})
		return
	}

	code, ticketID, err := ctl.tickets.Issue(tickets.Ticket{
		BookingRef:    b.Reference,
		RouteID:       b.RouteID,
		OperatorID:    b.Route.OperatorID,
		TravelDate:    b.TravelDate,
		BoardingStop:  b.BoardingStop,
		AlightingStop: b.AlightingStop,
		Seats:         b.Seats,
	})
	if err != nil {
		logrus.WithError(err).WithField("booking_id", b.ID).Error("IssueTicket: signing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not issue ticket"})
		return
	}

	now := time.Now().UTC()
	res := ctl.db.WithContext(c.Request.Context()).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", b.ID, models.BookingConfirmed).
		Updates(map[string]interface{}{"ticket_id": ticketID, "issued_at": now})
	if res.Error != nil || res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Booking changed while issuing the ticket"})
		return
	}
	b.TicketID = ticketID
	b.IssuedAt = &now

	c.JSON(http.StatusOK, gin.H{
		"ticket":    code,
		"ticket_id": ticketID,
		"booking":   b,
	})
}

// ValidateTicket checks a scanned ticket code at boarding. A code is good
// once: for the operator that runs the route, for the latest ticket issued
// on a confirmed booking.
func (ctl *Controller) ValidateTicket(c *gin.Context) {
	op, ok := ctl.currentOperator(c)
	if !ok {
		return
	}

	var input struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	reject := func(status int, result, msg string) {
		telemetry.RecordTicketValidation(ctx, result)
		c.JSON(status, gin.H{"valid": false, "error": msg})
	}

	claims, err := ctl.tickets.Verify(input.Code)
	if err != nil {
		reject(http.StatusBadRequest, "invalid", "Invalid ticket")
		return
	}
	if claims.OperatorID != op.ID {
		reject(http.StatusForbidden, "wrong_operator", "Ticket belongs to another operator")
		return
	}

	var b models.Booking
	if err := ctl.db.WithContext(ctx).Preload("Route").Where("reference = ?", claims.BookingRef).First(&b).Error; err != nil {
		reject(http.StatusNotFound, "unknown_booking", "Booking not found")
		return
	}
	switch {
	case b.Route.OperatorID != op.ID:
		reject(http.StatusForbidden, "wrong_operator", "Ticket belongs to another operator")
		return
	case b.TicketID != claims.ID:
		reject(http.StatusConflict, "superseded", "Ticket has been reissued")
		return
	case b.Status == models.BookingBoarded:
		reject(http.StatusConflict, "used", "Ticket already used")
		return
	case b.Status != models.BookingConfirmed:
		reject(http.StatusConflict, "cancelled", "Booking is "+b.Status)
		return
	}

	now := time.Now().UTC()
	res := ctl.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ? AND ticket_id = ?", b.ID, models.BookingConfirmed, claims.ID).
		Updates(map[string]interface{}{"status": models.BookingBoarded, "boarded_at": now})
	if res.Error != nil {
		logrus.WithError(res.Error).WithField("booking_id", b.ID).Error("ValidateTicket: update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not validate ticket"})
		return
	}
	if res.RowsAffected == 0 {
		reject(http.StatusConflict, "used", "Ticket already used")
		return
	}

	b.Status = models.BookingBoarded
	b.BoardedAt = &now
	telemetry.RecordTicketValidation(ctx, "boarded")
	ctl.hub.Publish(bookingEvent(EventTicketBoarded, op.ID, b))

	c.JSON(http.StatusOK, gin.H{"valid": true, "booking": b})
}

// ListRouteBookings is an operator's passenger manifest for one route,
// optionally narrowed to ?date=.
func (ctl *Controller) ListRouteBookings(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	route, ok := ctl.ownedRoute(c, id)
	if !ok {
		return
	}

	q := ctl.db.WithContext(c.Request.Context()).Where("route_id = ?", route.ID)
	if date := c.Query("date"); date != "" {
		q = q.Where("travel_date = ?", date)
	}
	var bookings []models.Booking
	if err := q.Order("travel_date asc, id asc").Find(&bookings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching bookings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": bookings})
}
