package controllers

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Booking event types pushed to operator dashboards.
const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
	EventTicketBoarded    = "ticket.boarded"
)

const writeWait = 5 * time.Second

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards authenticate with the token query parameter
	},
}

// BookingEvent is one message on an operator's live feed.
type BookingEvent struct {
	Type          string    `json:"type"`
	OperatorID    uint      `json:"operator_id"`
	BookingID     uint      `json:"booking_id"`
	Reference     string    `json:"reference"`
	RouteID       uint      `json:"route_id"`
	TravelDate    string    `json:"travel_date"`
	BoardingStop  string    `json:"boarding_stop"`
	AlightingStop string    `json:"alighting_stop"`
	Seats         int       `json:"seats"`
	Total         int64     `json:"total"`
	Status        string    `json:"status"`
	At            time.Time `json:"at"`
}

// BookingHub fans booking events out to the websocket clients of the
// operator they concern.
type BookingHub struct {
	clients   map[uint]map[*websocket.Conn]bool
	broadcast chan BookingEvent
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
}

// NewBookingHub creates a hub and starts its broadcast loop.
func NewBookingHub() *BookingHub {
	hub := &BookingHub{
		clients:   make(map[uint]map[*websocket.Conn]bool),
		broadcast: make(chan BookingEvent, 100),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go hub.run()
	return hub
}

func (h *BookingHub) run() {
	defer close(h.stopped)
	for {
		select {
		case ev := <-h.broadcast:
			h.deliver(ev)
		case <-h.done:
			return
		}
	}
}

// deliver writes ev to every client of its operator. Writes happen on this
// goroutine only, so a connection never sees concurrent writers.
func (h *BookingHub) deliver(ev BookingEvent) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients[ev.OperatorID]))
	for conn := range h.clients[ev.OperatorID] {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"operator_id": ev.OperatorID,
				"conn_ptr":    fmt.Sprintf("%p", conn),
			}).Info("Dropping dashboard client after failed write")
			h.UnregisterClient(ev.OperatorID, conn)
			conn.Close()
		}
	}
}

// RegisterClient adds a dashboard connection for an operator.
func (h *BookingHub) RegisterClient(operatorID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[operatorID]; !ok {
		h.clients[operatorID] = make(map[*websocket.Conn]bool)
	}
	h.clients[operatorID][conn] = true
	logrus.WithFields(logrus.Fields{
		"operator_id": operatorID,
		"conn_ptr":    fmt.Sprintf("%p", conn),
	}).Info("Dashboard client registered with BookingHub")
}

// UnregisterClient removes a dashboard connection.
func (h *BookingHub) UnregisterClient(operatorID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[operatorID]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.clients, operatorID)
		}
	}
}

// ClientCount reports how many dashboards an operator has open.
func (h *BookingHub) ClientCount(operatorID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[operatorID])
}

// Publish queues ev without blocking; events are dropped when the queue
// is full or the hub is closed.
func (h *BookingHub) Publish(ev BookingEvent) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	select {
	case <-h.done:
	case h.broadcast <- ev:
	default:
		logrus.WithField("type", ev.Type).Warn("Booking broadcast channel full, dropping event")
	}
}

// Serve registers conn for operatorID and blocks until the client goes
// away. Dashboards only listen; anything they send is ignored.
func (h *BookingHub) Serve(conn *websocket.Conn, operatorID uint) {
	h.RegisterClient(operatorID, conn)
	defer h.UnregisterClient(operatorID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logrus.WithError(err).WithField("operator_id", operatorID).Debug("Dashboard read ended")
			}
			return
		}
	}
}

// Close stops the broadcast loop and closes every client connection.
func (h *BookingHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		<-h.stopped

		h.mu.Lock()
		defer h.mu.Unlock()
		for id, clients := range h.clients {
			for conn := range clients {
				conn.Close()
			}
			delete(h.clients, id)
		}
	})
}
