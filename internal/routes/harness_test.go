package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bus_ticketing/internal/controllers"
	"bus_ticketing/internal/fares"
	"bus_ticketing/internal/middleware"
	"bus_ticketing/internal/models"
	"bus_ticketing/internal/store"
	"bus_ticketing/internal/testdb"
	"bus_ticketing/internal/tickets"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	t      *testing.T
	db     *gorm.DB
	auth   *middleware.Auth
	hub    *controllers.BookingHub
	router *gin.Engine
	seq    int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, func(*Deps) {})
}

// newHarnessWith lets a test adjust the router dependencies before the
// router is built.
func newHarnessWith(t *testing.T, configure func(*Deps)) *harness {
	t.Helper()
	db := testdb.Open(t)
	st := store.New(db)
	auth := middleware.NewAuth("test-jwt-secret", time.Hour)
	hub := controllers.NewBookingHub()
	t.Cleanup(hub.Close)

	calc := fares.NewCalculator(st, fares.NewLedgerCache(64, time.Minute))
	deps := Deps{
		Controller: controllers.New(st, calc, auth, tickets.NewSigner("test-ticket-secret"), hub),
		Auth:       auth,
	}
	configure(&deps)
	return &harness{
		t:      t,
		db:     db,
		auth:   auth,
		hub:    hub,
		router: SetupRouter(deps),
	}
}

func (h *harness) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (h *harness) token(u models.User) string {
	tok, err := h.auth.GenerateToken(u.ID, u.Role)
	require.NoError(h.t, err)
	return tok
}

// user inserts an account with the given role and returns it with a token.
func (h *harness) user(role string) (models.User, string) {
	h.seq++
	u := models.User{
		Name:  fmt.Sprintf("%s %d", role, h.seq),
		Email: fmt.Sprintf("%s%d@example.com", role, h.seq),
		Role:  role,
	}
	require.NoError(h.t, h.db.Create(&u).Error)
	return u, h.token(u)
}

// operator inserts an operator account with one bus of the given capacity.
func (h *harness) operator(status string, capacity int) (models.Operator, models.Bus, string) {
	u, tok := h.user(models.RoleOperator)
	op := models.Operator{UserID: &u.ID, Name: u.Name + " Coaches", Email: u.Email, Status: status}
	require.NoError(h.t, h.db.Create(&op).Error)
	bus := models.Bus{OperatorID: op.ID, PlateNumber: fmt.Sprintf("UBA %03dK", h.seq), Capacity: capacity, InService: true}
	require.NoError(h.t, h.db.Create(&bus).Error)
	return op, bus, tok
}

func kampalaJinjaStops() []gin.H {
	return []gin.H{
		{"stop_name": "Kampala", "order": 1, "distance_from_origin": 0, "price_from_origin": 0},
		{"stop_name": "Mukono", "order": 2, "distance_from_origin": 25, "price_from_origin": 5000, "estimated_time": "40m"},
		{"stop_name": "Lugazi", "order": 3, "distance_from_origin": 45, "price_from_origin": 8000},
		{"stop_name": "Njeru", "order": 4, "distance_from_origin": 75, "price_from_origin": 12000},
		{"stop_name": "Jinja", "order": 5, "distance_from_origin": 87, "price_from_origin": 15000},
	}
}

// createRoute posts a route through the operator API and returns its id.
func (h *harness) createRoute(token string, busID uint, origin, destination string, distance, price float64, stops []gin.H) uint {
	h.t.Helper()
	body := gin.H{
		"origin":         origin,
		"destination":    destination,
		"distance":       distance,
		"price":          price,
		"departure_time": "07:30",
		"bus_id":         busID,
	}
	if stops != nil {
		body["stops"] = stops
	}
	w := h.do(http.MethodPost, "/operator/routes", token, body)
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Route struct {
			ID uint `json:"ID"`
		} `json:"route"`
	}
	decode(h.t, w, &resp)
	return resp.Route.ID
}

func travelDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format("2006-01-02")
}
