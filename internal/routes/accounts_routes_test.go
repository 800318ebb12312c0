package routes

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bus_ticketing/internal/models"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID         uint   `json:"ID"`
		Role       string `json:"role"`
		OperatorID uint   `json:"operator_id"`
	} `json:"user"`
}

func TestSignupAndLogin(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/auth/signup", "", gin.H{
		"name": "Amina", "email": "Amina@Example.com", "password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var signup authResponse
	decode(t, w, &signup)
	assert.Equal(t, models.RolePassenger, signup.User.Role)
	assert.NotEmpty(t, signup.Token)

	w = h.do(http.MethodPost, "/auth/signup", "", gin.H{
		"name": "Amina again", "email": "amina@example.com", "password": "correct horse",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodPost, "/auth/login", "", gin.H{"email": "amina@example.com", "password": "wrong password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = h.do(http.MethodPost, "/auth/login", "", gin.H{"email": "nobody@example.com", "password": "correct horse"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/auth/login", "", gin.H{"email": "amina@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, w.Code)
	var login authResponse
	decode(t, w, &login)
	claims, err := h.auth.ValidateToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, signup.User.ID, claims.UserID)
}

func TestSignupRoles(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/auth/signup", "", gin.H{
		"name": "Eve", "email": "eve@example.com", "password": "password123", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "admins are not self-service")

	w = h.do(http.MethodPost, "/auth/signup", "", gin.H{
		"name": "Joel", "email": "joel@example.com", "password": "password123", "role": "operator",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "operators need a company name")

	w = h.do(http.MethodPost, "/auth/signup", "", gin.H{
		"name": "Joel", "email": "joel@example.com", "password": "password123",
		"role": "Operator", "operator_name": "Link Bus",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp authResponse
	decode(t, w, &resp)
	assert.Equal(t, models.RoleOperator, resp.User.Role)
	require.NotZero(t, resp.User.OperatorID)

	var op models.Operator
	require.NoError(t, h.db.First(&op, resp.User.OperatorID).Error)
	assert.Equal(t, models.OperatorPending, op.Status)
	assert.Equal(t, "Link Bus", op.Name)
}

func TestOperatorApprovalGatesRoutes(t *testing.T) {
	h := newHarness(t)
	op, bus, tok := h.operator(models.OperatorPending, 60)
	body := gin.H{
		"origin": "Kampala", "destination": "Mbarara", "distance": 266, "price": 35000,
		"departure_time": "06:00", "bus_id": bus.ID,
	}

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/operator/routes", tok, body).Code)

	_, admin := h.user(models.RoleAdmin)
	w := h.do(http.MethodPatch, fmt.Sprintf("/admin/operators/%d/status", op.ID), admin, gin.H{"status": "active"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/operator/routes", tok, body).Code)

	w = h.do(http.MethodPatch, fmt.Sprintf("/admin/operators/%d/status", op.ID), admin, gin.H{"status": "retired"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(http.MethodPatch, "/admin/operators/999/status", admin, gin.H{"status": "active"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Suspension takes the operator's routes off sale.
	w = h.do(http.MethodPatch, fmt.Sprintf("/admin/operators/%d/status", op.ID), admin, gin.H{"status": "suspended"})
	require.Equal(t, http.StatusOK, w.Code)
	var active int64
	require.NoError(t, h.db.Model(&models.Route{}).Where("operator_id = ? AND active = ?", op.ID, true).Count(&active).Error)
	assert.Zero(t, active)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/admin/operators", tok, nil).Code)
}

func TestCreateRouteValidation(t *testing.T) {
	h := newHarness(t)
	_, bus, tok := h.operator(models.OperatorActive, 60)
	_, otherBus, _ := h.operator(models.OperatorActive, 60)

	base := func() gin.H {
		return gin.H{
			"origin": "Kampala", "destination": "Jinja", "distance": 87, "price": 15000,
			"departure_time": "07:30", "bus_id": bus.ID,
		}
	}

	b := base()
	b["departure_time"] = "7.30am"
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/operator/routes", tok, b).Code)

	b = base()
	b["bus_id"] = otherBus.ID
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/operator/routes", tok, b).Code)

	b = base()
	b["geometry"] = `{"type":"Point","coordinates":[32.58,0.31]}`
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/operator/routes", tok, b).Code)

	b = base()
	b["stops"] = kampalaJinjaStops()[:4]
	w := h.do(http.MethodPost, "/operator/routes", tok, b)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "totals_mismatch")

	b = base()
	b["geometry"] = `{"type":"LineString","coordinates":[[32.5825,0.3476],[32.7553,0.3533],[33.2041,0.4244]]}`
	w = h.do(http.MethodPost, "/operator/routes", tok, b)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Route struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			GeometryLengthKm float64 `json:"geometry_length_km"`
		} `json:"route"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "LineString", resp.Route.Geometry.Type)
	assert.InDelta(t, 70, resp.Route.GeometryLengthKm, 5)
}

func TestUpdateRouteTotalsGuard(t *testing.T) {
	h := newHarness(t)
	_, bus, tok := h.operator(models.OperatorActive, 60)
	id := h.createRoute(tok, bus.ID, "Kampala", "Jinja", 87, 15000, kampalaJinjaStops())
	path := fmt.Sprintf("/operator/routes/%d", id)

	assert.Equal(t, http.StatusConflict, h.do(http.MethodPut, path, tok, gin.H{"price": 16000}).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodPut, path, tok, gin.H{"price": 15000, "departure_time": "09:15"}).Code)

	bare := h.createRoute(tok, bus.ID, "Kampala", "Masaka", 130, 20000, nil)
	w := h.do(http.MethodPut, fmt.Sprintf("/operator/routes/%d", bare), tok, gin.H{"price": 22000})
	require.Equal(t, http.StatusOK, w.Code)
	w = h.do(http.MethodGet, fmt.Sprintf("/routes/%d/stops/calculate-price?boardingStop=Kampala&alightingStop=Masaka", bare), "", nil)
	assert.JSONEq(t, `{"distance":130,"price":22000}`, w.Body.String(), "fallback fare follows the new total")
}

func TestOversizedPricesRejected(t *testing.T) {
	h := newHarness(t)
	_, bus, tok := h.operator(models.OperatorActive, 60)

	w := h.do(http.MethodPost, "/operator/routes", tok, gin.H{
		"origin": "Kampala", "destination": "Mbarara", "distance": 270, "price": 1e19,
		"departure_time": "07:30", "bus_id": bus.ID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	var count int64
	require.NoError(t, h.db.Model(&models.Route{}).Where("destination = ?", "Mbarara").Count(&count).Error)
	assert.Zero(t, count)

	id := h.createRoute(tok, bus.ID, "Kampala", "Jinja", 87, 15000, kampalaJinjaStops())
	path := fmt.Sprintf("/operator/routes/%d", id)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPut, path, tok, gin.H{"price": 1e19}).Code)

	stops := kampalaJinjaStops()
	stops[4]["price_from_origin"] = 1e30
	w = h.do(http.MethodPut, path+"/stops", tok, gin.H{"stops": stops})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "price out of range")

	w = h.do(http.MethodGet, fmt.Sprintf("/routes/%d/stops/calculate-price?boardingStop=Kampala&alightingStop=Jinja", id), "", nil)
	assert.JSONEq(t, `{"distance":87,"price":15000}`, w.Body.String(), "rejected writes leave the ledger alone")
}

func TestDeactivateRouteHidesItFromSearch(t *testing.T) {
	h := newHarness(t)
	_, bus, tok := h.operator(models.OperatorActive, 60)
	jinja := h.createRoute(tok, bus.ID, "Kampala", "Jinja", 87, 15000, kampalaJinjaStops())
	h.createRoute(tok, bus.ID, "Kampala", "Masaka", 130, 20000, nil)

	search := func(q string) []uint {
		w := h.do(http.MethodGet, "/routes"+q, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data []struct {
				ID uint `json:"ID"`
			} `json:"data"`
		}
		decode(t, w, &resp)
		ids := []uint{}
		for _, r := range resp.Data {
			ids = append(ids, r.ID)
		}
		return ids
	}

	assert.Len(t, search(""), 2)
	assert.Equal(t, []uint{jinja}, search("?origin=Mukono&destination=Njeru"), "segment between intermediate stops")
	assert.Empty(t, search("?origin=Njeru&destination=Mukono"), "wrong direction")
	assert.Equal(t, []uint{jinja}, search("?destination=Lugazi"))

	require.Equal(t, http.StatusOK, h.do(http.MethodDelete, fmt.Sprintf("/operator/routes/%d", jinja), tok, nil).Code)
	assert.Empty(t, search("?origin=Mukono&destination=Njeru"))

	// Still readable and quotable by id.
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, fmt.Sprintf("/routes/%d", jinja), "", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet,
		fmt.Sprintf("/routes/%d/stops/calculate-price?boardingStop=Mukono&alightingStop=Njeru", jinja), "", nil).Code)
}

func TestBuses(t *testing.T) {
	h := newHarness(t)
	_, _, tok := h.operator(models.OperatorActive, 60)

	w := h.do(http.MethodPost, "/operator/buses", tok, gin.H{"plate_number": "UAZ 555X", "capacity": 67, "make": "Scania"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/operator/buses", tok, gin.H{"plate_number": "UAZ 555X", "capacity": 30}).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/operator/buses", tok, gin.H{"plate_number": "UAZ 556X", "capacity": 0}).Code)

	var resp struct {
		Data []models.Bus `json:"data"`
	}
	w = h.do(http.MethodGet, "/operator/buses", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	require.Len(t, resp.Data, 2)

	w = h.do(http.MethodPut, fmt.Sprintf("/operator/buses/%d", resp.Data[1].ID), tok, gin.H{"in_service": false})
	require.Equal(t, http.StatusOK, w.Code)
	var updated struct {
		Bus models.Bus `json:"bus"`
	}
	decode(t, w, &updated)
	assert.False(t, updated.Bus.InService)
	assert.Equal(t, 67, updated.Bus.Capacity)
}

func TestAgentOnboarding(t *testing.T) {
	h := newHarness(t)
	agent, tok := h.user(models.RoleAgent)

	w := h.do(http.MethodPost, "/agent/operators", tok, gin.H{
		"operator_name": "Gateway Bus", "contact_name": "Sarah", "email": "sarah@gateway.example",
		"password": "gateway123", "phone": "+256700000000",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(http.MethodPost, "/agent/operators", tok, gin.H{
		"operator_name": "Gateway Bus 2", "contact_name": "Sam", "email": "sarah@gateway.example", "password": "gateway123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		Data []models.Operator `json:"data"`
	}
	w = h.do(http.MethodGet, "/agent/operators", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, models.OperatorPending, resp.Data[0].Status)
	require.NotNil(t, resp.Data[0].OnboardedBy)
	assert.Equal(t, agent.ID, *resp.Data[0].OnboardedBy)

	// The onboarded operator can log in.
	w = h.do(http.MethodPost, "/auth/login", "", gin.H{"email": "sarah@gateway.example", "password": "gateway123"})
	assert.Equal(t, http.StatusOK, w.Code)

	_, passenger := h.user(models.RolePassenger)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/agent/operators", passenger, nil).Code)
}

func TestAdminListsUsersByRole(t *testing.T) {
	h := newHarness(t)
	_, admin := h.user(models.RoleAdmin)
	h.user(models.RolePassenger)
	h.user(models.RolePassenger)
	h.user(models.RoleAgent)

	var resp struct {
		Data []models.User `json:"data"`
	}
	w := h.do(http.MethodGet, "/admin/users?role=passenger", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Len(t, resp.Data, 2)
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":"up"}`, w.Body.String())
}
