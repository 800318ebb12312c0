package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"bus_ticketing/internal/fares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func respond(fn func(*gin.Context)) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)
	return w
}

func TestFareErrorStatus(t *testing.T) {
	corrupt := &fares.SequenceError{Violation: fares.ViolationNegativeSegment, Index: -1, Detail: "price goes down"}
	cases := []struct {
		err  error
		want int
	}{
		{fares.ErrRouteNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: %q", fares.ErrUnknownStop, "Entebbe"), http.StatusNotFound},
		{fmt.Errorf("%w: backwards", fares.ErrInvalidSegment), http.StatusBadRequest},
		{corrupt, http.StatusInternalServerError},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := respond(func(c *gin.Context) { fareError(c, 1, tc.err) })
		assert.Equal(t, tc.want, w.Code, tc.err.Error())
	}
}

func TestIngestErrorStatus(t *testing.T) {
	rejected := &fares.SequenceError{Violation: fares.ViolationOrderGap, Index: 2, Stop: "Lugazi", Detail: "expected order 3"}

	w := respond(func(c *gin.Context) { ingestError(c, 1, rejected) })
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"violation":"order_gap"`)
	assert.Contains(t, w.Body.String(), `"index":2`)

	w = respond(func(c *gin.Context) { ingestError(c, 1, fares.ErrRouteNotFound) })
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = respond(func(c *gin.Context) { ingestError(c, 1, fmt.Errorf("insert stops: %w", gorm.ErrDuplicatedKey)) })
	assert.Equal(t, http.StatusConflict, w.Code)
}
