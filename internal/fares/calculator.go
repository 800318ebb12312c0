package fares

import (
	"context"
	"errors"

	"bus_ticketing/internal/telemetry"
)

// Source is the narrow read interface the calculator needs from storage.
// LoadStops returns the stops sorted by order, an empty slice for a route
// without stops, and ErrRouteNotFound for an unknown route.
type Source interface {
	LoadRoute(ctx context.Context, routeID uint) (RouteSummary, error)
	LoadStops(ctx context.Context, routeID uint) ([]Stop, error)
}

// Calculator answers boarding, alighting and price queries for routes.
// It holds no mutable state apart from the optional snapshot cache and is
// safe for concurrent use.
type Calculator struct {
	src   Source
	cache *LedgerCache
}

// NewCalculator returns a calculator reading from src. cache may be nil.
func NewCalculator(src Source, cache *LedgerCache) *Calculator {
	return &Calculator{src: src, cache: cache}
}

// Ledger returns the current stop ledger snapshot of a route.
func (c *Calculator) Ledger(ctx context.Context, routeID uint) (*Ledger, error) {
	var gen uint64
	if c.cache != nil {
		if l, ok := c.cache.get(routeID); ok {
			telemetry.RecordLedgerCache(ctx, true)
			return l, nil
		}
		telemetry.RecordLedgerCache(ctx, false)
		gen = c.cache.generation(routeID)
	}

	route, err := c.src.LoadRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	stops, err := c.src.LoadStops(ctx, routeID)
	if err != nil {
		return nil, err
	}

	l := NewLedger(route, stops)
	if c.cache != nil {
		c.cache.put(routeID, gen, l)
	}
	return l, nil
}

// Invalidate forgets the cached snapshot of a route. Call it after the
// route's stops or totals change.
func (c *Calculator) Invalidate(routeID uint) {
	if c.cache != nil {
		c.cache.Invalidate(routeID)
	}
}

// Stops returns the persisted stops of a route in order.
func (c *Calculator) Stops(ctx context.Context, routeID uint) ([]Stop, error) {
	l, err := c.Ledger(ctx, routeID)
	if err != nil {
		return nil, err
	}
	return l.Stops(), nil
}

// BoardingStops returns the names of the stops a passenger can board at.
func (c *Calculator) BoardingStops(ctx context.Context, routeID uint) ([]string, error) {
	l, err := c.Ledger(ctx, routeID)
	if err != nil {
		return nil, err
	}
	return l.BoardingStops(), nil
}

// AlightingStops returns the names of the stops after boarding.
func (c *Calculator) AlightingStops(ctx context.Context, routeID uint, boarding string) ([]string, error) {
	l, err := c.Ledger(ctx, routeID)
	if err != nil {
		return nil, err
	}
	return l.AlightingStops(boarding)
}

// CalculatePrice prices the segment boarding -> alighting on a route.
func (c *Calculator) CalculatePrice(ctx context.Context, routeID uint, boarding, alighting string) (Fare, error) {
	l, err := c.Ledger(ctx, routeID)
	if err != nil {
		telemetry.RecordQuote(ctx, outcome(err))
		return Fare{}, err
	}
	fare, err := l.Quote(boarding, alighting)
	telemetry.RecordQuote(ctx, outcome(err))
	return fare, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRouteNotFound):
		return "route_not_found"
	case errors.Is(err, ErrUnknownStop):
		return "unknown_stop"
	case errors.Is(err, ErrInvalidSegment):
		return "invalid_segment"
	case errors.Is(err, ErrInvalidStopSequence):
		return "invalid_stop_sequence"
	default:
		return "error"
	}
}
