package fares

import (
	"fmt"
	"math"
)

// Stop is one entry of a route's stop ledger.
type Stop struct {
	Name               string  `json:"stop_name"`
	Order              int     `json:"order"`
	DistanceFromOrigin float64 `json:"distance_from_origin"`
	PriceFromOrigin    int64   `json:"price_from_origin"`
	EstimatedTime      string  `json:"estimated_time,omitempty"`
}

// RouteSummary carries the route fields fare calculation depends on.
type RouteSummary struct {
	ID          uint
	Origin      string
	Destination string
	Distance    float64
	Price       int64
	Active      bool
}

// Fare is the distance and price of one segment.
type Fare struct {
	Distance float64 `json:"distance"`
	Price    int64   `json:"price"`
}

// Ledger is an immutable snapshot of a route and its ordered stops.
// A route without persisted stops gets a synthetic origin/destination
// ledger priced from the route's own totals.
type Ledger struct {
	route     RouteSummary
	stops     []Stop
	index     map[string]int
	synthetic bool
}

// NewLedger builds a snapshot from stops already sorted by order.
// The stops are copied; the caller may reuse the slice.
func NewLedger(route RouteSummary, stops []Stop) *Ledger {
	l := &Ledger{route: route}
	if len(stops) == 0 {
		l.synthetic = true
		l.stops = OriginDestinationStops(route)
	} else {
		l.stops = append([]Stop(nil), stops...)
	}

	l.index = make(map[string]int, len(l.stops))
	for i, s := range l.stops {
		if _, seen := l.index[s.Name]; !seen {
			l.index[s.Name] = i
		}
	}
	return l
}

// Route returns the route the ledger belongs to.
func (l *Ledger) Route() RouteSummary { return l.route }

// Synthetic reports whether the ledger was derived from route totals
// because the route has no persisted stops.
func (l *Ledger) Synthetic() bool { return l.synthetic }

// Stops returns a copy of the persisted stops. A synthetic ledger has none.
func (l *Ledger) Stops() []Stop {
	if l.synthetic {
		return []Stop{}
	}
	return append([]Stop(nil), l.stops...)
}

// Lookup finds a stop by exact, case-sensitive name.
func (l *Ledger) Lookup(name string) (Stop, bool) {
	i, ok := l.index[name]
	if !ok {
		return Stop{}, false
	}
	return l.stops[i], true
}

// BoardingStops lists every stop a passenger can start a segment from:
// all stops except the last.
func (l *Ledger) BoardingStops() []string {
	names := make([]string, 0, len(l.stops))
	for _, s := range l.stops[:len(l.stops)-1] {
		names = append(names, s.Name)
	}
	return names
}

// AlightingStops lists the stops after the named boarding stop.
func (l *Ledger) AlightingStops(boarding string) ([]string, error) {
	i, ok := l.index[boarding]
	if !ok {
		return nil, unknownStop(boarding)
	}
	// Only the route origin can board on a synthetic ledger.
	if l.synthetic && i != 0 {
		return nil, unknownStop(boarding)
	}

	names := make([]string, 0, len(l.stops)-i)
	for _, s := range l.stops[i+1:] {
		if s.Order > l.stops[i].Order {
			names = append(names, s.Name)
		}
	}
	return names, nil
}

// Quote prices the segment between two named stops.
func (l *Ledger) Quote(boarding, alighting string) (Fare, error) {
	board, ok := l.Lookup(boarding)
	if !ok {
		return Fare{}, unknownStop(boarding)
	}
	alight, ok := l.Lookup(alighting)
	if !ok {
		return Fare{}, unknownStop(alighting)
	}
	if alight.Order <= board.Order {
		return Fare{}, invalidSegment(boarding, alighting)
	}

	fare := Fare{
		Distance: alight.DistanceFromOrigin - board.DistanceFromOrigin,
		Price:    alight.PriceFromOrigin - board.PriceFromOrigin,
	}
	if fare.Distance < 0 || fare.Price < 0 {
		return Fare{}, &SequenceError{
			Violation: ViolationNegativeSegment,
			Index:     -1,
			Detail:    "segment " + boarding + " -> " + alighting + " yields a negative fare",
		}
	}
	return fare, nil
}

// MaxPrice is the largest price, in minor units, a route or stop may carry.
const MaxPrice int64 = 1_000_000_000_000

// MinorUnits converts a price held as a float into whole minor currency
// units, rounding half away from zero. Prices beyond ±MaxPrice, NaN and
// infinities fail with ErrPriceOutOfRange.
func MinorUnits(price float64) (int64, error) {
	rounded := math.Round(price)
	if math.IsNaN(rounded) || math.Abs(rounded) > float64(MaxPrice) {
		return 0, fmt.Errorf("%w: %g", ErrPriceOutOfRange, price)
	}
	return int64(rounded), nil
}
