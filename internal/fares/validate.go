package fares

import (
	"fmt"
	"sort"
	"strings"
)

// SortStops orders stops by their order field in place.
func SortStops(stops []Stop) {
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].Order < stops[j].Order })
}

// Validate checks a stop sequence sorted by order and reports the first
// broken invariant as a *SequenceError. An empty sequence is valid.
func Validate(stops []Stop) error {
	seen := make(map[string]int, len(stops))
	for i, s := range stops {
		fail := func(v Violation, format string, args ...any) error {
			return &SequenceError{Violation: v, Index: i, Stop: s.Name, Detail: fmt.Sprintf(format, args...)}
		}

		if strings.TrimSpace(s.Name) == "" {
			return fail(ViolationEmptyName, "stop name is empty")
		}
		if first, dup := seen[s.Name]; dup {
			return fail(ViolationDuplicateName, "name already used by stop %d", first+1)
		}
		seen[s.Name] = i

		if s.Order != i+1 {
			return fail(ViolationOrderGap, "expected order %d, got %d", i+1, s.Order)
		}
		if s.DistanceFromOrigin < 0 || s.PriceFromOrigin < 0 {
			return fail(ViolationNegativeValue, "distance %.3f and price %d must not be negative", s.DistanceFromOrigin, s.PriceFromOrigin)
		}

		if i == 0 {
			if s.DistanceFromOrigin != 0 || s.PriceFromOrigin != 0 {
				return fail(ViolationOriginNotZero, "origin must have zero distance and price, got %.3f km and %d", s.DistanceFromOrigin, s.PriceFromOrigin)
			}
			continue
		}

		prev := stops[i-1]
		if s.DistanceFromOrigin <= prev.DistanceFromOrigin {
			return fail(ViolationDecreasingDistance, "distance %.3f does not exceed %.3f at %q", s.DistanceFromOrigin, prev.DistanceFromOrigin, prev.Name)
		}
		if s.PriceFromOrigin < prev.PriceFromOrigin {
			return fail(ViolationDecreasingPrice, "price %d is below %d at %q", s.PriceFromOrigin, prev.PriceFromOrigin, prev.Name)
		}
	}
	return nil
}

// ValidateForRoute runs Validate and additionally requires at least an origin
// and a destination whose cumulative values match the route totals. It is the
// check every ledger ingestion goes through.
func ValidateForRoute(route RouteSummary, stops []Stop) error {
	if len(stops) < 2 {
		return &SequenceError{
			Violation: ViolationTooFewStops,
			Index:     -1,
			Detail:    fmt.Sprintf("a route needs at least 2 stops, got %d", len(stops)),
		}
	}
	if err := Validate(stops); err != nil {
		return err
	}

	last := stops[len(stops)-1]
	if last.DistanceFromOrigin != route.Distance || last.PriceFromOrigin != route.Price {
		return &SequenceError{
			Violation: ViolationTotalsMismatch,
			Index:     len(stops) - 1,
			Stop:      last.Name,
			Detail: fmt.Sprintf("final stop is %.3f km / %d but the route is %.3f km / %d",
				last.DistanceFromOrigin, last.PriceFromOrigin, route.Distance, route.Price),
		}
	}
	return nil
}

// OriginDestinationStops builds the minimal two-stop ledger for a route,
// the same shape a synthetic ledger uses.
func OriginDestinationStops(route RouteSummary) []Stop {
	return []Stop{
		{Name: route.Origin, Order: 1},
		{Name: route.Destination, Order: 2, DistanceFromOrigin: route.Distance, PriceFromOrigin: route.Price},
	}
}
