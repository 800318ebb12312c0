package store

import (
	"context"
	"errors"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bus_ticketing/internal/fares"
	"bus_ticketing/internal/models"
	"bus_ticketing/internal/telemetry"
)

// Store reads and writes route stop ledgers through gorm.
type Store struct {
	db *gorm.DB
}

// New wraps an open database handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Summary converts a route record into the fields fare calculation uses.
func Summary(r models.Route) fares.RouteSummary {
	return fares.RouteSummary{
		ID:          r.ID,
		Origin:      r.Origin,
		Destination: r.Destination,
		Distance:    r.Distance,
		Price:       r.Price,
		Active:      r.Active,
	}
}

// LedgerStop converts a stop record into a ledger entry.
func LedgerStop(rs models.RouteStop) fares.Stop {
	return fares.Stop{
		Name:               rs.StopName,
		Order:              rs.Order,
		DistanceFromOrigin: rs.DistanceFromOrigin,
		PriceFromOrigin:    rs.PriceFromOrigin,
		EstimatedTime:      rs.EstimatedTime,
	}
}

func ledgerStops(rows []models.RouteStop) []fares.Stop {
	stops := make([]fares.Stop, 0, len(rows))
	for _, rs := range rows {
		stops = append(stops, LedgerStop(rs))
	}
	return stops
}

// LoadRoute returns the route summary or fares.ErrRouteNotFound.
func (s *Store) LoadRoute(ctx context.Context, routeID uint) (fares.RouteSummary, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "store.LoadRoute", trace.WithAttributes(attribute.Int("route.id", int(routeID))))
	defer span.End()

	var route models.Route
	if err := s.db.WithContext(ctx).First(&route, routeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fares.RouteSummary{}, fares.ErrRouteNotFound
		}
		span.RecordError(err)
		return fares.RouteSummary{}, err
	}
	return Summary(route), nil
}

// LoadStops returns the stops of a route ordered by stop order. A route
// without stops yields an empty slice.
func (s *Store) LoadStops(ctx context.Context, routeID uint) ([]fares.Stop, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "store.LoadStops", trace.WithAttributes(attribute.Int("route.id", int(routeID))))
	defer span.End()

	rows, err := s.StopRecords(ctx, routeID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return ledgerStops(rows), nil
}

// StopRecords returns the full stop rows of a route, coordinates included.
func (s *Store) StopRecords(ctx context.Context, routeID uint) ([]models.RouteStop, error) {
	db := s.db.WithContext(ctx)

	var n int64
	if err := db.Model(&models.Route{}).Where("id = ?", routeID).Count(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fares.ErrRouteNotFound
	}

	rows := []models.RouteStop{}
	if err := db.Where("route_id = ?", routeID).Order("stop_order asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ReplaceStops swaps the whole ledger of a route in one transaction after
// validating it against the route totals. Stops may arrive in any order;
// they are sorted by their order field first.
func (s *Store) ReplaceStops(ctx context.Context, routeID uint, stops []models.RouteStop) ([]models.RouteStop, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "store.ReplaceStops", trace.WithAttributes(
		attribute.Int("route.id", int(routeID)),
		attribute.Int("stops", len(stops)),
	))
	defer span.End()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceStops(ctx, tx, routeID, stops)
	})
	if err != nil {
		return nil, err
	}
	return s.StopRecords(ctx, routeID)
}

// replaceStops runs inside tx; stops is sorted in place.
func replaceStops(ctx context.Context, tx *gorm.DB, routeID uint, stops []models.RouteStop) error {
	var route models.Route
	if err := tx.First(&route, routeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fares.ErrRouteNotFound
		}
		return err
	}

	sortRecords(stops)
	if err := fares.ValidateForRoute(Summary(route), ledgerStops(stops)); err != nil {
		var seqErr *fares.SequenceError
		if errors.As(err, &seqErr) {
			telemetry.RecordIntegrityFailure(ctx, "ingest", string(seqErr.Violation))
		}
		return err
	}

	// Hard delete: the unique (route_id, stop_order) index must not see old rows.
	if err := tx.Unscoped().Where("route_id = ?", routeID).Delete(&models.RouteStop{}).Error; err != nil {
		return err
	}
	for i := range stops {
		stops[i].ID = 0
		stops[i].RouteID = routeID
	}
	return tx.Create(&stops).Error
}

func sortRecords(stops []models.RouteStop) {
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].Order < stops[j].Order })
}

// CreateRouteWithStops inserts a route and, when given, its initial ledger
// in one transaction.
func (s *Store) CreateRouteWithStops(ctx context.Context, route *models.Route, stops []models.RouteStop) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(route).Error; err != nil {
			return err
		}
		if len(stops) == 0 {
			return nil
		}
		return replaceStops(ctx, tx, route.ID, stops)
	})
}

// BackfillOriginDestination gives every stop-less route the two-stop
// origin/destination ledger its fares already fall back to, and returns
// the ids of the routes it repaired.
func (s *Store) BackfillOriginDestination(ctx context.Context) ([]uint, error) {
	var routes []models.Route
	err := s.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM route_stops rs WHERE rs.route_id = routes.id)").
		Order("id asc").
		Find(&routes).Error
	if err != nil {
		return nil, err
	}

	var repaired []uint
	for _, r := range routes {
		var rows []models.RouteStop
		for _, st := range fares.OriginDestinationStops(Summary(r)) {
			rows = append(rows, models.RouteStop{
				StopName:           st.Name,
				Order:              st.Order,
				DistanceFromOrigin: st.DistanceFromOrigin,
				PriceFromOrigin:    st.PriceFromOrigin,
			})
		}
		if _, err := s.ReplaceStops(ctx, r.ID, rows); err != nil {
			return repaired, err
		}
		repaired = append(repaired, r.ID)
	}
	return repaired, nil
}

// LedgerIssue reports a route whose persisted ledger breaks an invariant.
type LedgerIssue struct {
	RouteID uint
	Err     error
}

// CheckLedgers validates every persisted ledger. Routes without stops are
// skipped unless they are active, in which case they are reported as using
// the flat fallback.
func (s *Store) CheckLedgers(ctx context.Context) ([]LedgerIssue, error) {
	var routes []models.Route
	if err := s.db.WithContext(ctx).Order("id asc").Find(&routes).Error; err != nil {
		return nil, err
	}

	var issues []LedgerIssue
	for _, r := range routes {
		stops, err := s.LoadStops(ctx, r.ID)
		if err != nil {
			return issues, err
		}
		if len(stops) == 0 {
			if r.Active {
				issues = append(issues, LedgerIssue{RouteID: r.ID, Err: errNoStops})
			}
			continue
		}
		if err := fares.ValidateForRoute(Summary(r), stops); err != nil {
			issues = append(issues, LedgerIssue{RouteID: r.ID, Err: err})
		}
	}
	return issues, nil
}

var errNoStops = errors.New("active route has no stops; fares use the origin/destination fallback")

// IsUniqueViolation reports whether err comes from a unique index. The
// handle must be opened with TranslateError so drivers report
// gorm.ErrDuplicatedKey.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
