package telemetry

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments are created against the global meter, which forwards to the
// provider installed by Init once it exists.
var (
	fareQuotes        metric.Int64Counter
	integrityFailures metric.Int64Counter
	ledgerCache       metric.Int64Counter
	bookingsCreated   metric.Int64Counter
	ticketsValidated  metric.Int64Counter
)

func init() {
	meter := otel.Meter(ServiceName)
	var err error

	if fareQuotes, err = meter.Int64Counter("fares.quotes",
		metric.WithDescription("Fare quotes served, by outcome"),
		metric.WithUnit("{quote}"),
	); err != nil {
		logrus.WithError(err).Warn("telemetry: fares.quotes instrument unavailable")
	}
	if integrityFailures, err = meter.Int64Counter("fares.ledger.integrity_failures",
		metric.WithDescription("Stop ledgers found breaking their invariants"),
		metric.WithUnit("{failure}"),
	); err != nil {
		logrus.WithError(err).Warn("telemetry: fares.ledger.integrity_failures instrument unavailable")
	}
	if ledgerCache, err = meter.Int64Counter("fares.ledger.cache",
		metric.WithDescription("Ledger snapshot cache lookups, by result"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		logrus.WithError(err).Warn("telemetry: fares.ledger.cache instrument unavailable")
	}
	if bookingsCreated, err = meter.Int64Counter("bookings.created",
		metric.WithDescription("Bookings created"),
		metric.WithUnit("{booking}"),
	); err != nil {
		logrus.WithError(err).Warn("telemetry: bookings.created instrument unavailable")
	}
	if ticketsValidated, err = meter.Int64Counter("tickets.validated",
		metric.WithDescription("Ticket validations at boarding, by result"),
		metric.WithUnit("{ticket}"),
	); err != nil {
		logrus.WithError(err).Warn("telemetry: tickets.validated instrument unavailable")
	}
}

// RecordQuote counts one fare quote with its outcome.
func RecordQuote(ctx context.Context, outcome string) {
	if fareQuotes != nil {
		fareQuotes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// RecordIntegrityFailure counts a ledger found corrupt on the read path or at ingestion.
func RecordIntegrityFailure(ctx context.Context, stage, violation string) {
	if integrityFailures != nil {
		integrityFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("violation", violation),
		))
	}
}

// RecordLedgerCache counts a snapshot cache lookup.
func RecordLedgerCache(ctx context.Context, hit bool) {
	if ledgerCache != nil {
		result := "miss"
		if hit {
			result = "hit"
		}
		ledgerCache.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
}

// RecordBooking counts a created booking for seats seats.
func RecordBooking(ctx context.Context, seats int) {
	if bookingsCreated != nil {
		bookingsCreated.Add(ctx, 1, metric.WithAttributes(attribute.Int("seats", seats)))
	}
}

// RecordTicketValidation counts a boarding ticket check.
func RecordTicketValidation(ctx context.Context, result string) {
	if ticketsValidated != nil {
		ticketsValidated.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
}
