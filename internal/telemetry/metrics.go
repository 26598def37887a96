package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the registry's application metrics.
type Metrics struct {
	SearchRequests   metric.Int64Counter
	SearchDuration   metric.Float64Histogram
	IndexedDocuments metric.Int64Counter
	PagesCrawled     metric.Int64Counter
}

func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("codecollection-registry")

	searchRequests, err := meter.Int64Counter(
		"search.requests.total",
		metric.WithDescription("Total search requests by mode and outcome"),
	)
	if err != nil {
		return nil, err
	}

	searchDuration, err := meter.Float64Histogram(
		"search.request.duration",
		metric.WithDescription("Search pipeline duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	indexedDocuments, err := meter.Int64Counter(
		"index.documents.total",
		metric.WithDescription("Documents embedded and indexed"),
	)
	if err != nil {
		return nil, err
	}

	pagesCrawled, err := meter.Int64Counter(
		"crawler.pages.total",
		metric.WithDescription("Documentation pages fetched and stored"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		SearchRequests:   searchRequests,
		SearchDuration:   searchDuration,
		IndexedDocuments: indexedDocuments,
		PagesCrawled:     pagesCrawled,
	}, nil
}

// RecordSearch tallies one completed search request.
func (m *Metrics) RecordSearch(ctx context.Context, mode string, degraded, noMatch bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.Bool("degraded", degraded),
		attribute.Bool("no_match", noMatch),
	)
	m.SearchRequests.Add(ctx, 1, attrs)
	m.SearchDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordIndexed tallies documents published to a vector collection.
func (m *Metrics) RecordIndexed(ctx context.Context, collection string, count int) {
	if m == nil {
		return
	}
	m.IndexedDocuments.Add(ctx, int64(count),
		metric.WithAttributes(attribute.String("collection", collection)))
}

// RecordPagesCrawled tallies stored documentation pages per site.
func (m *Metrics) RecordPagesCrawled(ctx context.Context, site string, count int) {
	if m == nil {
		return
	}
	m.PagesCrawled.Add(ctx, int64(count),
		metric.WithAttributes(attribute.String("site", site)))
}
