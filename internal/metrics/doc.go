// Package metrics provides the observability hooks for shelfkeeper.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	registry := registry.New(store, registry.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// PrometheusRecorder registers its collectors on the supplied registry once;
// HTTPHandler exposes that registry for scraping.
package metrics
