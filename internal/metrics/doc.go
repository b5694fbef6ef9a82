// Package metrics defines and registers all Prometheus metrics for the
// photokeep scan pipeline and catalog store.
//
// Metrics are registered at package init via promauto and exposed by the
// metrics HTTP listener started from main.
package metrics
