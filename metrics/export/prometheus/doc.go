// Package prometheus renders engine counters for Prometheus scraping.
//
// [NewPrometheusExporter] accepts a [beautyauth.Engine] and exposes an
// [http.Handler] that writes all counters in Prometheus text exposition
// format. Counter names are prefixed beautyauth_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount
//     the Handler.
//   - Mutate engine state.
package prometheus
