// Package metrics defines the Prometheus collectors exported by the decoding and dispatch path.
//
// Collectors are registered on the Registerer passed to NewMetrics so that several
// clients, or tests, can each use their own registry. Registering twice on the same
// Registerer returns an error until the first set is unregistered.
package metrics
