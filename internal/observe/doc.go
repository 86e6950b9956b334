// Package observe exports the decoder's internal search counters as
// OpenTelemetry metrics with a Prometheus exporter. It is the one ambient
// concern the core recognizer package never imports: only cmd/ and
// internal/server construct a Provider and a Recorder, and internal/server
// wires the Recorder into a decode through recognizer.Callbacks.
package observe
