// Package server implements spec §6's module server: a TCP listener that
// broadcasts each utterance's recognition result to connected clients as
// XML, alongside an HTTP mux exposing health, doctor, and Prometheus
// metrics endpoints (spec §1's "command-line and module server" is named
// as an external collaborator of the decoder core; this package is that
// collaborator, never imported back by internal/recognizer or below).
package server
