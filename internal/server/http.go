package server

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DoctorCheck is one named preflight check's outcome.
type DoctorCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

// DoctorChecker runs the decoder's environment preflight checks (model
// files present and parseable, dictionary/DFA/N-gram compatible). A
// concrete implementation lives in internal/doctor; this package only
// depends on the interface so a server can be built and tested without
// dragging in every model loader doctor exercises.
type DoctorChecker interface {
	Check() []DoctorCheck
}

func (s *Server) newHTTPHandler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/doctor", s.handleDoctor).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        buildVersion(),
		"module_clients": s.tcp.clientCount(),
	})
}

func (s *Server) handleDoctor(w http.ResponseWriter, _ *http.Request) {
	if s.doctor == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "no doctor checks configured"})
		return
	}

	checks := s.doctor.Check()
	status := http.StatusOK
	for _, c := range checks {
		if !c.OK {
			status = http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, status, checks)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}

	return "dev"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
