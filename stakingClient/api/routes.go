package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API server
func (s *Server) setupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.Path("/health").Methods(http.MethodGet).Name("health").HandlerFunc(s.handleHealth)
	router.Path("/metrics").Methods(http.MethodGet).Name("metrics").Handler(s.deps.Metrics.Handler())

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.Path("/snapshot").Methods(http.MethodGet).Name("snapshot").
		HandlerFunc(wrap(s.handleSnapshot))
	v1.Path("/validators/selected").Methods(http.MethodGet).Name("validators_selected").
		HandlerFunc(wrap(s.handleSelected))
	v1.Path("/validators/nominated").Methods(http.MethodGet).Name("validators_nominated").
		HandlerFunc(wrap(s.handleNominated))
	v1.Path("/validators/{id}").Methods(http.MethodGet).Name("validator").
		HandlerFunc(wrap(s.handleValidator))
	v1.Path("/action").Methods(http.MethodGet).Name("action_get").
		HandlerFunc(wrap(s.handleGetAction))
	v1.Path("/action").Methods(http.MethodPost).Name("action_start").
		HandlerFunc(wrap(s.handleStartAction))
	v1.Path("/action").Methods(http.MethodDelete).Name("action_cancel").
		HandlerFunc(wrap(s.handleCancelAction))
	v1.Path("/action/validators").Methods(http.MethodPut).Name("action_validators").
		HandlerFunc(wrap(s.handleSetValidators))
	v1.Path("/action/confirm").Methods(http.MethodPost).Name("action_confirm").
		HandlerFunc(wrap(s.handleConfirm))
	v1.Path("/refresh").Methods(http.MethodPost).Name("refresh").
		HandlerFunc(wrap(s.handleRefresh))
	v1.Path("/proxy-types").Methods(http.MethodGet).Name("proxy_types").
		HandlerFunc(wrap(s.handleProxyTypes))

	return router
}
