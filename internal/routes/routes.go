package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"HeliumRecovery.monitor/internal/controller"
)

// SetupRouter defines all API routes. auth wraps the /api routes and may be nil.
// ws serves the refresh stream and may be nil.
func SetupRouter(c *controller.MonitorController, auth func(http.Handler) http.Handler, ws http.HandlerFunc) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", c.HandleHealth).Methods(http.MethodGet)
	if ws != nil {
		router.HandleFunc("/ws", ws).Methods(http.MethodGet)
	}

	api := router.PathPrefix("/api").Subrouter()
	if auth != nil {
		api.Use(mux.MiddlewareFunc(auth))
	}
	SetupReadingRoutes(api, c)
	SetupCommandRoutes(api, c)
	return router
}

// SetupReadingRoutes registers the dataset routes.
func SetupReadingRoutes(router *mux.Router, c *controller.MonitorController) {
	router.HandleFunc("/readings", c.HandleGetReadings).Methods(http.MethodGet)
	router.HandleFunc("/readings", c.HandleEditReadings).Methods(http.MethodPut)
	router.HandleFunc("/readings", c.HandleAppendReadings).Methods(http.MethodPost)
	router.HandleFunc("/readings/export", c.HandleExport).Methods(http.MethodGet)
	router.HandleFunc("/reload", c.HandleReload).Methods(http.MethodPost)
	router.HandleFunc("/kpi", c.HandleKPI).Methods(http.MethodGet)
	router.HandleFunc("/consumption", c.HandleConsumption).Methods(http.MethodGet)
}

// SetupCommandRoutes registers the assistant command routes.
func SetupCommandRoutes(router *mux.Router, c *controller.MonitorController) {
	router.HandleFunc("/commands", c.HandleListCommands).Methods(http.MethodGet)
	router.HandleFunc("/commands/{name}", c.HandleExecuteCommand).Methods(http.MethodPost)
}
