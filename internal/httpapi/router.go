package httpapi

import (
	"net/http"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
// Feed routes require a signature when a Verifier is set.
func NewRouter(app *App) http.Handler {
	feedMux := http.NewServeMux()
	feedMux.HandleFunc("GET /v1/products/deltas", app.getDeltasHandler)
	feedMux.HandleFunc("POST /v1/products/deltas", app.postDeltasHandler)

	var feedHandler http.Handler = feedMux
	if app.Verifier != nil {
		feedHandler = WithAuth(app.Verifier, app.Logger, feedMux)
	}

	mux := http.NewServeMux()
	mux.Handle("/v1/", feedHandler)
	mux.HandleFunc("GET /health", app.healthHandler)
	mux.HandleFunc("GET /debug/channels", app.channelsHandler)
	if app.Metrics != nil {
		path := app.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, app.Metrics)
	}
	return WithRequestID(WithLogging(app.Logger, mux))
}
