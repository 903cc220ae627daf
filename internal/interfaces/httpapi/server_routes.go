package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerProjectionRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/projections", handler.Predict)
	mux.HandleFunc("POST /v1/projections/batch", handler.PredictBatch)
	mux.HandleFunc("POST /v1/comps", handler.Comps)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	// Refetches the statistics source; keep it behind the job token.
	mux.Handle("POST /v1/internal/history/rebuild", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RebuildHistory)))
}
