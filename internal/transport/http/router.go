package http

import "github.com/gorilla/mux"

// NewRouter configures the converter service routes.
func NewRouter(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/upload", handler.Upload).Methods("POST")
	r.HandleFunc("/convert/{fileId}", handler.Convert).Methods("POST")
	r.HandleFunc("/status/{conversionId}", handler.Status).Methods("GET")
	r.HandleFunc("/download/{conversionId}", handler.Download).Methods("GET")
	r.HandleFunc("/health", handler.Health).Methods("GET")
	return r
}
