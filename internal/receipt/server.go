package receipt

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server handles HTTP requests for receipts
type Server struct {
	service  *Service
	gatherer prometheus.Gatherer
	mux      *http.ServeMux
}

// NewServer creates a new Server with default mux. A nil gatherer disables
// the /metrics endpoint.
func NewServer(service *Service, gatherer prometheus.Gatherer) *Server {
	return NewServerWithMux(service, gatherer, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, gatherer prometheus.Gatherer, mux *http.ServeMux) *Server {
	s := &Server{
		service:  service,
		gatherer: gatherer,
		mux:      mux,
	}
	s.registerRoutes()
	return s
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/receipts/{id}/file", s.handleGetReceiptFile)
	s.mux.HandleFunc("POST /api/receipts/{id}/reprocess", s.handleReprocessReceipt)
	s.mux.HandleFunc("PATCH /api/receipts/{id}/items/{position}", s.handleUpdateItem)
	s.mux.HandleFunc("GET /api/receipts/{id}", s.handleGetReceipt)
	s.mux.HandleFunc("PATCH /api/receipts/{id}", s.handleUpdateTotals)
	s.mux.HandleFunc("DELETE /api/receipts/{id}", s.handleDeleteReceipt)
	s.mux.HandleFunc("GET /api/receipts", s.handleListReceipts)
	s.mux.HandleFunc("POST /api/receipts", s.handleUploadReceipt)

	s.mux.HandleFunc("POST /api/parse", s.handleParseWords)

	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns the mux wrapped with CORS handling
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}
